// Package dataset loads uploaded tabular metric data (CSV or XLSX)
// into normalized per-zone records for the aggregator.
package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Record is one normalized uploaded row: the zone it belongs to plus
// every numeric column keyed by its lowercased header.
type Record struct {
	ZoneID string
	Values map[string]float64
}

// zoneColumns are the accepted header names for the zone code, in
// resolution order. Uploads come from several legacy tools that never
// agreed on a name.
var zoneColumns = []string{"zone", "zone_id", "zip", "zcta", "postal_code"}

// zoneColumnIndex finds the zone column in a header row. Matching is
// case-insensitive, first match in resolution order wins.
func zoneColumnIndex(header []string) (int, bool) {
	lowered := make([]string, len(header))
	for i, h := range header {
		lowered[i] = strings.ToLower(strings.TrimSpace(h))
	}
	for _, want := range zoneColumns {
		for i, h := range lowered {
			if h == want {
				return i, true
			}
		}
	}
	return 0, false
}

// fromRows converts header+data rows into records. Rows with a blank
// zone cell are dropped; non-numeric cells are skipped rather than
// failing the whole upload.
func fromRows(header []string, rows [][]string) ([]Record, error) {
	zoneIdx, ok := zoneColumnIndex(header)
	if !ok {
		return nil, eris.Errorf("dataset: no zone column in header (accepted: %s)", strings.Join(zoneColumns, ", "))
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		if zoneIdx >= len(row) {
			continue
		}
		zone := strings.TrimSpace(row[zoneIdx])
		if zone == "" {
			continue
		}

		rec := Record{ZoneID: zone, Values: map[string]float64{}}
		for i, cell := range row {
			if i == zoneIdx || i >= len(header) {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				continue
			}
			rec.Values[strings.ToLower(strings.TrimSpace(header[i]))] = v
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadCSV parses a CSV stream whose first row is the header.
func ReadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable fields

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read csv")
	}
	if len(rows) == 0 {
		return nil, eris.New("dataset: empty csv")
	}
	return fromRows(rows[0], rows[1:])
}

// ReadXLSX parses the first sheet of an XLSX file whose first row is
// the header.
func ReadXLSX(path string) ([]Record, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("dataset: xlsx has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return nil, eris.New("dataset: empty sheet")
	}
	return fromRows(rows[0], rows[1:])
}

// LoadFile dispatches on the file extension: .xlsx goes through the
// spreadsheet reader, everything else is treated as CSV.
func LoadFile(path string) ([]Record, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return ReadXLSX(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open file")
	}
	defer f.Close()
	return ReadCSV(f)
}
