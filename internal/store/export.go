package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"sort"

	"github.com/rotisserie/eris"
)

// ExportFormat selects the assignment export encoding.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

// ContentType returns the MIME type for the format.
func (f ExportFormat) ContentType() string {
	if f == ExportCSV {
		return "text/csv"
	}
	return "application/json"
}

// ExportAssignments renders the assignment map as JSON (the raw map)
// or CSV (zone_id, territory_id, territory_name rows sorted by zone).
// Dangling territory ids export with an empty name rather than being
// dropped.
func ExportAssignments(ctx context.Context, s Store, format ExportFormat) ([]byte, error) {
	assignments, err := s.Assignments(ctx)
	if err != nil {
		return nil, err
	}

	switch format {
	case ExportJSON, "":
		data, err := json.MarshalIndent(assignments, "", "  ")
		return data, eris.Wrap(err, "export: marshal assignments")

	case ExportCSV:
		territories, err := s.ListTerritories(ctx)
		if err != nil {
			return nil, err
		}
		names := make(map[string]string, len(territories))
		for _, t := range territories {
			names[t.ID] = t.Name
		}

		zones := make([]string, 0, len(assignments))
		for z := range assignments {
			zones = append(zones, z)
		}
		sort.Strings(zones)

		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		_ = w.Write([]string{"zone_id", "territory_id", "territory_name"})
		for _, z := range zones {
			terr := assignments[z]
			_ = w.Write([]string{z, terr, names[terr]})
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, eris.Wrap(err, "export: write csv")
		}
		return buf.Bytes(), nil

	default:
		return nil, eris.Errorf("export: unknown format %q", format)
	}
}
