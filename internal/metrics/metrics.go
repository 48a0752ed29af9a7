// Package metrics merges uploaded funnel and demographic datasets by
// zone, and rolls zone series up to territories via the assignment
// map.
package metrics

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/territory-engine/internal/dataset"
)

// Kind determines how raw records combine into a zone value.
type Kind int

const (
	// Sum metrics count events: every record for a zone contributes.
	Sum Kind = iota
	// Lookup metrics carry one value per zone in reference data; if
	// a zone somehow appears twice the last record wins.
	Lookup
)

// Metric is a registered, queryable metric.
type Metric struct {
	Name string
	Kind Kind
}

// registry holds every metric the aggregator knows. Requests for
// anything else are validation errors, rejected before any I/O.
var registry = map[string]Metric{
	"leads":                   {Name: "leads", Kind: Sum},
	"appointments":            {Name: "appointments", Kind: Sum},
	"sales":                   {Name: "sales", Kind: Sum},
	"revenue":                 {Name: "revenue", Kind: Sum},
	"population":              {Name: "population", Kind: Lookup},
	"median_household_income": {Name: "median_household_income", Kind: Lookup},
}

// ByName resolves a metric name (case-insensitive).
func ByName(name string) (Metric, error) {
	m, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Metric{}, eris.Errorf("metrics: unknown metric %q", name)
	}
	return m, nil
}

// Names lists the registered metric names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SeriesPoint is one zone's aggregated value for a metric.
type SeriesPoint struct {
	ZoneID string  `json:"zone_id"`
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
}

// Aggregate groups raw records by zone for the named metric. Zones
// absent from the input do not appear in the output; there is no
// zero-fill. Output is sorted by zone id.
func Aggregate(name string, records []dataset.Record) ([]SeriesPoint, error) {
	metric, err := ByName(name)
	if err != nil {
		return nil, err
	}

	values := map[string]float64{}
	for _, rec := range records {
		v, ok := rec.Values[metric.Name]
		if !ok {
			continue
		}
		switch metric.Kind {
		case Sum:
			values[rec.ZoneID] += v
		case Lookup:
			values[rec.ZoneID] = v
		}
	}

	points := make([]SeriesPoint, 0, len(values))
	for zone, v := range values {
		points = append(points, SeriesPoint{ZoneID: zone, Metric: metric.Name, Value: v})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].ZoneID < points[j].ZoneID })
	return points, nil
}
