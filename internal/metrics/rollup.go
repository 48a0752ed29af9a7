package metrics

import (
	"sort"

	"github.com/sells-group/territory-engine/internal/dataset"
)

// TerritoryPoint is one territory's rolled-up value for a metric.
type TerritoryPoint struct {
	TerritoryID string  `json:"territory_id"`
	Metric      string  `json:"metric"`
	Value       float64 `json:"value"`
}

// RollupByTerritory groups raw records by territory using the
// assignment map. Sum metrics add up; lookup metrics average over the
// raw records that landed in the territory, not over already
// aggregated zone values, so a zone with many records does not get
// double weight. Records for unassigned zones are excluded. Output is
// sorted by territory id.
func RollupByTerritory(name string, records []dataset.Record, assignments map[string]string) ([]TerritoryPoint, error) {
	metric, err := ByName(name)
	if err != nil {
		return nil, err
	}

	sums := map[string]float64{}
	counts := map[string]int{}
	for _, rec := range records {
		territory, ok := assignments[rec.ZoneID]
		if !ok {
			continue
		}
		v, ok := rec.Values[metric.Name]
		if !ok {
			continue
		}
		sums[territory] += v
		counts[territory]++
	}

	points := make([]TerritoryPoint, 0, len(sums))
	for territory, sum := range sums {
		v := sum
		if metric.Kind == Lookup {
			v = sum / float64(counts[territory])
		}
		points = append(points, TerritoryPoint{TerritoryID: territory, Metric: metric.Name, Value: v})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].TerritoryID < points[j].TerritoryID })
	return points, nil
}
