package boundary

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"go.uber.org/zap"

	"github.com/sells-group/territory-engine/internal/geometry"
)

// loadShapefile reads zones from a TIGER-style shapefile. The zone
// code is resolved from the attribute table with the same legacy-name
// tolerance as GeoJSON properties; multi-part polygons reduce to
// their first part.
func loadShapefile(path string) ([]Zone, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map. Attribute names are fixed-width
	// and NUL padded.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	var zones []Zone
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		props := make(map[string]any, len(fieldIdx))
		for name, idx := range fieldIdx {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
			if val != "" {
				props[name] = val
			}
		}

		id, ok := ZoneID(props)
		if !ok {
			skipped++
			continue
		}

		poly, ok := shapeToPolygon(shape)
		if !ok {
			skipped++
			continue
		}
		zones = append(zones, Zone{ID: id, Boundary: poly})
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return zones, nil
}

// shapeToPolygon converts a shapefile Polygon to the internal type,
// keeping the first part only.
func shapeToPolygon(s shp.Shape) (geometry.Polygon, bool) {
	p, ok := s.(*shp.Polygon)
	if !ok || p.NumParts == 0 || len(p.Points) == 0 {
		return geometry.Polygon{}, false
	}

	mp := make(geometry.MultiPolygon, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		ring := make(geometry.Ring, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, geometry.Point{Lng: p.Points[j].X, Lat: p.Points[j].Y})
		}
		mp = append(mp, geometry.Polygon{Outer: ring})
	}

	return geometry.FirstPolygon(mp)
}
