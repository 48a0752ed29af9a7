// Package boundary loads postal-zone reference geometry and exposes
// zone lookup by id and precomputed centroids. Zones are immutable
// after load and the store is safe for concurrent readers.
package boundary

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/territory-engine/internal/geometry"
)

// Zone is one postal boundary unit: a fixed-format code plus its
// polygon and the derived vertex-mean centroid.
type Zone struct {
	ID       string
	Boundary geometry.Polygon
	Centroid geometry.Point
}

// Store holds the loaded zone set.
type Store struct {
	zones  []Zone
	byID   map[string]*Zone
	source string
}

// New builds a store from an explicit zone slice. Zones with a blank
// id or degenerate geometry are dropped; centroids are recomputed.
func New(zones []Zone) *Store {
	s := &Store{}
	for _, z := range zones {
		if z.ID == "" || z.Boundary.Outer.IsDegenerate() {
			continue
		}
		c, ok := geometry.Centroid(z.Boundary.Outer)
		if !ok {
			continue
		}
		z.Centroid = c
		s.zones = append(s.zones, z)
	}

	// Index only once the slice has stopped growing, so the pointers
	// reference the final backing array.
	s.byID = make(map[string]*Zone, len(s.zones))
	for i := range s.zones {
		s.byID[s.zones[i].ID] = &s.zones[i]
	}
	return s
}

// Load reads zone boundaries from a GeoJSON feature collection or a
// shapefile, dispatching on the file extension. A missing or
// malformed file yields an empty store, not an error: callers must
// treat "no zones" as a valid, if degenerate, state.
func Load(path string) *Store {
	log := zap.L().With(zap.String("component", "boundary"), zap.String("path", path))

	var zones []Zone
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		zones, err = loadShapefile(path)
	default:
		zones, err = loadGeoJSON(path)
	}
	if err != nil {
		log.Warn("boundary: reference data unavailable, starting with empty zone set", zap.Error(err))
		return New(nil)
	}

	s := New(zones)
	s.source = path
	log.Info("boundary: zones loaded", zap.Int("zones", s.Len()))
	return s
}

// Zones returns the loaded zone set. Callers must not mutate it.
func (s *Store) Zones() []Zone {
	return s.zones
}

// Zone returns the zone with the given id, or nil.
func (s *Store) Zone(id string) *Zone {
	return s.byID[id]
}

// Len returns the number of loaded zones.
func (s *Store) Len() int {
	return len(s.zones)
}

// Source returns the path the store was loaded from, if any.
func (s *Store) Source() string {
	return s.source
}

// loadGeoJSON parses a GeoJSON FeatureCollection of polygon or
// multi-polygon features. Multi-part geometries reduce to their first
// part; features without a resolvable zone code are skipped.
func loadGeoJSON(path string) ([]Zone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, err
	}

	var zones []Zone
	var skipped int
	for _, f := range fc.Features {
		id, ok := ZoneID(f.Properties)
		if !ok {
			skipped++
			continue
		}
		poly, ok := polygonFromGeom(f.Geometry)
		if !ok {
			skipped++
			continue
		}
		zones = append(zones, Zone{ID: id, Boundary: poly})
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped geojson features",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return zones, nil
}

// polygonFromGeom converts a decoded geometry to the internal polygon
// type, applying the first-part reduction for multi-polygons.
func polygonFromGeom(g geom.T) (geometry.Polygon, bool) {
	return geometry.FirstPolygon(geometry.FromGeom(g))
}
