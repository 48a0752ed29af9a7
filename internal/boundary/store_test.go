package boundary

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/territory-engine/internal/geometry"
)

const zctaGeoJSON = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"properties": {"ZCTA5CE20": "19103"},
			"geometry": {
				"type": "Polygon",
				"coordinates": [[[-75.2, 39.9], [-75.1, 39.9], [-75.1, 40.0], [-75.2, 40.0], [-75.2, 39.9]]]
			}
		},
		{
			"type": "Feature",
			"properties": {"GEOID10": "19104"},
			"geometry": {
				"type": "MultiPolygon",
				"coordinates": [
					[[[-75.0, 39.0], [-74.9, 39.0], [-74.9, 39.1], [-75.0, 39.1], [-75.0, 39.0]]],
					[[[-70.0, 35.0], [-69.9, 35.0], [-69.9, 35.1], [-70.0, 35.1], [-70.0, 35.0]]]
				]
			}
		},
		{
			"type": "Feature",
			"properties": {"name": "no zone code here"},
			"geometry": {
				"type": "Polygon",
				"coordinates": [[[0, 0], [1, 0], [1, 1], [0, 1], [0, 0]]]
			}
		}
	]
}`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_GeoJSON(t *testing.T) {
	s := Load(writeTempFile(t, "zcta.geojson", zctaGeoJSON))

	require.Equal(t, 2, s.Len(), "feature without a zone code is skipped")

	z := s.Zone("19103")
	require.NotNil(t, z)
	assert.InDelta(t, -75.15, z.Centroid.Lng, 1e-9)
	assert.InDelta(t, 39.95, z.Centroid.Lat, 1e-9)

	// Multi-polygon reduces to its first part: the centroid comes from
	// the -75 ring, not the detached -70 ring.
	z = s.Zone("19104")
	require.NotNil(t, z)
	assert.InDelta(t, -74.95, z.Centroid.Lng, 1e-9)
}

func TestLoad_MissingFile(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "nope.geojson"))
	assert.Equal(t, 0, s.Len(), "missing reference data degrades to an empty zone set")
}

func TestLoad_Malformed(t *testing.T) {
	s := Load(writeTempFile(t, "bad.geojson", `{"type": "FeatureCollection", "features": [`))
	assert.Equal(t, 0, s.Len())
}

func TestLoad_Shapefile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zcta.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.SetFields([]shp.Field{shp.StringField("ZCTA5CE20", 10)})

	ring := []shp.Point{
		{X: -75.2, Y: 39.9},
		{X: -75.1, Y: 39.9},
		{X: -75.1, Y: 40.0},
		{X: -75.2, Y: 40.0},
		{X: -75.2, Y: 39.9},
	}
	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{ring}))
	w.Write(&poly)
	w.WriteAttribute(0, 0, "19103")
	w.Close()

	s := Load(path)
	require.Equal(t, 1, s.Len())

	z := s.Zone("19103")
	require.NotNil(t, z)
	assert.InDelta(t, -75.15, z.Centroid.Lng, 1e-9)
	assert.InDelta(t, 39.95, z.Centroid.Lat, 1e-9)
}

func TestNew_LookupSurvivesSliceGrowth(t *testing.T) {
	var zones []Zone
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("%05d", i)
		f := float64(i)
		zones = append(zones, Zone{ID: id, Boundary: geometry.Polygon{Outer: geometry.Ring{
			{Lng: f, Lat: f}, {Lng: f + 1, Lat: f}, {Lng: f + 1, Lat: f + 1}, {Lng: f, Lat: f},
		}}})
	}

	s := New(zones)
	require.Equal(t, 200, s.Len())

	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("%05d", i)
		z := s.Zone(id)
		require.NotNil(t, z, id)
		assert.Equal(t, id, z.ID)
		assert.InDelta(t, float64(i), z.Centroid.Lng, 1.0, id)
	}
}

func TestNew_DropsDegenerate(t *testing.T) {
	s := New([]Zone{
		{ID: "19103", Boundary: geometry.Polygon{Outer: geometry.Ring{
			{Lng: 0, Lat: 0}, {Lng: 1, Lat: 0}, {Lng: 1, Lat: 1}, {Lng: 0, Lat: 0},
		}}},
		{ID: "", Boundary: geometry.Polygon{Outer: geometry.Ring{
			{Lng: 0, Lat: 0}, {Lng: 1, Lat: 0}, {Lng: 1, Lat: 1},
		}}},
		{ID: "19104", Boundary: geometry.Polygon{Outer: geometry.Ring{
			{Lng: 0, Lat: 0}, {Lng: 1, Lat: 1},
		}}},
	})

	assert.Equal(t, 1, s.Len())
	assert.NotNil(t, s.Zone("19103"))
	assert.Nil(t, s.Zone("19104"))
}
