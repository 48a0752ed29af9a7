package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/territory-engine/internal/boundary"
	"github.com/sells-group/territory-engine/internal/coverage"
	"github.com/sells-group/territory-engine/internal/geometry"
	"github.com/sells-group/territory-engine/internal/model"
	"github.com/sells-group/territory-engine/internal/store"
)

// stubClient serves a 1°x1° square isochrone around each origin, or
// fails every call when broken is set.
type stubClient struct {
	broken bool
}

func (c *stubClient) Isochrone(_ context.Context, origin geometry.Point, _ int) ([]geometry.Polygon, error) {
	if c.broken {
		return nil, eris.New("provider down")
	}
	return []geometry.Polygon{{Outer: geometry.Ring{
		{Lng: origin.Lng - 0.5, Lat: origin.Lat - 0.5},
		{Lng: origin.Lng + 0.5, Lat: origin.Lat - 0.5},
		{Lng: origin.Lng + 0.5, Lat: origin.Lat + 0.5},
		{Lng: origin.Lng - 0.5, Lat: origin.Lat + 0.5},
		{Lng: origin.Lng - 0.5, Lat: origin.Lat - 0.5},
	}}}, nil
}

func testServer(t *testing.T) (*Server, *stubClient, string) {
	t.Helper()

	s, err := store.NewJSON(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	zones := []boundary.Zone{
		{ID: "19103", Centroid: geometry.Point{Lng: -75.0, Lat: 40.0}},
		{ID: "18503", Centroid: geometry.Point{Lng: -75.0, Lat: 41.5}},
	}
	for i := range zones {
		c := zones[i].Centroid
		zones[i].Boundary = geometry.Polygon{Outer: geometry.Ring{
			{Lng: c.Lng - 0.01, Lat: c.Lat - 0.01},
			{Lng: c.Lng + 0.01, Lat: c.Lat - 0.01},
			{Lng: c.Lng + 0.01, Lat: c.Lat + 0.01},
			{Lng: c.Lng - 0.01, Lat: c.Lat + 0.01},
			{Lng: c.Lng - 0.01, Lat: c.Lat - 0.01},
		}}
	}

	client := &stubClient{}
	cache := coverage.NewCache(s)
	calc := coverage.NewCalculator(client, boundary.New(zones), cache)

	datasetDir := t.TempDir()
	return New(s, calc, cache, boundary.New(zones), datasetDir), client, datasetDir
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t)
	rec := do(t, srv.Handler(), http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 2.0, body["zones"])
}

func TestCoverage(t *testing.T) {
	srv, _, _ := testServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/coverage", map[string]any{
		"duration_minutes": 30,
		"origins":          []map[string]float64{{"lat": 40.0, "lng": -75.0}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[model.CoverageResult](t, rec)
	assert.Equal(t, []string{"19103"}, res.ZoneIDs)
	assert.False(t, res.FromCache)

	// Identical request is served from cache.
	rec = do(t, h, http.MethodPost, "/api/coverage", map[string]any{
		"duration_minutes": 30,
		"origins":          []map[string]float64{{"lat": 40.0, "lng": -75.0}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[model.CoverageResult](t, rec).FromCache)
}

func TestCoverage_ZeroOriginsIs400(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := do(t, srv.Handler(), http.MethodPost, "/api/coverage", map[string]any{
		"duration_minutes": 30,
		"origins":          []map[string]float64{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCoverage_ProviderDownIsEmptyNot500(t *testing.T) {
	srv, client, _ := testServer(t)
	client.broken = true

	rec := do(t, srv.Handler(), http.MethodPost, "/api/coverage", map[string]any{
		"duration_minutes": 30,
		"origins":          []map[string]float64{{"lat": 40.0, "lng": -75.0}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[model.CoverageResult](t, rec).ZoneIDs)
}

func TestTerritoryLifecycle(t *testing.T) {
	srv, _, _ := testServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/territories/", map[string]string{"name": "East", "color": "#ff0000"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[model.Territory](t, rec)
	require.NotEmpty(t, created.ID)

	rec = do(t, h, http.MethodGet, "/api/territories/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Territory](t, rec), 1)

	rec = do(t, h, http.MethodPatch, "/api/territories/"+created.ID, map[string]string{"name": "East Side"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "East Side", decode[model.Territory](t, rec).Name)

	rec = do(t, h, http.MethodPatch, "/api/territories/nope", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/territories/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/territories/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTerritoryCreate_RequiresName(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := do(t, srv.Handler(), http.MethodPost, "/api/territories/", map[string]string{"color": "#fff"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssignments(t *testing.T) {
	srv, _, _ := testServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPut, "/api/assignments/19103", map[string]string{"territory_id": "t-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/assignments/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"19103": "t-1"}, decode[map[string]string](t, rec))

	// null territory_id clears.
	rec = do(t, h, http.MethodPut, "/api/assignments/19103", map[string]any{"territory_id": nil})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/assignments/", nil)
	assert.Empty(t, decode[map[string]string](t, rec))

	rec = do(t, h, http.MethodPut, "/api/assignments/", map[string]string{"19103": "t-1", "19104": "t-2"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/assignments/", nil)
	assert.Len(t, decode[map[string]string](t, rec), 2)
}

func TestExportAssignments(t *testing.T) {
	srv, _, _ := testServer(t)
	h := srv.Handler()

	do(t, h, http.MethodPut, "/api/assignments/19103", map[string]string{"territory_id": "t-1"})

	rec := do(t, h, http.MethodGet, "/api/assignments/export?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "zone_id,territory_id,territory_name"))

	rec = do(t, h, http.MethodGet, "/api/assignments/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = do(t, h, http.MethodGet, "/api/assignments/export?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPruneAssignments(t *testing.T) {
	srv, _, _ := testServer(t)
	h := srv.Handler()

	do(t, h, http.MethodPut, "/api/assignments/19103", map[string]string{"territory_id": "gone"})

	rec := do(t, h, http.MethodPost, "/api/assignments/prune", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int{"pruned": 1}, decode[map[string]int](t, rec))
}

func TestMetricSeries(t *testing.T) {
	srv, _, datasetDir := testServer(t)
	h := srv.Handler()

	csv := "zip,leads,revenue\n19103,2,100\n19103,3,50\n18503,1,10\n"
	require.NoError(t, os.WriteFile(filepath.Join(datasetDir, "funnel.csv"), []byte(csv), 0o644))

	rec := do(t, h, http.MethodGet, "/api/metrics/leads", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	points := decode[[]map[string]any](t, rec)
	require.Len(t, points, 2)
	assert.Equal(t, "18503", points[0]["zone_id"])
	assert.Equal(t, 5.0, points[1]["value"])
}

func TestMetricSeries_TerritoryRollup(t *testing.T) {
	srv, _, datasetDir := testServer(t)
	h := srv.Handler()

	csv := "zip,revenue\n19103,100\n18503,10\n"
	require.NoError(t, os.WriteFile(filepath.Join(datasetDir, "funnel.csv"), []byte(csv), 0o644))
	do(t, h, http.MethodPut, "/api/assignments/", map[string]string{"19103": "t-1", "18503": "t-1"})

	rec := do(t, h, http.MethodGet, "/api/metrics/revenue?rollup=territory", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	points := decode[[]map[string]any](t, rec)
	require.Len(t, points, 1)
	assert.Equal(t, "t-1", points[0]["territory_id"])
	assert.Equal(t, 110.0, points[0]["value"])
}

func TestMetricSeries_UnknownMetric(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := do(t, srv.Handler(), http.MethodGet, "/api/metrics/vibes", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCacheClear(t *testing.T) {
	srv, _, _ := testServer(t)
	h := srv.Handler()

	body := map[string]any{
		"duration_minutes": 30,
		"origins":          []map[string]float64{{"lat": 40.0, "lng": -75.0}},
	}
	do(t, h, http.MethodPost, "/api/coverage", body)

	rec := do(t, h, http.MethodPost, "/api/cache/clear", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/coverage", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[model.CoverageResult](t, rec).FromCache)
}
