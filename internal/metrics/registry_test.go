package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/territory-engine/internal/dataset"
)

func writeRegistry(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metrics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadRegistry(t *testing.T) {
	path := writeRegistry(t, `
metrics:
  - name: quotes
    kind: sum
  - name: Avg_Home_Value
    kind: lookup
`)
	require.NoError(t, LoadRegistry(path))
	t.Cleanup(func() {
		delete(registry, "quotes")
		delete(registry, "avg_home_value")
	})

	m, err := ByName("quotes")
	require.NoError(t, err)
	assert.Equal(t, Sum, m.Kind)

	m, err = ByName("avg_home_value")
	require.NoError(t, err)
	assert.Equal(t, Lookup, m.Kind)

	points, err := Aggregate("quotes", []dataset.Record{
		{ZoneID: "19103", Values: map[string]float64{"quotes": 2}},
		{ZoneID: "19103", Values: map[string]float64{"quotes": 1}},
	})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 3.0, points[0].Value)
}

func TestLoadRegistry_RejectsBuiltinRedefinition(t *testing.T) {
	path := writeRegistry(t, "metrics:\n  - name: leads\n    kind: lookup\n")
	err := LoadRegistry(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestLoadRegistry_RejectsUnknownKind(t *testing.T) {
	path := writeRegistry(t, "metrics:\n  - name: foo\n    kind: median\n")
	require.Error(t, LoadRegistry(path))
}

func TestLoadRegistry_MissingFile(t *testing.T) {
	require.Error(t, LoadRegistry("/nonexistent/metrics.yaml"))
}
