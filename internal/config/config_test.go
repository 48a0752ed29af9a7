package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chtmp(t *testing.T) string {
	t.Helper()
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chtmp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/zones.geojson", cfg.Boundary.Path)
	assert.Equal(t, "https://api.mapbox.com", cfg.Isochrone.BaseURL)
	assert.Equal(t, "driving", cfg.Isochrone.Profile)
	assert.Equal(t, 10, cfg.Isochrone.TimeoutSecs)
	assert.Equal(t, 0, cfg.Isochrone.Retries)
	assert.InDelta(t, 5.0, cfg.Isochrone.RPS, 0.001)
	assert.Equal(t, 4, cfg.Coverage.Concurrency)
	assert.Equal(t, "data/uploads", cfg.Dataset.Dir)
	assert.Equal(t, "json", cfg.Store.Driver)
	assert.Equal(t, "data", cfg.Store.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Isochrone.Token, "token has no default")
}

func TestLoadFromYAML(t *testing.T) {
	dir := chtmp(t)

	yaml := `
store:
  driver: sqlite
  path: /var/lib/territory/territory.db
isochrone:
  token: pk.test
  retries: 2
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/var/lib/territory/territory.db", cfg.Store.Path)
	assert.Equal(t, "pk.test", cfg.Isochrone.Token)
	assert.Equal(t, 2, cfg.Isochrone.Retries)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, "driving", cfg.Isochrone.Profile)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chtmp(t)

	yaml := `
store:
  driver: json
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("TERRITORY_STORE_DRIVER", "sqlite")
	t.Setenv("TERRITORY_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chtmp(t)

	t.Setenv("TERRITORY_ISOCHRONE_TOKEN", "pk.env")
	t.Setenv("TERRITORY_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "pk.env", cfg.Isochrone.Token)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shouting", Format: "json"})
	require.Error(t, err)
}
