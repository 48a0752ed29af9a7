package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Boundary  BoundaryConfig  `yaml:"boundary" mapstructure:"boundary"`
	Isochrone IsochroneConfig `yaml:"isochrone" mapstructure:"isochrone"`
	Coverage  CoverageConfig  `yaml:"coverage" mapstructure:"coverage"`
	Dataset   DatasetConfig   `yaml:"dataset" mapstructure:"dataset"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DatasetConfig points at the directory holding uploaded metric
// datasets (CSV or XLSX).
type DatasetConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// MetricsConfig configures the metric registry.
type MetricsConfig struct {
	// RegistryPath optionally points at a YAML file defining custom
	// metrics beyond the built-ins.
	RegistryPath string `yaml:"registry_path" mapstructure:"registry_path"`
}

// BoundaryConfig points at the static zone boundary reference data.
// Path may be a GeoJSON feature collection or a shapefile.
type BoundaryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// IsochroneConfig configures the routing provider client.
type IsochroneConfig struct {
	Token       string  `yaml:"token" mapstructure:"token"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Profile     string  `yaml:"profile" mapstructure:"profile"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries     int     `yaml:"retries" mapstructure:"retries"`
	RPS         float64 `yaml:"rps" mapstructure:"rps"`
}

// CoverageConfig configures the coverage calculator.
type CoverageConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	Path   string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TERRITORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("boundary.path", "data/zones.geojson")
	v.SetDefault("isochrone.base_url", "https://api.mapbox.com")
	v.SetDefault("isochrone.profile", "driving")
	v.SetDefault("isochrone.timeout_secs", 10)
	v.SetDefault("isochrone.retries", 0)
	v.SetDefault("isochrone.rps", 5)
	v.SetDefault("coverage.concurrency", 4)
	v.SetDefault("dataset.dir", "data/uploads")
	v.SetDefault("store.driver", "json")
	v.SetDefault("store.path", "data")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
