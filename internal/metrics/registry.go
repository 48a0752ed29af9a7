package metrics

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// registryFile is the YAML shape for custom metric definitions.
// Uploaded datasets carry arbitrary numeric columns; this lets ops
// register extra funnel or reference metrics without a rebuild.
type registryFile struct {
	Metrics []struct {
		Name string `yaml:"name"`
		Kind string `yaml:"kind"` // "sum" or "lookup"
	} `yaml:"metrics"`
}

// LoadRegistry merges custom metric definitions from a YAML file into
// the registry. Built-in metrics cannot be redefined.
func LoadRegistry(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "metrics: read registry %s", path)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return eris.Wrap(err, "metrics: parse registry")
	}

	for _, m := range file.Metrics {
		name := strings.ToLower(strings.TrimSpace(m.Name))
		if name == "" {
			return eris.New("metrics: registry entry with empty name")
		}
		if _, exists := registry[name]; exists {
			return eris.Errorf("metrics: %q is already registered", name)
		}

		var kind Kind
		switch strings.ToLower(m.Kind) {
		case "sum":
			kind = Sum
		case "lookup":
			kind = Lookup
		default:
			return eris.Errorf("metrics: unknown kind %q for %q (want sum or lookup)", m.Kind, name)
		}
		registry[name] = Metric{Name: name, Kind: kind}
	}

	return nil
}
