package config

import (
	"encoding/json"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/archbeaver/beaver/errors"
)

// Render serializes cfg in the given format: toml, json or yaml.
// Secrets tagged json:"-"/yaml:"-" are omitted from json and yaml; toml masks them.
func Render(cfg *Config, format string) ([]byte, error) {
	switch format {
	case "", "toml":
		masked := *cfg
		if masked.Graph.Neo4j.Password != "" {
			masked.Graph.Neo4j.Password = "********"
		}
		return toml.Marshal(masked)
	case "json":
		return json.MarshalIndent(cfg, "", "  ")
	case "yaml":
		return yaml.Marshal(cfg)
	default:
		return nil, errors.Newf("unsupported format %q (want toml, json or yaml)", format)
	}
}
