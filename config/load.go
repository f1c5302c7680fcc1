package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/archbeaver/beaver/errors"
)

// ProjectConfigName is the file searched for from the working directory upwards
const ProjectConfigName = "beaver.toml"

// Source describes one configuration file in the precedence chain
type Source struct {
	Path   string
	Exists bool
}

// Load reads the Beaver configuration from all sources.
// Precedence (lowest to highest): defaults < system < user < project < env vars.
func Load() (*Config, error) {
	v, err := NewViper()
	if err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}

// NewViper builds a Viper instance with defaults, merged config files and env binding
func NewViper() (*viper.Viper, error) {
	v := viper.New()

	v.SetEnvPrefix("BEAVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindSensitiveEnvVars(v)

	SetDefaults(v)

	if err := mergeConfigFiles(v, Sources()); err != nil {
		return nil, err
	}
	return v, nil
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path on top of the defaults
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}
	return LoadWithViper(v)
}

// Sources returns the configuration files in precedence order (lowest first)
func Sources() []Source {
	paths := []string{"/etc/beaver/config.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".beaver", "config.toml"))
	}
	if project := FindProjectConfig(); project != "" {
		paths = append(paths, project)
	}

	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		_, err := os.Stat(p)
		sources = append(sources, Source{Path: p, Exists: err == nil})
	}
	return sources
}

// FindProjectConfig walks up from the working directory looking for beaver.toml.
// Returns an empty string when none is found.
func FindProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ProjectConfigName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// mergeConfigFiles merges existing config files into v in the given order
func mergeConfigFiles(v *viper.Viper, sources []Source) error {
	for _, src := range sources {
		if !src.Exists {
			continue
		}
		tmp := viper.New()
		tmp.SetConfigFile(src.Path)
		tmp.SetConfigType("toml")
		if err := tmp.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read config file %s", src.Path)
		}
		if err := v.MergeConfigMap(tmp.AllSettings()); err != nil {
			return errors.Wrapf(err, "failed to merge config file %s", src.Path)
		}
	}
	return nil
}
