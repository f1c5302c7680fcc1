// Package config loads Beaver configuration from defaults, layered TOML files
// and BEAVER_* environment variables.
package config

import "time"

// Config represents the Beaver configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database" toml:"database" json:"database" yaml:"database"`
	Server   ServerConfig   `mapstructure:"server" toml:"server" json:"server" yaml:"server"`
	Graph    GraphConfig    `mapstructure:"graph" toml:"graph" json:"graph" yaml:"graph"`
	Client   ClientConfig   `mapstructure:"client" toml:"client" json:"client" yaml:"client"`
	Log      LogConfig      `mapstructure:"log" toml:"log" json:"log" yaml:"log"`
}

// DatabaseConfig configures the relational store
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" toml:"driver" json:"driver" yaml:"driver"` // sqlite or postgres
	Path   string `mapstructure:"path" toml:"path" json:"path" yaml:"path"`         // SQLite file path
	DSN    string `mapstructure:"dsn" toml:"dsn" json:"dsn" yaml:"dsn"`             // Postgres connection string
}

// ServerConfig configures the GraphQL HTTP server
type ServerConfig struct {
	Port           int      `mapstructure:"port" toml:"port" json:"port" yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" toml:"allowed_origins" json:"allowed_origins" yaml:"allowed_origins"`
	Playground     bool     `mapstructure:"playground" toml:"playground" json:"playground" yaml:"playground"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds"`
}

// GraphConfig selects and configures the graph store
type GraphConfig struct {
	Backend string      `mapstructure:"backend" toml:"backend" json:"backend" yaml:"backend"` // memory or neo4j
	Neo4j   Neo4jConfig `mapstructure:"neo4j" toml:"neo4j" json:"neo4j" yaml:"neo4j"`
}

// Neo4jConfig configures the Neo4j driver
type Neo4jConfig struct {
	URI      string `mapstructure:"uri" toml:"uri" json:"uri" yaml:"uri"`
	Username string `mapstructure:"username" toml:"username" json:"username" yaml:"username"`
	Password string `mapstructure:"password" toml:"password" json:"-" yaml:"-"`
	Database string `mapstructure:"database" toml:"database" json:"database" yaml:"database"`
}

// ClientConfig configures the GraphQL client used by the CLI and embedding applications
type ClientConfig struct {
	Endpoint           string      `mapstructure:"endpoint" toml:"endpoint" json:"endpoint" yaml:"endpoint"`
	TimeoutSeconds     int         `mapstructure:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds"`
	RateLimitPerSecond float64     `mapstructure:"rate_limit_per_second" toml:"rate_limit_per_second" json:"rate_limit_per_second" yaml:"rate_limit_per_second"` // 0 = unlimited
	Retry              RetryConfig `mapstructure:"retry" toml:"retry" json:"retry" yaml:"retry"`
	Cache              CacheConfig `mapstructure:"cache" toml:"cache" json:"cache" yaml:"cache"`
}

// RetryConfig configures retries of failed queries (mutations are never retried)
type RetryConfig struct {
	MaxAttempts      int `mapstructure:"max_attempts" toml:"max_attempts" json:"max_attempts" yaml:"max_attempts"`
	InitialBackoffMS int `mapstructure:"initial_backoff_ms" toml:"initial_backoff_ms" json:"initial_backoff_ms" yaml:"initial_backoff_ms"`
	MaxBackoffMS     int `mapstructure:"max_backoff_ms" toml:"max_backoff_ms" json:"max_backoff_ms" yaml:"max_backoff_ms"`
}

// CacheConfig bounds the normalized client cache
type CacheConfig struct {
	MaxEntities int `mapstructure:"max_entities" toml:"max_entities" json:"max_entities" yaml:"max_entities"`
	MaxResults  int `mapstructure:"max_results" toml:"max_results" json:"max_results" yaml:"max_results"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `mapstructure:"level" toml:"level" json:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" toml:"json" json:"json" yaml:"json"`
}

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Graph backends
const (
	GraphBackendMemory = "memory"
	GraphBackendNeo4j  = "neo4j"
)

// DefaultServerPort is the GraphQL server port when none is configured
const DefaultServerPort = 4000

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// Timeout returns the client request timeout
func (c ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout returns the server read/write timeout
func (c ServerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// InitialBackoff returns the first retry delay
func (r RetryConfig) InitialBackoff() time.Duration {
	return time.Duration(r.InitialBackoffMS) * time.Millisecond
}

// MaxBackoff returns the retry delay ceiling
func (r RetryConfig) MaxBackoff() time.Duration {
	return time.Duration(r.MaxBackoffMS) * time.Millisecond
}
