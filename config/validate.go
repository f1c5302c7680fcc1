package config

import "github.com/archbeaver/beaver/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path cannot be empty for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.dsn cannot be empty for the postgres driver")
		}
	default:
		return errors.Newf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Newf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.TimeoutSeconds < 0 {
		return errors.Newf("server.timeout_seconds must be >= 0, got %d", c.Server.TimeoutSeconds)
	}

	switch c.Graph.Backend {
	case GraphBackendMemory:
	case GraphBackendNeo4j:
		if c.Graph.Neo4j.URI == "" {
			return errors.New("graph.neo4j.uri cannot be empty when graph.backend is neo4j")
		}
	default:
		return errors.Newf("graph.backend must be %q or %q, got %q", GraphBackendMemory, GraphBackendNeo4j, c.Graph.Backend)
	}

	if c.Client.Endpoint == "" {
		return errors.New("client.endpoint cannot be empty")
	}
	if c.Client.TimeoutSeconds <= 0 {
		return errors.Newf("client.timeout_seconds must be > 0, got %d", c.Client.TimeoutSeconds)
	}
	if c.Client.RateLimitPerSecond < 0 {
		return errors.Newf("client.rate_limit_per_second must be >= 0, got %f", c.Client.RateLimitPerSecond)
	}
	if c.Client.Retry.MaxAttempts < 1 {
		return errors.Newf("client.retry.max_attempts must be >= 1, got %d", c.Client.Retry.MaxAttempts)
	}
	if c.Client.Retry.InitialBackoffMS < 0 || c.Client.Retry.MaxBackoffMS < c.Client.Retry.InitialBackoffMS {
		return errors.Newf("client.retry backoff must satisfy 0 <= initial (%d) <= max (%d)",
			c.Client.Retry.InitialBackoffMS, c.Client.Retry.MaxBackoffMS)
	}
	if c.Client.Cache.MaxEntities <= 0 || c.Client.Cache.MaxResults <= 0 {
		return errors.Newf("client.cache limits must be > 0, got entities=%d results=%d",
			c.Client.Cache.MaxEntities, c.Client.Cache.MaxResults)
	}

	return nil
}
