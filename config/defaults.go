package config

import "github.com/spf13/viper"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "beaver.db")
	v.SetDefault("database.dsn", "postgres://localhost/beaver?sslmode=disable")

	// Server defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.playground", true)
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
	})

	// Graph store defaults
	v.SetDefault("graph.backend", GraphBackendMemory)
	v.SetDefault("graph.neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("graph.neo4j.username", "neo4j")
	v.SetDefault("graph.neo4j.database", "neo4j")

	// Client defaults
	v.SetDefault("client.endpoint", "http://localhost:4000/graphql")
	v.SetDefault("client.timeout_seconds", 15)
	v.SetDefault("client.rate_limit_per_second", 0)
	v.SetDefault("client.retry.max_attempts", 3)
	v.SetDefault("client.retry.initial_backoff_ms", 200)
	v.SetDefault("client.retry.max_backoff_ms", 2000)
	v.SetDefault("client.cache.max_entities", 5000)
	v.SetDefault("client.cache.max_results", 500)

	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// BindSensitiveEnvVars explicitly binds secrets to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	_ = v.BindEnv("graph.neo4j.password", "BEAVER_NEO4J_PASSWORD", "NEO4J_PASSWORD")
	_ = v.BindEnv("database.dsn", "BEAVER_DATABASE_DSN", "DATABASE_URL")
}
