// Package config provides configuration management for the collector
// service. It loads settings from environment variables with sensible
// defaults and validates them before the application starts.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FILE: Optional log file path (default: stdout only)
//
// Database Sink Configuration:
//   - DATABASE_TYPE: Sink driver - "sqlite", "postgres", "redis" or "none" (default: sqlite)
//   - DATABASE_PATH: SQLite database file path (default: ./collector.db)
//   - POSTGRES_HOST: PostgreSQL host (required if using PostgreSQL)
//   - POSTGRES_PORT: PostgreSQL port (default: 5432)
//   - POSTGRES_DB: PostgreSQL database name (required if using PostgreSQL)
//   - POSTGRES_USER: PostgreSQL username (required if using PostgreSQL)
//   - POSTGRES_PASSWORD: PostgreSQL password
//   - POSTGRES_SSL_MODE: PostgreSQL SSL mode (default: disable)
//
// Redis Configuration:
//   - REDIS_ADDRESS: Redis server address (default: localhost:6379)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//
// Collection Settings:
//   - STORAGE_DIR: Directory for disk-persisted records (default: ./data)
//   - HTTP_TIMEOUT: Outbound API call timeout (default: 30s)
//   - INTROSPECTION_TIMEOUT: GraphQL introspection timeout (default: 30s)
//   - FOREACH_MAX_CONCURRENCY: Upper bound for ForEach step concurrency (default: 10)
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the collector service.
// Load it with Load() and check it with Validate() before use.
type Config struct {
	// Application settings
	Port     string // Server port number
	LogLevel string // Logging level (debug, info, warn, error)
	LogFile  string // Optional log file path

	// Database sink configuration
	DatabaseType     string // Sink driver: "sqlite", "postgres", "redis" or "none"
	DatabasePath     string // Path to SQLite database file
	PostgresHost     string // PostgreSQL host address
	PostgresPort     string // PostgreSQL port number
	PostgresDB       string // PostgreSQL database name
	PostgresUser     string // PostgreSQL username
	PostgresPassword string // PostgreSQL password
	PostgresSSLMode  string // PostgreSQL SSL mode (disable, require, etc.)

	// Redis sink configuration
	RedisAddress  string // Redis server address (host:port)
	RedisPassword string // Redis authentication password
	RedisDB       string // Redis database number (0-15)

	// Collection settings
	StorageDir            string // Directory for disk-persisted records
	HTTPTimeout           string // Outbound API call timeout
	IntrospectionTimeout  string // GraphQL introspection timeout
	ForEachMaxConcurrency string // Upper bound for ForEach step concurrency
}

// Load creates a new Config instance with values loaded from environment
// variables. It does not validate; call Validate() on the result.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		DatabaseType:     getEnv("DATABASE_TYPE", "sqlite"),
		DatabasePath:     getEnv("DATABASE_PATH", "./collector.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresDB:       getEnv("POSTGRES_DB", "collector"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),

		RedisAddress:  getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),

		StorageDir:            getEnv("STORAGE_DIR", "./data"),
		HTTPTimeout:           getEnv("HTTP_TIMEOUT", "30s"),
		IntrospectionTimeout:  getEnv("INTROSPECTION_TIMEOUT", "30s"),
		ForEachMaxConcurrency: getEnv("FOREACH_MAX_CONCURRENCY", "10"),
	}
}

// getEnv retrieves an environment variable value or returns a default
// value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// PostgresDSN builds the pgx connection string from the Postgres fields
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort,
		c.PostgresDB, c.PostgresSSLMode)
}

// Validate checks required fields, field formats and cross-field
// dependencies. Call it after Load() and before starting the service.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	switch c.DatabaseType {
	case "sqlite", "postgres", "postgresql", "redis", "none":
	default:
		return fmt.Errorf("DATABASE_TYPE must be 'sqlite', 'postgres', 'redis' or 'none'")
	}

	if c.DatabaseType == "postgres" || c.DatabaseType == "postgresql" {
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required when using PostgreSQL")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required when using PostgreSQL")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required when using PostgreSQL")
		}
		if port, err := strconv.Atoi(c.PostgresPort); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("POSTGRES_PORT must be a valid port number")
		}
	}

	if c.DatabaseType == "redis" {
		if c.RedisAddress == "" {
			return fmt.Errorf("REDIS_ADDRESS is required when using Redis")
		}
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
	}

	if c.StorageDir == "" {
		return fmt.Errorf("STORAGE_DIR must not be empty")
	}

	if _, err := time.ParseDuration(c.HTTPTimeout); err != nil {
		return fmt.Errorf("HTTP_TIMEOUT must be a valid duration (e.g., '30s', '1m')")
	}
	if _, err := time.ParseDuration(c.IntrospectionTimeout); err != nil {
		return fmt.Errorf("INTROSPECTION_TIMEOUT must be a valid duration (e.g., '30s', '1m')")
	}

	if n, err := strconv.Atoi(c.ForEachMaxConcurrency); err != nil || n < 1 {
		return fmt.Errorf("FOREACH_MAX_CONCURRENCY must be a positive number")
	}

	return nil
}
