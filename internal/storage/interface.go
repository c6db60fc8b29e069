// Package storage persists collected records. Each sink driver
// registers a factory; the configured sinks are opened at startup and
// looked up by driver name from StoreDatabase steps.
package storage

import (
	"context"
	"regexp"

	"api-collector/internal/common/errors"
)

// SinkConfig carries the connection settings for one sink
type SinkConfig struct {
	Driver string

	// sqlite
	Path string

	// postgres
	DSN string

	// redis
	Addr     string
	Password string
	DB       int
}

// Sink stores batches of records under a named collection
type Sink interface {
	Driver() string
	Store(ctx context.Context, collection string, records []map[string]interface{}) error
	Health(ctx context.Context) error
	Close() error
}

// SinkFactory opens sinks for one driver
type SinkFactory interface {
	Driver() string
	Create(config SinkConfig) (Sink, error)
}

var collectionPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,63}$`)

// ValidateCollection rejects collection names that cannot be used as
// SQL identifiers or key segments.
func ValidateCollection(collection string) error {
	if !collectionPattern.MatchString(collection) {
		return errors.ValidationError("invalid collection name: " + collection)
	}
	return nil
}
