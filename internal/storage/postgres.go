package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"api-collector/internal/common/errors"
)

func init() {
	Register(&postgresFactory{})
}

type postgresFactory struct{}

func (f *postgresFactory) Driver() string {
	return "postgres"
}

func (f *postgresFactory) Create(config SinkConfig) (Sink, error) {
	if config.DSN == "" {
		return nil, errors.ConfigError("postgres sink requires a dsn")
	}

	pool, err := pgxpool.New(context.Background(), config.DSN)
	if err != nil {
		return nil, errors.ConnectionError("failed to open postgres pool", err)
	}

	return &postgresSink{pool: pool}, nil
}

// postgresSink stores records as JSONB documents in per-collection
// tables, created on first write.
type postgresSink struct {
	pool *pgxpool.Pool
}

func (p *postgresSink) Driver() string {
	return "postgres"
}

func (p *postgresSink) Store(ctx context.Context, collection string, records []map[string]interface{}) error {
	if err := ValidateCollection(collection); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	if _, err := p.pool.Exec(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %q (id UUID PRIMARY KEY, payload JSONB NOT NULL, stored_at TIMESTAMPTZ NOT NULL)`,
		collection)); err != nil {
		return errors.InternalError("failed to create collection table", err)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return errors.InternalError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	insert := fmt.Sprintf(`INSERT INTO %q (id, payload, stored_at) VALUES ($1, $2, $3)`, collection)
	now := time.Now().UTC()

	for _, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			return errors.InternalError("failed to encode record", err)
		}
		if _, err := tx.Exec(ctx, insert, uuid.New(), payload, now); err != nil {
			return errors.InternalError("failed to insert record", err)
		}
	}

	return tx.Commit(ctx)
}

func (p *postgresSink) Health(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *postgresSink) Close() error {
	p.pool.Close()
	return nil
}
