package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"api-collector/internal/common/errors"
)

func init() {
	Register(&sqliteFactory{})
}

type sqliteFactory struct{}

func (f *sqliteFactory) Driver() string {
	return "sqlite"
}

func (f *sqliteFactory) Create(config SinkConfig) (Sink, error) {
	path := config.Path
	if path == "" {
		path = "collector.db"
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.ConnectionError("failed to open sqlite database", err)
	}
	db.SetMaxOpenConns(1)

	return &sqliteSink{db: db}, nil
}

// sqliteSink stores each record as a JSON document in a per-collection
// table, created on first write.
type sqliteSink struct {
	db *sql.DB
}

func (s *sqliteSink) Driver() string {
	return "sqlite"
}

func (s *sqliteSink) Store(ctx context.Context, collection string, records []map[string]interface{}) error {
	if err := ValidateCollection(collection); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %q (id TEXT PRIMARY KEY, payload TEXT NOT NULL, stored_at TIMESTAMP NOT NULL)`,
		collection)); err != nil {
		return errors.InternalError("failed to create collection table", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.InternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %q (id, payload, stored_at) VALUES (?, ?, ?)`, collection))
	if err != nil {
		return errors.InternalError("failed to prepare insert", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			return errors.InternalError("failed to encode record", err)
		}
		if _, err := stmt.ExecContext(ctx, uuid.New().String(), string(payload), now); err != nil {
			return errors.InternalError("failed to insert record", err)
		}
	}

	return tx.Commit()
}

func (s *sqliteSink) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqliteSink) Close() error {
	return s.db.Close()
}
