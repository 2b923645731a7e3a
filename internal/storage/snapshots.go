// Package storage implements the durable snapshot substrate on SQLite.
// Each collection is one row: key -> full JSON payload, rewritten whole on
// every save. That matches the persisted contract exactly and keeps the
// datastore trivially inspectable.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type SQLiteSnapshots struct {
	db *sql.DB
}

func NewSQLiteSnapshots(dbPath string) (*SQLiteSnapshots, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteSnapshots{db: db}, nil
}

func (s *SQLiteSnapshots) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load returns the stored payload for key, or nil when no snapshot exists.
func (s *SQLiteSnapshots) Load(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return payload, nil
}

// Save replaces the full payload under key.
func (s *SQLiteSnapshots) Save(ctx context.Context, key string, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (key, payload, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET
		   payload = excluded.payload,
		   updated_at = CURRENT_TIMESTAMP`,
		key, payload)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	slog.DebugContext(ctx, "Snapshot saved", "key", key, "bytes", len(payload))
	return nil
}

// Delete erases the snapshot under key. Missing keys are not an error.
func (s *SQLiteSnapshots) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}
