// Package store persists the job ledger and the schedule singleton in a
// SQLite bookkeeping database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const busyTimeoutMillis = 5000

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the bookkeeping database at path. The
// database uses WAL mode and a single connection; SQLite serialises writes.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMillis)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS backup_jobs (
	id           TEXT PRIMARY KEY,
	created_at   TEXT NOT NULL,
	status       TEXT NOT NULL,
	tables       TEXT NOT NULL,
	file_name    TEXT NOT NULL DEFAULT '',
	file_size    INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	completed_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_backup_jobs_created ON backup_jobs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_backup_jobs_status ON backup_jobs(status, created_at DESC);

CREATE TABLE IF NOT EXISTS schedule (
	id              INTEGER PRIMARY KEY CHECK (id = 1),
	enabled         INTEGER NOT NULL,
	frequency       TEXT NOT NULL,
	time_of_day     TEXT NOT NULL,
	day_of_week     INTEGER NOT NULL,
	day_of_month    INTEGER NOT NULL,
	tables          TEXT NOT NULL,
	retention_count INTEGER NOT NULL,
	last_run        TEXT,
	next_run        TEXT,
	version         INTEGER NOT NULL,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: migrate schema: %w", err)
	}
	return nil
}
