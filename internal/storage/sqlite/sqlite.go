// Package sqlite implements the storage interfaces on an embedded
// SQLite database via modernc.org/sqlite.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/CapobiancoR/stopwatch-desktop/internal/storage"
)

// timeFormat is a fixed-width UTC layout: every stored timestamp has the
// same length, so ORDER BY on the text column is chronological. Trailing
// zeros are kept on purpose; RFC3339Nano drops them, which breaks
// lexicographic ordering against fraction-less values.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// Store implements the storage.Store interface using SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite-backed store and runs
// pending migrations.
func Open(path string) (*Store, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// Single connection; SQLite allows one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return storage.EnsureDir(dir)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Sessions returns the session store.
func (s *Store) Sessions() storage.SessionStore { return &sessionStore{db: s.db} }

// Pauses returns the pause store.
func (s *Store) Pauses() storage.PauseStore { return &pauseStore{db: s.db} }

// runMigrations applies all database migrations.
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL UNIQUE,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion); err != nil {
		return fmt.Errorf("get current migration version: %w", err)
	}

	for version := currentVersion + 1; version <= len(migrations); version++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(migrations[version-1]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", version, err)
		}
	}

	return nil
}

// migrations are applied in order; index+1 is the schema version.
var migrations = []string{
	migration001Sessions,
	migration002Pauses,
}

const migration001Sessions = `
CREATE TABLE IF NOT EXISTS activity_sessions (
	id TEXT PRIMARY KEY,
	date TEXT NOT NULL,
	started_at TEXT NOT NULL,
	ended_at TEXT,
	duration_seconds INTEGER NOT NULL DEFAULT 0,
	mode TEXT NOT NULL DEFAULT 'work',
	active INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX idx_sessions_date ON activity_sessions(date);
CREATE INDEX idx_sessions_active ON activity_sessions(active);
`

const migration002Pauses = `
CREATE TABLE IF NOT EXISTS pause_periods (
	id TEXT PRIMARY KEY,
	date TEXT NOT NULL,
	started_at TEXT NOT NULL,
	ended_at TEXT NOT NULL,
	duration_seconds INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_pauses_date ON pause_periods(date);
`
