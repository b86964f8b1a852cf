package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

// timeLayout is fixed-width so TEXT ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

type Store struct {
	db *sql.DB

	// Now stamps created_at columns. Tests override it to get distinct,
	// ordered timestamps.
	Now func() time.Time
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Configure pragmas.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, Now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) now() string {
	return formatTime(s.Now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, v)
	return t
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		username      TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at    TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		created_at  TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_user_name ON tasks(user_id, name);

	CREATE TABLE IF NOT EXISTS task_records (
		id                   TEXT PRIMARY KEY,
		task_id              TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		total_units          INTEGER NOT NULL CHECK (total_units > 0),
		unit_label           TEXT NOT NULL,
		total_budget_seconds INTEGER NOT NULL CHECK (total_budget_seconds > 0),
		completed_count      INTEGER NOT NULL DEFAULT 0
		                     CHECK (completed_count >= 0 AND completed_count <= total_units),
		created_at           TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_task ON task_records(task_id, created_at);

	CREATE TABLE IF NOT EXISTS task_snapshots (
		id                 TEXT PRIMARY KEY,
		record_id          TEXT NOT NULL REFERENCES task_records(id) ON DELETE CASCADE,
		sequence           INTEGER NOT NULL CHECK (sequence > 0),
		unit_seconds       INTEGER NOT NULL CHECK (unit_seconds >= 0),
		cumulative_seconds INTEGER NOT NULL CHECK (cumulative_seconds >= 0),
		created_at         TEXT NOT NULL,
		UNIQUE(record_id, sequence)
	);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// DefaultDir returns ~/.config/goaltrack
func DefaultDir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "goaltrack"), nil
}

// DefaultDBPath returns ~/.config/goaltrack/goaltrack.db
func DefaultDBPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "goaltrack.db"), nil
}
