package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS containers (
	name TEXT PRIMARY KEY,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS records (
	container TEXT NOT NULL REFERENCES containers(name),
	record_key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (container, record_key)
);
`

// SQLiteStore keeps records for one container in a SQLite database.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	container string
	nowFunc   func() time.Time
}

// OpenSQLite opens the database at path, applies the schema and registers
// container if it is new.
func OpenSQLite(ctx context.Context, path, container string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty sqlite path", ErrUnsupportedBackend)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("ensure database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas below are per connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	store := &SQLiteStore{db: db, path: path, container: container, nowFunc: time.Now}
	if _, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO containers (name, created_at) VALUES (?, ?)`,
		container, store.timestamp(),
	); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create container: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) timestamp() string {
	return s.nowFunc().UTC().Format(time.RFC3339Nano)
}

// Path returns the database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Exists reports whether key has a row in the container.
func (s *SQLiteStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM records WHERE container = ? AND record_key = ?`,
		s.container, key,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query record: %w", err)
	}
	return true, nil
}

// ReadText returns the value stored for key.
func (s *SQLiteStore) ReadText(ctx context.Context, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM records WHERE container = ? AND record_key = ?`,
		s.container, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("query record: %w", err)
	}
	return value, nil
}

// WriteText upserts the value for key.
func (s *SQLiteStore) WriteText(ctx context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (container, record_key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (container, record_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.container, key, value, s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
