// Package state persists the last seen version of a package.
//
// A Store is a flat key-value namespace (a "container") holding raw text
// values. Open selects the backend from a connection string and creates the
// container when it does not exist yet:
//
//	file:///var/lib/nugetwatch   one file per key under <dir>/<container>/
//	/var/lib/nugetwatch          same, bare path
//	sqlite:///var/lib/nw.db      SQLite database, one row per key
package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Error variables for state errors
var (
	// ErrNotFound is returned by ReadText when the key has no record
	ErrNotFound = errors.New("record not found")
	// ErrInvalidKey is returned for empty keys or keys containing path separators
	ErrInvalidKey = errors.New("invalid record key")
	// ErrUnsupportedBackend is returned for unknown connection string schemes
	ErrUnsupportedBackend = errors.New("unsupported storage backend")
)

// Store is a key-value namespace of text records.
type Store interface {
	// Exists reports whether key has a record.
	Exists(ctx context.Context, key string) (bool, error)
	// ReadText returns the record for key, or ErrNotFound.
	ReadText(ctx context.Context, key string) (string, error)
	// WriteText creates or overwrites the record for key.
	WriteText(ctx context.Context, key, value string) error
	// Close releases backend resources.
	Close() error
}

// Open parses connectionString and opens container, creating it if absent.
func Open(ctx context.Context, connectionString, container string) (Store, error) {
	if err := validateKey(container); err != nil {
		return nil, fmt.Errorf("container %q: %w", container, err)
	}

	conn := strings.TrimSpace(connectionString)
	switch {
	case strings.HasPrefix(conn, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(conn, "sqlite://"), container)
	case strings.HasPrefix(conn, "file://"):
		return OpenDir(ctx, strings.TrimPrefix(conn, "file://"), container)
	case conn == "":
		return nil, fmt.Errorf("%w: empty connection string", ErrUnsupportedBackend)
	case strings.Contains(conn, "://"):
		scheme, _, _ := strings.Cut(conn, "://")
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, scheme)
	default:
		return OpenDir(ctx, conn, container)
	}
}

// validateKey rejects keys that cannot be used as a single path element
func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
