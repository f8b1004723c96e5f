package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DirStore keeps one file per key inside a container directory.
type DirStore struct {
	// dir is the container directory
	dir string
}

// OpenDir opens root/container, creating it if needed.
func OpenDir(ctx context.Context, root, container string) (*DirStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if root == "" {
		return nil, fmt.Errorf("%w: empty directory", ErrUnsupportedBackend)
	}

	dir := filepath.Join(filepath.Clean(root), container)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create container directory: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Dir returns the container directory.
func (s *DirStore) Dir() string {
	return s.dir
}

func (s *DirStore) path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, key), nil
}

// Exists reports whether a file exists for key.
func (s *DirStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := s.path(key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat record: %w", err)
	}
	return !info.IsDir(), nil
}

// ReadText returns the file content for key.
func (s *DirStore) ReadText(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.path(key)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return "", fmt.Errorf("failed to read record: %w", err)
	}
	return string(data), nil
}

// WriteText replaces the file for key atomically.
func (s *DirStore) WriteText(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}

	// Write to temp file first, then rename for atomicity
	tmp, err := os.CreateTemp(s.dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set record permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename record file: %w", err)
	}
	return nil
}

// Close is a no-op for the directory backend.
func (s *DirStore) Close() error {
	return nil
}
