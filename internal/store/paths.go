package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harunnryd/minutes/internal/config"

	"github.com/oklog/ulid/v2"
)

const recordExt = ".json"

// ResolveSQLitePath returns the configured database path, falling back to
// ~/.minutes/meetings.db, and makes sure its directory exists.
func ResolveSQLitePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = filepath.Join(config.BaseDir(), "meetings.db")
	}
	if path == ":memory:" {
		return path, nil
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0755); err != nil {
		return "", fmt.Errorf("create database directory: %w", err)
	}
	return expanded, nil
}

// ResolveRecordsDir returns the configured file-store directory, falling
// back to ~/.minutes/meetings, and makes sure it exists.
func ResolveRecordsDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = filepath.Join(config.BaseDir(), "meetings")
	}
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(expanded, 0755); err != nil {
		return "", fmt.Errorf("create records directory: %w", err)
	}
	return expanded, nil
}

// recordPath maps a record ID to its file. Only well-formed ULIDs map to a
// path, which keeps IDs from escaping the directory.
func recordPath(dir, id string) (string, bool) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return "", false
	}
	return filepath.Join(dir, id+recordExt), true
}
