package store

import (
	"path/filepath"
	"testing"

	"github.com/harunnryd/minutes/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_File(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "meetings")

	s, err := Open(config.StoreConfig{Driver: "file", Dir: dir, LockTimeout: "1s", LockRetry: "10ms"})
	require.NoError(t, err)
	defer s.Close()

	fs, ok := s.(*FileStore)
	require.True(t, ok)
	assert.Equal(t, dir, fs.Dir())
	assert.DirExists(t, dir)
}

func TestOpen_UnknownDriver(t *testing.T) {
	s, err := Open(config.StoreConfig{Driver: "postgres"})
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestOpen_BadLockSettings(t *testing.T) {
	s, err := Open(config.StoreConfig{Driver: "file", Dir: t.TempDir(), LockTimeout: "forever"})
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestResolveSQLitePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "meetings.db")
	got, err := ResolveSQLitePath(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.DirExists(t, filepath.Dir(path))

	got, err = ResolveSQLitePath(":memory:")
	require.NoError(t, err)
	assert.Equal(t, ":memory:", got)
}

func TestRecordPath(t *testing.T) {
	_, ok := recordPath("/data", "../secret")
	assert.False(t, ok)

	path, ok := recordPath("/data", "01HZY3B3N5V0T6XJ2Q9K8M7P4R")
	assert.True(t, ok)
	assert.Equal(t, "/data/01HZY3B3N5V0T6XJ2Q9K8M7P4R.json", path)
}
