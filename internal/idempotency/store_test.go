package idempotency

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newMemoryStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	s, err := NewStore("")
	require.NoError(t, err)
	clock := &fakeClock{t: time.Date(2026, 2, 18, 9, 0, 0, 0, time.UTC)}
	s.now = clock.now
	return s, clock
}

func claim(t *testing.T, s *Store, key, body string, ttl time.Duration) Claim {
	t.Helper()
	c, err := s.Claim(key, Fingerprint(body), ttl)
	require.NoError(t, err)
	return c
}

func TestStore_Claim(t *testing.T) {
	s, clock := newMemoryStore(t)

	assert.Equal(t, Accepted, claim(t, s, "req-1", "Alice: retro", time.Minute))
	assert.Equal(t, Duplicate, claim(t, s, "req-1", "Alice: retro", time.Minute))
	assert.Equal(t, Mismatch, claim(t, s, "req-1", "Bob: standup", time.Minute))
	assert.Equal(t, Accepted, claim(t, s, "req-2", "Alice: retro", time.Minute))

	clock.t = clock.t.Add(time.Minute)
	assert.Equal(t, Accepted, claim(t, s, "req-1", "Bob: standup", time.Minute), "expired key is accepted again")
	assert.Equal(t, 1, s.Len())
}

func TestStore_Release(t *testing.T) {
	s, _ := newMemoryStore(t)

	assert.Equal(t, Accepted, claim(t, s, "req-1", "x", time.Hour))
	require.NoError(t, s.Release("req-1"))
	require.NoError(t, s.Release("never-seen"))
	assert.Equal(t, Accepted, claim(t, s, "req-1", "x", time.Hour))
}

func TestStore_Prune(t *testing.T) {
	s, clock := newMemoryStore(t)

	claim(t, s, "short", "a", time.Second)
	claim(t, s, "long", "b", time.Hour)
	clock.t = clock.t.Add(time.Minute)

	assert.Equal(t, 1, s.Prune())
	assert.Equal(t, 1, s.Len())
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint("same"), Fingerprint("same"))
	assert.NotEqual(t, Fingerprint("same"), Fingerprint("other"))
	assert.Len(t, Fingerprint(""), 64)
}

func TestStore_PersistsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idempotency.json")

	s, err := NewStore(path)
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err, "store file is created on open")

	c, err := s.Claim("req-1", Fingerprint("body"), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, Accepted, c)

	reopened, err := NewStore(path)
	require.NoError(t, err)
	c, err = reopened.Claim("req-1", Fingerprint("body"), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, Duplicate, c)

	require.NoError(t, reopened.Release("req-1"))
	again, err := NewStore(path)
	require.NoError(t, err)
	assert.Zero(t, again.Len())
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idempotency.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewStore(path)
	assert.Error(t, err)
}

func TestStore_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idempotency.json")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	s, err := NewStore(path)
	require.NoError(t, err)
	assert.Zero(t, s.Len())
}
