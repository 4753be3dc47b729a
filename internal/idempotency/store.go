package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/natefinch/atomic"
)

const HeaderKey = "Idempotency-Key"

// Claim is the outcome of presenting a key.
type Claim int

const (
	// Accepted means the key was new or expired and is now held.
	Accepted Claim = iota
	// Duplicate means the key is held for the same request body.
	Duplicate
	// Mismatch means the key is held for a different request body.
	Mismatch
)

type entry struct {
	ExpiresAt   time.Time `json:"expires_at"`
	Fingerprint string    `json:"fingerprint"`
}

type fileState struct {
	Keys map[string]entry `json:"keys"`
}

// Store remembers analyze request keys until they expire. With an empty
// path the keys live only in memory; otherwise every change is written
// atomically so a restarted daemon still rejects replays.
type Store struct {
	path string
	keys map[string]entry
	now  func() time.Time
	mu   sync.Mutex
}

func NewStore(path string) (*Store, error) {
	s := &Store{
		path: path,
		keys: make(map[string]entry),
		now:  time.Now,
	}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, s.persist()
	case err != nil:
		return nil, fmt.Errorf("read idempotency file: %w", err)
	case len(bytes.TrimSpace(data)) == 0:
		return s, nil
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode idempotency file %s: %w", path, err)
	}
	for k, e := range state.Keys {
		s.keys[k] = e
	}
	s.prune(s.now())
	return s, nil
}

// Fingerprint identifies a request body so a reused key can be told apart
// from a retry.
func Fingerprint(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// Claim holds key for ttl unless a live claim exists. The error reports a
// failed write only; the in-memory claim stands either way.
func (s *Store) Claim(key, fingerprint string, ttl time.Duration) (Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.prune(now)

	if held, ok := s.keys[key]; ok {
		if held.Fingerprint == fingerprint {
			return Duplicate, nil
		}
		return Mismatch, nil
	}
	s.keys[key] = entry{ExpiresAt: now.Add(ttl).UTC(), Fingerprint: fingerprint}
	return Accepted, s.persist()
}

// Release drops key so a retry with it is accepted again.
func (s *Store) Release(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; !ok {
		return nil
	}
	delete(s.keys, key)
	return s.persist()
}

func (s *Store) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.prune(s.now())
	if n > 0 {
		_ = s.persist()
	}
	return n
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

func (s *Store) prune(now time.Time) int {
	n := 0
	for k, e := range s.keys {
		if !e.ExpiresAt.After(now) {
			delete(s.keys, k)
			n++
		}
	}
	return n
}

func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(fileState{Keys: s.keys}, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(s.path, bytes.NewReader(data))
}
