package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harunnryd/minutes/internal/concurrency"
	minutesErrors "github.com/harunnryd/minutes/internal/errors"
	"github.com/harunnryd/minutes/internal/meeting"

	"github.com/natefinch/atomic"
	"github.com/oklog/ulid/v2"
)

// FileStore keeps one JSON document per meeting in a directory. The
// directory is owned by a single process through an exclusive file lock, and
// operations on the same record are serialized in-process.
type FileStore struct {
	dir   string
	lock  *FileLock
	locks *concurrency.KeyedLocker
}

func OpenFileStore(dir string, lockCfg *FileLockConfig) (*FileStore, error) {
	resolved, err := ResolveRecordsDir(dir)
	if err != nil {
		return nil, err
	}

	lock, err := AcquireFileLock(resolved, lockCfg)
	if err != nil {
		return nil, err
	}

	slog.Info("Meeting store opened", "driver", "file", "dir", resolved)
	return &FileStore{
		dir:   resolved,
		lock:  lock,
		locks: concurrency.NewKeyedLocker(),
	}, nil
}

func (s *FileStore) Create(ctx context.Context, r *meeting.Record) (string, error) {
	if r == nil {
		return "", minutesErrors.InvalidInput("meeting record is nil")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := ulid.Make().String()
	path, _ := recordPath(s.dir, id)

	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	results := r.Results
	if results == nil {
		results = []json.RawMessage{}
	}
	data, err := json.MarshalIndent(document{
		Version:    documentVersion,
		ID:         id,
		Title:      r.Title,
		Transcript: r.Transcript,
		Results:    results,
		Summary:    r.Summary,
		CreatedAt:  r.CreatedAt.UTC(),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal meeting: %w", err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("write meeting: %w", err)
	}

	r.ID = id
	return id, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*meeting.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, ok := recordPath(s.dir, id)
	if !ok {
		return nil, minutesErrors.NotFound(fmt.Sprintf("meeting %s", id))
	}

	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	return readDocument(path, id)
}

func (s *FileStore) List(ctx context.Context, filter meeting.Filter) ([]meeting.Summary, error) {
	filter = filter.Normalize()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read records directory: %w", err)
	}

	var records []*meeting.Record
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		id := strings.TrimSuffix(name, recordExt)
		path, ok := recordPath(s.dir, id)
		if !ok {
			continue
		}

		s.locks.Lock(id)
		r, err := readDocument(path, id)
		s.locks.Unlock(id)
		if err != nil {
			if !errors.Is(err, minutesErrors.ErrNotFound) {
				slog.Warn("Skipping unreadable meeting", "path", path, "error", err)
			}
			continue
		}
		if filter.Matches(r) {
			records = append(records, r)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})

	summaries := []meeting.Summary{}
	if filter.Offset >= len(records) {
		return summaries, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(records) {
		end = len(records)
	}
	for _, r := range records[filter.Offset:end] {
		summaries = append(summaries, r.Summarize())
	}
	return summaries, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, ok := recordPath(s.dir, id)
	if !ok {
		return minutesErrors.NotFound(fmt.Sprintf("meeting %s", id))
	}

	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return minutesErrors.NotFound(fmt.Sprintf("meeting %s", id))
		}
		return fmt.Errorf("delete meeting: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	s.lock.Unlock()
	return nil
}

// Dir is the directory holding the record documents.
func (s *FileStore) Dir() string {
	return s.dir
}

func readDocument(path, id string) (*meeting.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, minutesErrors.NotFound(fmt.Sprintf("meeting %s", id))
		}
		return nil, fmt.Errorf("read meeting: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode meeting %s: %w", filepath.Base(path), err)
	}
	if doc.Results == nil {
		doc.Results = []json.RawMessage{}
	}
	return &meeting.Record{
		ID:         doc.ID,
		Title:      doc.Title,
		Transcript: doc.Transcript,
		Results:    doc.Results,
		Summary:    doc.Summary,
		CreatedAt:  doc.CreatedAt,
	}, nil
}
