package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	minutesErrors "github.com/harunnryd/minutes/internal/errors"
	"github.com/harunnryd/minutes/internal/meeting"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

// SQLiteStore keeps meeting records in a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path with WAL journaling and
// a busy timeout, then migrates the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	resolved, err := ResolveSQLitePath(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", resolved+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open meeting database: %w", err)
	}

	s, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("Meeting store opened", "driver", "sqlite", "path", resolved)
	return s, nil
}

// NewSQLiteStore wraps an already-open database. The caller picks the driver.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate meeting database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS meetings (
			id           TEXT PRIMARY KEY,
			title        TEXT NOT NULL,
			transcript   TEXT NOT NULL,
			results_json TEXT NOT NULL,
			summary      TEXT NOT NULL,
			created_at   TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_meetings_created ON meetings(created_at);
	`)
	return err
}

func (s *SQLiteStore) Create(ctx context.Context, r *meeting.Record) (string, error) {
	if r == nil {
		return "", minutesErrors.InvalidInput("meeting record is nil")
	}

	results := r.Results
	if results == nil {
		results = []json.RawMessage{}
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}

	id := ulid.Make().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO meetings (id, title, transcript, results_json, summary, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, r.Title, r.Transcript, string(resultsJSON), r.Summary, formatTime(r.CreatedAt),
	)
	if err != nil {
		return "", fmt.Errorf("insert meeting: %w", err)
	}

	r.ID = id
	return id, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*meeting.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, transcript, results_json, summary, created_at
		 FROM meetings WHERE id = ?`, id)

	var (
		r           meeting.Record
		resultsJSON string
		createdAt   string
	)
	err := row.Scan(&r.ID, &r.Title, &r.Transcript, &resultsJSON, &r.Summary, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, minutesErrors.NotFound(fmt.Sprintf("meeting %s", id))
	}
	if err != nil {
		return nil, fmt.Errorf("query meeting: %w", err)
	}

	if err := json.Unmarshal([]byte(resultsJSON), &r.Results); err != nil {
		return nil, fmt.Errorf("decode results of meeting %s: %w", id, err)
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("decode created_at of meeting %s: %w", id, err)
	}
	return &r, nil
}

// List pages in SQL when there is no search term. With one, rows are matched
// by meeting.Filter in Go before paging, since SQLite's lower() folds ASCII
// only and the file store folds full Unicode.
func (s *SQLiteStore) List(ctx context.Context, filter meeting.Filter) ([]meeting.Summary, error) {
	filter = filter.Normalize()
	searching := filter.Search != ""

	query := `SELECT id, title, transcript, results_json, summary, created_at
		 FROM meetings ORDER BY created_at DESC, id DESC`
	var args []interface{}
	if !searching {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()

	summaries := []meeting.Summary{}
	skipped := 0
	for rows.Next() {
		if searching && len(summaries) == filter.Limit {
			break
		}
		r, err := scanListed(rows)
		if err != nil {
			return nil, err
		}
		if searching {
			if !filter.Matches(r) {
				continue
			}
			if skipped < filter.Offset {
				skipped++
				continue
			}
		}
		summaries = append(summaries, r.Summarize())
	}
	return summaries, rows.Err()
}

func scanListed(rows *sql.Rows) (*meeting.Record, error) {
	var (
		r           meeting.Record
		resultsJSON string
		createdAt   string
	)
	err := rows.Scan(&r.ID, &r.Title, &r.Transcript, &resultsJSON, &r.Summary, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("scan meeting: %w", err)
	}
	if err := json.Unmarshal([]byte(resultsJSON), &r.Results); err != nil {
		slog.Warn("Skipping unreadable results", "id", r.ID, "error", err)
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("decode created_at of meeting %s: %w", r.ID, err)
	}
	return &r, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM meetings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete meeting: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete meeting: %w", err)
	}
	if n == 0 {
		return minutesErrors.NotFound(fmt.Sprintf("meeting %s", id))
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
