package store

import (
	"encoding/json"
	"time"
)

// storageTimeLayout is fixed-width so stored timestamps sort lexically.
const storageTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const documentVersion = 1

// document is the on-disk form of a meeting record in the file store.
type document struct {
	Version    int               `json:"version"`
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Transcript string            `json:"transcript"`
	Results    []json.RawMessage `json:"results"`
	Summary    string            `json:"summary"`
	CreatedAt  time.Time         `json:"created_at"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(storageTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(storageTimeLayout, s)
}
