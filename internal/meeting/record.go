package meeting

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	UntitledMeeting  = "Untitled Meeting"
	DefaultListLimit = 50
	MaxListLimit     = 500

	maxTitleRunes = 60
)

// Record is the persisted outcome of one successful run.
type Record struct {
	ID         string            `json:"id" yaml:"id"`
	Title      string            `json:"title" yaml:"title"`
	Transcript string            `json:"transcript" yaml:"transcript"`
	Results    []json.RawMessage `json:"results" yaml:"-"`
	Summary    string            `json:"summary" yaml:"summary"`
	CreatedAt  time.Time         `json:"created_at" yaml:"created_at"`
}

// Summary is the listing view of a Record.
type Summary struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Summary     string    `json:"summary" yaml:"summary"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	ResultTypes []string  `json:"result_types" yaml:"result_types"`
}

type Filter struct {
	Search string
	Limit  int
	Offset int
}

// Normalize applies the default page size and clamps out-of-range values.
func (f Filter) Normalize() Filter {
	f.Search = strings.TrimSpace(f.Search)
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Matches reports whether the search term occurs, case-insensitively, in the
// record's title, transcript or summary. An empty term matches everything.
func (f Filter) Matches(r *Record) bool {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	if term == "" {
		return true
	}
	for _, field := range []string{r.Title, r.Transcript, r.Summary} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Creator is the only persistence operation the agent loop needs.
type Creator interface {
	Create(ctx context.Context, r *Record) (string, error)
}

type Store interface {
	Creator
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, filter Filter) ([]Summary, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Build compacts a finished run into a Record. The ID is left empty for the
// store to assign.
func Build(transcript string, results []json.RawMessage, summary string, now time.Time) *Record {
	if results == nil {
		results = []json.RawMessage{}
	}
	return &Record{
		Title:      DeriveTitle(transcript),
		Transcript: transcript,
		Results:    results,
		Summary:    summary,
		CreatedAt:  now.UTC(),
	}
}

func (r *Record) Summarize() Summary {
	types := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		if t := ResultType(res); t != "" {
			types = append(types, t)
		}
	}
	return Summary{
		ID:          r.ID,
		Title:       r.Title,
		Summary:     r.Summary,
		CreatedAt:   r.CreatedAt,
		ResultTypes: types,
	}
}

// ResultType returns the "type" tag of a stored tool result.
func ResultType(raw json.RawMessage) string {
	var tagged struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &tagged); err != nil {
		return ""
	}
	return tagged.Type
}

var speakerLabel = regexp.MustCompile(`^[\p{L}][\p{L}\p{N} .'_-]{0,39}:(\s+|$)`)

// DeriveTitle takes the first non-blank line of the transcript, drops a
// leading "Speaker:" label and truncates the rest.
func DeriveTitle(transcript string) string {
	for _, line := range strings.Split(transcript, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(speakerLabel.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		return truncate(strings.Join(strings.Fields(line), " "), maxTitleRunes)
	}
	return UntitledMeeting
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "…"
}
