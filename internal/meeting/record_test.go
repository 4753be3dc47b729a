package meeting

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		want       string
	}{
		{name: "speaker label stripped", transcript: "Alice: let's meet Tuesday 2pm to finalize the budget.", want: "let's meet Tuesday 2pm to finalize the budget."},
		{name: "skips blank lines", transcript: "\n\n   \nWeekly sync notes\nBob: hi", want: "Weekly sync notes"},
		{name: "collapses whitespace", transcript: "Roadmap    review\t2026", want: "Roadmap review 2026"},
		{name: "empty", transcript: "  \n\t", want: UntitledMeeting},
		{name: "label only", transcript: "Alice:   \nBob: ship it", want: "ship it"},
		{name: "url is not a label", transcript: "https://example.com/notes", want: "https://example.com/notes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.transcript))
		})
	}
}

func TestDeriveTitle_Truncates(t *testing.T) {
	long := strings.Repeat("é", 80)
	got := DeriveTitle(long)
	assert.Equal(t, strings.Repeat("é", 60)+"…", got)
}

func TestBuild(t *testing.T) {
	now := time.Date(2026, 2, 18, 16, 30, 0, 0, time.FixedZone("WIB", 7*3600))
	results := []json.RawMessage{
		json.RawMessage(`{"type":"calendar_invite","ics_content":"BEGIN:VCALENDAR"}`),
		json.RawMessage(`{"type":"report"}`),
	}

	rec := Build("Alice: budget sync", results, "Scheduled.", now)
	assert.Empty(t, rec.ID)
	assert.Equal(t, "budget sync", rec.Title)
	assert.Equal(t, "Scheduled.", rec.Summary)
	assert.Equal(t, now.UTC(), rec.CreatedAt)
	require.Len(t, rec.Results, 2)

	sum := rec.Summarize()
	assert.Equal(t, []string{"calendar_invite", "report"}, sum.ResultTypes)

	empty := Build("x", nil, "", now)
	assert.NotNil(t, empty.Results)
}

func TestFilter(t *testing.T) {
	f := Filter{Limit: 0, Offset: -3, Search: "  Budget "}.Normalize()
	assert.Equal(t, DefaultListLimit, f.Limit)
	assert.Equal(t, 0, f.Offset)
	assert.Equal(t, "Budget", f.Search)
	assert.Equal(t, MaxListLimit, Filter{Limit: 10000}.Normalize().Limit)

	rec := &Record{Title: "Weekly sync", Transcript: "we discussed the BUDGET", Summary: "done"}
	assert.True(t, f.Matches(rec))
	assert.False(t, Filter{Search: "hiring"}.Matches(rec))
	assert.True(t, Filter{}.Matches(rec))
}
