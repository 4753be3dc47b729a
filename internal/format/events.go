package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/harunnryd/minutes/internal/events"
	"github.com/harunnryd/minutes/internal/meeting"

	"charm.land/lipgloss/v2"
)

// EventRenderer is an events.Writer that prints a run's events as styled terminal lines. Color is
// downsampled to what the writer supports.
type EventRenderer struct {
	w            io.Writer
	verbose      bool
	phaseStyle   lipgloss.Style
	toolStyle    lipgloss.Style
	dimStyle     lipgloss.Style
	okStyle      lipgloss.Style
	failStyle    lipgloss.Style
	finalStyle   lipgloss.Style
	summaryStyle lipgloss.Style
}

func NewEventRenderer(w io.Writer, verbose bool) *EventRenderer {
	purple := lipgloss.Color("99")
	gray := lipgloss.Color("245")
	green := lipgloss.Color("42")
	red := lipgloss.Color("196")

	return &EventRenderer{
		w:          w,
		verbose:    verbose,
		phaseStyle: lipgloss.NewStyle().Foreground(purple).Bold(true),
		toolStyle:  lipgloss.NewStyle().Foreground(purple),
		dimStyle:   lipgloss.NewStyle().Foreground(gray),
		okStyle:    lipgloss.NewStyle().Foreground(green),
		failStyle:  lipgloss.NewStyle().Foreground(red).Bold(true),
		finalStyle: lipgloss.NewStyle().Bold(true),
		summaryStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple).
			Padding(0, 1),
	}
}

func (r *EventRenderer) WriteEvent(e events.Event) error {
	var line string
	switch e.Type {
	case events.TypeThinking:
		line = r.phaseStyle.Render(fmt.Sprintf("Round %d", e.Round)) + " " + r.dimStyle.Render(e.Content)
	case events.TypeToolCall:
		line = "  → " + r.toolStyle.Render(e.Tool)
		if r.verbose && len(e.Arguments) > 0 {
			line += " " + r.dimStyle.Render(compactJSON(e.Arguments))
		}
	case events.TypeToolResult:
		line = r.toolResultLine(e)
	case events.TypeFinal:
		line = "\n" + r.summaryStyle.Render(r.finalStyle.Render(strings.TrimSpace(e.Content)))
	case events.TypeSessionSaved:
		line = r.okStyle.Render("Saved meeting " + e.MeetingID)
	case events.TypeError:
		line = r.failStyle.Render("Error ["+e.ErrorKind+"]") + " " + e.Content
	default:
		line = r.dimStyle.Render(string(e.Type))
	}

	_, err := lipgloss.Fprintln(r.w, line)
	return err
}

func (r *EventRenderer) toolResultLine(e events.Event) string {
	if e.Status == "success" {
		line := "  " + r.okStyle.Render("✓ "+e.Tool)
		if t := meeting.ResultType(e.Result); t != "" {
			line += " " + r.dimStyle.Render(t)
		}
		return line
	}

	var failure struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(e.Result, &failure)
	line := "  " + r.failStyle.Render("✗ "+e.Tool) + " " + r.dimStyle.Render(e.Status)
	if failure.Error != "" {
		line += ": " + failure.Error
	}
	return line
}

func compactJSON(raw json.RawMessage) string {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return truncateString(string(raw), 120)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return truncateString(string(raw), 120)
	}
	return truncateString(string(b), 120)
}
