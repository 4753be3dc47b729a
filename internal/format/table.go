package format

import (
	"strings"
	"time"

	"github.com/harunnryd/minutes/internal/meeting"
	"github.com/harunnryd/minutes/internal/tool"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

const displayTimeLayout = "2006-01-02 15:04"

type TableFormatter struct {
	headerStyle  lipgloss.Style
	cellStyle    lipgloss.Style
	oddRowStyle  lipgloss.Style
	evenRowStyle lipgloss.Style
	borderStyle  lipgloss.Style
}

func NewTableFormatter() *TableFormatter {
	purple := lipgloss.Color("99")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	return &TableFormatter{
		headerStyle: lipgloss.NewStyle().
			Foreground(purple).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		cellStyle: lipgloss.NewStyle().
			Padding(0, 1),
		oddRowStyle: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRowStyle: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Foreground(purple),
	}
}

func (f *TableFormatter) rows() *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.headerStyle
			case row%2 == 0:
				return f.evenRowStyle
			default:
				return f.oddRowStyle
			}
		})
}

func (f *TableFormatter) FormatMeetings(meetings []meeting.Summary) (string, error) {
	if len(meetings) == 0 {
		return "No meetings found", nil
	}

	t := f.rows().Headers("ID", "Created", "Title", "Results")
	for _, m := range meetings {
		t.Row(
			m.ID,
			localTime(m.CreatedAt),
			truncateString(m.Title, 40),
			truncateString(strings.Join(m.ResultTypes, ", "), 40),
		)
	}
	return t.String(), nil
}

func (f *TableFormatter) FormatMeeting(r *meeting.Record) (string, error) {
	if r == nil {
		return "No meeting found", nil
	}

	summary := r.Summarize()
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return f.headerStyle
			}
			return f.cellStyle
		})

	t.Row("ID", r.ID)
	t.Row("Title", r.Title)
	t.Row("Created", localTime(r.CreatedAt))
	t.Row("Summary", truncateString(oneLine(r.Summary), 80))
	for i, typ := range summary.ResultTypes {
		label := ""
		if i == 0 {
			label = "Results"
		}
		t.Row(label, typ)
	}
	t.Row("Transcript", truncateString(oneLine(r.Transcript), 80))

	return t.String(), nil
}

func (f *TableFormatter) FormatTools(tools []tool.ToolDescriptor) (string, error) {
	if len(tools) == 0 {
		return "No tools enabled", nil
	}

	t := f.rows().Headers("Name", "Result", "Risk", "Description")
	for _, d := range tools {
		t.Row(d.Name, d.Metadata.ResultType, string(d.Metadata.Risk), truncateString(d.Description, 60))
	}
	return t.String(), nil
}

func localTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(displayTimeLayout)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
