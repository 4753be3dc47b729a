package builtin

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	toolcore "github.com/harunnryd/minutes/internal/tool"
)

func init() {
	toolcore.RegisterBuiltin("create_action_items", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &ActionItemsTool{options: options}, nil
	})
}

var priorityMarks = map[string]string{
	"high":   "🔴",
	"medium": "🟡",
	"low":    "🟢",
}

// ActionItemsTool normalizes follow-up tasks into a table and a CSV export.
type ActionItemsTool struct {
	options toolcore.BuiltinOptions
}

func (t *ActionItemsTool) Name() string {
	return "create_action_items"
}

func (t *ActionItemsTool) Description() string {
	return "Create a structured list of action items (task, assignee, deadline, priority) from the meeting"
}

func (t *ActionItemsTool) ToolMetadata() toolcore.ToolMetadata {
	return toolcore.ToolMetadata{
		ResultType:   "action_items",
		Capabilities: []string{"document.markdown", "document.csv"},
		Risk:         toolcore.RiskLow,
	}
}

func (t *ActionItemsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"items": map[string]interface{}{
				"type":        "array",
				"description": "Action items extracted from the meeting",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"task": map[string]interface{}{
							"type":        "string",
							"description": "Description of the action item",
						},
						"assignee": map[string]interface{}{
							"type":        "string",
							"description": "Person responsible, or Unassigned",
						},
						"deadline": map[string]interface{}{
							"type":        "string",
							"description": "When it is due, or TBD",
						},
						"priority": map[string]interface{}{
							"type":        "string",
							"enum":        []string{"high", "medium", "low"},
							"description": "Priority of the task",
						},
					},
					"required": []string{"task"},
				},
			},
			"meeting_title": map[string]interface{}{
				"type":        "string",
				"description": "Title of the meeting",
			},
			"date": map[string]interface{}{
				"type":        "string",
				"description": "Date of the meeting",
			},
		},
		"required": []string{"items"},
	}
}

type actionItem struct {
	Task     string `json:"task"`
	Assignee string `json:"assignee"`
	Deadline string `json:"deadline"`
	Priority string `json:"priority"`
}

func (t *ActionItemsTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	_ = ctx

	var args struct {
		Items        []actionItem `json:"items"`
		MeetingTitle string       `json:"meeting_title"`
		Date         string       `json:"date"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	date := orDefault(args.Date, t.options.Clock().Format(dateLayout))
	title := orDefault(args.MeetingTitle, "Meeting")

	items := make([]actionItem, 0, len(args.Items))
	for _, item := range args.Items {
		items = append(items, actionItem{
			Task:     strings.TrimSpace(item.Task),
			Assignee: orDefault(item.Assignee, "Unassigned"),
			Deadline: orDefault(item.Deadline, "TBD"),
			Priority: strings.ToLower(orDefault(item.Priority, "medium")),
		})
	}

	csvContent, err := actionItemsCSV(items)
	if err != nil {
		return nil, err
	}

	return json.Marshal(map[string]interface{}{
		"type":     "action_items",
		"items":    items,
		"markdown": actionItemsMarkdown(title, date, items),
		"csv":      csvContent,
		"metadata": map[string]interface{}{
			"meeting_title": title,
			"date":          date,
			"total_items":   len(items),
		},
	})
}

func actionItemsMarkdown(title, date string, items []actionItem) string {
	var md strings.Builder
	fmt.Fprintf(&md, "# Action Items: %s\n\n", title)
	fmt.Fprintf(&md, "**Date:** %s\n", date)
	fmt.Fprintf(&md, "**Total Items:** %d\n\n", len(items))
	md.WriteString("| # | Priority | Task | Assignee | Deadline |\n")
	md.WriteString("|---|----------|------|----------|----------|\n")
	for i, item := range items {
		mark, ok := priorityMarks[item.Priority]
		if !ok {
			mark = "⚪"
		}
		fmt.Fprintf(&md, "| %d | %s %s | %s | %s | %s |\n",
			i+1, mark, capitalize(item.Priority), cell(item.Task), cell(item.Assignee), cell(item.Deadline))
	}
	md.WriteString("\n---\n\n*Action items extracted by Meeting Agent.*\n")
	return md.String()
}

func actionItemsCSV(items []actionItem) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"#", "Priority", "Task", "Assignee", "Deadline"}); err != nil {
		return "", err
	}
	for i, item := range items {
		if err := w.Write([]string{strconv.Itoa(i + 1), item.Priority, item.Task, item.Assignee, item.Deadline}); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// cell keeps a value from breaking the markdown table row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
