package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	toolcore "github.com/harunnryd/minutes/internal/tool"
)

func init() {
	toolcore.RegisterBuiltin("create_report", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &ReportTool{options: options}, nil
	})
}

// ReportTool summarizes a general discussion into a structured report.
type ReportTool struct {
	options toolcore.BuiltinOptions
}

func (t *ReportTool) Name() string {
	return "create_report"
}

func (t *ReportTool) Description() string {
	return "Create a structured meeting report/summary"
}

func (t *ReportTool) ToolMetadata() toolcore.ToolMetadata {
	return toolcore.ToolMetadata{
		ResultType:   "report",
		Capabilities: []string{"document.markdown"},
		Risk:         toolcore.RiskLow,
	}
}

func (t *ReportTool) Parameters() map[string]interface{} {
	stringList := func(description string) map[string]interface{} {
		return map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": description,
		}
	}

	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"title": map[string]interface{}{
				"type":        "string",
				"description": "Title of the meeting report",
			},
			"summary": map[string]interface{}{
				"type":        "string",
				"description": "Executive summary of the meeting",
			},
			"key_points":   stringList("List of key discussion points"),
			"action_items": stringList("List of action items with owners if known"),
			"attendees":    stringList("List of meeting attendees"),
			"date": map[string]interface{}{
				"type":        "string",
				"description": "Date of the meeting",
			},
		},
		"required": []string{"title", "summary", "key_points", "action_items"},
	}
}

func (t *ReportTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	_ = ctx

	var args struct {
		Title       string   `json:"title"`
		Summary     string   `json:"summary"`
		KeyPoints   []string `json:"key_points"`
		ActionItems []string `json:"action_items"`
		Attendees   []string `json:"attendees"`
		Date        string   `json:"date"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	date := orDefault(args.Date, t.options.Clock().Format(dateLayout))

	var md strings.Builder
	fmt.Fprintf(&md, "# %s\n\n", args.Title)
	fmt.Fprintf(&md, "**Date:** %s\n", date)
	fmt.Fprintf(&md, "**Attendees:** %s\n\n", joinOr(args.Attendees, "Not recorded"))
	fmt.Fprintf(&md, "## Summary\n\n%s\n\n", strings.TrimSpace(args.Summary))
	md.WriteString("## Key Points\n\n")
	md.WriteString(bulletList(args.KeyPoints, "No key points recorded."))
	md.WriteString("\n## Action Items\n\n")
	md.WriteString(bulletList(args.ActionItems, "No action items recorded."))
	md.WriteString("\n---\n\n*Report generated by Meeting Agent.*\n")

	html, err := renderHTML(md.String())
	if err != nil {
		return nil, err
	}

	return json.Marshal(map[string]interface{}{
		"type":     "report",
		"markdown": md.String(),
		"html":     html,
		"metadata": map[string]interface{}{
			"title":             args.Title,
			"date":              date,
			"attendees":         nonNil(args.Attendees),
			"key_point_count":   len(args.KeyPoints),
			"action_item_count": len(args.ActionItems),
		},
	})
}
