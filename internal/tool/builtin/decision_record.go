package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	toolcore "github.com/harunnryd/minutes/internal/tool"
)

func init() {
	toolcore.RegisterBuiltin("create_decision_record", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &DecisionRecordTool{options: options}, nil
	})
}

// DecisionRecordTool writes an ADR-style record of a decision taken in the meeting.
type DecisionRecordTool struct {
	options toolcore.BuiltinOptions
}

func (t *DecisionRecordTool) Name() string {
	return "create_decision_record"
}

func (t *DecisionRecordTool) Description() string {
	return "Create a structured decision record (ADR) for a decision made during the meeting"
}

func (t *DecisionRecordTool) ToolMetadata() toolcore.ToolMetadata {
	return toolcore.ToolMetadata{
		ResultType:   "decision_record",
		Capabilities: []string{"document.markdown"},
		Risk:         toolcore.RiskLow,
	}
}

func (t *DecisionRecordTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"title": map[string]interface{}{
				"type":        "string",
				"description": "Title of the decision",
			},
			"context": map[string]interface{}{
				"type":        "string",
				"description": "Background context that led to this decision",
			},
			"decision": map[string]interface{}{
				"type":        "string",
				"description": "The decision that was made",
			},
			"consequences": map[string]interface{}{
				"type":        "string",
				"description": "Expected consequences and impact of this decision",
			},
			"participants": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "People involved in making this decision",
			},
			"date": map[string]interface{}{
				"type":        "string",
				"description": "Date of the decision in ISO 8601 format",
			},
		},
		"required": []string{"title", "context", "decision"},
	}
}

func (t *DecisionRecordTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	_ = ctx

	var args struct {
		Title        string   `json:"title"`
		Context      string   `json:"context"`
		Decision     string   `json:"decision"`
		Consequences string   `json:"consequences"`
		Participants []string `json:"participants"`
		Date         string   `json:"date"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	date := orDefault(args.Date, t.options.Clock().Format(dateLayout))
	const status = "accepted"

	var md strings.Builder
	fmt.Fprintf(&md, "# Decision: %s\n\n", args.Title)
	fmt.Fprintf(&md, "**Date:** %s\n", date)
	fmt.Fprintf(&md, "**Status:** %s\n", strings.ToUpper(status[:1])+status[1:])
	fmt.Fprintf(&md, "**Participants:** %s\n\n", joinOr(args.Participants, "Not recorded"))
	fmt.Fprintf(&md, "## Context\n\n%s\n\n", strings.TrimSpace(args.Context))
	fmt.Fprintf(&md, "## Decision\n\n%s\n\n", strings.TrimSpace(args.Decision))
	fmt.Fprintf(&md, "## Consequences\n\n%s\n\n", orDefault(strings.TrimSpace(args.Consequences), "_Not discussed._"))
	md.WriteString("---\n\n*Decision record generated by Meeting Agent.*\n")

	html, err := renderHTML(md.String())
	if err != nil {
		return nil, err
	}

	return json.Marshal(map[string]interface{}{
		"type":     "decision_record",
		"markdown": md.String(),
		"html":     html,
		"metadata": map[string]interface{}{
			"title":        args.Title,
			"date":         date,
			"participants": nonNil(args.Participants),
			"status":       status,
		},
	})
}
