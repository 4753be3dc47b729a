package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	toolcore "github.com/harunnryd/minutes/internal/tool"
)

func init() {
	toolcore.RegisterBuiltin("analyze_sentiment", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &SentimentTool{}, nil
	})
}

type badge struct {
	text  string
	color string
}

var toneBadges = map[string]badge{
	"productive": {"Productive", "green"},
	"tense":      {"Tension Detected", "red"},
	"casual":     {"Casual", "blue"},
	"mixed":      {"Mixed Tone", "yellow"},
	"positive":   {"Positive", "green"},
	"negative":   {"Negative", "red"},
	"neutral":    {"Neutral", "gray"},
}

// SentimentTool labels the tone of a meeting with a UI badge.
type SentimentTool struct{}

func (t *SentimentTool) Name() string {
	return "analyze_sentiment"
}

func (t *SentimentTool) Description() string {
	return "Analyze the sentiment and tone of the meeting, including any conflict and a 1-10 productivity score"
}

func (t *SentimentTool) ToolMetadata() toolcore.ToolMetadata {
	return toolcore.ToolMetadata{
		ResultType:   "sentiment",
		Capabilities: []string{"analysis.tone"},
		Risk:         toolcore.RiskLow,
	}
}

func (t *SentimentTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"overall_tone": map[string]interface{}{
				"type":        "string",
				"description": "e.g. productive, tense, casual, mixed",
			},
			"tone_details": map[string]interface{}{
				"type":        "string",
				"description": "A brief explanation of the tone",
			},
			"conflict_detected": map[string]interface{}{
				"type":        "boolean",
				"description": "Whether any tension or disagreement was noted",
			},
			"conflict_details": map[string]interface{}{
				"type":        "string",
				"description": "Description of the conflict if detected",
			},
			"key_emotions": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Emotions observed (e.g. enthusiasm, frustration)",
			},
			"productivity_score": map[string]interface{}{
				"type":        "integer",
				"description": "1-10 rating of how productive the meeting was",
			},
		},
		"required": []string{"overall_tone", "tone_details"},
	}
}

func (t *SentimentTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	_ = ctx

	var args struct {
		OverallTone       string   `json:"overall_tone"`
		ToneDetails       string   `json:"tone_details"`
		ConflictDetected  bool     `json:"conflict_detected"`
		ConflictDetails   string   `json:"conflict_details"`
		KeyEmotions       []string `json:"key_emotions"`
		ProductivityScore int      `json:"productivity_score"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	b := toneBadge(args.OverallTone, args.ConflictDetected)

	return json.Marshal(map[string]interface{}{
		"type":              "sentiment",
		"tone":              args.OverallTone,
		"badge":             b.text,
		"badge_color":       b.color,
		"conflict_detected": args.ConflictDetected,
		"details": map[string]interface{}{
			"overall_tone":       args.OverallTone,
			"tone_details":       args.ToneDetails,
			"conflict_detected":  args.ConflictDetected,
			"conflict_details":   args.ConflictDetails,
			"key_emotions":       nonNil(args.KeyEmotions),
			"productivity_score": clampScore(args.ProductivityScore),
		},
	})
}

func toneBadge(tone string, conflict bool) badge {
	b, ok := toneBadges[strings.ToLower(strings.TrimSpace(tone))]
	if !ok {
		b = badge{text: capitalize(strings.ToLower(strings.TrimSpace(tone))), color: "gray"}
	}
	if conflict && b.color != "red" {
		b.text += " + Conflict"
		b.color = "yellow"
	}
	return b
}

// clampScore treats a missing score as 5 and bounds the rest to 1..10.
func clampScore(score int) int {
	if score == 0 {
		score = 5
	}
	return min(max(score, 1), 10)
}
