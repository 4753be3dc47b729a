package orchestrator

import (
	"fmt"
	"strings"

	"github.com/harunnryd/minutes/internal/model/contract"
)

const (
	thinkingFirstRound = "Analyzing transcript..."
	thinkingLaterRound = "Reviewing tool results..."
	defaultFinalText   = "Analysis complete."
)

// buildSystemPrompt appends the advertised tool list to the operating
// instructions.
func buildSystemPrompt(base string, tools []contract.ToolDef) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(base))
	if len(tools) == 0 {
		return b.String()
	}

	b.WriteString("\n\nAvailable tools:\n")
	for _, t := range tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// buildUserPrompt fills the transcript into format, which carries one %s
// verb. A format without the verb gets the transcript appended.
func buildUserPrompt(format, transcript string) string {
	if strings.Contains(format, "%s") {
		return strings.Replace(format, "%s", transcript, 1)
	}
	if strings.TrimSpace(format) == "" {
		return transcript
	}
	return strings.TrimRight(format, "\n") + "\n\n" + transcript
}

func thinkingContent(round int) string {
	if round <= 1 {
		return thinkingFirstRound
	}
	return thinkingLaterRound
}
