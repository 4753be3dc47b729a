package events

import (
	"encoding/json"
	"time"
)

type Type string

const (
	TypeThinking     Type = "thinking"
	TypeToolCall     Type = "tool_call"
	TypeToolResult   Type = "tool_result"
	TypeFinal        Type = "final"
	TypeSessionSaved Type = "session_saved"
	TypeError        Type = "error"
)

// Event is one step of a run as delivered to the caller. Seq and Timestamp
// are assigned by the Stream at emission.
type Event struct {
	Type      Type            `json:"type"`
	Seq       int             `json:"seq"`
	Timestamp time.Time       `json:"ts"`
	Round     int             `json:"round,omitempty"`
	Content   string          `json:"content,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Status    string          `json:"status,omitempty"`
	MeetingID string          `json:"meeting_id,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
}

// Terminal reports whether no event may follow this one.
func (e Event) Terminal() bool {
	return e.Type == TypeSessionSaved || e.Type == TypeError
}

func Thinking(round int, content string) Event {
	return Event{Type: TypeThinking, Round: round, Content: content}
}

func ToolCall(round int, callID, tool string, args json.RawMessage) Event {
	return Event{Type: TypeToolCall, Round: round, CallID: callID, Tool: tool, Arguments: args}
}

func ToolResult(round int, callID, tool, status string, result json.RawMessage) Event {
	return Event{Type: TypeToolResult, Round: round, CallID: callID, Tool: tool, Status: status, Result: result}
}

func Final(round int, content string) Event {
	return Event{Type: TypeFinal, Round: round, Content: content}
}

func SessionSaved(round int, meetingID string) Event {
	return Event{Type: TypeSessionSaved, Round: round, MeetingID: meetingID}
}

func Error(round int, kind, content string) Event {
	return Event{Type: TypeError, Round: round, ErrorKind: kind, Content: content}
}

// SuccessResults returns the result payloads of successful tool_result
// events, in emission order.
func SuccessResults(history []Event) []json.RawMessage {
	results := make([]json.RawMessage, 0)
	for _, e := range history {
		if e.Type == TypeToolResult && e.Status == "success" {
			results = append(results, e.Result)
		}
	}
	return results
}
