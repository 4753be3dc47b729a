package conversation

import (
	"fmt"

	minutesErrors "github.com/harunnryd/minutes/internal/errors"
	"github.com/harunnryd/minutes/internal/model/contract"
)

type TurnKind string

const (
	TurnSystem        TurnKind = "system"
	TurnUser          TurnKind = "user"
	TurnAssistantText TurnKind = "assistant_text"
	TurnToolRequest   TurnKind = "assistant_tool_request"
	TurnToolResult    TurnKind = "tool_result"
)

// Turn is one entry of the conversation sent to the model.
type Turn struct {
	Kind    TurnKind
	Content string

	// Set on tool request and tool result turns.
	CallID   string
	ToolName string
	Input    string
	Failed   bool
}

// State is the append-only conversation for one run. It starts with exactly
// one system and one user turn, and a tool request must be answered by the
// very next turn before anything else is appended.
type State struct {
	turns   []Turn
	pending *Turn
}

func New(systemPrompt, userPrompt string) *State {
	return &State{
		turns: []Turn{
			{Kind: TurnSystem, Content: systemPrompt},
			{Kind: TurnUser, Content: userPrompt},
		},
	}
}

func (s *State) AppendAssistantText(text string) error {
	if err := s.checkAnswered(); err != nil {
		return err
	}
	s.turns = append(s.turns, Turn{Kind: TurnAssistantText, Content: text})
	return nil
}

func (s *State) AppendToolRequest(call contract.ToolCall) error {
	if err := s.checkAnswered(); err != nil {
		return err
	}
	if call.ID == "" {
		return minutesErrors.Internal("tool request without call id")
	}
	s.turns = append(s.turns, Turn{
		Kind:     TurnToolRequest,
		CallID:   call.ID,
		ToolName: call.Name,
		Input:    call.Input,
	})
	req := s.turns[len(s.turns)-1]
	s.pending = &req
	return nil
}

// AppendToolResult answers the outstanding tool request. The call id must
// match it.
func (s *State) AppendToolResult(callID, payload string, failed bool) error {
	if s.pending == nil {
		return minutesErrors.Internal(fmt.Sprintf("tool result %s without a pending request", callID))
	}
	if s.pending.CallID != callID {
		return minutesErrors.Internal(fmt.Sprintf("tool result %s does not answer pending request %s", callID, s.pending.CallID))
	}
	s.turns = append(s.turns, Turn{
		Kind:     TurnToolResult,
		CallID:   callID,
		ToolName: s.pending.ToolName,
		Content:  payload,
		Failed:   failed,
	})
	s.pending = nil
	return nil
}

// Ready reports whether the conversation can be sent to the model, i.e.
// every tool request has been answered.
func (s *State) Ready() bool {
	return s.pending == nil
}

func (s *State) checkAnswered() error {
	if s.pending != nil {
		return minutesErrors.Internal(fmt.Sprintf("tool request %s is unanswered", s.pending.CallID))
	}
	return nil
}

func (s *State) Len() int {
	return len(s.turns)
}

func (s *State) Turns() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Messages renders the turns in the provider-neutral message format. Each
// tool request becomes its own assistant message so that its result follows
// it directly.
func (s *State) Messages() []contract.Message {
	messages := make([]contract.Message, 0, len(s.turns))
	for _, t := range s.turns {
		switch t.Kind {
		case TurnSystem:
			messages = append(messages, contract.Message{Role: contract.RoleSystem, Content: t.Content})
		case TurnUser:
			messages = append(messages, contract.Message{Role: contract.RoleUser, Content: t.Content})
		case TurnAssistantText:
			messages = append(messages, contract.Message{Role: contract.RoleAssistant, Content: t.Content})
		case TurnToolRequest:
			messages = append(messages, contract.Message{
				Role: contract.RoleAssistant,
				ToolCalls: []*contract.ToolCall{
					{ID: t.CallID, Name: t.ToolName, Input: t.Input},
				},
			})
		case TurnToolResult:
			messages = append(messages, contract.Message{
				Role:       contract.RoleTool,
				Content:    t.Content,
				ToolCallID: t.CallID,
				ToolName:   t.ToolName,
				IsError:    t.Failed,
			})
		}
	}
	return messages
}
