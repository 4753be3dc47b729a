package orchestrator

import (
	"fmt"

	minutesErrors "github.com/harunnryd/minutes/internal/errors"
)

// State is a node of the run state machine.
type State string

const (
	StateSeeded            State = "SEEDED"
	StateAwaitingModel     State = "AWAITING_MODEL"
	StateHasToolRequests   State = "HAS_TOOL_REQUESTS"
	StateHasFinalText      State = "HAS_FINAL_TEXT"
	StateModelError        State = "MODEL_ERROR"
	StateExecutingTools    State = "EXECUTING_TOOLS"
	StatePersisting        State = "PERSISTING"
	StateTerminatedSuccess State = "TERMINATED_SUCCESS"
	StateTerminatedError   State = "TERMINATED_ERROR"
)

// transitions is the complete table of legal moves. Any state may abort to
// TERMINATED_ERROR except MODEL_ERROR, whose only exit is that abort.
var transitions = map[State][]State{
	StateSeeded:          {StateAwaitingModel, StateTerminatedError},
	StateAwaitingModel:   {StateHasToolRequests, StateHasFinalText, StateModelError, StateTerminatedError},
	StateHasToolRequests: {StateExecutingTools, StateTerminatedError},
	StateExecutingTools:  {StateAwaitingModel, StateTerminatedError},
	StateHasFinalText:    {StatePersisting, StateTerminatedError},
	StateModelError:      {StateTerminatedError},
	StatePersisting:      {StateTerminatedSuccess, StateTerminatedError},
}

func (s State) Terminal() bool {
	return s == StateTerminatedSuccess || s == StateTerminatedError
}

// CanTransition reports whether from -> to is in the table.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type machine struct {
	state State
	trace []State
}

func newMachine() *machine {
	return &machine{state: StateSeeded, trace: []State{StateSeeded}}
}

func (m *machine) State() State {
	return m.state
}

func (m *machine) to(next State) error {
	if !CanTransition(m.state, next) {
		return minutesErrors.Internal(fmt.Sprintf("illegal transition %s -> %s", m.state, next))
	}
	m.state = next
	m.trace = append(m.trace, next)
	return nil
}

func (m *machine) Trace() []State {
	out := make([]State, len(m.trace))
	copy(out, m.trace)
	return out
}
