package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harunnryd/minutes/internal/conversation"
	minutesErrors "github.com/harunnryd/minutes/internal/errors"
	"github.com/harunnryd/minutes/internal/events"
	"github.com/harunnryd/minutes/internal/logger"
	"github.com/harunnryd/minutes/internal/meeting"
	"github.com/harunnryd/minutes/internal/model/contract"

	"github.com/oklog/ulid/v2"
)

// run is the state of one analysis. It is confined to the goroutine that
// calls Kernel.Run.
type run struct {
	k          *Kernel
	id         string
	transcript string
	stream     *events.Stream
	conv       *conversation.State
	fsm        *machine
	tools      []contract.ToolDef

	round      int
	modelCalls int
	calls      []*contract.ToolCall
	finalText  string
	meetingID  string
}

// Run drives one transcript through the model and tools until the model
// answers with text, then persists the outcome. Every run ends with exactly
// one terminal event on stream: session_saved, or error carrying the kind of
// the returned error.
func (k *Kernel) Run(ctx context.Context, transcript string, stream *events.Stream) (*Result, error) {
	runID := ulid.Make().String()
	ctx = logger.WithRunID(ctx, runID)

	tools := k.tools.Schemas()
	r := &run{
		k:          k,
		id:         runID,
		transcript: transcript,
		stream:     stream,
		tools:      tools,
		fsm:        newMachine(),
		conv: conversation.New(
			buildSystemPrompt(k.opts.SystemPrompt, tools),
			buildUserPrompt(k.opts.UserPrompt, transcript),
		),
	}

	start := time.Now()
	slog.Info("Run started", append(logger.Attrs(ctx), "tools", len(tools), "max_rounds", k.opts.MaxRounds, "budget", k.opts.Budget)...)

	err := r.execute(ctx)

	attrs := append(logger.Attrs(ctx), "state", r.fsm.State(), "rounds", r.round, "model_calls", r.modelCalls, "duration", time.Since(start))
	if err != nil {
		slog.Error("Run failed", append(attrs, "error_kind", minutesErrors.Kind(err), "error", err)...)
	} else {
		slog.Info("Run complete", append(attrs, "meeting_id", r.meetingID)...)
	}

	return &Result{
		RunID:      runID,
		MeetingID:  r.meetingID,
		FinalText:  r.finalText,
		Rounds:     r.round,
		ModelCalls: r.modelCalls,
		States:     r.fsm.Trace(),
	}, err
}

func (r *run) execute(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, r.k.opts.Budget)
	defer cancel()

	for {
		var err error
		switch r.fsm.State() {
		case StateSeeded:
			err = r.fsm.to(StateAwaitingModel)

		case StateAwaitingModel:
			err = r.awaitModel(ctx)

		case StateHasToolRequests:
			err = r.fsm.to(StateExecutingTools)

		case StateExecutingTools:
			err = r.executeTools(ctx)

		case StateModelError:
			// awaitModel returned the cause; this state is only passed through.
			err = minutesErrors.Internal("model error state entered without a cause")

		case StateHasFinalText:
			err = r.finish()

		case StatePersisting:
			// The save is not bounded by the run budget: the model work is done.
			err = r.persist(context.WithoutCancel(ctx))

		case StateTerminatedSuccess, StateTerminatedError:
			return nil
		}

		if err != nil {
			return r.fail(err)
		}
		if r.fsm.State() == StateTerminatedSuccess {
			return nil
		}
	}
}

func (r *run) awaitModel(ctx context.Context) error {
	if err := r.checkBudget(ctx); err != nil {
		return err
	}

	r.round++
	r.emit(events.Thinking(r.round, thinkingContent(r.round)))

	req := contract.CompletionRequest{
		Model:    r.k.opts.Model,
		Messages: r.conv.Messages(),
		Tools:    r.tools,
	}
	slog.Info("Sending conversation to model", append(r.attrs(ctx), "messages", len(req.Messages))...)

	r.modelCalls++
	resp, err := r.k.model.Route(ctx, r.k.opts.Model, req)
	if err == nil {
		err = checkResponse(resp)
	}
	if err != nil {
		if toErr := r.fsm.to(StateModelError); toErr != nil {
			return toErr
		}
		if budgetErr := r.checkBudget(ctx); budgetErr != nil {
			return budgetErr
		}
		if !errors.Is(err, minutesErrors.ErrModelBackend) {
			err = minutesErrors.ModelBackend(err)
		}
		return err
	}

	if len(resp.ToolCalls) > 0 {
		r.calls = resp.ToolCalls
		slog.Info("Model requested tools", append(r.attrs(ctx), "count", len(resp.ToolCalls), "tools", toolNames(resp.ToolCalls))...)
		return r.fsm.to(StateHasToolRequests)
	}

	r.finalText = resp.Content
	if r.finalText == "" {
		r.finalText = defaultFinalText
	}
	return r.fsm.to(StateHasFinalText)
}

// executeTools runs the requested tools one at a time, in the order the model
// listed them. Tool failures become tool_result data; only internal faults,
// the round ceiling and the budget end the run here.
func (r *run) executeTools(ctx context.Context) error {
	for i, call := range r.calls {
		callID := call.ID
		if callID == "" {
			callID = fmt.Sprintf("call_%d_%d", r.round, i+1)
		}
		name := call.Name

		if err := r.conv.AppendToolRequest(contract.ToolCall{ID: callID, Name: name, Input: call.Input}); err != nil {
			return err
		}
		r.emit(events.ToolCall(r.round, callID, name, eventArguments(call.Input)))

		outcome := r.k.tools.Execute(ctx, name, json.RawMessage(call.Input))
		payload := outcome.Payload()

		if err := r.conv.AppendToolResult(callID, string(payload), !outcome.OK()); err != nil {
			return err
		}
		r.emit(events.ToolResult(r.round, callID, name, string(outcome.Status), payload))

		if !outcome.OK() {
			slog.Warn("Tool request failed", append(r.attrs(ctx), "tool", name, "call_id", callID, "status", outcome.Status, "reason", outcome.Reason)...)
		}
	}
	r.calls = nil

	if r.round >= r.k.opts.MaxRounds {
		return fmt.Errorf("model still requesting tools after %d rounds: %w", r.round, minutesErrors.ErrRoundCeiling)
	}
	if err := r.checkBudget(ctx); err != nil {
		return err
	}
	return r.fsm.to(StateAwaitingModel)
}

func (r *run) finish() error {
	if err := r.conv.AppendAssistantText(r.finalText); err != nil {
		return err
	}
	r.emit(events.Final(r.round, r.finalText))
	return r.fsm.to(StatePersisting)
}

func (r *run) persist(ctx context.Context) error {
	record := meeting.Build(
		r.transcript,
		events.SuccessResults(r.stream.History()),
		r.finalText,
		r.k.opts.Now(),
	)

	id, err := r.k.store.Create(ctx, record)
	if err != nil {
		return minutesErrors.Persistence(err)
	}
	r.meetingID = id

	if err := r.fsm.to(StateTerminatedSuccess); err != nil {
		return err
	}
	r.emit(events.SessionSaved(r.round, id))
	return nil
}

// fail moves the machine to TERMINATED_ERROR and emits the single error
// event for the run.
func (r *run) fail(err error) error {
	if toErr := r.fsm.to(StateTerminatedError); toErr != nil {
		slog.Error("Forcing terminal state", "from", r.fsm.State(), "error", toErr)
		r.fsm.state = StateTerminatedError
		r.fsm.trace = append(r.fsm.trace, StateTerminatedError)
	}
	r.emit(events.Error(r.round, minutesErrors.Kind(err), err.Error()))
	return err
}

// checkBudget reports the run budget or caller cancellation as a fatal error.
func (r *run) checkBudget(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("run exceeded %s: %w", r.k.opts.Budget, minutesErrors.ErrBudgetExceeded)
	default:
		return fmt.Errorf("run canceled: %w", err)
	}
}

func (r *run) emit(e events.Event) {
	if _, ok := r.stream.Emit(e); !ok {
		slog.Warn("Event rejected by stream", "run_id", r.id, "type", e.Type)
	}
}

func (r *run) attrs(ctx context.Context) []any {
	return append(logger.Attrs(ctx), "round", r.round)
}

// eventArguments relays the model's raw argument text. Text that is not JSON
// is relayed as a JSON string so the event stays valid.
func eventArguments(input string) json.RawMessage {
	if input == "" {
		return json.RawMessage(`{}`)
	}
	if json.Valid([]byte(input)) {
		return json.RawMessage(input)
	}
	quoted, _ := json.Marshal(input)
	return quoted
}

func checkResponse(resp *contract.CompletionResponse) error {
	if resp == nil {
		return minutesErrors.ModelBackend(minutesErrors.InvalidModelOutput("empty response"))
	}
	for i, call := range resp.ToolCalls {
		if call == nil {
			return minutesErrors.ModelBackend(minutesErrors.InvalidModelOutput(fmt.Sprintf("tool call %d is empty", i)))
		}
	}
	return nil
}

func toolNames(calls []*contract.ToolCall) []string {
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		names = append(names, c.Name)
	}
	return names
}
