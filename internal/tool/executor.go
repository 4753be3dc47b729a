package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	minutesErrors "github.com/harunnryd/minutes/internal/errors"
	"github.com/harunnryd/minutes/internal/logger"
	"github.com/harunnryd/minutes/internal/model/contract"
)

type Status string

const (
	StatusSuccess          Status = "success"
	StatusValidationFailed Status = "validation_failed"
	StatusExecutionFailed  Status = "execution_failed"
)

// Outcome is the uniform result of one tool request. Exactly one of Result
// (on success) or Reason (on failure) is set.
type Outcome struct {
	Status Status
	Result json.RawMessage
	Reason string
}

func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

// Payload is what the model and the caller see for this outcome: the tool's
// own result on success, otherwise an {"error", "status"} object.
func (o Outcome) Payload() json.RawMessage {
	if o.OK() {
		return o.Result
	}
	b, _ := json.Marshal(map[string]string{
		"error":  o.Reason,
		"status": string(o.Status),
	})
	return b
}

// ResultType returns the "type" tag of a successful payload.
func (o Outcome) ResultType() string {
	if !o.OK() {
		return ""
	}
	var tagged struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(o.Result, &tagged)
	return tagged.Type
}

func validationFailed(reason string) Outcome {
	return Outcome{Status: StatusValidationFailed, Reason: reason}
}

func executionFailed(reason string) Outcome {
	return Outcome{Status: StatusExecutionFailed, Reason: reason}
}

// Executor validates and runs tool requests. Execute never returns an error
// and never panics: every failure is folded into the Outcome.
type Executor struct {
	registry *Registry
	policy   UnknownFieldPolicy
	timeout  time.Duration
}

func NewExecutor(registry *Registry, policy UnknownFieldPolicy, timeout time.Duration) *Executor {
	if policy == "" {
		policy = UnknownFieldsAllow
	}
	return &Executor{
		registry: registry,
		policy:   policy,
		timeout:  timeout,
	}
}

func (e *Executor) Registry() *Registry {
	return e.registry
}

func (e *Executor) Schemas() []contract.ToolDef {
	return e.registry.Schemas()
}

func (e *Executor) Descriptors() []ToolDescriptor {
	return e.registry.Descriptors()
}

// Execute handles the full lifecycle: Lookup -> Validate -> Run -> Check result tag
func (e *Executor) Execute(ctx context.Context, toolName string, input json.RawMessage) Outcome {
	logAttrs := append([]any{"tool", NormalizeToolName(toolName)}, logger.Attrs(ctx)...)

	t, err := e.registry.Lookup(toolName)
	if err != nil {
		slog.Warn("Tool lookup failed", append(logAttrs, "error", err)...)
		return validationFailed(fmt.Sprintf("unknown tool: %s", NormalizeToolName(toolName)))
	}

	if err := ValidateInput(t.Parameters(), input, e.policy); err != nil {
		slog.Warn("Tool input validation failed", append(logAttrs, "error", err)...)
		return validationFailed(err.Error())
	}

	start := time.Now()
	slog.Info("Executing tool", logAttrs...)

	result, err := e.run(ctx, t, input)
	duration := time.Since(start)
	if err != nil {
		slog.Error("Tool execution failed", append(logAttrs, "error", err, "duration", duration)...)
		return executionFailed(err.Error())
	}

	if err := checkTagged(result, metadataOf(t).ResultType); err != nil {
		slog.Error("Tool returned malformed result", append(logAttrs, "error", err, "duration", duration)...)
		return executionFailed(err.Error())
	}

	slog.Info("Tool execution success", append(logAttrs, "duration", duration)...)
	return Outcome{Status: StatusSuccess, Result: result}
}

func (e *Executor) run(parent context.Context, t Tool, input json.RawMessage) (result json.RawMessage, err error) {
	ctx := parent
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, e.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Tool panicked", "tool", t.Name(), "panic", r, "stack", string(debug.Stack()))
			result = nil
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()

	result, err = t.Execute(ctx, input)
	if err != nil {
		if cause := parent.Err(); cause != nil {
			return nil, fmt.Errorf("run ended before the tool finished (%v): %w", cause, minutesErrors.ErrToolExecution)
		}
		if errors.Is(err, context.DeadlineExceeded) && e.timeout > 0 {
			return nil, fmt.Errorf("timed out after %s: %w", e.timeout, minutesErrors.ErrToolExecution)
		}
		return nil, err
	}
	return result, nil
}

// checkTagged requires a JSON object with a "type" tag matching the
// declared result type, when there is one.
func checkTagged(result json.RawMessage, declared string) error {
	var tagged map[string]interface{}
	if err := json.Unmarshal(result, &tagged); err != nil || tagged == nil {
		return fmt.Errorf("tool result is not a JSON object")
	}
	tag, _ := tagged["type"].(string)
	if tag == "" {
		return fmt.Errorf("tool result has no type tag")
	}
	if declared != "" && tag != declared {
		return fmt.Errorf("tool result tagged %q, declared %q", tag, declared)
	}
	return nil
}
