package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	minutesErrors "github.com/harunnryd/minutes/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	name   string
	result json.RawMessage
	err    error
	panic  bool
	block  bool
	calls  int
}

func (t *stubTool) Name() string        { return t.name }
func (t *stubTool) Description() string { return "stub " + t.name }
func (t *stubTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"title": map[string]interface{}{"type": "string"},
		},
		"required": []string{"title"},
	}
}
func (t *stubTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	t.calls++
	if t.panic {
		panic("nil map write")
	}
	if t.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return t.result, t.err
}

func TestRegistry_RegisterLookupAndOrder(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubTool{name: "create_report"}))
	require.NoError(t, registry.Register(&stubTool{name: " create_calendar_invite "}))
	require.NoError(t, registry.Register(&stubTool{name: "analyze_sentiment"}))

	err := registry.Register(&stubTool{name: "create_report"})
	assert.ErrorIs(t, err, minutesErrors.ErrDuplicateTool)
	assert.ErrorIs(t, registry.Register(&stubTool{name: "  "}), minutesErrors.ErrInvalidInput)

	_, err = registry.Lookup("create_minutes")
	assert.ErrorIs(t, err, minutesErrors.ErrUnknownTool)

	found, err := registry.Lookup("create_calendar_invite")
	require.NoError(t, err)
	assert.Equal(t, " create_calendar_invite ", found.Name())

	names := make([]string, 0, 3)
	for _, def := range registry.Schemas() {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"create_report", "create_calendar_invite", "analyze_sentiment"}, names)
	assert.Equal(t, names, registry.Names())
	assert.Equal(t, 3, registry.Len())

	descriptors := registry.Descriptors()
	require.Len(t, descriptors, 3)
	assert.Equal(t, "create_report", descriptors[0].Name)
	assert.Equal(t, RiskMedium, descriptors[0].Metadata.Risk)
	assert.Empty(t, descriptors[0].Metadata.Capabilities)
}

// typedTool declares its result type and capabilities.
type typedTool struct {
	stubTool
	meta ToolMetadata
}

func (t *typedTool) ToolMetadata() ToolMetadata { return t.meta }

func TestRegistry_DescriptorsNormalizeMetadata(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&typedTool{
		stubTool: stubTool{name: "create_report"},
		meta: ToolMetadata{
			ResultType:   " report ",
			Capabilities: []string{"Document.Markdown", "document.html", "document.markdown", " "},
			Risk:         "LOW",
		},
	}))

	meta := registry.Descriptors()[0].Metadata
	assert.Equal(t, "report", meta.ResultType)
	assert.Equal(t, []string{"document.html", "document.markdown"}, meta.Capabilities)
	assert.Equal(t, RiskLow, meta.Risk)
}

func TestExecutor_DeclaredResultType(t *testing.T) {
	tl := &typedTool{
		stubTool: stubTool{name: "create_report", result: json.RawMessage(`{"type":"sentiment"}`)},
		meta:     ToolMetadata{ResultType: "report"},
	}
	exec := newTestExecutor(t, tl)

	out := exec.Execute(context.Background(), "create_report", json.RawMessage(`{"title":"Sync"}`))
	assert.Equal(t, StatusExecutionFailed, out.Status)
	assert.Contains(t, out.Reason, `declared "report"`)

	tl.result = json.RawMessage(`{"type":"report"}`)
	out = exec.Execute(context.Background(), "create_report", json.RawMessage(`{"title":"Sync"}`))
	assert.True(t, out.OK(), out.Reason)
}

func newTestExecutor(t *testing.T, tools ...Tool) *Executor {
	t.Helper()
	registry := NewRegistry()
	for _, tl := range tools {
		require.NoError(t, registry.Register(tl))
	}
	return NewExecutor(registry, UnknownFieldsReject, 50*time.Millisecond)
}

func TestExecutor_Success(t *testing.T) {
	report := &stubTool{name: "create_report", result: json.RawMessage(`{"type":"report","markdown":"# Sync"}`)}
	exec := newTestExecutor(t, report)

	out := exec.Execute(context.Background(), "create_report", json.RawMessage(`{"title":"Sync"}`))
	require.True(t, out.OK(), out.Reason)
	assert.Equal(t, "report", out.ResultType())
	assert.JSONEq(t, `{"type":"report","markdown":"# Sync"}`, string(out.Payload()))
}

func TestExecutor_FailuresAreData(t *testing.T) {
	tests := []struct {
		name       string
		tool       *stubTool
		toolName   string
		input      string
		wantStatus Status
		wantReason string
		wantCalls  int
	}{
		{
			name:       "unknown tool",
			tool:       &stubTool{name: "create_report"},
			toolName:   "create_minutes",
			input:      `{"title":"x"}`,
			wantStatus: StatusValidationFailed,
			wantReason: "unknown tool: create_minutes",
		},
		{
			name:       "missing field",
			tool:       &stubTool{name: "create_report"},
			toolName:   "create_report",
			input:      `{}`,
			wantStatus: StatusValidationFailed,
			wantReason: "missing required field: title",
		},
		{
			name:       "unknown field rejected",
			tool:       &stubTool{name: "create_report"},
			toolName:   "create_report",
			input:      `{"title":"x","mood":"grim"}`,
			wantStatus: StatusValidationFailed,
			wantReason: "unknown field: mood",
		},
		{
			name:       "executor error",
			tool:       &stubTool{name: "create_report", err: errors.New("service unavailable")},
			toolName:   "create_report",
			input:      `{"title":"x"}`,
			wantStatus: StatusExecutionFailed,
			wantReason: "service unavailable",
			wantCalls:  1,
		},
		{
			name:       "panic",
			tool:       &stubTool{name: "create_report", panic: true},
			toolName:   "create_report",
			input:      `{"title":"x"}`,
			wantStatus: StatusExecutionFailed,
			wantReason: "tool panicked: nil map write",
			wantCalls:  1,
		},
		{
			name:       "timeout",
			tool:       &stubTool{name: "create_report", block: true},
			toolName:   "create_report",
			input:      `{"title":"x"}`,
			wantStatus: StatusExecutionFailed,
			wantReason: "timed out after 50ms",
			wantCalls:  1,
		},
		{
			name:       "untagged result",
			tool:       &stubTool{name: "create_report", result: json.RawMessage(`{"markdown":"x"}`)},
			toolName:   "create_report",
			input:      `{"title":"x"}`,
			wantStatus: StatusExecutionFailed,
			wantReason: "tool result has no type tag",
			wantCalls:  1,
		},
		{
			name:       "non-object result",
			tool:       &stubTool{name: "create_report", result: json.RawMessage(`"done"`)},
			toolName:   "create_report",
			input:      `{"title":"x"}`,
			wantStatus: StatusExecutionFailed,
			wantReason: "tool result is not a JSON object",
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := newTestExecutor(t, tt.tool)

			out := exec.Execute(context.Background(), tt.toolName, json.RawMessage(tt.input))
			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Contains(t, out.Reason, tt.wantReason)
			assert.Nil(t, out.Result)
			assert.Equal(t, tt.wantCalls, tt.tool.calls)
			assert.Empty(t, out.ResultType())

			var payload map[string]string
			require.NoError(t, json.Unmarshal(out.Payload(), &payload))
			assert.Equal(t, string(tt.wantStatus), payload["status"])
			assert.Equal(t, out.Reason, payload["error"])
		})
	}
}

func TestExecutor_RunDeadlineIsNotBlamedOnToolTimeout(t *testing.T) {
	tool := &stubTool{name: "create_report", block: true}
	registry := NewRegistry()
	require.NoError(t, registry.Register(tool))
	exec := NewExecutor(registry, UnknownFieldsReject, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out := exec.Execute(ctx, "create_report", json.RawMessage(`{"title":"x"}`))
	assert.Equal(t, StatusExecutionFailed, out.Status)
	assert.Contains(t, out.Reason, "run ended before the tool finished")
	assert.Contains(t, out.Reason, context.DeadlineExceeded.Error())
	assert.NotContains(t, out.Reason, "timed out after")
}
