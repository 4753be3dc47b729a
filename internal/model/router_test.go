package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harunnryd/minutes/internal/config"
	minutesErrors "github.com/harunnryd/minutes/internal/errors"
	"github.com/harunnryd/minutes/internal/model/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	calls    []contract.CompletionRequest
	resp     *contract.CompletionResponse
	err      error
	block    bool
	deadline bool
}

func (p *stubProvider) Name() string                     { return "stub" }
func (p *stubProvider) Type() string                     { return "stub" }
func (p *stubProvider) Health(ctx context.Context) error { return nil }

func (p *stubProvider) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	p.calls = append(p.calls, req)
	_, p.deadline = ctx.Deadline()
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return p.resp, p.err
}

func TestRoute_DefaultModelAndRemoteName(t *testing.T) {
	p := &stubProvider{resp: &contract.CompletionResponse{Content: "ok"}}
	r := NewEmptyRouter("fast")
	r.Register("fast", p, "vendor/fast-1", time.Minute, 512)

	resp, err := r.Route(context.Background(), "", contract.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)

	require.Len(t, p.calls, 1)
	assert.Equal(t, "vendor/fast-1", p.calls[0].Model)
	assert.Equal(t, 512, p.calls[0].MaxTokens)
	assert.True(t, p.deadline)
}

func TestRoute_FailureIsSingleAttemptModelBackendError(t *testing.T) {
	p := &stubProvider{err: errors.New("dial tcp: connection refused")}
	r := NewEmptyRouter("m")
	r.Register("m", p, "", 0, 0)

	_, err := r.Route(context.Background(), "m", contract.CompletionRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, minutesErrors.ErrModelBackend)
	assert.ErrorIs(t, err, minutesErrors.ErrTransient)
	assert.Len(t, p.calls, 1, "router must not retry")
	assert.False(t, p.deadline, "zero timeout means no deadline")
}

func TestRoute_TimeoutSurfacesAsModelBackendError(t *testing.T) {
	p := &stubProvider{block: true}
	r := NewEmptyRouter("m")
	r.Register("m", p, "", 20*time.Millisecond, 0)

	_, err := r.Route(context.Background(), "m", contract.CompletionRequest{})
	assert.ErrorIs(t, err, minutesErrors.ErrModelBackend)
	assert.ErrorIs(t, err, minutesErrors.ErrTransient)
}

func TestRoute_UnknownModel(t *testing.T) {
	r := NewEmptyRouter("missing")
	_, err := r.Route(context.Background(), "", contract.CompletionRequest{})
	assert.ErrorIs(t, err, minutesErrors.ErrModelBackend)
	assert.ErrorIs(t, err, minutesErrors.ErrNotFound)
}

func TestRoute_ToolCallWithoutNameIsMalformed(t *testing.T) {
	p := &stubProvider{resp: &contract.CompletionResponse{ToolCalls: []*contract.ToolCall{{ID: "1", Name: " "}}}}
	r := NewEmptyRouter("m")
	r.Register("m", p, "", 0, 0)

	_, err := r.Route(context.Background(), "m", contract.CompletionRequest{})
	assert.ErrorIs(t, err, minutesErrors.ErrModelBackend)
	assert.ErrorIs(t, err, minutesErrors.ErrInvalidModelOutput)
}

func TestNewModelRouter_SkipsProvidersWithoutKeys(t *testing.T) {
	r, err := NewModelRouter(context.Background(), config.ModelsConfig{
		Default: "local",
		Registry: []config.ModelRegistry{
			{Name: "needs-key", Provider: "openai"},
			{Name: "local", Provider: "ollama", Model: "llama3.1"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"local"}, r.ListModels())
	assert.NoError(t, r.Health(context.Background()))
}

func TestNewModelRouter_FailsWhenNothingInitializes(t *testing.T) {
	_, err := NewModelRouter(context.Background(), config.ModelsConfig{
		Default:  "x",
		Registry: []config.ModelRegistry{{Name: "x", Provider: "unknown"}},
	})
	assert.ErrorIs(t, err, minutesErrors.ErrInternal)
}
