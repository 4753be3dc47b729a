package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/minutes/internal/concurrency"
	"github.com/harunnryd/minutes/internal/config"
	minutesErrors "github.com/harunnryd/minutes/internal/errors"
	"github.com/harunnryd/minutes/internal/events"
	"github.com/harunnryd/minutes/internal/meeting"
	"github.com/harunnryd/minutes/internal/model/contract"
	"github.com/harunnryd/minutes/internal/tool"
)

// ModelBackend sends one conversation to a model. model.ModelRouter
// satisfies it.
type ModelBackend interface {
	Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error)
}

// ToolDispatcher runs tool requests and advertises their schemas.
// tool.Executor satisfies it.
type ToolDispatcher interface {
	Execute(ctx context.Context, name string, input json.RawMessage) tool.Outcome
	Schemas() []contract.ToolDef
}

type Options struct {
	Model        string
	MaxRounds    int
	Budget       time.Duration
	SystemPrompt string
	UserPrompt   string
	Now          func() time.Time
}

// OptionsFromConfig resolves the agent section, filling defaults.
func OptionsFromConfig(cfg config.AgentConfig) (Options, error) {
	budget, err := config.DurationOrDefault(cfg.Budget, config.DefaultAgentBudget)
	if err != nil {
		return Options{}, fmt.Errorf("parse agent.budget: %w", err)
	}
	return Options{
		Model:        cfg.Model,
		MaxRounds:    cfg.MaxRounds,
		Budget:       budget,
		SystemPrompt: cfg.SystemPrompt,
		UserPrompt:   cfg.UserPrompt,
	}, nil
}

func (o Options) withDefaults() Options {
	if o.MaxRounds <= 0 {
		o.MaxRounds = config.DefaultAgentMaxRounds
	}
	if o.Budget <= 0 {
		o.Budget, _ = time.ParseDuration(config.DefaultAgentBudget)
	}
	if strings.TrimSpace(o.SystemPrompt) == "" {
		o.SystemPrompt = config.DefaultAgentSystemPrompt
	}
	if o.UserPrompt == "" {
		o.UserPrompt = config.DefaultAgentUserPrompt
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Result summarizes a finished run. Err on the run is returned separately.
type Result struct {
	RunID      string
	MeetingID  string
	FinalText  string
	Rounds     int
	ModelCalls int
	States     []State
}

// Kernel drives transcript analysis runs. It holds no per-run state and is
// safe for concurrent runs.
type Kernel struct {
	model ModelBackend
	tools ToolDispatcher
	store meeting.Creator
	opts  Options

	mu      sync.RWMutex
	running bool
	runs    concurrency.Tracker
}

func NewKernel(model ModelBackend, tools ToolDispatcher, store meeting.Creator, opts Options) (*Kernel, error) {
	if model == nil {
		return nil, fmt.Errorf("model backend cannot be nil")
	}
	if tools == nil {
		return nil, fmt.Errorf("tool dispatcher cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("meeting store cannot be nil")
	}
	return &Kernel{
		model: model,
		tools: tools,
		store: store,
		opts:  opts.withDefaults(),
	}, nil
}

func (k *Kernel) Options() Options {
	return k.opts
}

// Tools returns the schemas advertised to the model, in registration order.
func (k *Kernel) Tools() []contract.ToolDef {
	return k.tools.Schemas()
}

func (k *Kernel) Start(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.running = true
	slog.Info("Kernel started", "model", k.opts.Model, "max_rounds", k.opts.MaxRounds, "budget", k.opts.Budget)
	return nil
}

// Stop waits for in-flight runs until ctx expires.
func (k *Kernel) Stop(ctx context.Context) error {
	k.mu.Lock()
	k.running = false
	k.mu.Unlock()

	if err := k.runs.Wait(ctx); err != nil {
		return fmt.Errorf("kernel stop: runs %w", err)
	}
	slog.Info("Kernel stopped")
	return nil
}

func (k *Kernel) Health(ctx context.Context) error {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if !k.running {
		return fmt.Errorf("kernel not running")
	}
	return nil
}

// Analyze starts a run in the background and returns its event stream. The
// run uses ctx as given, so callers that must survive a client disconnect
// pass a context detached from the request.
func (k *Kernel) Analyze(ctx context.Context, transcript string) (*events.Stream, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, minutesErrors.InvalidInput("transcript is empty")
	}

	stream := events.NewStream()
	k.runs.Go("analyze", func() {
		_, _ = k.Run(ctx, transcript, stream)
	}, func(p interface{}) {
		stream.Emit(events.Error(0, minutesErrors.KindInternal, fmt.Sprintf("run panicked: %v", p)))
	})
	return stream, nil
}
