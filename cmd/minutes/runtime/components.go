package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harunnryd/minutes/internal/config"
	"github.com/harunnryd/minutes/internal/meeting"
	"github.com/harunnryd/minutes/internal/store"
	"github.com/harunnryd/minutes/internal/tooling"
)

// RuntimeComponents is the in-process stack used by one-shot CLI commands.
type RuntimeComponents struct {
	Ctx    context.Context
	Cancel context.CancelFunc

	Config *config.Config
	Store  meeting.Store
	Agent  *tooling.Agent

	started bool
}

func NewRuntimeComponents(ctx context.Context, cfg *config.Config, withAgent bool) (*RuntimeComponents, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	components := &RuntimeComponents{
		Ctx:    ctx,
		Cancel: cancel,
		Config: cfg,
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		components.cleanup()
		return nil, fmt.Errorf("open meeting store: %w", err)
	}
	components.Store = st

	if withAgent {
		agent, err := tooling.BuildAgent(ctx, cfg, st)
		if err != nil {
			components.cleanup()
			return nil, fmt.Errorf("init agent: %w", err)
		}
		components.Agent = agent
	}

	slog.Debug("Runtime components initialized", "store", cfg.Store.Driver, "agent", withAgent)
	return components, nil
}

func (r *RuntimeComponents) Start() error {
	if r.Agent == nil {
		return nil
	}
	if err := r.Agent.Kernel.Start(r.Ctx); err != nil {
		r.cleanup()
		return fmt.Errorf("start kernel: %w", err)
	}
	r.started = true
	return nil
}

// Stop waits for in-flight runs before closing the store.
func (r *RuntimeComponents) Stop() {
	if r.started && r.Agent != nil {
		if err := r.Agent.Kernel.Stop(context.Background()); err != nil {
			slog.Warn("Kernel stop failed", "error", err)
		}
		r.started = false
	}
	r.cleanup()
}

func (r *RuntimeComponents) cleanup() {
	if r.Cancel != nil {
		r.Cancel()
	}
	if r.Store != nil {
		if err := r.Store.Close(); err != nil {
			slog.Warn("Meeting store close failed", "error", err)
		}
		r.Store = nil
	}
}
