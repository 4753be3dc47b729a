package tooling

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harunnryd/minutes/internal/config"
	"github.com/harunnryd/minutes/internal/meeting"
	"github.com/harunnryd/minutes/internal/model"
	"github.com/harunnryd/minutes/internal/orchestrator"
)

// Agent is the assembled analysis runtime: model routing, the tool surface
// and the kernel that drives runs over them.
type Agent struct {
	Router *model.DefaultModelRouter
	Tools  *Components
	Kernel *orchestrator.Kernel
}

// BuildAgent wires the configured providers and tools into a kernel that
// saves finished runs through store.
func BuildAgent(ctx context.Context, cfg *config.Config, store meeting.Creator) (*Agent, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	router, err := model.NewModelRouter(ctx, cfg.Models)
	if err != nil {
		return nil, fmt.Errorf("init model router: %w", err)
	}

	tools, err := Build(cfg)
	if err != nil {
		return nil, fmt.Errorf("init tools: %w", err)
	}

	opts, err := orchestrator.OptionsFromConfig(cfg.Agent)
	if err != nil {
		return nil, err
	}
	if opts.Model == "" {
		opts.Model = cfg.Models.Default
	}

	kernel, err := orchestrator.NewKernel(router, tools.Executor, store, opts)
	if err != nil {
		return nil, fmt.Errorf("create kernel: %w", err)
	}

	slog.Info("Agent assembled", "model", kernel.Options().Model, "tools", tools.Registry.Len(), "models", router.ListModels())
	return &Agent{Router: router, Tools: tools, Kernel: kernel}, nil
}
