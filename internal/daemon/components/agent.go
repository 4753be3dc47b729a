package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/minutes/internal/config"
	"github.com/harunnryd/minutes/internal/daemon"
	"github.com/harunnryd/minutes/internal/orchestrator"
	"github.com/harunnryd/minutes/internal/tooling"
)

// AgentComponent owns the model router, the tool surface and the kernel.
type AgentComponent struct {
	cfg       *config.Config
	storeComp *MeetingStoreComponent
	agent     *tooling.Agent
	mu        sync.RWMutex
}

func NewAgentComponent(cfg *config.Config, storeComp *MeetingStoreComponent) *AgentComponent {
	return &AgentComponent{cfg: cfg, storeComp: storeComp}
}

func (a *AgentComponent) Name() string {
	return "Agent"
}

func (a *AgentComponent) Dependencies() []string {
	return []string{"MeetingStore"}
}

func (a *AgentComponent) Init(ctx context.Context) error {
	if a.storeComp == nil {
		return fmt.Errorf("required component dependencies not provided")
	}
	st := a.storeComp.GetStore()
	if st == nil {
		return fmt.Errorf("meeting store not initialized")
	}

	agent, err := tooling.BuildAgent(ctx, a.cfg, st)
	if err != nil {
		return fmt.Errorf("failed to assemble agent: %w", err)
	}

	a.mu.Lock()
	a.agent = agent
	a.mu.Unlock()

	slog.Info("Agent initialized", "component", a.Name())
	return nil
}

func (a *AgentComponent) Start(ctx context.Context) error {
	kernel := a.GetKernel()
	if kernel == nil {
		return fmt.Errorf("kernel not initialized")
	}
	if err := kernel.Start(ctx); err != nil {
		return fmt.Errorf("failed to start kernel: %w", err)
	}
	slog.Info("Agent started", "component", a.Name())
	return nil
}

// Stop waits for in-flight runs so their sessions are saved before the
// store closes.
func (a *AgentComponent) Stop(ctx context.Context) error {
	kernel := a.GetKernel()
	if kernel == nil {
		slog.Info("Kernel not initialized, skipping stop", "component", a.Name())
		return nil
	}
	if err := kernel.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop kernel: %w", err)
	}
	slog.Info("Agent stopped", "component", a.Name())
	return nil
}

func (a *AgentComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	a.mu.RLock()
	agent := a.agent
	a.mu.RUnlock()

	if agent == nil {
		return daemon.Unhealthy(a.Name(), fmt.Errorf("not initialized")), nil
	}
	if err := agent.Kernel.Health(ctx); err != nil {
		return daemon.Unhealthy(a.Name(), err), nil
	}
	if err := agent.Router.Health(ctx); err != nil {
		return daemon.Unhealthy(a.Name(), err), nil
	}
	return daemon.Healthy(a.Name()), nil
}

func (a *AgentComponent) GetKernel() *orchestrator.Kernel {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.agent == nil {
		return nil
	}
	return a.agent.Kernel
}
