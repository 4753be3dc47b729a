package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/minutes/internal/config"
	"github.com/harunnryd/minutes/internal/daemon"
	"github.com/harunnryd/minutes/internal/store"
)

type RetentionComponent struct {
	cfg       config.StoreConfig
	storeComp *MeetingStoreComponent
	sweeper   *store.RetentionSweeper
	mu        sync.RWMutex
}

func NewRetentionComponent(cfg config.StoreConfig, storeComp *MeetingStoreComponent) *RetentionComponent {
	return &RetentionComponent{cfg: cfg, storeComp: storeComp}
}

func (r *RetentionComponent) Name() string {
	return "Retention"
}

func (r *RetentionComponent) Dependencies() []string {
	return []string{"MeetingStore"}
}

func (r *RetentionComponent) Init(ctx context.Context) error {
	if r.storeComp == nil || r.storeComp.GetStore() == nil {
		return fmt.Errorf("meeting store not initialized")
	}

	sweeper, err := store.NewRetentionSweeper(r.storeComp.GetStore(), r.cfg)
	if err != nil {
		return fmt.Errorf("failed to create retention sweeper: %w", err)
	}

	r.mu.Lock()
	r.sweeper = sweeper
	r.mu.Unlock()

	slog.Info("Retention initialized", "component", r.Name(), "enabled", sweeper.Enabled())
	return nil
}

func (r *RetentionComponent) Start(ctx context.Context) error {
	sweeper := r.getSweeper()
	if sweeper == nil {
		return fmt.Errorf("retention sweeper not initialized")
	}
	return sweeper.Start(ctx)
}

func (r *RetentionComponent) Stop(ctx context.Context) error {
	sweeper := r.getSweeper()
	if sweeper == nil {
		return nil
	}
	return sweeper.Stop(ctx)
}

func (r *RetentionComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	sweeper := r.getSweeper()
	if sweeper == nil {
		return daemon.Unhealthy(r.Name(), fmt.Errorf("not initialized")), nil
	}
	if err := sweeper.Health(ctx); err != nil {
		return daemon.Unhealthy(r.Name(), err), nil
	}
	return daemon.Healthy(r.Name()), nil
}

func (r *RetentionComponent) getSweeper() *store.RetentionSweeper {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sweeper
}
