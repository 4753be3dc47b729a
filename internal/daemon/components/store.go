package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/minutes/internal/config"
	"github.com/harunnryd/minutes/internal/daemon"
	"github.com/harunnryd/minutes/internal/meeting"
	"github.com/harunnryd/minutes/internal/store"
)

type MeetingStoreComponent struct {
	cfg         config.StoreConfig
	store       meeting.Store
	initialized bool
	started     bool
	mu          sync.RWMutex
}

func NewMeetingStoreComponent(cfg config.StoreConfig) *MeetingStoreComponent {
	return &MeetingStoreComponent{cfg: cfg}
}

func (s *MeetingStoreComponent) Name() string {
	return "MeetingStore"
}

func (s *MeetingStoreComponent) Dependencies() []string {
	return []string{}
}

func (s *MeetingStoreComponent) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("MeetingStore init cancelled: %w", ctx.Err())
	default:
	}

	st, err := store.Open(s.cfg)
	if err != nil {
		return fmt.Errorf("failed to open meeting store: %w", err)
	}

	s.store = st
	s.initialized = true
	slog.Info("MeetingStore initialized", "component", s.Name(), "driver", s.cfg.Driver)
	return nil
}

func (s *MeetingStoreComponent) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return fmt.Errorf("MeetingStore not initialized")
	}
	s.started = true
	return nil
}

func (s *MeetingStoreComponent) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		slog.Info("MeetingStore not initialized, skipping stop", "component", s.Name())
		return nil
	}

	slog.Info("Stopping MeetingStore...", "component", s.Name())
	err := s.store.Close()
	s.store = nil
	s.started = false
	s.initialized = false
	if err != nil {
		return fmt.Errorf("close meeting store: %w", err)
	}
	slog.Info("MeetingStore stopped", "component", s.Name())
	return nil
}

func (s *MeetingStoreComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return daemon.Unhealthy(s.Name(), fmt.Errorf("not initialized")), nil
	}
	if !s.started {
		return daemon.Unhealthy(s.Name(), fmt.Errorf("not started")), nil
	}
	if _, err := s.store.List(ctx, meeting.Filter{Limit: 1}); err != nil {
		return daemon.Unhealthy(s.Name(), fmt.Errorf("probe failed: %w", err)), nil
	}

	return daemon.Healthy(s.Name()), nil
}

func (s *MeetingStoreComponent) GetStore() meeting.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}
