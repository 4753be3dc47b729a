package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/minutes/internal/config"
	minutesErrors "github.com/harunnryd/minutes/internal/errors"
	"github.com/harunnryd/minutes/internal/meeting"

	"github.com/robfig/cron/v3"
)

// RetentionSweeper deletes meeting records older than the retention window on
// a cron schedule. A zero window disables it.
type RetentionSweeper struct {
	store     meeting.Store
	retention time.Duration
	schedule  cron.Schedule
	spec      string
	now       func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewRetentionSweeper(store meeting.Store, cfg config.StoreConfig) (*RetentionSweeper, error) {
	var retention time.Duration
	if raw := strings.TrimSpace(cfg.Retention); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parse store.retention: %w", err)
		}
		if d < 0 {
			return nil, fmt.Errorf("store.retention must not be negative, got %s", raw)
		}
		retention = d
	}

	spec := strings.TrimSpace(cfg.RetentionSchedule)
	if spec == "" {
		spec = config.DefaultStoreRetentionSchedule
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", spec, err)
	}

	return &RetentionSweeper{
		store:     store,
		retention: retention,
		schedule:  schedule,
		spec:      spec,
		now:       time.Now,
	}, nil
}

func (r *RetentionSweeper) Enabled() bool {
	return r.retention > 0
}

// Next reports when the sweep after t would run.
func (r *RetentionSweeper) Next(t time.Time) time.Time {
	return r.schedule.Next(t)
}

func (r *RetentionSweeper) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.Enabled() {
		slog.Info("Retention sweeper disabled")
		return nil
	}
	if r.running {
		return nil
	}

	r.cron = cron.New(cron.WithLocation(time.UTC))
	r.cron.Schedule(r.schedule, cron.FuncJob(func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := r.Sweep(sweepCtx); err != nil {
			slog.Error("Retention sweep failed", "error", err)
		}
	}))
	r.cron.Start()
	r.running = true

	slog.Info("Retention sweeper started", "retention", r.retention, "schedule", r.spec, "next", r.schedule.Next(r.now()))
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep, bounded by ctx.
func (r *RetentionSweeper) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	done := r.cron.Stop()
	r.running = false
	r.mu.Unlock()

	select {
	case <-done.Done():
		slog.Info("Retention sweeper stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("retention sweeper stop: %w", ctx.Err())
	}
}

func (r *RetentionSweeper) Health(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return fmt.Errorf("retention sweeper not running")
	}
	return nil
}

// Sweep deletes every record created before now minus the retention window
// and returns how many were removed.
func (r *RetentionSweeper) Sweep(ctx context.Context) (int, error) {
	if !r.Enabled() {
		return 0, nil
	}
	cutoff := r.now().Add(-r.retention)

	var expired []string
	for offset := 0; ; offset += meeting.MaxListLimit {
		page, err := r.store.List(ctx, meeting.Filter{Limit: meeting.MaxListLimit, Offset: offset})
		if err != nil {
			return 0, fmt.Errorf("list meetings: %w", err)
		}
		for _, s := range page {
			if s.CreatedAt.Before(cutoff) {
				expired = append(expired, s.ID)
			}
		}
		if len(page) < meeting.MaxListLimit {
			break
		}
	}

	deleted := 0
	for _, id := range expired {
		if err := r.store.Delete(ctx, id); err != nil {
			if errors.Is(err, minutesErrors.ErrNotFound) {
				continue
			}
			return deleted, fmt.Errorf("delete meeting %s: %w", id, err)
		}
		deleted++
	}

	if deleted > 0 {
		slog.Info("Retention sweep removed meetings", "count", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}
