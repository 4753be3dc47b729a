package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/harunnryd/minutes/internal/config"
)

// Daemon owns the lifecycle of the long-running components: init in
// dependency order, start in the same order, stop in reverse.
type Daemon struct {
	cfg        *config.Config
	components []Component
	order      []string
	status     HealthStatus
	startedAt  time.Time
	mu         sync.RWMutex

	shutdownTTL    time.Duration
	abortTTL       time.Duration
	preflightTTL   time.Duration
	healthInterval time.Duration
}

func NewDaemon(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Daemon{
		cfg:       cfg,
		status:    StatusStarting,
		startedAt: time.Now(),
	}, nil
}

func (d *Daemon) AddComponent(comp Component) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.components = append(d.components, comp)
	slog.Debug("Component registered", "component", comp.Name(), "total_components", len(d.components))
}

// Start brings every component up and blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM, then shuts down.
func (d *Daemon) Start(ctx context.Context) error {
	slog.Info("Minutes daemon starting...")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.validateConfig(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if err := d.prepareStateDir(ctx); err != nil {
		return fmt.Errorf("pre-init checks failed: %w", err)
	}

	if err := d.initializeComponents(ctx); err != nil {
		d.rollback(context.Background())
		return fmt.Errorf("component initialization failed: %w", err)
	}

	if err := d.startComponents(ctx); err != nil {
		_ = d.stopWithin(d.abortTTL)
		return fmt.Errorf("component startup failed: %w", err)
	}

	d.setStatus(StatusRunning)
	slog.Info("Minutes daemon is running", "components", len(d.components), "port", d.cfg.Server.Port)

	go d.watchHealth(ctx)

	<-ctx.Done()

	slog.Info("Context cancelled, initiating graceful shutdown", "reason", ctx.Err())
	d.setStatus(StatusStopping)
	if err := d.stopWithin(d.shutdownTTL); err != nil {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ctx.Err()
	}
	return nil
}

func (d *Daemon) Health() HealthStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

func (d *Daemon) Uptime() time.Duration {
	return time.Since(d.startedAt)
}

// ComponentHealth probes every registered component. A probe error marks the
// component unhealthy even when it returned no report.
func (d *Daemon) ComponentHealth(ctx context.Context) map[string]*ComponentHealth {
	result := make(map[string]*ComponentHealth)
	for _, comp := range d.snapshot() {
		health, err := comp.Health(ctx)
		if health == nil {
			health = &ComponentHealth{Name: comp.Name()}
		}
		if err != nil {
			health.Healthy = false
			health.Error = err
		}
		result[comp.Name()] = health
	}
	return result
}

func (d *Daemon) Component(name string) Component {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lookup(name)
}

func (d *Daemon) setStatus(status HealthStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = status
}

// validateConfig checks the settings the daemon itself depends on and
// resolves its timeouts.
func (d *Daemon) validateConfig() error {
	if d.cfg.Server.Port < 1 || d.cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", d.cfg.Server.Port)
	}
	if d.cfg.Agent.MaxRounds < 0 {
		return fmt.Errorf("invalid agent.max_rounds: %d", d.cfg.Agent.MaxRounds)
	}

	durations := []struct {
		key      string
		raw      string
		fallback string
		dst      *time.Duration
	}{
		{"daemon.shutdown_timeout", d.cfg.Daemon.ShutdownTimeout, config.DefaultDaemonShutdownTimeout, &d.shutdownTTL},
		{"daemon.startup_shutdown_timeout", d.cfg.Daemon.StartupShutdownTimeout, config.DefaultDaemonStartupShutdown, &d.abortTTL},
		{"daemon.preflight_timeout", d.cfg.Daemon.PreflightTimeout, config.DefaultDaemonPreflightTimeout, &d.preflightTTL},
		{"daemon.health_check_interval", d.cfg.Daemon.HealthCheckInterval, config.DefaultDaemonHealthInterval, &d.healthInterval},
	}
	for _, entry := range durations {
		v, err := config.DurationOrDefault(entry.raw, entry.fallback)
		if err != nil {
			return fmt.Errorf("parse %s: %w", entry.key, err)
		}
		*entry.dst = v
	}

	slog.Info("Configuration validated", "port", d.cfg.Server.Port, "store", d.cfg.Store.Driver)
	return nil
}

// prepareStateDir makes sure the state directory exists before any
// component opens files under it.
func (d *Daemon) prepareStateDir(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, d.preflightTTL)
	defer cancel()

	if err := os.MkdirAll(config.BaseDir(), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := checkCtx.Err(); err != nil {
		return fmt.Errorf("pre-init checks cancelled: %w", err)
	}
	return nil
}

func (d *Daemon) initializeComponents(ctx context.Context) error {
	order, err := resolveOrder(d.snapshot())
	if err != nil {
		return fmt.Errorf("failed to resolve init order: %w", err)
	}

	d.mu.Lock()
	d.order = order
	d.mu.Unlock()
	slog.Info("Initialization order resolved", "order", order)

	return d.each(ctx, "init", order, Component.Init)
}

func (d *Daemon) startComponents(ctx context.Context) error {
	return d.each(ctx, "start", d.lifecycleOrder(), Component.Start)
}

// each runs one lifecycle step over the components in order and stops at
// the first failure.
func (d *Daemon) each(ctx context.Context, step string, order []string, fn func(Component, context.Context) error) error {
	for _, name := range order {
		comp := d.Component(name)
		if comp == nil {
			continue
		}
		if err := fn(comp, ctx); err != nil {
			slog.Error("Component "+step+" failed", "component", name, "error", err)
			return fmt.Errorf("component %s %s failed: %w", name, step, err)
		}
		slog.Debug("Component "+step+" done", "component", name)
	}
	slog.Info("Components "+step+" complete", "count", len(order))
	return nil
}

// stopWithin shuts the components down, giving up after timeout. Stop calls
// still running at that point are abandoned.
func (d *Daemon) stopWithin(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.shutdownComponents(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			slog.Error("Shutdown completed with error", "error", err)
		} else {
			slog.Info("Graceful shutdown completed")
		}
		return err
	case <-ctx.Done():
		slog.Error("Shutdown timeout exceeded", "timeout", timeout)
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}

// shutdownComponents stops components in reverse start order. A failing
// Stop is logged and the rest still run; the first error is returned.
func (d *Daemon) shutdownComponents(ctx context.Context) error {
	err := d.stopReverse(ctx, d.lifecycleOrder())
	d.setStatus(StatusStopped)
	return err
}

// rollback undoes a partial Init. Components tolerate Stop without Start, so
// every registered component is asked to release what it holds.
func (d *Daemon) rollback(ctx context.Context) {
	slog.Warn("Rolling back initialized components...")
	_ = d.stopReverse(ctx, d.lifecycleOrder())
	d.setStatus(StatusStopped)
}

func (d *Daemon) stopReverse(ctx context.Context, order []string) error {
	var firstErr error
	for i := len(order) - 1; i >= 0; i-- {
		comp := d.Component(order[i])
		if comp == nil {
			continue
		}
		if err := comp.Stop(ctx); err != nil {
			slog.Error("Component stop failed", "component", order[i], "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("component %s stop failed: %w", order[i], err)
			}
			continue
		}
		slog.Info("Component stopped", "component", order[i])
	}
	return firstErr
}

// lifecycleOrder is the resolved init order, or registration order when
// Init has not run.
func (d *Daemon) lifecycleOrder() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.order) > 0 {
		return append([]string(nil), d.order...)
	}
	names := make([]string, 0, len(d.components))
	for _, comp := range d.components {
		names = append(names, comp.Name())
	}
	return names
}

func (d *Daemon) snapshot() []Component {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Component(nil), d.components...)
}

func (d *Daemon) lookup(name string) Component {
	for _, comp := range d.components {
		if comp.Name() == name {
			return comp
		}
	}
	return nil
}

// watchHealth probes components periodically and logs only transitions, so
// a steady daemon stays quiet.
func (d *Daemon) watchHealth(ctx context.Context) {
	ticker := time.NewTicker(d.healthInterval)
	defer ticker.Stop()

	last := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for name, health := range d.ComponentHealth(ctx) {
				was, seen := last[name]
				last[name] = health.Healthy
				switch {
				case !health.Healthy && (!seen || was):
					slog.Warn("Component unhealthy", "component", name, "error", health.Error)
				case health.Healthy && seen && !was:
					slog.Info("Component recovered", "component", name, "uptime", d.Uptime().Round(time.Second))
				}
			}
		}
	}
}
