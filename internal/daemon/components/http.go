package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/harunnryd/minutes/internal/api"
	"github.com/harunnryd/minutes/internal/config"
	"github.com/harunnryd/minutes/internal/daemon"
	"github.com/harunnryd/minutes/internal/idempotency"
	"github.com/harunnryd/minutes/internal/transcribe"
)

type HTTPServerComponent struct {
	daemon      *daemon.Daemon
	cfg         *config.Config
	agentComp   *AgentComponent
	storeComp   *MeetingStoreComponent
	server      *http.Server
	listener    net.Listener
	shutdownTTL time.Duration
	initialized bool
	started     bool
	mu          sync.RWMutex
}

func NewHTTPServerComponent(d *daemon.Daemon, cfg *config.Config, agentComp *AgentComponent, storeComp *MeetingStoreComponent) *HTTPServerComponent {
	return &HTTPServerComponent{
		daemon:    d,
		cfg:       cfg,
		agentComp: agentComp,
		storeComp: storeComp,
	}
}

func (h *HTTPServerComponent) Name() string {
	return "HTTPServer"
}

func (h *HTTPServerComponent) Dependencies() []string {
	return []string{"MeetingStore", "Agent"}
}

func (h *HTTPServerComponent) Init(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.agentComp == nil || h.storeComp == nil {
		return fmt.Errorf("required component dependencies not provided")
	}
	kernel := h.agentComp.GetKernel()
	if kernel == nil {
		return fmt.Errorf("kernel not initialized")
	}
	st := h.storeComp.GetStore()
	if st == nil {
		return fmt.Errorf("meeting store not initialized")
	}

	srvCfg := h.cfg.Server
	readTimeout, err := config.DurationOrDefault(srvCfg.ReadTimeout, config.DefaultServerReadTimeout)
	if err != nil {
		return fmt.Errorf("parse server read timeout: %w", err)
	}
	writeTimeout, err := config.DurationOrDefault(srvCfg.WriteTimeout, config.DefaultServerWriteTimeout)
	if err != nil {
		return fmt.Errorf("parse server write timeout: %w", err)
	}
	idleTimeout, err := config.DurationOrDefault(srvCfg.IdleTimeout, config.DefaultServerIdleTimeout)
	if err != nil {
		return fmt.Errorf("parse server idle timeout: %w", err)
	}
	shutdownTimeout, err := config.DurationOrDefault(srvCfg.ShutdownTimeout, config.DefaultServerShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse server shutdown timeout: %w", err)
	}
	streamTimeout, err := config.DurationOrDefault(srvCfg.StreamTimeout, config.DefaultServerStreamTimeout)
	if err != nil {
		return fmt.Errorf("parse server stream timeout: %w", err)
	}

	idemTTL, err := config.DurationOrDefault(srvCfg.IdempotencyTTL, config.DefaultServerIdempotencyTTL)
	if err != nil {
		return fmt.Errorf("parse server idempotency ttl: %w", err)
	}
	idem, err := idempotency.NewStore(srvCfg.IdempotencyFile)
	if err != nil {
		return fmt.Errorf("failed to open idempotency store: %w", err)
	}

	var transcriber transcribe.Engine
	if h.cfg.Transcription.APIKey != "" {
		engine, err := transcribe.NewWhisperEngine(h.cfg.Transcription)
		if err != nil {
			return fmt.Errorf("failed to create transcription engine: %w", err)
		}
		transcriber = engine
	} else {
		slog.Warn("Transcription disabled: no API key configured", "component", h.Name())
	}

	apiServer, err := api.NewServer(api.Options{
		Agent:          kernel,
		Store:          st,
		Transcriber:    transcriber,
		MaxUploadBytes: h.cfg.Transcription.MaxUploadBytes,
		Health:         h.componentStatus,
		CORSOrigins:    srvCfg.CORSOrigins,
		StreamTimeout:  streamTimeout,
		Idempotency:    idem,
		IdempotencyTTL: idemTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create api server: %w", err)
	}

	h.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", srvCfg.Port),
		Handler:      apiServer.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	h.shutdownTTL = shutdownTimeout

	h.initialized = true
	slog.Info("HTTPServer initialized", "component", h.Name(), "port", srvCfg.Port)
	return nil
}

// Start binds synchronously so a port conflict fails the daemon start.
func (h *HTTPServerComponent) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return fmt.Errorf("HTTPServer not initialized")
	}

	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", h.server.Addr, err)
	}
	h.listener = ln
	server := h.server

	go func() {
		slog.Info("HTTP server listening", "component", h.Name(), "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "component", h.Name(), "error", err)
		}
	}()

	h.started = true
	slog.Info("HTTPServer started", "component", h.Name())
	return nil
}

// Stop releases the lock before Shutdown so in-flight /api/health requests
// can still read component state while draining.
func (h *HTTPServerComponent) Stop(ctx context.Context) error {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		slog.Info("HTTPServer not started, skipping stop", "component", h.Name())
		return nil
	}
	server := h.server
	ttl := h.shutdownTTL
	h.started = false
	h.mu.Unlock()

	slog.Info("Stopping HTTPServer...", "component", h.Name())
	shutdownCtx, cancel := context.WithTimeout(ctx, ttl)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTPServer shutdown error", "component", h.Name(), "error", err)
		return err
	}

	slog.Info("HTTPServer stopped", "component", h.Name())
	return nil
}

func (h *HTTPServerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.initialized {
		return daemon.Unhealthy(h.Name(), fmt.Errorf("not initialized")), nil
	}
	if !h.started {
		return daemon.Unhealthy(h.Name(), fmt.Errorf("not started")), nil
	}
	return daemon.Healthy(h.Name()), nil
}

// Addr returns the bound address, or "" before Start.
func (h *HTTPServerComponent) Addr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

func (h *HTTPServerComponent) componentStatus(ctx context.Context) map[string]api.ComponentStatus {
	statuses := make(map[string]api.ComponentStatus)
	if h.daemon == nil {
		return statuses
	}
	for name, ch := range h.daemon.ComponentHealth(ctx) {
		if ch == nil {
			continue
		}
		status := api.ComponentStatus{Healthy: ch.Healthy}
		if ch.Error != nil {
			status.Error = ch.Error.Error()
		}
		statuses[name] = status
	}
	return statuses
}
