package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/harunnryd/minutes/internal/config"
	"github.com/harunnryd/minutes/internal/events"
	"github.com/harunnryd/minutes/internal/idempotency"
	"github.com/harunnryd/minutes/internal/meeting"
	"github.com/harunnryd/minutes/internal/model/contract"
	"github.com/harunnryd/minutes/internal/transcribe"
)

const maxAnalyzeBody = 10 << 20

// Agent runs transcript analyses. orchestrator.Kernel satisfies it.
type Agent interface {
	Analyze(ctx context.Context, transcript string) (*events.Stream, error)
	Tools() []contract.ToolDef
}

type ComponentStatus struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// HealthFunc reports per-component health for /api/health.
type HealthFunc func(ctx context.Context) map[string]ComponentStatus

type Options struct {
	Agent          Agent
	Store          meeting.Store
	Transcriber    transcribe.Engine
	MaxUploadBytes int64
	Health         HealthFunc
	CORSOrigins    []string
	StreamTimeout  time.Duration
	// Idempotency, when set, rejects a repeated Idempotency-Key on
	// POST /api/analyze for IdempotencyTTL.
	Idempotency    *idempotency.Store
	IdempotencyTTL time.Duration
}

// Server serves the meeting agent's HTTP API.
type Server struct {
	agent         Agent
	store         meeting.Store
	transcriber   transcribe.Engine
	maxUpload     int64
	health        HealthFunc
	streamTimeout time.Duration
	idem          *idempotency.Store
	idemTTL       time.Duration
	handler       http.Handler
}

func NewServer(opts Options) (*Server, error) {
	if opts.Agent == nil {
		return nil, fmt.Errorf("agent cannot be nil")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("meeting store cannot be nil")
	}

	s := &Server{
		agent:         opts.Agent,
		store:         opts.Store,
		transcriber:   opts.Transcriber,
		maxUpload:     opts.MaxUploadBytes,
		health:        opts.Health,
		streamTimeout: opts.StreamTimeout,
		idem:          opts.Idempotency,
		idemTTL:       opts.IdempotencyTTL,
	}
	if s.maxUpload <= 0 {
		s.maxUpload = config.DefaultTranscriptionMaxUpload
	}
	if s.streamTimeout <= 0 {
		s.streamTimeout, _ = time.ParseDuration(config.DefaultServerStreamTimeout)
	}
	if s.idemTTL <= 0 {
		s.idemTTL, _ = time.ParseDuration(config.DefaultServerIdempotencyTTL)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/tools", s.handleTools)
	mux.HandleFunc("POST /api/transcribe", s.handleTranscribe)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/meetings", s.handleListMeetings)
	mux.HandleFunc("GET /api/meetings/{id}", s.handleGetMeeting)
	mux.HandleFunc("DELETE /api/meetings/{id}", s.handleDeleteMeeting)
	mux.HandleFunc("GET /api/meetings/{id}/results/{index}/download", s.handleDownloadResult)

	s.handler = withRecovery(withLogging(withCORS(mux, opts.CORSOrigins)))
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.handler
}
