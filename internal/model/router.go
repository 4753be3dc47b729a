package model

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/minutes/internal/config"
	minutesErrors "github.com/harunnryd/minutes/internal/errors"
	"github.com/harunnryd/minutes/internal/logger"
	"github.com/harunnryd/minutes/internal/model/contract"
	anthropicProvider "github.com/harunnryd/minutes/internal/model/providers/anthropic"
	geminiProvider "github.com/harunnryd/minutes/internal/model/providers/gemini"
	openaiProvider "github.com/harunnryd/minutes/internal/model/providers/openai"
)

type route struct {
	provider    Provider
	remoteModel string
	timeout     time.Duration
	maxTokens   int
}

// DefaultModelRouter implements ModelRouter. Every Route call makes exactly
// one provider attempt; failures are reported, never retried or rerouted.
type DefaultModelRouter struct {
	defaultModel string
	routes       map[string]route
	mu           sync.RWMutex
}

// NewModelRouter creates a router from the configured registry
func NewModelRouter(ctx context.Context, cfg config.ModelsConfig) (*DefaultModelRouter, error) {
	router := NewEmptyRouter(cfg.Default)

	for _, entry := range cfg.Registry {
		provider, err := createProvider(ctx, entry)
		if err != nil {
			slog.Warn("Failed to create provider", "provider", entry.Provider, "model", entry.Name, "error", err)
			continue
		}

		timeout, err := config.DurationOrDefault(entry.RequestTimeout, config.DefaultModelRequestTimeout)
		if err != nil {
			return nil, minutesErrors.InvalidInput(fmt.Sprintf("invalid request_timeout for model %s: %v", entry.Name, err))
		}

		maxTokens := entry.MaxTokens
		if maxTokens <= 0 {
			maxTokens = config.DefaultModelMaxTokens
		}

		router.Register(entry.Name, provider, entry.RemoteModel(), timeout, maxTokens)
		slog.Info("Provider initialized", "name", entry.Name, "type", entry.Provider)
	}

	if len(router.routes) == 0 && len(cfg.Registry) > 0 {
		return nil, minutesErrors.Internal("no providers initialized")
	}

	return router, nil
}

// NewEmptyRouter creates a router with no providers; callers add them with Register.
func NewEmptyRouter(defaultModel string) *DefaultModelRouter {
	return &DefaultModelRouter{
		defaultModel: defaultModel,
		routes:       make(map[string]route),
	}
}

// Register binds a model name to a provider. timeout <= 0 disables the per-request deadline.
func (r *DefaultModelRouter) Register(name string, provider Provider, remoteModel string, timeout time.Duration, maxTokens int) {
	if remoteModel == "" {
		remoteModel = name
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[name] = route{provider: provider, remoteModel: remoteModel, timeout: timeout, maxTokens: maxTokens}
}

// Route sends a completion request to the provider registered for model
func (r *DefaultModelRouter) Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	if strings.TrimSpace(model) == "" {
		model = r.defaultModel
	}

	r.mu.RLock()
	rt, exists := r.routes[model]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %w", minutesErrors.ErrModelBackend, minutesErrors.NotFound(fmt.Sprintf("model %s not configured", model)))
	}

	slog.Debug("Routing completion request", append([]any{"model", model, "provider", rt.provider.Type()}, logger.Attrs(ctx)...)...)

	req.Model = rt.remoteModel
	if req.MaxTokens <= 0 {
		req.MaxTokens = rt.maxTokens
	}

	callCtx := ctx
	if rt.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, rt.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := rt.provider.Generate(callCtx, req)
	if err != nil {
		slog.Error("Provider request failed", append([]any{"model", model, "error", err, "elapsed", time.Since(start)}, logger.Attrs(ctx)...)...)
		return nil, minutesErrors.ModelBackend(err)
	}
	if resp == nil {
		return nil, minutesErrors.ModelBackend(minutesErrors.InvalidModelOutput("provider returned no response"))
	}
	for i, tc := range resp.ToolCalls {
		if tc == nil || strings.TrimSpace(tc.Name) == "" {
			return nil, minutesErrors.ModelBackend(minutesErrors.InvalidModelOutput(fmt.Sprintf("tool call %d has no name", i+1)))
		}
	}

	slog.Info("Request completed", append([]any{"model", model, "tool_calls", len(resp.ToolCalls), "elapsed", time.Since(start)}, logger.Attrs(ctx)...)...)
	return resp, nil
}

// ListModels returns all registered model names
func (r *DefaultModelRouter) ListModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]string, 0, len(r.routes))
	for name := range r.routes {
		models = append(models, name)
	}
	sort.Strings(models)

	return models
}

// Health checks the health of the router and its providers
func (r *DefaultModelRouter) Health(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.routes[r.defaultModel]; !ok {
		return minutesErrors.NotFound(fmt.Sprintf("default model %s not configured", r.defaultModel))
	}

	for name, rt := range r.routes {
		if err := rt.provider.Health(ctx); err != nil {
			slog.Warn("Provider unhealthy", "provider", name, "error", err)
			return minutesErrors.Transient(fmt.Sprintf("provider %s unhealthy", name))
		}
	}

	return nil
}

// createProvider creates a provider instance based on registry entry
func createProvider(ctx context.Context, entry config.ModelRegistry) (Provider, error) {
	switch entry.Provider {
	case "openai", "openrouter":
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOpenAIBaseURL
			if entry.Provider == "openrouter" {
				baseURL = config.DefaultOpenRouterBaseURL
			}
		}

		if entry.APIKey == "" {
			return nil, minutesErrors.InvalidInput(fmt.Sprintf("API key required for %s provider", entry.Provider))
		}

		return openaiProvider.New(entry.APIKey, baseURL, entry.Name, entry.Provider, nil), nil

	case "ollama":
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOllamaBaseURL
		}

		apiKey := entry.APIKey
		if apiKey == "" {
			apiKey = config.DefaultOllamaAPIKey
		}

		return openaiProvider.New(apiKey, baseURL, entry.Name, "ollama", nil), nil

	case "anthropic":
		if entry.APIKey == "" {
			return nil, minutesErrors.InvalidInput("API key required for Anthropic provider")
		}

		return anthropicProvider.New(entry.APIKey, entry.BaseURL, entry.Name, nil), nil

	case "gemini":
		if entry.APIKey == "" {
			return nil, minutesErrors.InvalidInput("API key required for Gemini provider")
		}

		provider, err := geminiProvider.New(ctx, entry.APIKey, entry.BaseURL, entry.Name, nil)
		if err != nil {
			return nil, minutesErrors.WrapWithCategory(err, "failed to create Gemini provider", minutesErrors.ErrInternal)
		}

		return provider, nil

	default:
		return nil, minutesErrors.InvalidInput(fmt.Sprintf("unknown provider type: %s", entry.Provider))
	}
}
