package config

import (
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server        ServerConfig        `koanf:"server" yaml:"server"`
	Models        ModelsConfig        `koanf:"models" yaml:"models"`
	Agent         AgentConfig         `koanf:"agent" yaml:"agent"`
	Tools         ToolsConfig         `koanf:"tools" yaml:"tools"`
	Transcription TranscriptionConfig `koanf:"transcription" yaml:"transcription"`
	Store         StoreConfig         `koanf:"store" yaml:"store"`
	Daemon        DaemonConfig        `koanf:"daemon" yaml:"daemon"`
}

type ServerConfig struct {
	Port            int      `koanf:"port" yaml:"port"`
	LogLevel        string   `koanf:"log_level" yaml:"log_level"`
	LogFormat       string   `koanf:"log_format" yaml:"log_format"`
	ReadTimeout     string   `koanf:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    string   `koanf:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     string   `koanf:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout string   `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
	StreamTimeout   string   `koanf:"stream_timeout" yaml:"stream_timeout"`
	IdempotencyTTL  string   `koanf:"idempotency_ttl" yaml:"idempotency_ttl"`
	IdempotencyFile string   `koanf:"idempotency_file" yaml:"idempotency_file"`
	CORSOrigins     []string `koanf:"cors_origins" yaml:"cors_origins"`
}

type ModelsConfig struct {
	Default  string          `koanf:"default" yaml:"default"`
	Registry []ModelRegistry `koanf:"registry" yaml:"registry"`
}

type ModelRegistry struct {
	Name           string `koanf:"name" yaml:"name"`
	Provider       string `koanf:"provider" yaml:"provider"`
	Model          string `koanf:"model" yaml:"model"`
	BaseURL        string `koanf:"base_url" yaml:"base_url"`
	APIKey         string `koanf:"api_key" yaml:"api_key"`
	RequestTimeout string `koanf:"request_timeout" yaml:"request_timeout"`
	MaxTokens      int    `koanf:"max_tokens" yaml:"max_tokens"`
}

// RemoteModel returns the identifier sent to the provider, which may differ
// from the registry name used for routing.
func (m ModelRegistry) RemoteModel() string {
	if strings.TrimSpace(m.Model) != "" {
		return m.Model
	}
	return m.Name
}

type AgentConfig struct {
	Model         string `koanf:"model" yaml:"model"`
	MaxRounds     int    `koanf:"max_rounds" yaml:"max_rounds"`
	Budget        string `koanf:"budget" yaml:"budget"`
	ToolTimeout   string `koanf:"tool_timeout" yaml:"tool_timeout"`
	UnknownFields string `koanf:"unknown_fields" yaml:"unknown_fields"`
	SystemPrompt  string `koanf:"system_prompt" yaml:"system_prompt"`
	UserPrompt    string `koanf:"user_prompt" yaml:"user_prompt"`
}

type ToolsConfig struct {
	Enabled  []string        `koanf:"enabled" yaml:"enabled"`
	Timezone string          `koanf:"timezone" yaml:"timezone"`
	CalDAV   CalDAVConfig    `koanf:"caldav" yaml:"caldav"`
	Email    EmailToolConfig `koanf:"email" yaml:"email"`
}

type CalDAVConfig struct {
	Endpoint     string `koanf:"endpoint" yaml:"endpoint"`
	Username     string `koanf:"username" yaml:"username"`
	Password     string `koanf:"password" yaml:"password"`
	CalendarPath string `koanf:"calendar_path" yaml:"calendar_path"`
	Timeout      string `koanf:"timeout" yaml:"timeout"`
}

type EmailToolConfig struct {
	From string `koanf:"from" yaml:"from"`
}

type TranscriptionConfig struct {
	Model          string `koanf:"model" yaml:"model"`
	BaseURL        string `koanf:"base_url" yaml:"base_url"`
	APIKey         string `koanf:"api_key" yaml:"api_key"`
	Language       string `koanf:"language" yaml:"language"`
	RequestTimeout string `koanf:"request_timeout" yaml:"request_timeout"`
	MaxUploadBytes int64  `koanf:"max_upload_bytes" yaml:"max_upload_bytes"`
}

type StoreConfig struct {
	Driver            string `koanf:"driver" yaml:"driver"`
	Path              string `koanf:"path" yaml:"path"`
	Dir               string `koanf:"dir" yaml:"dir"`
	LockTimeout       string `koanf:"lock_timeout" yaml:"lock_timeout"`
	LockRetry         string `koanf:"lock_retry" yaml:"lock_retry"`
	Retention         string `koanf:"retention" yaml:"retention"`
	RetentionSchedule string `koanf:"retention_schedule" yaml:"retention_schedule"`
}

type DaemonConfig struct {
	ShutdownTimeout        string `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
	HealthCheckInterval    string `koanf:"health_check_interval" yaml:"health_check_interval"`
	StartupShutdownTimeout string `koanf:"startup_shutdown_timeout" yaml:"startup_shutdown_timeout"`
	PreflightTimeout       string `koanf:"preflight_timeout" yaml:"preflight_timeout"`
}

const (
	DefaultServerPort             = 8000
	DefaultServerLogLevel         = "info"
	DefaultServerLogFormat        = "text"
	DefaultServerReadTimeout      = "30s"
	DefaultServerWriteTimeout     = "30s"
	DefaultServerIdleTimeout      = "60s"
	DefaultServerShutdownTimeout  = "5s"
	DefaultServerStreamTimeout    = "120s"
	DefaultServerIdempotencyTTL   = "10m"
	DefaultModelDefault           = "openai/gpt-4o-mini"
	DefaultModelRequestTimeout    = "120s"
	DefaultModelMaxTokens         = 4096
	DefaultOpenAIBaseURL          = "https://api.openai.com/v1"
	DefaultOpenRouterBaseURL      = "https://openrouter.ai/api/v1"
	DefaultOllamaBaseURL          = "http://localhost:11434/v1"
	DefaultOllamaAPIKey           = "ollama"
	DefaultAgentMaxRounds         = 5
	DefaultAgentBudget            = "5m"
	DefaultAgentToolTimeout       = "30s"
	DefaultAgentUnknownFields     = "allow"
	DefaultAgentUserPrompt        = "Please analyze this meeting transcript:\n\n%s"
	DefaultToolsTimezone          = "Local"
	DefaultCalDAVCalendarPath     = "/calendars/meetings/"
	DefaultCalDAVTimeout          = "10s"
	DefaultEmailFrom              = "Meeting Agent <minutes@localhost>"
	DefaultTranscriptionModel     = "whisper-1"
	DefaultTranscriptionTimeout   = "300s"
	DefaultTranscriptionMaxUpload = 25 * 1024 * 1024
	DefaultStoreDriver            = "sqlite"
	DefaultStoreLockTimeout       = "30s"
	DefaultStoreLockRetry         = "100ms"
	DefaultStoreRetentionSchedule = "@daily"
	DefaultDaemonShutdownTimeout  = "30s"
	DefaultDaemonHealthInterval   = "30s"
	DefaultDaemonStartupShutdown  = "10s"
	DefaultDaemonPreflightTimeout = "10s"
)

const DefaultAgentSystemPrompt = `You are a Meeting AI Agent. You analyze meeting transcripts and produce structured outputs.

Based on the content of the transcript, decide which tool(s) to call:

1. **create_calendar_invite**: use when the transcript mentions a scheduled follow-up meeting,
   a deadline, or any event with a specific date/time. Extract the event details.

2. **create_decision_record**: use when the transcript contains a clear decision that was made
   during the meeting. Document the context, the decision itself, and its consequences.

3. **create_report**: use when the transcript is a general meeting discussion. Summarize it
   into a structured report with key points and action items.

You may call MULTIPLE tools if appropriate. For example, a meeting might warrant both a report
AND a calendar invite for a follow-up.

Always extract as much relevant detail from the transcript as possible. Use ISO 8601 format for
dates/times (e.g. 2026-02-20T14:00:00). If a date/time is not explicitly stated, make a
reasonable inference or use "TBD".

After all tool calls are done, provide a brief summary of what you produced.`

// DefaultEnabledTools mirrors the tool surface advertised to the model when
// nothing is configured. Order is the order the model sees.
var DefaultEnabledTools = []string{
	"create_calendar_invite",
	"create_decision_record",
	"create_report",
}

// DefaultModelRegistry is used when the config file declares no models.
func DefaultModelRegistry() []ModelRegistry {
	return []ModelRegistry{
		{Name: DefaultModelDefault, Provider: "openrouter"},
		{Name: "gpt-4o-mini", Provider: "openai"},
		{Name: "claude-sonnet", Provider: "anthropic", Model: "claude-sonnet-4-5"},
		{Name: "gemini-flash", Provider: "gemini", Model: "gemini-2.5-flash"},
		{Name: "local-llama", Provider: "ollama", Model: "llama3.1", BaseURL: DefaultOllamaBaseURL},
	}
}

// BaseDir is the per-user state directory (~/.minutes).
func BaseDir() string {
	home, err := resolveHomeDir()
	if err != nil {
		return ".minutes"
	}
	return filepath.Join(home, ".minutes")
}

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	base := BaseDir()
	defaults := map[string]interface{}{
		"server.port":                     DefaultServerPort,
		"server.log_level":                DefaultServerLogLevel,
		"server.log_format":               DefaultServerLogFormat,
		"server.read_timeout":             DefaultServerReadTimeout,
		"server.write_timeout":            DefaultServerWriteTimeout,
		"server.idle_timeout":             DefaultServerIdleTimeout,
		"server.shutdown_timeout":         DefaultServerShutdownTimeout,
		"server.stream_timeout":           DefaultServerStreamTimeout,
		"server.idempotency_ttl":          DefaultServerIdempotencyTTL,
		"server.idempotency_file":         filepath.Join(base, "idempotency.json"),
		"server.cors_origins":             []string{"*"},
		"models.default":                  DefaultModelDefault,
		"agent.max_rounds":                DefaultAgentMaxRounds,
		"agent.budget":                    DefaultAgentBudget,
		"agent.tool_timeout":              DefaultAgentToolTimeout,
		"agent.unknown_fields":            DefaultAgentUnknownFields,
		"agent.system_prompt":             DefaultAgentSystemPrompt,
		"agent.user_prompt":               DefaultAgentUserPrompt,
		"tools.enabled":                   DefaultEnabledTools,
		"tools.timezone":                  DefaultToolsTimezone,
		"tools.caldav.calendar_path":      DefaultCalDAVCalendarPath,
		"tools.caldav.timeout":            DefaultCalDAVTimeout,
		"tools.email.from":                DefaultEmailFrom,
		"transcription.model":             DefaultTranscriptionModel,
		"transcription.base_url":          DefaultOpenAIBaseURL,
		"transcription.request_timeout":   DefaultTranscriptionTimeout,
		"transcription.max_upload_bytes":  DefaultTranscriptionMaxUpload,
		"store.driver":                    DefaultStoreDriver,
		"store.path":                      filepath.Join(base, "meetings.db"),
		"store.dir":                       filepath.Join(base, "meetings"),
		"store.lock_timeout":              DefaultStoreLockTimeout,
		"store.lock_retry":                DefaultStoreLockRetry,
		"store.retention_schedule":        DefaultStoreRetentionSchedule,
		"daemon.shutdown_timeout":         DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval":    DefaultDaemonHealthInterval,
		"daemon.startup_shutdown_timeout": DefaultDaemonStartupShutdown,
		"daemon.preflight_timeout":        DefaultDaemonPreflightTimeout,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		globalPath := filepath.Join(base, "config.yaml")
		if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
			slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
		}
	}

	// MINUTES_SERVER__PORT -> server.port; a single underscore stays part of the key.
	k.Load(env.Provider("MINUTES_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "MINUTES_")), "__", ".")
	}), nil)

	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if len(cfg.Models.Registry) == 0 {
		cfg.Models.Registry = DefaultModelRegistry()
	}
	for i, m := range cfg.Models.Registry {
		if m.Provider == "" {
			cfg.Models.Registry[i].Provider = "openai"
		}
	}
	if strings.TrimSpace(cfg.Agent.Model) == "" {
		cfg.Agent.Model = cfg.Models.Default
	}

	if err := normalizePathFields(&cfg); err != nil {
		return nil, err
	}

	injectProviderKeys(&cfg)

	return &cfg, nil
}

func injectProviderKeys(cfg *Config) {
	keys := map[string]string{
		"openai":     os.Getenv("OPENAI_API_KEY"),
		"openrouter": os.Getenv("OPENROUTER_API_KEY"),
		"anthropic":  os.Getenv("ANTHROPIC_API_KEY"),
		"gemini":     os.Getenv("GEMINI_API_KEY"),
	}
	for i, m := range cfg.Models.Registry {
		if m.APIKey != "" {
			continue
		}
		if key := keys[m.Provider]; key != "" {
			cfg.Models.Registry[i].APIKey = key
		}
	}
	if cfg.Transcription.APIKey == "" {
		cfg.Transcription.APIKey = keys["openai"]
	}
}

func normalizePathFields(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	storePath, err := ExpandPath(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("expand store.path: %w", err)
	}
	cfg.Store.Path = storePath

	idempotencyFile, err := ExpandPath(cfg.Server.IdempotencyFile)
	if err != nil {
		return fmt.Errorf("expand server.idempotency_file: %w", err)
	}
	cfg.Server.IdempotencyFile = idempotencyFile

	storeDir, err := ExpandPath(cfg.Store.Dir)
	if err != nil {
		return fmt.Errorf("expand store.dir: %w", err)
	}
	cfg.Store.Dir = storeDir

	return nil
}

// ExpandPath resolves environment variables and "~/" home shortcuts.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}

	expanded := os.ExpandEnv(trimmed)
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := resolveHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if expanded == "~" {
			expanded = home
		} else {
			expanded = filepath.Join(home, strings.TrimPrefix(expanded, "~/"))
		}
	}

	return filepath.Clean(expanded), nil
}

func resolveHomeDir() (string, error) {
	if home := strings.TrimSpace(os.Getenv("HOME")); home != "" && !strings.HasPrefix(home, "~") {
		return home, nil
	}
	if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
		return home, nil
	}
	if current, err := user.Current(); err == nil && strings.TrimSpace(current.HomeDir) != "" {
		return current.HomeDir, nil
	}
	return "", fmt.Errorf("HOME is not set")
}
