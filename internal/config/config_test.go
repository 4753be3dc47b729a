package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProviderKeys(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
}

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearProviderKeys(t)

	// nil cmd skips flags
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Expected default port %d, got %d", DefaultServerPort, cfg.Server.Port)
	}
	if cfg.Models.Default != DefaultModelDefault {
		t.Errorf("Expected default model %s, got %s", DefaultModelDefault, cfg.Models.Default)
	}
	if cfg.Agent.Model != DefaultModelDefault {
		t.Errorf("Expected agent model to follow models.default, got %s", cfg.Agent.Model)
	}
	if cfg.Agent.MaxRounds != DefaultAgentMaxRounds {
		t.Errorf("Expected default max rounds %d, got %d", DefaultAgentMaxRounds, cfg.Agent.MaxRounds)
	}
	if cfg.Agent.Budget != DefaultAgentBudget {
		t.Errorf("Expected default budget %s, got %s", DefaultAgentBudget, cfg.Agent.Budget)
	}
	if cfg.Agent.UnknownFields != DefaultAgentUnknownFields {
		t.Errorf("Expected default unknown field policy %s, got %s", DefaultAgentUnknownFields, cfg.Agent.UnknownFields)
	}
	if cfg.Agent.SystemPrompt != DefaultAgentSystemPrompt {
		t.Errorf("Expected default system prompt, got %s", cfg.Agent.SystemPrompt)
	}
	if cfg.Transcription.Model != DefaultTranscriptionModel {
		t.Errorf("Expected default transcription model %s, got %s", DefaultTranscriptionModel, cfg.Transcription.Model)
	}
	if cfg.Store.Driver != DefaultStoreDriver {
		t.Errorf("Expected default store driver %s, got %s", DefaultStoreDriver, cfg.Store.Driver)
	}
	if cfg.Daemon.PreflightTimeout != DefaultDaemonPreflightTimeout {
		t.Errorf("Expected default daemon preflight timeout %s, got %s", DefaultDaemonPreflightTimeout, cfg.Daemon.PreflightTimeout)
	}

	assert.Equal(t, DefaultEnabledTools, cfg.Tools.Enabled)
	assert.Equal(t, filepath.Join(home, ".minutes", "meetings.db"), cfg.Store.Path)
	assert.Equal(t, filepath.Join(home, ".minutes", "meetings"), cfg.Store.Dir)
	require.NotEmpty(t, cfg.Models.Registry)
	assert.Equal(t, DefaultModelDefault, cfg.Models.Registry[0].Name)
	assert.Equal(t, "openrouter", cfg.Models.Registry[0].Provider)
}

func TestLoadWithConfigFlag(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	content := []byte(`
server:
  port: 9090
models:
  default: custom-model
  registry:
    - name: custom-model
      base_url: http://localhost:9999/v1
agent:
  max_rounds: 3
  unknown_fields: reject
tools:
  enabled:
    - create_report
    - analyze_sentiment
`)
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "config file path")
	if err := cmd.Flags().Set("config", configPath); err != nil {
		t.Fatalf("failed to set config flag: %v", err)
	}

	cfg, err := Load(cmd)
	if err != nil {
		t.Fatalf("failed to load config with --config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Models.Default != "custom-model" {
		t.Fatalf("expected default model custom-model, got %s", cfg.Models.Default)
	}
	require.Len(t, cfg.Models.Registry, 1)
	assert.Equal(t, "openai", cfg.Models.Registry[0].Provider, "provider defaults to openai")
	assert.Equal(t, "custom-model", cfg.Models.Registry[0].RemoteModel())
	assert.Equal(t, 3, cfg.Agent.MaxRounds)
	assert.Equal(t, "reject", cfg.Agent.UnknownFields)
	assert.Equal(t, []string{"create_report", "analyze_sentiment"}, cfg.Tools.Enabled)
}

func TestLoadWithMissingConfigFlagReturnsError(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "config file path")
	if err := cmd.Flags().Set("config", filepath.Join(t.TempDir(), "missing.yaml")); err != nil {
		t.Fatalf("failed to set config flag: %v", err)
	}

	if _, err := Load(cmd); err == nil {
		t.Fatal("expected error when --config points to missing file")
	}
}

func TestLoad_EnvOverridesNestedKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearProviderKeys(t)
	t.Setenv("MINUTES_SERVER__PORT", "9191")
	t.Setenv("MINUTES_AGENT__MAX_ROUNDS", "7")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 7, cfg.Agent.MaxRounds)
}

func TestLoad_InjectsProviderKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearProviderKeys(t)
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("OPENAI_API_KEY", "oa-key")

	cfg, err := Load(nil)
	require.NoError(t, err)

	keys := map[string]string{}
	for _, m := range cfg.Models.Registry {
		keys[m.Provider] = m.APIKey
	}
	assert.Equal(t, "or-key", keys["openrouter"])
	assert.Equal(t, "oa-key", keys["openai"])
	assert.Empty(t, keys["anthropic"])
	assert.Equal(t, "oa-key", cfg.Transcription.APIKey)
}

func TestLoad_ExpandsConfiguredPaths(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	content := []byte(`
store:
  driver: file
  path: ~/.minutes/custom.db
  dir: ~/archive/meetings
`)
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "config file path")
	if err := cmd.Flags().Set("config", configPath); err != nil {
		t.Fatalf("set config flag: %v", err)
	}

	cfg, err := Load(cmd)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	wantPath := filepath.Join(tmpDir, ".minutes", "custom.db")
	if cfg.Store.Path != wantPath {
		t.Fatalf("store path = %q, want %q", cfg.Store.Path, wantPath)
	}
	wantDir := filepath.Join(tmpDir, "archive", "meetings")
	if cfg.Store.Dir != wantDir {
		t.Fatalf("store dir = %q, want %q", cfg.Store.Dir, wantDir)
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MINUTES_TEST_DIR", "/srv/minutes")

	got, err := ExpandPath("~")
	require.NoError(t, err)
	assert.Equal(t, home, got)

	got, err = ExpandPath("$MINUTES_TEST_DIR/db")
	require.NoError(t, err)
	assert.Equal(t, "/srv/minutes/db", got)

	got, err = ExpandPath("   ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDurationOrDefault(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		fallback string
		want     time.Duration
		wantErr  string
	}{
		{name: "blank takes default", value: "  ", fallback: DefaultAgentBudget, want: 5 * time.Minute},
		{name: "value wins", value: "250ms", fallback: DefaultAgentBudget, want: 250 * time.Millisecond},
		{name: "unparseable", value: "soon", fallback: DefaultAgentBudget, wantErr: `parse duration "soon"`},
		{name: "zero", value: "0s", fallback: DefaultAgentBudget, wantErr: "must be positive"},
		{name: "negative", value: "-1m", fallback: DefaultAgentBudget, wantErr: "must be positive"},
		{name: "nothing set", wantErr: "no duration set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DurationOrDefault(tt.value, tt.fallback)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
