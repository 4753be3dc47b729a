package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/harunnryd/minutes/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigInitCmd(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cmd, out := newTestCommand(t, "", nil)
	require.NoError(t, configInitCmd.RunE(cmd, nil))

	configPath := filepath.Join(home, ".minutes", "config.yaml")
	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Initialized config")

	var parsed config.Config
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	assert.Equal(t, config.DefaultServerPort, parsed.Server.Port)
	assert.Equal(t, config.DefaultEnabledTools, parsed.Tools.Enabled)
	assert.Equal(t, config.DefaultAgentMaxRounds, parsed.Agent.MaxRounds)

	cmd2, out2 := newTestCommand(t, "", nil)
	require.NoError(t, configInitCmd.RunE(cmd2, nil))
	assert.Contains(t, out2.String(), "Config already exists")
}

func TestConfigViewCmd_MasksSecrets(t *testing.T) {
	c := fileStoreConfig(t)
	c.Models.Registry = []config.ModelRegistry{{Name: "m1", Provider: "openai", APIKey: "sk-secret-123456"}}
	c.Transcription.APIKey = "sk-whisper-abcdef"
	useConfig(t, c)

	cmd, out := newTestCommand(t, "", nil)
	require.NoError(t, configViewCmd.RunE(cmd, nil))

	assert.Contains(t, out.String(), "api_key: sk************56")
	assert.NotContains(t, out.String(), "secret")
	assert.NotContains(t, out.String(), "whisper-abc")
}

func TestRedactConfigSecrets(t *testing.T) {
	original := &config.Config{
		Models: config.ModelsConfig{
			Registry: []config.ModelRegistry{
				{Name: "m1", APIKey: "sk-secret-123456"},
				{Name: "m2", APIKey: "abcd"},
			},
		},
		Transcription: config.TranscriptionConfig{APIKey: "sk-transcribe-999"},
		Tools: config.ToolsConfig{
			CalDAV: config.CalDAVConfig{Password: "caldav-password"},
		},
	}

	redacted := redactConfigSecrets(original)
	require.NotNil(t, redacted)

	assert.NotEqual(t, original.Models.Registry[0].APIKey, redacted.Models.Registry[0].APIKey)
	assert.NotContains(t, redacted.Models.Registry[0].APIKey, "secret")
	assert.Equal(t, "****", redacted.Models.Registry[1].APIKey)
	assert.NotEqual(t, original.Transcription.APIKey, redacted.Transcription.APIKey)
	assert.NotEqual(t, original.Tools.CalDAV.Password, redacted.Tools.CalDAV.Password)

	assert.Equal(t, "sk-secret-123456", original.Models.Registry[0].APIKey, "original config must not be modified")
	assert.Nil(t, redactConfigSecrets(nil))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "****", maskSecret("abc"))

	got := maskSecret("abcdef")
	assert.Len(t, got, len("abcdef"))
	assert.Equal(t, "ab**ef", got)
}

func TestConfigPathCmd(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	want := filepath.Join(home, ".minutes", "config.yaml")

	cmd, out := newTestCommand(t, "", nil)
	require.NoError(t, configPathCmd.RunE(cmd, nil))
	assert.Equal(t, want+" (missing)\n", out.String())

	created, err := writeDefaultConfig(want)
	require.NoError(t, err)
	assert.True(t, created)

	info, err := os.Stat(want)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	cmd, out = newTestCommand(t, "", nil)
	require.NoError(t, configPathCmd.RunE(cmd, nil))
	assert.Equal(t, want+" (present)\n", out.String())

	created, err = writeDefaultConfig(want)
	require.NoError(t, err)
	assert.False(t, created)
}
