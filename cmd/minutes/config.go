package main

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/harunnryd/minutes/internal/config"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

//go:embed templates/config.yaml
var embeddedDefaultConfig []byte

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Print the resolved configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(redactConfigSecrets(loadedCfg)); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return enc.Close()
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print where the configuration file is read from",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFilePath(cmd)
		if err != nil {
			return err
		}
		state := "present"
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			state = "missing"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", path, state)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file if none exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFilePath(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		created, err := writeDefaultConfig(path)
		if err != nil {
			return err
		}
		if !created {
			fmt.Fprintf(out, "Config already exists at %s\n", path)
			fmt.Fprintln(out, "Remove it first to regenerate the defaults.")
			return nil
		}

		fmt.Fprintf(out, "✓ Initialized config at %s\n", path)
		fmt.Fprintln(out, "Set OPENROUTER_API_KEY (or OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY) and run 'minutes config view' to check it.")
		return nil
	},
}

// configFilePath is the --config flag when given, else config.yaml in the
// state directory.
func configFilePath(cmd *cobra.Command) (string, error) {
	if flag := cmd.Flags().Lookup("config"); flag != nil && strings.TrimSpace(flag.Value.String()) != "" {
		return config.ExpandPath(flag.Value.String())
	}
	return filepath.Join(config.BaseDir(), "config.yaml"), nil
}

// writeDefaultConfig writes the embedded template with owner-only
// permissions. It never overwrites an existing file.
func writeDefaultConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	body := strings.TrimSpace(string(embeddedDefaultConfig)) + "\n"
	if err := atomic.WriteFile(path, bytes.NewReader([]byte(body))); err != nil {
		return false, fmt.Errorf("failed to write config to %s: %w", path, err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		return false, fmt.Errorf("failed to restrict config permissions: %w", err)
	}
	return true, nil
}

// redactConfigSecrets returns a copy with every credential masked. The
// model registry is copied so the caller's config keeps its keys.
func redactConfigSecrets(in *config.Config) *config.Config {
	if in == nil {
		return nil
	}
	out := *in
	out.Models.Registry = append([]config.ModelRegistry(nil), in.Models.Registry...)

	secrets := []*string{&out.Transcription.APIKey, &out.Tools.CalDAV.Password}
	for i := range out.Models.Registry {
		secrets = append(secrets, &out.Models.Registry[i].APIKey)
	}
	for _, s := range secrets {
		*s = maskSecret(*s)
	}
	return &out
}

// maskSecret keeps two characters at each end of secrets longer than four.
func maskSecret(secret string) string {
	switch n := len(secret); {
	case n == 0:
		return ""
	case n <= 4:
		return "****"
	default:
		return secret[:2] + strings.Repeat("*", n-4) + secret[n-2:]
	}
}

func init() {
	configCmd.AddCommand(configViewCmd, configPathCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}
