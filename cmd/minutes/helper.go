package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harunnryd/minutes/cmd/minutes/runtime"

	"github.com/harunnryd/minutes/internal/config"
	"github.com/harunnryd/minutes/internal/format"

	"github.com/spf13/cobra"
)

func executeWithRuntime(cmd *cobra.Command, withAgent bool, fn func(*runtime.RuntimeComponents) error) error {
	loadedCfg, err := loadConfigForCommand(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	builder := runtime.NewRuntimeBuilder().
		WithContext(ctx).
		WithConfig(loadedCfg)
	if withAgent {
		builder = builder.WithAgent()
	}

	components, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize runtime: %w", err)
	}
	defer components.Stop()

	if err := components.Start(); err != nil {
		return fmt.Errorf("failed to start runtime components: %w", err)
	}

	return fn(components)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func loadConfigForCommand(cmd *cobra.Command) (*config.Config, error) {
	if cfg != nil {
		return cfg, nil
	}
	return config.Load(cmd)
}

func outputFormatter(cmd *cobra.Command) (format.Formatter, error) {
	raw, _ := cmd.Flags().GetString("output")
	if raw == "" {
		raw = string(format.OutputFormatTable)
	}
	f, err := format.ParseOutputFormat(raw)
	if err != nil {
		return nil, err
	}
	return format.New(f)
}
