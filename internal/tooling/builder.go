package tooling

import (
	"fmt"
	"log/slog"

	"github.com/harunnryd/minutes/internal/config"
	"github.com/harunnryd/minutes/internal/tool"
	_ "github.com/harunnryd/minutes/internal/tool/builtin"
)

type Components struct {
	Registry *tool.Registry
	Executor *tool.Executor
}

// Build instantiates the tools listed in tools.enabled, in that order, and
// wraps them in an executor configured from the agent section.
func Build(cfg *config.Config) (*Components, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	builtinOptions, err := resolveBuiltinOptions(cfg)
	if err != nil {
		return nil, err
	}

	policy, err := tool.ParseUnknownFieldPolicy(cfg.Agent.UnknownFields)
	if err != nil {
		return nil, fmt.Errorf("parse agent.unknown_fields: %w", err)
	}
	toolTimeout, err := config.DurationOrDefault(cfg.Agent.ToolTimeout, config.DefaultAgentToolTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse agent.tool_timeout: %w", err)
	}

	enabled := cfg.Tools.Enabled
	if len(enabled) == 0 {
		enabled = config.DefaultEnabledTools
	}

	builtins, err := tool.InstantiateBuiltins(enabled, builtinOptions)
	if err != nil {
		return nil, fmt.Errorf("instantiate built-in tools: %w", err)
	}

	toolRegistry := tool.NewRegistry()
	for _, builtin := range builtins {
		if err := toolRegistry.Register(builtin); err != nil {
			return nil, fmt.Errorf("register tool: %w", err)
		}
	}
	slog.Info("Built-in tools registered", "count", toolRegistry.Len(), "tools", toolRegistry.Names())

	return &Components{
		Registry: toolRegistry,
		Executor: tool.NewExecutor(toolRegistry, policy, toolTimeout),
	}, nil
}
