package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harunnryd/minutes/internal/config"
	"github.com/harunnryd/minutes/internal/daemon"
	"github.com/harunnryd/minutes/internal/daemon/components"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"daemon"},
	Short:   "Run the HTTP API as a long-running service",
	Long:    `Starts the meeting store, the agent, the retention sweeper and the HTTP API under component lifecycle management. Stops gracefully on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		daemonMgr, err := daemon.NewDaemon(cfg)
		if err != nil {
			return fmt.Errorf("failed to create daemon manager: %w", err)
		}

		storeComp := components.NewMeetingStoreComponent(cfg.Store)
		agentComp := components.NewAgentComponent(cfg, storeComp)
		retentionComp := components.NewRetentionComponent(cfg.Store, storeComp)
		httpComp := components.NewHTTPServerComponent(daemonMgr, cfg, agentComp, storeComp)

		daemonMgr.AddComponent(storeComp)
		daemonMgr.AddComponent(agentComp)
		daemonMgr.AddComponent(retentionComp)
		daemonMgr.AddComponent(httpComp)

		slog.Info("Minutes daemon starting up...", "port", cfg.Server.Port, "store", cfg.Store.Driver)
		err = daemonMgr.Start(commandContext(cmd))
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("Minutes daemon stopped gracefully")
				return nil
			}
			return fmt.Errorf("daemon failed: %w", err)
		}

		slog.Info("Minutes daemon stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("server.port", config.DefaultServerPort, "HTTP listen port")
}
