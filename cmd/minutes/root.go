package main

import (
	"fmt"
	"os"

	"github.com/harunnryd/minutes/internal/config"
	"github.com/harunnryd/minutes/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "minutes",
	Short: "Meeting transcript agent",
	Long:  `Minutes turns meeting transcripts into calendar invites, decision records, reports and other follow-up artifacts by letting a language model drive a set of tools.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Server.LogLevel, cfg.Server.LogFormat)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.minutes/config.yaml)")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultServerLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("server.log_format", config.DefaultServerLogFormat, "log format (text, json)")
	rootCmd.PersistentFlags().String("store.driver", config.DefaultStoreDriver, "meeting store driver (sqlite, file)")
}
