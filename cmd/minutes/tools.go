package main

import (
	"fmt"

	"github.com/harunnryd/minutes/internal/tooling"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools advertised to the model, with their result types",
	RunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		formatter, err := outputFormatter(cmd)
		if err != nil {
			return err
		}

		components, err := tooling.Build(loadedCfg)
		if err != nil {
			return err
		}
		out, err := formatter.FormatTools(components.Executor.Descriptors())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	toolsCmd.Flags().StringP("output", "o", "table", "output format (table, json, yaml)")
	rootCmd.AddCommand(toolsCmd)
}
