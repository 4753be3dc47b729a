package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/harunnryd/minutes/cmd/minutes/runtime"

	"github.com/harunnryd/minutes/internal/meeting"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

var meetingsCmd = &cobra.Command{
	Use:     "meetings",
	Aliases: []string{"meeting", "m"},
	Short:   "Manage saved meetings",
	Long:    `List, inspect, export and delete the sessions saved by analysis runs.`,
}

var meetingsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List saved meetings, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := outputFormatter(cmd)
		if err != nil {
			return err
		}
		search, _ := cmd.Flags().GetString("search")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		return executeWithRuntime(cmd, false, func(r *runtime.RuntimeComponents) error {
			summaries, err := r.Store.List(r.Ctx, meeting.Filter{Search: search, Limit: limit, Offset: offset})
			if err != nil {
				return err
			}
			out, err := formatter.FormatMeetings(summaries)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		})
	},
}

var meetingsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one saved meeting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := outputFormatter(cmd)
		if err != nil {
			return err
		}

		return executeWithRuntime(cmd, false, func(r *runtime.RuntimeComponents) error {
			record, err := r.Store.Get(r.Ctx, args[0])
			if err != nil {
				return err
			}
			out, err := formatter.FormatMeeting(record)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		})
	},
}

var meetingsRmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Delete saved meetings",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeWithRuntime(cmd, false, func(r *runtime.RuntimeComponents) error {
			for _, id := range args {
				if err := r.Store.Delete(r.Ctx, id); err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			}
			return nil
		})
	},
}

var meetingsExportCmd = &cobra.Command{
	Use:   "export <id> <result-index>",
	Short: "Write one stored result to a file",
	Long:  `Writes a stored tool result in its document form: .ics for calendar invites, .md for reports, decision records and action items, .eml for email drafts, JSON otherwise. The index is 0-based, as shown by 'meetings show'.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid result index %q", args[1])
		}
		dir, _ := cmd.Flags().GetString("dir")

		return executeWithRuntime(cmd, false, func(r *runtime.RuntimeComponents) error {
			record, err := r.Store.Get(r.Ctx, args[0])
			if err != nil {
				return err
			}
			artifact, err := record.ResultArtifact(index)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			path := filepath.Join(dir, artifact.Filename)
			if err := atomic.WriteFile(path, bytes.NewReader(artifact.Body)); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		})
	},
}

func init() {
	meetingsLsCmd.Flags().StringP("search", "s", "", "case-insensitive text to match in title, transcript or summary")
	meetingsLsCmd.Flags().Int("limit", meeting.DefaultListLimit, "maximum meetings to list")
	meetingsLsCmd.Flags().Int("offset", 0, "meetings to skip")
	meetingsLsCmd.Flags().StringP("output", "o", "table", "output format (table, json, yaml)")
	meetingsShowCmd.Flags().StringP("output", "o", "table", "output format (table, json, yaml)")
	meetingsExportCmd.Flags().StringP("dir", "d", ".", "output directory")

	meetingsCmd.AddCommand(meetingsLsCmd)
	meetingsCmd.AddCommand(meetingsShowCmd)
	meetingsCmd.AddCommand(meetingsRmCmd)
	meetingsCmd.AddCommand(meetingsExportCmd)
	rootCmd.AddCommand(meetingsCmd)
}
