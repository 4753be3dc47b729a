package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/harunnryd/minutes/cmd/minutes/runtime"

	"github.com/harunnryd/minutes/internal/events"
	"github.com/harunnryd/minutes/internal/format"

	"github.com/spf13/cobra"
)

const maxTranscriptBytes = 10 << 20

var analyzeCmd = &cobra.Command{
	Use:   "analyze [transcript-file]",
	Short: "Analyze a meeting transcript",
	Long:  `Runs the agent on a transcript read from a file, or from stdin when the argument is omitted or "-", and prints each step as it happens. The finished session is saved to the meeting store.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		transcript, err := readTranscript(cmd.InOrStdin(), path)
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		verbose, _ := cmd.Flags().GetBool("verbose")

		return executeWithRuntime(cmd, true, func(r *runtime.RuntimeComponents) error {
			stream, err := r.Agent.Kernel.Analyze(r.Ctx, transcript)
			if err != nil {
				return err
			}

			var w events.Writer = format.NewEventRenderer(cmd.OutOrStdout(), verbose)
			if asJSON {
				w = events.NewNDJSONWriter(cmd.OutOrStdout())
			}
			if err := events.Pump(r.Ctx, stream, w); err != nil {
				return fmt.Errorf("deliver events: %w", err)
			}

			if terminal, ok := stream.Terminal(); ok && terminal.Type == events.TypeError {
				return fmt.Errorf("analysis failed: %s", terminal.ErrorKind)
			}
			return nil
		})
	},
}

func readTranscript(stdin io.Reader, path string) (string, error) {
	var src io.Reader = stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("open transcript: %w", err)
		}
		defer f.Close()
		src = f
	}

	data, err := io.ReadAll(io.LimitReader(src, maxTranscriptBytes+1))
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	if len(data) > maxTranscriptBytes {
		return "", fmt.Errorf("transcript exceeds %d bytes", maxTranscriptBytes)
	}

	transcript := string(data)
	if strings.TrimSpace(transcript) == "" {
		return "", fmt.Errorf("transcript is empty")
	}
	return transcript, nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().String("agent.model", "", "model name from models.registry (default models.default)")
	analyzeCmd.Flags().Int("agent.max_rounds", 0, "maximum model calls per run (default 5)")
	analyzeCmd.Flags().String("agent.budget", "", "wall-clock budget for the run (default 5m)")
	analyzeCmd.Flags().Bool("json", false, "print raw NDJSON events")
	analyzeCmd.Flags().BoolP("verbose", "v", false, "show tool arguments")
}
