package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/harunnryd/minutes/internal/transcribe"

	"github.com/spf13/cobra"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio-file>",
	Short: "Transcribe an audio recording",
	Long:  `Sends an audio file to the configured Whisper-compatible endpoint and prints the transcript. Pipe the output into 'minutes analyze' to process it.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if loadedCfg.Transcription.APIKey == "" {
			return fmt.Errorf("transcription is not configured: set OPENAI_API_KEY or transcription.api_key")
		}

		engine, err := transcribe.NewWhisperEngine(loadedCfg.Transcription)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open audio: %w", err)
		}
		defer f.Close()

		text, err := engine.Transcribe(commandContext(cmd), f, filepath.Base(args[0]))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(transcribeCmd)
	transcribeCmd.Flags().String("transcription.model", "", "transcription model (default whisper-1)")
	transcribeCmd.Flags().String("transcription.language", "", "ISO-639-1 language hint")
}
