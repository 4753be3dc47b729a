package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/harunnryd/minutes/internal/config"
	minutesErrors "github.com/harunnryd/minutes/internal/errors"

	"github.com/sashabaranov/go-openai"
)

const DefaultFilename = "audio.webm"

// Engine turns recorded audio into transcript text.
type Engine interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// WhisperEngine sends audio to an OpenAI-compatible transcription endpoint.
type WhisperEngine struct {
	client   *openai.Client
	model    string
	language string
	maxBytes int64
}

func NewWhisperEngine(cfg config.TranscriptionConfig) (*WhisperEngine, error) {
	timeout, err := config.DurationOrDefault(cfg.RequestTimeout, config.DefaultTranscriptionTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse transcription.request_timeout: %w", err)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimSuffix(base, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = config.DefaultTranscriptionModel
	}
	maxBytes := cfg.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = config.DefaultTranscriptionMaxUpload
	}

	return &WhisperEngine{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		language: strings.TrimSpace(cfg.Language),
		maxBytes: maxBytes,
	}, nil
}

// MaxBytes is the largest upload the engine accepts.
func (e *WhisperEngine) MaxBytes() int64 {
	return e.maxBytes
}

func (e *WhisperEngine) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	data, err := ReadAudio(audio, e.maxBytes)
	if err != nil {
		return "", err
	}
	filename = NormalizeFilename(filename)

	start := time.Now()
	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    e.model,
		FilePath: filename,
		Reader:   bytes.NewReader(data),
		Language: e.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", minutesErrors.WrapWithCategory(err, "transcription failed", minutesErrors.ErrTransient)
	}

	text := strings.TrimSpace(resp.Text)
	slog.Debug("Audio transcribed", "model", e.model, "bytes", len(data), "chars", len(text), "duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

// CheckContentType accepts audio/*, video/webm and application/octet-stream.
func CheckContentType(contentType string) error {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch {
	case strings.HasPrefix(ct, "audio/"):
		return nil
	case ct == "video/webm", ct == "application/octet-stream":
		return nil
	default:
		return minutesErrors.InvalidInput(fmt.Sprintf("expected audio file, got %q", contentType))
	}
}

// ReadAudio reads the whole upload, rejecting empty input and anything larger
// than maxBytes.
func ReadAudio(r io.Reader, maxBytes int64) ([]byte, error) {
	if r == nil {
		return nil, minutesErrors.InvalidInput("empty audio file")
	}
	limited := r
	if maxBytes > 0 {
		limited = io.LimitReader(r, maxBytes+1)
	}
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, minutesErrors.InvalidInput("empty audio file")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, minutesErrors.InvalidInput(fmt.Sprintf("audio file exceeds %d bytes", maxBytes))
	}
	return data, nil
}

// NormalizeFilename keeps the base name and defaults the extension to .webm.
func NormalizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return DefaultFilename
	}
	if filepath.Ext(name) == "" {
		name += ".webm"
	}
	return name
}
