package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" WARN "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewHandler_JSONCarriesCorrelationAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, "info", "json"))

	ctx := WithRunID(WithTraceID(context.Background(), "trace-1"), "run-1")
	log.Info("Loop started", Attrs(ctx)...)
	log.Debug("filtered")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Loop started", line["msg"])
	assert.Equal(t, "trace-1", line["trace_id"])
	assert.Equal(t, "run-1", line["run_id"])
}

func TestAttrsEmptyContext(t *testing.T) {
	assert.Empty(t, Attrs(context.Background()))
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestNewTraceIDIsUnique(t *testing.T) {
	a, b := NewTraceID(), NewTraceID()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}
