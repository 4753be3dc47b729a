package transcribe

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/harunnryd/minutes/internal/config"
	minutesErrors "github.com/harunnryd/minutes/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhisperEngine_Transcribe(t *testing.T) {
	var (
		gotModel    string
		gotFilename string
		gotAudio    []byte
		gotAuth     string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotModel = r.FormValue("model")
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotFilename = header.Filename
		gotAudio, _ = io.ReadAll(file)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"  Alice: let's ship on Friday.  "}`))
	}))
	defer srv.Close()

	engine, err := NewWhisperEngine(config.TranscriptionConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1/",
	})
	require.NoError(t, err)

	text, err := engine.Transcribe(context.Background(), strings.NewReader("RIFFdata"), "standup")
	require.NoError(t, err)

	assert.Equal(t, "Alice: let's ship on Friday.", text)
	assert.Equal(t, config.DefaultTranscriptionModel, gotModel)
	assert.Equal(t, "standup.webm", gotFilename)
	assert.Equal(t, []byte("RIFFdata"), gotAudio)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestWhisperEngine_BackendFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"model overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	engine, err := NewWhisperEngine(config.TranscriptionConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = engine.Transcribe(context.Background(), strings.NewReader("audio"), "a.wav")
	require.Error(t, err)
	assert.ErrorIs(t, err, minutesErrors.ErrTransient)
}

func TestWhisperEngine_RejectsBeforeCallingBackend(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	engine, err := NewWhisperEngine(config.TranscriptionConfig{APIKey: "k", BaseURL: srv.URL, MaxUploadBytes: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(4), engine.MaxBytes())

	_, err = engine.Transcribe(context.Background(), bytes.NewReader(nil), "a.wav")
	assert.ErrorIs(t, err, minutesErrors.ErrInvalidInput)

	_, err = engine.Transcribe(context.Background(), strings.NewReader("too long"), "a.wav")
	assert.ErrorIs(t, err, minutesErrors.ErrInvalidInput)
	assert.False(t, called)
}

func TestNewWhisperEngine_InvalidTimeout(t *testing.T) {
	_, err := NewWhisperEngine(config.TranscriptionConfig{RequestTimeout: "eventually"})
	assert.Error(t, err)
}

func TestCheckContentType(t *testing.T) {
	for _, ct := range []string{"audio/webm", "audio/mpeg", "Audio/WAV", "video/webm", "application/octet-stream", "audio/webm;codecs=opus"} {
		assert.NoError(t, CheckContentType(ct), ct)
	}
	for _, ct := range []string{"", "text/plain", "video/mp4", "image/png"} {
		err := CheckContentType(ct)
		assert.ErrorIs(t, err, minutesErrors.ErrInvalidInput, ct)
	}
}

func TestReadAudio(t *testing.T) {
	data, err := ReadAudio(strings.NewReader("abcd"), 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), data)

	_, err = ReadAudio(strings.NewReader("abcde"), 4)
	assert.ErrorIs(t, err, minutesErrors.ErrInvalidInput)

	_, err = ReadAudio(strings.NewReader(""), 4)
	assert.ErrorIs(t, err, minutesErrors.ErrInvalidInput)

	data, err = ReadAudio(strings.NewReader("unbounded"), 0)
	require.NoError(t, err)
	assert.Len(t, data, 9)
}

func TestNormalizeFilename(t *testing.T) {
	assert.Equal(t, DefaultFilename, NormalizeFilename(""))
	assert.Equal(t, "clip.mp3", NormalizeFilename("../../clip.mp3"))
	assert.Equal(t, "memo.webm", NormalizeFilename("memo"))
}
