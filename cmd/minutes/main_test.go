package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/minutes/internal/config"
	"github.com/harunnryd/minutes/internal/meeting"
	"github.com/harunnryd/minutes/internal/store"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// useConfig installs c as the loaded config for the duration of the test.
func useConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func fileStoreConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{Driver: "file", Dir: t.TempDir()},
	}
}

// newTestCommand returns a bare command with captured output and the given
// string flags already set.
func newTestCommand(t *testing.T, stdin string, flags map[string]string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	cmd := &cobra.Command{}
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetContext(context.Background())
	for name, value := range flags {
		cmd.Flags().String(name, "", "")
		require.NoError(t, cmd.Flags().Set(name, value))
	}
	return cmd, out
}

func seedMeeting(t *testing.T, c *config.Config, title string) *meeting.Record {
	t.Helper()
	st, err := store.Open(c.Store)
	require.NoError(t, err)
	defer st.Close()

	r := meeting.Build("Alice: "+title, []json.RawMessage{
		json.RawMessage(`{"type":"report","markdown":"# ` + title + `"}`),
	}, "done", time.Now())
	_, err = st.Create(context.Background(), r)
	require.NoError(t, err)
	return r
}

func fakeChatBackend(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		body, _ := json.Marshal(map[string]interface{}{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  "gpt-test",
			"choices": []map[string]interface{}{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
		})
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}
