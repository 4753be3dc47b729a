package components

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/harunnryd/minutes/internal/config"
	"github.com/harunnryd/minutes/internal/daemon"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeModelBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","model":"gpt-test",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Nothing to file."},"finish_reason":"stop"}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, backendURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{Port: 0},
		Models: config.ModelsConfig{
			Default: "local",
			Registry: []config.ModelRegistry{
				{Name: "local", Provider: "openai", Model: "gpt-test", BaseURL: backendURL, APIKey: "k"},
			},
		},
		Store: config.StoreConfig{
			Driver: "file",
			Dir:    t.TempDir(),
		},
	}
}

type stack struct {
	daemon    *daemon.Daemon
	store     *MeetingStoreComponent
	agent     *AgentComponent
	retention *RetentionComponent
	http      *HTTPServerComponent
}

func (s *stack) ordered() []daemon.Component {
	return []daemon.Component{s.store, s.agent, s.retention, s.http}
}

func newStack(t *testing.T, cfg *config.Config) *stack {
	t.Helper()
	d, err := daemon.NewDaemon(cfg)
	require.NoError(t, err)

	s := &stack{daemon: d}
	s.store = NewMeetingStoreComponent(cfg.Store)
	s.agent = NewAgentComponent(cfg, s.store)
	s.retention = NewRetentionComponent(cfg.Store, s.store)
	s.http = NewHTTPServerComponent(d, cfg, s.agent, s.store)
	for _, c := range s.ordered() {
		d.AddComponent(c)
	}
	return s
}

func (s *stack) start(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, c := range s.ordered() {
		require.NoError(t, c.Init(ctx), c.Name())
	}
	for _, c := range s.ordered() {
		require.NoError(t, c.Start(ctx), c.Name())
	}
	t.Cleanup(func() {
		comps := s.ordered()
		for i := len(comps) - 1; i >= 0; i-- {
			assert.NoError(t, comps[i].Stop(context.Background()), comps[i].Name())
		}
	})
}

func TestComponents_Dependencies(t *testing.T) {
	s := newStack(t, testConfig(t, "http://127.0.0.1:1"))

	assert.Empty(t, s.store.Dependencies())
	assert.Equal(t, []string{"MeetingStore"}, s.agent.Dependencies())
	assert.Equal(t, []string{"MeetingStore"}, s.retention.Dependencies())
	assert.Equal(t, []string{"MeetingStore", "Agent"}, s.http.Dependencies())
}

func TestComponents_HealthBeforeInit(t *testing.T) {
	s := newStack(t, testConfig(t, "http://127.0.0.1:1"))
	ctx := context.Background()

	for _, c := range s.ordered() {
		h, err := c.Health(ctx)
		require.NoError(t, err)
		assert.False(t, h.Healthy, c.Name())
		assert.Error(t, h.Error, c.Name())
	}
	assert.Nil(t, s.store.GetStore())
	assert.Nil(t, s.agent.GetKernel())
	assert.Empty(t, s.http.Addr())
}

func TestComponents_InitRequiresStore(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	storeComp := NewMeetingStoreComponent(cfg.Store)

	assert.Error(t, NewAgentComponent(cfg, storeComp).Init(context.Background()))
	assert.Error(t, NewRetentionComponent(cfg.Store, storeComp).Init(context.Background()))
	assert.Error(t, NewAgentComponent(cfg, nil).Init(context.Background()))
}

func TestComponents_StopBeforeStartIsNoop(t *testing.T) {
	s := newStack(t, testConfig(t, "http://127.0.0.1:1"))
	ctx := context.Background()

	assert.NoError(t, s.http.Stop(ctx))
	assert.NoError(t, s.retention.Stop(ctx))
	assert.NoError(t, s.agent.Stop(ctx))
	assert.NoError(t, s.store.Stop(ctx))
}

func TestComponents_ServeAnalyzeAndList(t *testing.T) {
	backend := fakeModelBackend(t)
	s := newStack(t, testConfig(t, backend.URL))
	s.start(t)

	base := "http://" + s.http.Addr()
	require.NotEqual(t, "http://", base)

	resp, err := http.Get(base + "/api/health")
	require.NoError(t, err)
	var health struct {
		Status     string `json:"status"`
		Components map[string]struct {
			Healthy bool `json:"healthy"`
		} `json:"components"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "ok", health.Status)
	assert.Len(t, health.Components, 4)
	for name, c := range health.Components {
		assert.True(t, c.Healthy, name)
	}

	resp, err = http.Post(base+"/api/analyze", "application/json",
		strings.NewReader(`{"transcript":"Bob: retro notes\nAlice: all good"}`))
	require.NoError(t, err)
	var types []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var ev struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		types = append(types, ev.Type)
	}
	resp.Body.Close()
	assert.Equal(t, []string{"thinking", "final", "session_saved"}, types)

	resp, err = http.Get(base + "/api/meetings")
	require.NoError(t, err)
	defer resp.Body.Close()
	var list struct {
		Meetings []struct {
			Title string `json:"title"`
		} `json:"meetings"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Meetings, 1)
	assert.Equal(t, "retro notes", list.Meetings[0].Title)
}

func TestHTTPServer_TranscribeDisabledWithoutKey(t *testing.T) {
	backend := fakeModelBackend(t)
	s := newStack(t, testConfig(t, backend.URL))
	s.start(t)

	resp, err := http.Post("http://"+s.http.Addr()+"/api/transcribe", "multipart/form-data", strings.NewReader(""))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
