package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/harunnryd/minutes/internal/model/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_SendsToolTurnsAndParsesToolCalls(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_abc",
						"type": "function",
						"function": {"name": "create_report", "arguments": "{\"title\":\"Sync\"}"}
					}]
				}
			}]
		}`))
	}))
	defer srv.Close()

	p := New("test-key", srv.URL, "gpt-4o-mini", "openrouter", srv.Client())
	assert.Equal(t, "gpt-4o-mini", p.Name())
	assert.Equal(t, "openrouter", p.Type())

	resp, err := p.Generate(context.Background(), contract.CompletionRequest{
		Model: "openai/gpt-4o-mini",
		Messages: []contract.Message{
			{Role: contract.RoleSystem, Content: "be brief"},
			{Role: contract.RoleUser, Content: "transcript"},
			{Role: contract.RoleAssistant, ToolCalls: []*contract.ToolCall{{ID: "call_0", Name: "create_report", Input: `{}`}}},
			{Role: contract.RoleTool, ToolCallID: "call_0", Content: `{"type":"report"}`},
		},
		Tools: []contract.ToolDef{{Name: "create_report", Description: "report"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_abc", resp.ToolCalls[0].ID)
	assert.Equal(t, "create_report", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"title":"Sync"}`, resp.ToolCalls[0].Input)

	assert.Equal(t, "openai/gpt-4o-mini", captured["model"])
	messages := captured["messages"].([]any)
	require.Len(t, messages, 4)
	toolMsg := messages[3].(map[string]any)
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "call_0", toolMsg["tool_call_id"])
	tools := captured["tools"].([]any)
	require.Len(t, tools, 1)
}

func TestGenerate_NoChoicesIsInvalidOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	p := New("k", srv.URL, "m", "", srv.Client())
	_, err := p.Generate(context.Background(), contract.CompletionRequest{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid model output")
}
