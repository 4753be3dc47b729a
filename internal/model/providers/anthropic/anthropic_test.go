package anthropic

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

func TestGenerate_MapsSystemToolUseAndToolResult(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"stop_reason": "tool_use",
			"content": [
				{"type": "text", "text": "Scheduling."},
				{"type": "tool_use", "id": "toolu_1", "name": "create_calendar_invite", "input": {"title": "Budget"}}
			],
			"usage": {"input_tokens": 1, "output_tokens": 1}
		}`))
	}))
	defer srv.Close()

	p := New("test-key", srv.URL, "claude-sonnet", srv.Client())
	resp, err := p.Generate(context.Background(), contract.CompletionRequest{
		Model: "claude-sonnet-4-5",
		Messages: []contract.Message{
			{Role: contract.RoleSystem, Content: "You are a meeting agent."},
			{Role: contract.RoleUser, Content: "transcript"},
			{Role: contract.RoleAssistant, ToolCalls: []*contract.ToolCall{{ID: "toolu_0", Name: "create_report", Input: `{"title":"x"}`}}},
			{Role: contract.RoleTool, ToolCallID: "toolu_0", Content: `{"error":"boom"}`, IsError: true},
		},
		Tools: []contract.ToolDef{{
			Name:        "create_calendar_invite",
			Description: "invite",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"title": map[string]interface{}{"type": "string"}},
				"required":   []string{"title"},
			},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Scheduling.", resp.Content)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	assert.JSONEq(t, `{"title":"Budget"}`, resp.ToolCalls[0].Input)

	system := captured["system"].([]any)
	require.Len(t, system, 1)
	assert.Equal(t, "You are a meeting agent.", system[0].(map[string]any)["text"])

	messages := captured["messages"].([]any)
	require.Len(t, messages, 3)
	assistant := messages[1].(map[string]any)
	assert.Equal(t, "assistant", assistant["role"])
	toolUse := assistant["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "tool_use", toolUse["type"])
	assert.Equal(t, "toolu_0", toolUse["id"])

	result := messages[2].(map[string]any)["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "tool_result", result["type"])
	assert.Equal(t, true, result["is_error"])
}

func TestBuildMessages_MergesConsecutiveRoles(t *testing.T) {
	msgs, err := buildMessages([]contract.Message{
		{Role: contract.RoleUser, Content: "a"},
		{Role: contract.RoleAssistant, ToolCalls: []*contract.ToolCall{{ID: "1", Name: "t"}, {ID: "2", Name: "t"}}},
		{Role: contract.RoleTool, ToolCallID: "1", Content: "{}"},
		{Role: contract.RoleTool, ToolCallID: "2", Content: "{}"},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Len(t, msgs[1].Content, 2)
	assert.Len(t, msgs[2].Content, 2)

	_, err = buildMessages([]contract.Message{{Role: contract.RoleSystem, Content: "only"}})
	assert.Error(t, err)
}

func TestRequiredFields(t *testing.T) {
	assert.Equal(t, []string{"a"}, requiredFields([]interface{}{"a", 3}))
	assert.Nil(t, requiredFields(nil))
}
