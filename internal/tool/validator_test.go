package tool

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInput(t *testing.T) {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type": "string",
			},
			"age": map[string]interface{}{
				"type": "integer",
			},
			"score": map[string]interface{}{
				"type": "number",
			},
			"priority": map[string]interface{}{
				"type": "string",
				"enum": []string{"high", "medium", "low"},
			},
			"tags": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "string",
				},
			},
			"items": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"task": map[string]interface{}{"type": "string"},
					},
					"required": []interface{}{"task"},
				},
			},
		},
		"required": []string{"name"},
	}

	tests := []struct {
		name    string
		input   string
		policy  UnknownFieldPolicy
		wantErr string
	}{
		{name: "Valid input", input: `{"name": "Alice", "age": 30, "score": 7.5, "tags": ["admin"]}`},
		{name: "Empty input with required field", input: ``, wantErr: "missing required field: name"},
		{name: "Missing required field", input: `{"age": 30}`, wantErr: "missing required field: name"},
		{name: "Invalid type (string vs integer)", input: `{"name": "Alice", "age": "thirty"}`, wantErr: "field 'age' expected integer, got string"},
		{name: "Fractional integer", input: `{"name": "Alice", "age": 30.5}`, wantErr: "expected integer"},
		{name: "Invalid array item type", input: `{"name": "Alice", "tags": [123]}`, wantErr: "field 'tags[0]' expected string, got number"},
		{name: "Enum mismatch", input: `{"name": "Alice", "priority": "urgent"}`, wantErr: "field 'priority' must be one of"},
		{name: "Enum match", input: `{"name": "Alice", "priority": "low"}`},
		{name: "Nested required field", input: `{"name": "Alice", "items": [{"owner": "Bob"}]}`, wantErr: "missing required field: items[0].task"},
		{name: "Extra fields (allowed)", input: `{"name": "Alice", "extra": "field"}`, policy: UnknownFieldsAllow},
		{name: "Extra fields (rejected)", input: `{"name": "Alice", "extra": "field"}`, policy: UnknownFieldsReject, wantErr: "unknown field: extra"},
		{name: "Nested extra field (rejected)", input: `{"name": "Alice", "items": [{"task": "x", "owner": "Bob"}]}`, policy: UnknownFieldsReject, wantErr: "unknown field: items[0].owner"},
		{name: "Not an object", input: `["Alice"]`, wantErr: "arguments must be a JSON object"},
		{name: "Null", input: `null`, wantErr: "got null"},
		{name: "Malformed JSON", input: `{"name": `, wantErr: "arguments must be a JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInput(schema, json.RawMessage(tt.input), tt.policy)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseUnknownFieldPolicy(t *testing.T) {
	p, err := ParseUnknownFieldPolicy("")
	require.NoError(t, err)
	assert.Equal(t, UnknownFieldsAllow, p)

	p, err = ParseUnknownFieldPolicy("REJECT")
	require.NoError(t, err)
	assert.Equal(t, UnknownFieldsReject, p)

	_, err = ParseUnknownFieldPolicy("warn")
	assert.Error(t, err)
}
