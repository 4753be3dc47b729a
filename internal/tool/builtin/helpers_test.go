package builtin

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	toolcore "github.com/harunnryd/minutes/internal/tool"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 2, 18, 16, 30, 0, 0, time.UTC)

func testOptions() toolcore.BuiltinOptions {
	return toolcore.BuiltinOptions{
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	}
}

// run validates args against the tool's schema before executing, the way the
// executor does, and decodes the result.
func run(t *testing.T, tl toolcore.Tool, args string) map[string]interface{} {
	t.Helper()
	require.NoError(t, toolcore.ValidateInput(tl.Parameters(), json.RawMessage(args), toolcore.UnknownFieldsReject))

	raw, err := tl.Execute(context.Background(), json.RawMessage(args))
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}
