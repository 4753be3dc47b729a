package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	minutesErrors "github.com/harunnryd/minutes/internal/errors"
	"github.com/harunnryd/minutes/internal/model/contract"
)

// Tool represents a side-effecting operation the model may request.
// Execute receives arguments that already passed schema validation and
// returns a JSON object tagged with a "type" field.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error)
}

// Registry holds the tools advertised to the model, in registration order.
// It is populated at startup and only read afterwards.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(t Tool) error {
	name := NormalizeToolName(t.Name())
	if name == "" {
		return minutesErrors.InvalidInput("tool name cannot be empty")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%s: %w", name, minutesErrors.ErrDuplicateTool)
	}

	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[NormalizeToolName(name)]
	return t, ok
}

// Lookup is Get with the miss reported as ErrUnknownTool.
func (r *Registry) Lookup(name string) (Tool, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", NormalizeToolName(name), minutesErrors.ErrUnknownTool)
	}
	return t, nil
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int {
	return len(r.order)
}

// Schemas returns the tool definitions in registration order.
func (r *Registry) Schemas() []contract.ToolDef {
	defs := make([]contract.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, definition(name, r.tools[name]))
	}
	return defs
}

// Descriptors returns schemas with metadata, in registration order.
func (r *Registry) Descriptors() []ToolDescriptor {
	descriptors := make([]ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		descriptors = append(descriptors, ToolDescriptor{ToolDef: definition(name, t), Metadata: metadataOf(t)})
	}
	return descriptors
}

func definition(name string, t Tool) contract.ToolDef {
	return contract.ToolDef{
		Name:        name,
		Description: t.Description(),
		Parameters:  t.Parameters(),
	}
}

func NormalizeToolName(name string) string {
	return strings.TrimSpace(name)
}
