package tool

import (
	"errors"
	"fmt"
)

// ErrDuplicateTool is returned when a name is registered twice. Registration
// collisions are programmer errors surfaced at startup.
var ErrDuplicateTool = errors.New("duplicate tool")

// ErrUnknownTool is returned when a lookup names an unregistered tool.
var ErrUnknownTool = errors.New("unknown tool")

// Definition declaratively exposes a callable function to the model:
// name, description and a JSON schema for the parameters.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Registry holds the tools available to a conversation. It is populated once
// at startup and read-only afterwards, so lookups on the request path need no
// locking. Definitions preserve registration order for presentation to the
// completion backend.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool under its name. It fails with ErrDuplicateTool if the
// name is already taken.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// MustRegister registers a tool and panics on failure. Intended for startup
// wiring where a duplicate name is fatal.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Lookup returns the tool registered under name or ErrUnknownTool.
func (r *Registry) Lookup(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t, nil
}

// Definitions returns the tool definitions in registration order.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, Definition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }
