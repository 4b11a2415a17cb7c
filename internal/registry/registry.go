// Package registry holds the table of callable tools. Each tool declares a
// typed argument struct; raw JSON arguments are defaulted and validated
// against the schema derived from that struct before the handler runs.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateTool is returned when a tool name is registered twice.
var ErrDuplicateTool = errors.New("tool already registered")

// Handler implements a tool over its decoded arguments.
type Handler[In any] func(ctx context.Context, in In) (Result, error)

// Tool is an immutable tool descriptor.
type Tool struct {
	name        string
	description string
	schema      *inputSchema
	invoke      func(ctx context.Context, payload []byte) (Result, error)
}

// New builds a tool whose arguments decode into In.
func New[In any](name, description string, h Handler[In]) (*Tool, error) {
	if name == "" {
		return nil, errors.New("tool name cannot be empty")
	}
	schema, err := reflectSchema[In](name)
	if err != nil {
		return nil, err
	}
	return &Tool{
		name:        name,
		description: description,
		schema:      schema,
		invoke: func(ctx context.Context, payload []byte) (Result, error) {
			var in In
			if err := json.Unmarshal(payload, &in); err != nil {
				return Result{}, &ArgumentError{Tool: name, Err: err}
			}
			return h(ctx, in)
		},
	}, nil
}

func (t *Tool) Name() string        { return t.name }
func (t *Tool) Description() string { return t.description }

// InputSchema returns the JSON Schema published in tools/list.
func (t *Tool) InputSchema() json.RawMessage { return t.schema.raw }

// Bind validates raw arguments and returns a call ready to invoke. The
// returned call's Args include schema defaults for omitted parameters.
func (t *Tool) Bind(raw json.RawMessage) (*Call, error) {
	args, err := t.schema.prepare(raw)
	if err != nil {
		return nil, &ArgumentError{Tool: t.name, Err: err}
	}
	payload, err := json.Marshal(args)
	if err != nil {
		return nil, &ArgumentError{Tool: t.name, Err: err}
	}
	return &Call{Tool: t, Args: args, payload: payload}, nil
}

// Call is one validated invocation of a tool.
type Call struct {
	Tool    *Tool
	Args    map[string]any
	payload []byte
}

// Invoke runs the handler. A panicking handler is reported as an error.
func (c *Call) Invoke(ctx context.Context) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %q panicked: %v", c.Tool.name, r)
		}
	}()
	return c.Tool.invoke(ctx, c.payload)
}

// ArgumentError reports arguments that do not satisfy a tool's schema.
type ArgumentError struct {
	Tool string
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %q: %v", e.Tool, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// Registry maps tool names to descriptors. It is filled once at startup
// and only read afterwards; Register is not safe for concurrent use.
type Registry struct {
	tools map[string]*Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds t. Names are unique: a second registration fails.
func (r *Registry) Register(t *Tool) error {
	if _, exists := r.tools[t.name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, t.name)
	}
	r.tools[t.name] = t
	return nil
}

// Lookup returns the named tool.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns all tools sorted by name.
func (r *Registry) Tools() []*Tool {
	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for _, t := range r.Tools() {
		names = append(names, t.name)
	}
	return names
}
