package funcexec

import (
	"context"
	"fmt"
	"sort"

	"github.com/peakform/coachflow/pkg/health"
	"github.com/peakform/coachflow/pkg/schema"
	"github.com/peakform/coachflow/pkg/store"
)

// Context is the bounded execution context handed to function handlers.
type Context struct {
	ConversationID string
	UserID         string
	Store          store.Store
	Health         health.Provider
}

// Dispatcher executes a registered function by name.
type Dispatcher interface {
	Execute(ctx context.Context, call schema.FunctionCall, execCtx Context) (schema.FunctionExecutionResult, error)
}

// HandlerFunc is one registered function implementation.
type HandlerFunc func(ctx context.Context, call schema.FunctionCall, execCtx Context) (schema.FunctionExecutionResult, error)

// Registry maps function names to typed handlers and their definitions.
type Registry struct {
	handlers    map[string]HandlerFunc
	definitions map[string]schema.FunctionDefinition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers:    make(map[string]HandlerFunc),
		definitions: make(map[string]schema.FunctionDefinition),
	}
}

// Register adds a function definition with its handler. Re-registering a
// name replaces the previous handler.
func (r *Registry) Register(def schema.FunctionDefinition, handler HandlerFunc) {
	r.handlers[def.Name] = handler
	r.definitions[def.Name] = def
}

// Definitions returns all registered definitions, sorted by name.
func (r *Registry) Definitions() []schema.FunctionDefinition {
	defs := make([]schema.FunctionDefinition, 0, len(r.definitions))
	for _, def := range r.definitions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute dispatches the call to its registered handler.
func (r *Registry) Execute(ctx context.Context, call schema.FunctionCall, execCtx Context) (schema.FunctionExecutionResult, error) {
	handler, ok := r.handlers[call.Name]
	if !ok {
		return schema.FunctionExecutionResult{}, fmt.Errorf("unknown function %q", call.Name)
	}
	return handler(ctx, call, execCtx)
}
