package tool

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry holds registered tools. It is instance-based (not global) for
// better testability, and enforces single-writer-many-reader semantics so
// the executor and introspection callers can use it concurrently.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry. Registration is idempotent:
// re-registering a name overwrites the previous tool. It returns an error
// only for a malformed contract (empty name, no scopes, unknown risk).
func (r *Registry) Register(t Tool) error {
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return ErrEmptyToolName
	}
	if len(t.Scopes()) == 0 {
		return fmt.Errorf("%w: %s", ErrNoScopes, name)
	}
	if !t.Risk().Valid() {
		return fmt.Errorf("%w: %s (%q)", ErrInvalidRisk, name, t.Risk())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = t
	return nil
}

// RegisterAll registers every tool in the list, stopping at the first
// malformed contract.
func (r *Registry) RegisterAll(tools []Tool) error {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the tool with the given name, or ErrToolNotFound. Callers
// surface an unknown name as a task-level failure, not a registry panic.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t, nil
}

// All returns all registered tools sorted by name.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	slices.SortFunc(tools, func(a, b Tool) int {
		return cmp.Compare(a.Name(), b.Name())
	})
	return tools
}

// Names returns all registered tool names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Definitions returns the exported capability descriptors of all registered
// tools sorted by name.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0)
	for _, t := range r.All() {
		defs = append(defs, Define(t))
	}
	return defs
}
