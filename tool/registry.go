package tool

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the immutable set of tool definitions registered at
// startup. Safe for concurrent reads after registration.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Definition
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Definition)}
}

// Register adds a definition, rejecting duplicates and nil handlers.
func (r *Registry) Register(def Definition) error {
	if def.ID == "" {
		return fmt.Errorf("tool definition requires an id")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %s requires a handler", def.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.ID]; exists {
		return fmt.Errorf("tool %s already registered", def.ID)
	}
	r.tools[def.ID] = def
	return nil
}

// Get returns the definition for id and whether it exists.
func (r *Registry) Get(id string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[id]
	return def, ok
}

// Enabled returns all enabled definitions sorted by id for deterministic
// iteration.
func (r *Registry) Enabled() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.tools))
	for _, def := range r.tools {
		if def.Enabled {
			out = append(out, def)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
