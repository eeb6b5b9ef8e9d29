package fsm

import (
	"fmt"
	"sync"
)

// Registry enforces at most one active state machine per (agent, task).
// Acquire creates and tracks a machine; Release must be called at task end
// regardless of outcome. Safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	active map[string]*Machine
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[string]*Machine)}
}

func key(agentName, taskID string) string { return agentName + "\x00" + taskID }

// Acquire creates a machine for (agentName, taskID), failing when one is
// already active for the same pair.
func (r *Registry) Acquire(agentName, taskID string) (*Machine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(agentName, taskID)
	if _, exists := r.active[k]; exists {
		return nil, fmt.Errorf("task %s already active for agent %s", taskID, agentName)
	}
	m := New(agentName, taskID)
	r.active[k] = m
	return m, nil
}

// Release removes the machine for (agentName, taskID). Releasing an
// unknown pair is a no-op.
func (r *Registry) Release(agentName, taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, key(agentName, taskID))
}

// ActiveCount returns the number of currently tracked machines.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
