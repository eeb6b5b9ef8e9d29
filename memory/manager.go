package memory

import (
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/careerpilot/agentcore/core"
)

// Manager is the working + long-term memory facade for one
// (agent name, task id) execution.
//
// Contract:
//   - Working memory is scoped to this task and cleared unconditionally at
//     task end (success or failure); callers must not assume persistence
//     beyond one run.
//   - Episode and fact appends go straight to the backing store and never
//     fail silently: a persistence error propagates so the caller can
//     decide whether to continue without the audit trail.
//   - Episodic recall is most-recent-first.
type Manager struct {
	agentName string
	taskID    string
	store     core.MemoryStore

	mu      sync.RWMutex
	working map[string]any
}

// NewManager binds a manager to one task execution.
func NewManager(agentName, taskID string, store core.MemoryStore) *Manager {
	return &Manager{
		agentName: agentName,
		taskID:    taskID,
		store:     store,
		working:   make(map[string]any),
	}
}

// SetWorking stores a task-scoped key/value pair.
func (m *Manager) SetWorking(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.working[key] = value
}

// GetWorking returns the value and existence flag for a working-memory key.
func (m *Manager) GetWorking(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.working[key]
	return v, ok
}

// ClearWorking discards all working memory. Called at task end regardless
// of outcome.
func (m *Manager) ClearWorking() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.working = make(map[string]any)
}

// RecordEpisode appends an episode to long-term memory, stamping ID,
// task id and creation time when absent.
func (m *Manager) RecordEpisode(episode core.Episode) error {
	if episode.ID == "" {
		episode.ID = core.NewID()
	}
	if episode.CreatedAt.IsZero() {
		episode.CreatedAt = time.Now().UTC()
	}
	// Stamp task provenance on a clone so the caller's map stays untouched.
	episode.Context = maps.Clone(episode.Context)
	if episode.Context == nil {
		episode.Context = map[string]any{}
	}
	if _, ok := episode.Context["task_id"]; !ok {
		episode.Context["task_id"] = m.taskID
	}
	if err := m.store.AppendEpisode(m.agentName, episode); err != nil {
		return fmt.Errorf("failed to record episode: %w", err)
	}
	return nil
}

// RecallEpisodes returns the most recent episodes, most-recent-first.
func (m *Manager) RecallEpisodes(limit int) ([]core.Episode, error) {
	return m.store.RecentEpisodes(m.agentName, core.EpisodeQuery{Limit: limit})
}

// RecordFact appends a fact, stamping ID and creation time when absent.
func (m *Manager) RecordFact(fact core.Fact) error {
	if fact.ID == "" {
		fact.ID = core.NewID()
	}
	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = time.Now().UTC()
	}
	if err := m.store.AppendFact(m.agentName, fact); err != nil {
		return fmt.Errorf("failed to record fact: %w", err)
	}
	return nil
}

// RecallFacts returns facts filtered by category with a recency limit.
// No ordering guarantee beyond recency.
func (m *Manager) RecallFacts(categories []string, limit int) ([]core.Fact, error) {
	return m.store.Facts(m.agentName, core.FactQuery{Categories: categories, Limit: limit})
}
