package memory

import (
	"maps"
	"slices"
	"sync"

	"github.com/careerpilot/agentcore/core"
)

// defaultRecallLimit bounds recalls when the query leaves Limit at zero.
const defaultRecallLimit = 20

// InMemoryStore is a volatile core.MemoryStore holding episodes and facts
// in process-local maps keyed by agent name. Safe for concurrent access;
// best suited for tests and single-process deployments. Appends copy the
// record so later caller mutation cannot corrupt stored history.
type InMemoryStore struct {
	mu       sync.RWMutex
	episodes map[string][]core.Episode
	facts    map[string][]core.Fact
}

// NewInMemoryStore creates an empty in-memory memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		episodes: make(map[string][]core.Episode),
		facts:    make(map[string][]core.Fact),
	}
}

// AppendEpisode appends an episode to the agent's history. The context and
// metrics maps are cloned along with the struct.
func (s *InMemoryStore) AppendEpisode(agentName string, episode core.Episode) error {
	episode.Context = maps.Clone(episode.Context)
	episode.Outcome.Metrics = maps.Clone(episode.Outcome.Metrics)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.episodes[agentName] = append(s.episodes[agentName], episode)
	return nil
}

// RecentEpisodes returns up to q.Limit episodes, most-recent-first.
func (s *InMemoryStore) RecentEpisodes(agentName string, q core.EpisodeQuery) ([]core.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	limit := q.Limit
	if limit <= 0 {
		limit = defaultRecallLimit
	}
	all := s.episodes[agentName]
	n := min(limit, len(all))
	out := make([]core.Episode, 0, n)
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// AppendFact appends a fact to the agent's semantic memory.
func (s *InMemoryStore) AppendFact(agentName string, fact core.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts[agentName] = append(s.facts[agentName], fact)
	return nil
}

// Facts returns facts matching the category filter, newest first, capped
// at q.Limit.
func (s *InMemoryStore) Facts(agentName string, q core.FactQuery) ([]core.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	limit := q.Limit
	if limit <= 0 {
		limit = defaultRecallLimit
	}
	all := s.facts[agentName]
	var out []core.Fact
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		f := all[i]
		if len(q.Categories) == 0 || slices.Contains(q.Categories, f.Category) {
			out = append(out, f)
		}
	}
	return out, nil
}
