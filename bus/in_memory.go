package bus

import (
	"sort"
	"sync"
	"time"

	"github.com/careerpilot/agentcore/core"
)

// InMemoryEventStore is a map-backed core.EventStore for tests and
// single-process runs. The SQLite store in the store package is the durable
// counterpart.
type InMemoryEventStore struct {
	mu     sync.Mutex
	events map[string]core.AgentEvent
}

// NewInMemoryEventStore returns an empty in-memory event store.
func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{events: make(map[string]core.AgentEvent)}
}

// Insert stores the event keyed by its ID.
func (s *InMemoryEventStore) Insert(event core.AgentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = event
	return nil
}

// Get returns a copy of the event or core.ErrEventNotFound.
func (s *InMemoryEventStore) Get(id string) (*core.AgentEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, core.ErrEventNotFound
	}
	cp := ev
	return &cp, nil
}

// UpdateStatus transitions the row and stamps ProcessedAt for terminal
// states.
func (s *InMemoryEventStore) UpdateStatus(id string, status core.EventStatus, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return core.ErrEventNotFound
	}
	ev.Status = status
	ev.ErrorMessage = errorMessage
	if status == core.StatusCompleted || status == core.StatusFailed {
		now := time.Now().UTC()
		ev.ProcessedAt = &now
	}
	s.events[id] = ev
	return nil
}

// Claim transitions the row to processing only while the store mutex is
// held and the row is still claimable, so exactly one of any number of
// concurrent claimants wins.
func (s *InMemoryEventStore) Claim(id string, staleBefore time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return core.ErrEventNotFound
	}
	claimable := ev.Status == core.StatusPending ||
		ev.Status == core.StatusFailed ||
		(ev.Status == core.StatusProcessing && ev.CreatedAt.Before(staleBefore))
	if !claimable {
		return core.ErrClaimLost
	}
	ev.Status = core.StatusProcessing
	ev.ErrorMessage = ""
	s.events[id] = ev
	return nil
}

// IncrementRetry bumps the retry counter by one.
func (s *InMemoryEventStore) IncrementRetry(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return core.ErrEventNotFound
	}
	ev.RetryCount++
	s.events[id] = ev
	return nil
}

// Pending returns up to limit pending events in drain order: priority rank
// descending, then created_at ascending.
func (s *InMemoryEventStore) Pending(limit int) ([]core.AgentEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.AgentEvent
	for _, ev := range s.events {
		if ev.Status == core.StatusPending {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ByUser returns the user's events, most recent first.
func (s *InMemoryEventStore) ByUser(userID string, limit int) ([]core.AgentEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.AgentEvent
	for _, ev := range s.events {
		if ev.UserID == userID {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
