package bus

import (
	"sync"
	"time"
)

// BlackboardEntry is one shared fact with provenance.
type BlackboardEntry struct {
	Value     any
	WrittenBy string
	UpdatedAt time.Time
}

// Blackboard is a per-user shared context where agents leave findings for
// one another (current target role, parsed resume summary, latest match
// set). Last write wins per key; readers always see a consistent copy.
type Blackboard struct {
	mu     sync.RWMutex
	boards map[string]map[string]BlackboardEntry
}

// NewBlackboard creates an empty Blackboard.
func NewBlackboard() *Blackboard {
	return &Blackboard{boards: make(map[string]map[string]BlackboardEntry)}
}

// Set writes a value onto a user's board, recording which agent wrote it.
func (b *Blackboard) Set(userID, key string, value any, writtenBy string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	board := b.boards[userID]
	if board == nil {
		board = make(map[string]BlackboardEntry)
		b.boards[userID] = board
	}
	board[key] = BlackboardEntry{Value: value, WrittenBy: writtenBy, UpdatedAt: time.Now().UTC()}
}

// Get reads one entry from a user's board.
func (b *Blackboard) Get(userID, key string) (BlackboardEntry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	board, ok := b.boards[userID]
	if !ok {
		return BlackboardEntry{}, false
	}
	entry, ok := board[key]
	return entry, ok
}

// Snapshot returns a copy of a user's whole board.
func (b *Blackboard) Snapshot(userID string) map[string]BlackboardEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	board, ok := b.boards[userID]
	if !ok {
		return nil
	}
	out := make(map[string]BlackboardEntry, len(board))
	for k, v := range board {
		out[k] = v
	}
	return out
}

// Delete removes one key from a user's board.
func (b *Blackboard) Delete(userID, key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if board, ok := b.boards[userID]; ok {
		delete(board, key)
	}
}

// Clear drops a user's entire board.
func (b *Blackboard) Clear(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.boards, userID)
}
