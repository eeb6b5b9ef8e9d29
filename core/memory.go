package core

import "time"

// EpisodeOutcome summarizes how a past action ended.
type EpisodeOutcome struct {
	Success bool               `json:"success"`
	Summary string             `json:"summary"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Episode is an immutable record of one past agent action and its outcome,
// used for recall. Episodes are append-only; the core never mutates or
// deletes them (retention policy is an external concern).
type Episode struct {
	ID          string         `json:"id"`
	EpisodeType string         `json:"episode_type"`
	ActionTaken string         `json:"action_taken"`
	Context     map[string]any `json:"context,omitempty"`
	Outcome     EpisodeOutcome `json:"outcome"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Fact is an append-only piece of semantic memory queried by category.
type Fact struct {
	ID         string    `json:"id"`
	Category   string    `json:"category"`
	Content    string    `json:"content"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// EpisodeQuery bounds an episodic recall. A zero Limit means the
// implementation default.
type EpisodeQuery struct {
	Limit int
}

// FactQuery filters fact recall by category with a recency limit. An empty
// Categories slice matches every category.
type FactQuery struct {
	Categories []string
	Limit      int
}

// MemoryStore persists episodic and semantic memory keyed by
// (agent name, task scope). Implementations must keep appends durable
// before returning nil; a failed append must surface its error so callers
// can decide whether to continue without the audit trail.
//
// Recall ordering contract: episodes come back most-recent-first; facts
// have no ordering guarantee beyond the recency limit.
type MemoryStore interface {
	AppendEpisode(agentName string, episode Episode) error
	RecentEpisodes(agentName string, q EpisodeQuery) ([]Episode, error)
	AppendFact(agentName string, fact Fact) error
	Facts(agentName string, q FactQuery) ([]Fact, error)
}
