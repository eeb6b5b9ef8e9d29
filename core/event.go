package core

import "time"

// EventType is the closed set of cross-agent signals carried by the bus.
// Routing metadata (priority, source, target, queue lane) is derived from
// the type via static tables at the publish boundary, never stored per call
// site.
type EventType string

const (
	// EventMarketScanCompleted signals a finished job-market scan.
	EventMarketScanCompleted EventType = "MARKET_SCAN_COMPLETED"
	// EventInterviewCompleted signals a finished mock interview session.
	EventInterviewCompleted EventType = "INTERVIEW_COMPLETED"
	// EventInterviewAnalyzed signals interview feedback is available.
	EventInterviewAnalyzed EventType = "INTERVIEW_ANALYZED"
	// EventJobMatchesFound signals fresh job matches for a user.
	EventJobMatchesFound EventType = "JOB_MATCHES_FOUND"
	// EventResumeParsed signals structured resume data is available.
	EventResumeParsed EventType = "RESUME_PARSED"
	// EventSkillGapDetected signals a gap between user skills and a target role.
	EventSkillGapDetected EventType = "SKILL_GAP_DETECTED"
	// EventApplicationSubmitted signals an application was filed.
	EventApplicationSubmitted EventType = "APPLICATION_SUBMITTED"
)

// EventStatus forms a one-way lifecycle pending → processing →
// {completed | failed}, with a bounded stuck-job escape hatch that allows
// processing → processing when the lease is considered expired.
type EventStatus string

const (
	// StatusPending marks a persisted event not yet handed to a worker.
	StatusPending EventStatus = "pending"
	// StatusProcessing marks an event a worker has claimed.
	StatusProcessing EventStatus = "processing"
	// StatusCompleted marks an event whose handler finished successfully.
	StatusCompleted EventStatus = "completed"
	// StatusFailed marks an event whose handler or dispatch failed.
	StatusFailed EventStatus = "failed"
)

// AgentEvent is the durable, idempotency-tracked unit of inter-agent
// communication. The event ID is the sole idempotency key: handlers decide
// whether work already happened by checking the status of the row with that
// ID, never by inspecting payloads.
type AgentEvent struct {
	ID           string         `json:"id"`
	EventType    EventType      `json:"event_type"`
	Payload      map[string]any `json:"payload"`
	Status       EventStatus    `json:"status"`
	Priority     Priority       `json:"priority"`
	SourceAgent  string         `json:"source_agent"`
	TargetAgent  string         `json:"target_agent"`
	UserID       string         `json:"user_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	ProcessedAt  *time.Time     `json:"processed_at,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	RetryCount   int            `json:"retry_count"`
}

// NewAgentEvent constructs a pending event with a fresh ID. The user
// identifier, when present in the payload under "user_id", is lifted into
// UserID so the store can filter by user without unpacking payloads.
func NewAgentEvent(eventType EventType, payload map[string]any) AgentEvent {
	ev := AgentEvent{
		ID:        NewID(),
		EventType: eventType,
		Payload:   payload,
		Status:    StatusPending,
		Priority:  PriorityMedium,
		CreatedAt: time.Now().UTC(),
	}
	if uid, ok := payload["user_id"].(string); ok {
		ev.UserID = uid
	}
	return ev
}

// EventStore is the durable store boundary for AgentEvent rows. It must
// support lookup by ID, status transitions and the pending drain ordered by
// (priority rank desc, created_at asc).
type EventStore interface {
	Insert(event AgentEvent) error
	Get(id string) (*AgentEvent, error)
	// UpdateStatus transitions the row and stamps ProcessedAt for terminal
	// states. An empty errorMessage clears any prior one.
	UpdateStatus(id string, status EventStatus, errorMessage string) error
	// Claim atomically transitions a claimable row to processing. A row is
	// claimable when pending, failed, or processing with CreatedAt before
	// staleBefore. Returns ErrEventNotFound for an unknown id and
	// ErrClaimLost when another worker holds the row, so concurrent
	// claimants race on the write itself, never on a prior read.
	Claim(id string, staleBefore time.Time) error
	IncrementRetry(id string) error
	// Pending returns up to limit pending events in drain order.
	Pending(limit int) ([]AgentEvent, error)
	// ByUser returns events whose payload carried the given user identifier,
	// most recent first.
	ByUser(userID string, limit int) ([]AgentEvent, error)
}
