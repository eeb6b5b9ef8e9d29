package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/careerpilot/agentcore/core"
)

// eventRow is the persisted shape of a core.AgentEvent. The payload is
// stored as a JSON document; user_id is denormalized into its own indexed
// column so per-user queries never unpack payloads.
type eventRow struct {
	ID           string `gorm:"primaryKey"`
	EventType    string `gorm:"index"`
	Payload      string `gorm:"type:text"`
	Status       string `gorm:"index"`
	Priority     string
	SourceAgent  string
	TargetAgent  string
	UserID       string `gorm:"index"`
	CreatedAt    time.Time
	ProcessedAt  *time.Time
	ErrorMessage string
	RetryCount   int
}

func (eventRow) TableName() string { return "agent_events" }

func toEventRow(ev core.AgentEvent) (eventRow, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return eventRow{}, fmt.Errorf("encode event payload: %w", err)
	}
	return eventRow{
		ID:           ev.ID,
		EventType:    string(ev.EventType),
		Payload:      string(payload),
		Status:       string(ev.Status),
		Priority:     string(ev.Priority),
		SourceAgent:  ev.SourceAgent,
		TargetAgent:  ev.TargetAgent,
		UserID:       ev.UserID,
		CreatedAt:    ev.CreatedAt,
		ProcessedAt:  ev.ProcessedAt,
		ErrorMessage: ev.ErrorMessage,
		RetryCount:   ev.RetryCount,
	}, nil
}

func fromEventRow(row eventRow) (core.AgentEvent, error) {
	var payload map[string]any
	if row.Payload != "" {
		if err := json.Unmarshal([]byte(row.Payload), &payload); err != nil {
			return core.AgentEvent{}, fmt.Errorf("decode payload of event %s: %w", row.ID, err)
		}
	}
	return core.AgentEvent{
		ID:           row.ID,
		EventType:    core.EventType(row.EventType),
		Payload:      payload,
		Status:       core.EventStatus(row.Status),
		Priority:     core.Priority(row.Priority),
		SourceAgent:  row.SourceAgent,
		TargetAgent:  row.TargetAgent,
		UserID:       row.UserID,
		CreatedAt:    row.CreatedAt,
		ProcessedAt:  row.ProcessedAt,
		ErrorMessage: row.ErrorMessage,
		RetryCount:   row.RetryCount,
	}, nil
}

// EventStore is the SQLite implementation of core.EventStore.
type EventStore struct {
	db *gorm.DB
}

// NewEventStore creates an EventStore over an opened database.
func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

// Insert persists a new event row.
func (s *EventStore) Insert(event core.AgentEvent) error {
	row, err := toEventRow(event)
	if err != nil {
		return err
	}
	return s.db.Create(&row).Error
}

// Get returns the event or core.ErrEventNotFound.
func (s *EventStore) Get(id string) (*core.AgentEvent, error) {
	var row eventRow
	if err := s.db.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrEventNotFound
		}
		return nil, err
	}
	ev, err := fromEventRow(row)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// UpdateStatus transitions the row, stamping processed_at for terminal
// states and always overwriting the error message.
func (s *EventStore) UpdateStatus(id string, status core.EventStatus, errorMessage string) error {
	updates := map[string]any{
		"status":        string(status),
		"error_message": errorMessage,
	}
	if status == core.StatusCompleted || status == core.StatusFailed {
		now := time.Now().UTC()
		updates["processed_at"] = &now
	}
	res := s.db.Model(&eventRow{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return core.ErrEventNotFound
	}
	return nil
}

// Claim transitions a claimable row to processing in a single conditional
// UPDATE, so concurrent workers race on the row itself rather than on a
// prior read. Zero rows affected means the claim was lost or the id is
// unknown; a follow-up read distinguishes the two.
func (s *EventStore) Claim(id string, staleBefore time.Time) error {
	res := s.db.Model(&eventRow{}).
		Where("id = ? AND (status IN ? OR (status = ? AND created_at < ?))",
			id,
			[]string{string(core.StatusPending), string(core.StatusFailed)},
			string(core.StatusProcessing), staleBefore).
		Updates(map[string]any{
			"status":        string(core.StatusProcessing),
			"error_message": "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.Get(id); err != nil {
			return err
		}
		return core.ErrClaimLost
	}
	return nil
}

// IncrementRetry bumps the retry counter atomically in the database.
func (s *EventStore) IncrementRetry(id string) error {
	res := s.db.Model(&eventRow{}).Where("id = ?", id).
		UpdateColumn("retry_count", gorm.Expr("retry_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return core.ErrEventNotFound
	}
	return nil
}

// Pending returns up to limit pending events ordered by priority rank
// descending, then creation time ascending.
func (s *EventStore) Pending(limit int) ([]core.AgentEvent, error) {
	q := s.db.Where("status = ?", string(core.StatusPending)).
		Order("CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END DESC").
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []eventRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return decodeEventRows(rows)
}

// ByUser returns a user's events, most recent first.
func (s *EventStore) ByUser(userID string, limit int) ([]core.AgentEvent, error) {
	q := s.db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []eventRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return decodeEventRows(rows)
}

func decodeEventRows(rows []eventRow) ([]core.AgentEvent, error) {
	out := make([]core.AgentEvent, 0, len(rows))
	for _, row := range rows {
		ev, err := fromEventRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}
