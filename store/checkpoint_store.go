package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/careerpilot/agentcore/core"
)

// checkpointRow persists one loop checkpoint. Plan and assessment history
// are JSON documents; only the newest row per (agent, task) is ever read.
type checkpointRow struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	AgentName  string `gorm:"index:idx_checkpoint_scope"`
	TaskID     string `gorm:"index:idx_checkpoint_scope"`
	Iteration  int
	Plan       string `gorm:"type:text"`
	History    string `gorm:"type:text"`
	RecordedAt time.Time
}

func (checkpointRow) TableName() string { return "loop_checkpoints" }

// CheckpointStore is the SQLite implementation of core.CheckpointStore.
type CheckpointStore struct {
	db *gorm.DB
}

// NewCheckpointStore creates a CheckpointStore over an opened database.
func NewCheckpointStore(db *gorm.DB) *CheckpointStore {
	return &CheckpointStore{db: db}
}

// Save appends a checkpoint row.
func (s *CheckpointStore) Save(checkpoint core.Checkpoint) error {
	plan, err := json.Marshal(checkpoint.Plan)
	if err != nil {
		return fmt.Errorf("encode checkpoint plan: %w", err)
	}
	history, err := json.Marshal(checkpoint.History)
	if err != nil {
		return fmt.Errorf("encode checkpoint history: %w", err)
	}
	row := checkpointRow{
		AgentName:  checkpoint.AgentName,
		TaskID:     checkpoint.TaskID,
		Iteration:  checkpoint.Iteration,
		Plan:       string(plan),
		History:    string(history),
		RecordedAt: checkpoint.RecordedAt,
	}
	return s.db.Create(&row).Error
}

// Latest returns the newest checkpoint for (agent, task), or nil when none
// was recorded.
func (s *CheckpointStore) Latest(agentName, taskID string) (*core.Checkpoint, error) {
	var row checkpointRow
	err := s.db.Where("agent_name = ? AND task_id = ?", agentName, taskID).
		Order("iteration DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	cp := core.Checkpoint{
		AgentName:  row.AgentName,
		TaskID:     row.TaskID,
		Iteration:  row.Iteration,
		RecordedAt: row.RecordedAt,
	}
	if row.Plan != "" {
		if err := json.Unmarshal([]byte(row.Plan), &cp.Plan); err != nil {
			return nil, fmt.Errorf("decode checkpoint plan: %w", err)
		}
	}
	if row.History != "" {
		if err := json.Unmarshal([]byte(row.History), &cp.History); err != nil {
			return nil, fmt.Errorf("decode checkpoint history: %w", err)
		}
	}
	return &cp, nil
}
