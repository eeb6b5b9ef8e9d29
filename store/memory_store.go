package store

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/careerpilot/agentcore/core"
)

const defaultRecallLimit = 20

// episodeRow persists one episodic memory entry. Context and outcome are
// JSON documents; the agent name is a plain indexed column because almost
// every query filters on it.
type episodeRow struct {
	ID          string `gorm:"primaryKey"`
	AgentName   string `gorm:"index"`
	EpisodeType string
	ActionTaken string
	Context     string `gorm:"type:text"`
	Outcome     string `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"index"`
}

func (episodeRow) TableName() string { return "agent_episodes" }

// factRow persists one semantic memory entry.
type factRow struct {
	ID         string `gorm:"primaryKey"`
	AgentName  string `gorm:"index"`
	Category   string `gorm:"index"`
	Content    string `gorm:"type:text"`
	Confidence float64
	CreatedAt  time.Time
}

func (factRow) TableName() string { return "agent_facts" }

// MemoryStore is the SQLite implementation of core.MemoryStore.
type MemoryStore struct {
	db *gorm.DB
}

// NewMemoryStore creates a MemoryStore over an opened database.
func NewMemoryStore(db *gorm.DB) *MemoryStore {
	return &MemoryStore{db: db}
}

// AppendEpisode durably appends one episode for the agent.
func (s *MemoryStore) AppendEpisode(agentName string, episode core.Episode) error {
	ctx, err := json.Marshal(episode.Context)
	if err != nil {
		return fmt.Errorf("encode episode context: %w", err)
	}
	outcome, err := json.Marshal(episode.Outcome)
	if err != nil {
		return fmt.Errorf("encode episode outcome: %w", err)
	}
	row := episodeRow{
		ID:          episode.ID,
		AgentName:   agentName,
		EpisodeType: episode.EpisodeType,
		ActionTaken: episode.ActionTaken,
		Context:     string(ctx),
		Outcome:     string(outcome),
		CreatedAt:   episode.CreatedAt,
	}
	return s.db.Create(&row).Error
}

// RecentEpisodes returns the agent's episodes, most recent first.
func (s *MemoryStore) RecentEpisodes(agentName string, q core.EpisodeQuery) ([]core.Episode, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultRecallLimit
	}
	var rows []episodeRow
	err := s.db.Where("agent_name = ?", agentName).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]core.Episode, 0, len(rows))
	for _, row := range rows {
		ep := core.Episode{
			ID:          row.ID,
			EpisodeType: row.EpisodeType,
			ActionTaken: row.ActionTaken,
			CreatedAt:   row.CreatedAt,
		}
		if row.Context != "" {
			if err := json.Unmarshal([]byte(row.Context), &ep.Context); err != nil {
				return nil, fmt.Errorf("decode context of episode %s: %w", row.ID, err)
			}
		}
		if row.Outcome != "" {
			if err := json.Unmarshal([]byte(row.Outcome), &ep.Outcome); err != nil {
				return nil, fmt.Errorf("decode outcome of episode %s: %w", row.ID, err)
			}
		}
		out = append(out, ep)
	}
	return out, nil
}

// AppendFact durably appends one fact for the agent.
func (s *MemoryStore) AppendFact(agentName string, fact core.Fact) error {
	row := factRow{
		ID:         fact.ID,
		AgentName:  agentName,
		Category:   fact.Category,
		Content:    fact.Content,
		Confidence: fact.Confidence,
		CreatedAt:  fact.CreatedAt,
	}
	return s.db.Create(&row).Error
}

// Facts returns the agent's facts filtered by category with a recency
// limit. An empty category list matches everything.
func (s *MemoryStore) Facts(agentName string, q core.FactQuery) ([]core.Fact, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultRecallLimit
	}
	query := s.db.Where("agent_name = ?", agentName)
	if len(q.Categories) > 0 {
		query = query.Where("category IN ?", q.Categories)
	}
	var rows []factRow
	err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]core.Fact, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.Fact{
			ID:         row.ID,
			Category:   row.Category,
			Content:    row.Content,
			Confidence: row.Confidence,
			CreatedAt:  row.CreatedAt,
		})
	}
	return out, nil
}
