package core

import "time"

// Assessment is a scored evaluation of how well executed feedback satisfied
// a Goal. OverallScore is normalized to [0,1]. Degraded is true when the
// score dropped below the immediately preceding iteration's score.
type Assessment struct {
	OverallScore    float64            `json:"overall_score"`
	CriterionScores map[string]float64 `json:"criterion_scores,omitempty"`
	Degraded        bool               `json:"degraded"`
	Reasoning       string             `json:"reasoning,omitempty"`
}

// TerminationReason enumerates the ways an iteration loop run can end.
// There is no fifth path: every loop result carries exactly one of these.
type TerminationReason string

const (
	// TerminationConfidenceMet means the assessment score reached the
	// configured confidence threshold.
	TerminationConfidenceMet TerminationReason = "confidence_met"
	// TerminationMaxIterations means the iteration budget was exhausted.
	TerminationMaxIterations TerminationReason = "max_iterations"
	// TerminationTimeout means the wall-clock budget was exhausted.
	TerminationTimeout TerminationReason = "timeout"
	// TerminationDegraded means scores declined for too many consecutive
	// iterations and further retries were judged unproductive.
	TerminationDegraded TerminationReason = "degraded_repeatedly"
)

// IterationResult is the terminal artifact of one iteration controller run.
type IterationResult struct {
	Success           bool              `json:"success"`
	TotalIterations   int               `json:"total_iterations"`
	Final             Assessment        `json:"final_assessment"`
	TerminationReason TerminationReason `json:"termination_reason"`
	Output            any               `json:"output,omitempty"`
	Duration          time.Duration     `json:"duration"`
}

// Checkpoint is a best-effort snapshot of loop state persisted for
// observability and debugging. Nothing in the core relies on it for
// correctness.
type Checkpoint struct {
	AgentName  string       `json:"agent_name"`
	TaskID     string       `json:"task_id"`
	Iteration  int          `json:"iteration"`
	Plan       Plan         `json:"plan"`
	History    []Assessment `json:"assessment_history"`
	RecordedAt time.Time    `json:"recorded_at"`
}

// CheckpointStore persists loop checkpoints. Implementations may drop
// writes; callers must tolerate failure.
type CheckpointStore interface {
	Save(checkpoint Checkpoint) error
	Latest(agentName, taskID string) (*Checkpoint, error)
}

// Result is the flat record every public agent entrypoint returns to its
// consumers (dashboard / API layer). Internal Plan and Assessment types are
// never exposed through it.
type Result struct {
	Success        bool          `json:"success"`
	Output         any           `json:"output"`
	Iterations     int           `json:"iterations"`
	Confidence     float64       `json:"confidence"`
	Duration       time.Duration `json:"duration"`
	ReasoningTrace []string      `json:"reasoning_trace"`
	Error          string        `json:"error,omitempty"`
}
