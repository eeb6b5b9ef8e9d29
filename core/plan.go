package core

// PlanStep is one tool invocation inside a Plan. Input carries the
// parameters handed to the tool executor; ExpectedOutput is a natural
// language description used by the confidence scorer, not a schema.
type PlanStep struct {
	ID             string         `json:"id"`
	Tool           string         `json:"tool"`
	Input          map[string]any `json:"input"`
	ExpectedOutput string         `json:"expected_output"`
}

// Plan is an ordered sequence of tool invocations intended to satisfy a
// Goal. Each re-planning iteration produces a Plan with a new ID; prior
// plans are retained only in the reasoning trace and never reused.
type Plan struct {
	ID     string     `json:"id"`
	GoalID string     `json:"goal_id"`
	Steps  []PlanStep `json:"steps"`
}

// NewPlan constructs an empty Plan bound to a goal with a fresh ID.
func NewPlan(goalID string) Plan {
	return Plan{ID: NewID(), GoalID: goalID}
}

// AddStep appends a step, assigning it an ID when the caller left it empty.
func (p *Plan) AddStep(step PlanStep) {
	if step.ID == "" {
		step.ID = NewID()
	}
	p.Steps = append(p.Steps, step)
}

// StepFeedback records the outcome of executing a single plan step.
// Exactly one of Output / Error is meaningful depending on Success. Input
// is the executed step's input, kept so re-planning can recognize a step
// that failed identically.
type StepFeedback struct {
	StepID  string         `json:"step_id"`
	Tool    string         `json:"tool"`
	Input   map[string]any `json:"input,omitempty"`
	Success bool           `json:"success"`
	Output  any            `json:"output,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ExecutionFeedback is the per-plan execution record produced once per
// iteration and consumed only by the next confidence scoring call.
type ExecutionFeedback struct {
	PlanID string         `json:"plan_id"`
	Steps  []StepFeedback `json:"steps"`
}

// AllSucceeded reports whether every executed step succeeded. An empty
// feedback (no steps ran) counts as failure so scoring never passes a
// plan that did nothing.
func (f ExecutionFeedback) AllSucceeded() bool {
	if len(f.Steps) == 0 {
		return false
	}
	for _, s := range f.Steps {
		if !s.Success {
			return false
		}
	}
	return true
}

// FailedSteps returns the subset of step feedback entries that failed,
// preserving execution order.
func (f ExecutionFeedback) FailedSteps() []StepFeedback {
	var failed []StepFeedback
	for _, s := range f.Steps {
		if !s.Success {
			failed = append(failed, s)
		}
	}
	return failed
}
