package core

// Priority expresses relative importance for goals and agent events.
type Priority string

const (
	// PriorityLow marks work that can be deferred behind everything else.
	PriorityLow Priority = "low"
	// PriorityMedium is the default lane for routine agent work.
	PriorityMedium Priority = "medium"
	// PriorityHigh marks user-facing or time-sensitive work.
	PriorityHigh Priority = "high"
)

// Valid reports whether p is one of the known priority values.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank returns an integer ordering for priorities (higher is more urgent).
// Unknown priorities rank below low so malformed rows drain last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Goal is a target outcome with explicit, checkable success criteria.
// A Goal is created per task invocation and must be treated as immutable
// once planning starts; re-planning iterations reference the same Goal.
type Goal struct {
	ID              string   `json:"id"`
	Description     string   `json:"description"`
	SuccessCriteria []string `json:"success_criteria"`
	Priority        Priority `json:"priority"`
}

// NewGoal constructs a Goal with a fresh ID. An invalid priority is coerced
// to medium so downstream routing never sees an unknown lane.
func NewGoal(description string, criteria []string, priority Priority) Goal {
	if !priority.Valid() {
		priority = PriorityMedium
	}
	return Goal{
		ID:              NewID(),
		Description:     description,
		SuccessCriteria: criteria,
		Priority:        priority,
	}
}
