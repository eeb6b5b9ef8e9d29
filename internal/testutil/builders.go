package testutil

import (
	"time"

	"github.com/careerpilot/agentcore/core"
)

// GoalBuilder provides a fluent helper for constructing goals in tests.
// Example:
//
//	g := NewGoalBuilder().Description("scan the market").Criterion("finds postings").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type GoalBuilder struct {
	description string
	criteria    []string
	priority    core.Priority
}

// NewGoalBuilder creates a builder with medium priority.
func NewGoalBuilder() *GoalBuilder {
	return &GoalBuilder{description: "test goal", priority: core.PriorityMedium}
}

// Description sets the goal description (chainable).
func (b *GoalBuilder) Description(d string) *GoalBuilder { b.description = d; return b }

// Criterion appends a success criterion (chainable).
func (b *GoalBuilder) Criterion(c string) *GoalBuilder { b.criteria = append(b.criteria, c); return b }

// Priority sets the goal priority (chainable).
func (b *GoalBuilder) Priority(p core.Priority) *GoalBuilder { b.priority = p; return b }

// Build constructs the Goal.
func (b *GoalBuilder) Build() core.Goal {
	return core.NewGoal(b.description, b.criteria, b.priority)
}

// EventBuilder provides a fluent helper for constructing agent events in
// tests.
type EventBuilder struct {
	eventType core.EventType
	payload   map[string]any
	status    core.EventStatus
	priority  core.Priority
	createdAt time.Time
}

// NewEventBuilder creates a builder for a pending medium-priority event.
func NewEventBuilder(eventType core.EventType) *EventBuilder {
	return &EventBuilder{
		eventType: eventType,
		payload:   map[string]any{},
		status:    core.StatusPending,
		priority:  core.PriorityMedium,
		createdAt: time.Now().UTC(),
	}
}

// Payload sets one payload field (chainable).
func (b *EventBuilder) Payload(key string, value any) *EventBuilder {
	b.payload[key] = value
	return b
}

// User sets the payload's user_id (chainable).
func (b *EventBuilder) User(userID string) *EventBuilder {
	return b.Payload("user_id", userID)
}

// Status sets the event status (chainable).
func (b *EventBuilder) Status(s core.EventStatus) *EventBuilder { b.status = s; return b }

// Priority sets the event priority (chainable).
func (b *EventBuilder) Priority(p core.Priority) *EventBuilder { b.priority = p; return b }

// Age backdates the event's creation time (chainable). Use in tests that
// exercise the processing lease.
func (b *EventBuilder) Age(d time.Duration) *EventBuilder {
	b.createdAt = time.Now().UTC().Add(-d)
	return b
}

// Build constructs the AgentEvent.
func (b *EventBuilder) Build() core.AgentEvent {
	ev := core.NewAgentEvent(b.eventType, b.payload)
	ev.Status = b.status
	ev.Priority = b.priority
	ev.CreatedAt = b.createdAt
	return ev
}

// Feedback constructs execution feedback from step outcomes, where each
// entry maps a tool name to whether its step succeeded.
func Feedback(planID string, steps ...StepOutcome) core.ExecutionFeedback {
	fb := core.ExecutionFeedback{PlanID: planID}
	for _, s := range steps {
		sf := core.StepFeedback{
			StepID:  s.StepID,
			Tool:    s.Tool,
			Success: s.Success,
			Output:  s.Output,
			Error:   s.Error,
		}
		if sf.StepID == "" {
			sf.StepID = core.NewID()
		}
		fb.Steps = append(fb.Steps, sf)
	}
	return fb
}

// StepOutcome describes one step for Feedback.
type StepOutcome struct {
	StepID  string
	Tool    string
	Success bool
	Output  any
	Error   string
}
