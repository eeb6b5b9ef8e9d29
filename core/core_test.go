package core

import "testing"

func TestNewGoalCoercesInvalidPriority(t *testing.T) {
	g := NewGoal("scan the market", []string{"find 10 postings"}, Priority("urgent"))
	if g.Priority != PriorityMedium {
		t.Errorf("expected medium priority, got %s", g.Priority)
	}
	if g.ID == "" {
		t.Error("expected a generated goal ID")
	}
}

func TestPriorityRankOrdering(t *testing.T) {
	if PriorityHigh.Rank() <= PriorityMedium.Rank() {
		t.Error("high should outrank medium")
	}
	if PriorityMedium.Rank() <= PriorityLow.Rank() {
		t.Error("medium should outrank low")
	}
	if Priority("bogus").Rank() >= PriorityLow.Rank() {
		t.Error("unknown priority should rank below low")
	}
}

func TestExecutionFeedbackHelpers(t *testing.T) {
	empty := ExecutionFeedback{PlanID: "p1"}
	if empty.AllSucceeded() {
		t.Error("feedback with no steps must not count as success")
	}

	mixed := ExecutionFeedback{
		PlanID: "p2",
		Steps: []StepFeedback{
			{StepID: "s1", Tool: "fetch_postings", Success: true},
			{StepID: "s2", Tool: "extract_skills", Success: false, Error: "timeout"},
			{StepID: "s3", Tool: "rank_matches", Success: false, Error: "bad input"},
		},
	}
	if mixed.AllSucceeded() {
		t.Error("feedback with failed steps must not count as success")
	}
	failed := mixed.FailedSteps()
	if len(failed) != 2 {
		t.Fatalf("expected 2 failed steps, got %d", len(failed))
	}
	if failed[0].StepID != "s2" || failed[1].StepID != "s3" {
		t.Error("failed steps should preserve execution order")
	}
}

func TestNewAgentEventLiftsUserID(t *testing.T) {
	ev := NewAgentEvent(EventInterviewCompleted, map[string]any{
		"interview_id": "abc",
		"user_id":      "u1",
	})
	if ev.UserID != "u1" {
		t.Errorf("expected user_id lifted to UserID, got %q", ev.UserID)
	}
	if ev.Status != StatusPending {
		t.Errorf("new events must start pending, got %s", ev.Status)
	}
	if ev.Priority != PriorityMedium {
		t.Errorf("default priority should be medium, got %s", ev.Priority)
	}
}

func TestPlanAddStepAssignsID(t *testing.T) {
	p := NewPlan("goal-1")
	p.AddStep(PlanStep{Tool: "fetch_postings"})
	p.AddStep(PlanStep{ID: "fixed", Tool: "extract_skills"})
	if p.Steps[0].ID == "" {
		t.Error("expected generated step ID")
	}
	if p.Steps[1].ID != "fixed" {
		t.Error("caller-provided step ID must be preserved")
	}
}
