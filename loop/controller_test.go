package loop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/careerpilot/agentcore/core"
)

// scriptedScorer replays a fixed score sequence, one per iteration.
type scriptedScorer struct {
	scores []float64
	calls  int
}

func (s *scriptedScorer) Score(_ core.Goal, _ core.ExecutionFeedback, previous *core.Assessment) core.Assessment {
	score := s.scores[min(s.calls, len(s.scores)-1)]
	s.calls++
	a := core.Assessment{OverallScore: score}
	if previous != nil && score < previous.OverallScore {
		a.Degraded = true
	}
	return a
}

func (s *scriptedScorer) MeetsBar(score, threshold float64) bool { return score >= threshold }

// stubPlanner counts generations and hands out trivial plans.
type stubPlanner struct {
	mu        sync.Mutex
	calls     int
	feedbacks []*core.ExecutionFeedback
	err       error
}

func (p *stubPlanner) Generate(_ context.Context, goal core.Goal, prior *core.ExecutionFeedback) (core.Plan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return core.Plan{}, p.err
	}
	p.calls++
	p.feedbacks = append(p.feedbacks, prior)
	plan := core.NewPlan(goal.ID)
	plan.AddStep(core.PlanStep{Tool: "fetch_postings", Input: map[string]any{"query": goal.Description}})
	return plan, nil
}

// stubExecutor succeeds every step, optionally sleeping to trip timeouts.
type stubExecutor struct {
	delay time.Duration
}

func (e *stubExecutor) Execute(_ context.Context, plan core.Plan) (any, core.ExecutionFeedback) {
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	fb := core.ExecutionFeedback{PlanID: plan.ID}
	for _, s := range plan.Steps {
		fb.Steps = append(fb.Steps, core.StepFeedback{StepID: s.ID, Tool: s.Tool, Input: s.Input, Success: true, Output: "ok"})
	}
	return "output", fb
}

type mapCheckpointStore struct {
	mu    sync.Mutex
	saved []core.Checkpoint
}

func (m *mapCheckpointStore) Save(cp core.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, cp)
	return nil
}

func (m *mapCheckpointStore) Latest(agentName, taskID string) (*core.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].AgentName == agentName && m.saved[i].TaskID == taskID {
			cp := m.saved[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func testGoal() core.Goal {
	return core.NewGoal("scan the job market", []string{"postings found"}, core.PriorityMedium)
}

func TestConfidenceMetAtThirdIteration(t *testing.T) {
	scorer := &scriptedScorer{scores: []float64{0.5, 0.75, 0.82}}
	c := NewController(&stubPlanner{}, &stubExecutor{}, scorer, func(o *Options) {
		o.ConfidenceThreshold = 0.8
		o.MaxIterations = 3
	})

	res, err := c.Run(context.Background(), "market_scanner", "task-1", testGoal())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !res.Success {
		t.Error("expected success")
	}
	if res.TerminationReason != core.TerminationConfidenceMet {
		t.Errorf("expected confidence_met, got %s", res.TerminationReason)
	}
	if res.TotalIterations != 3 {
		t.Errorf("expected 3 iterations, got %d", res.TotalIterations)
	}
}

func TestDegradedRepeatedlyBeforeMaxIterations(t *testing.T) {
	scorer := &scriptedScorer{scores: []float64{0.5, 0.4, 0.3}}
	c := NewController(&stubPlanner{}, &stubExecutor{}, scorer, func(o *Options) {
		o.ConfidenceThreshold = 0.8
		o.MaxIterations = 5
		o.MaxDegradations = 2
	})

	res, err := c.Run(context.Background(), "market_scanner", "task-2", testGoal())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Success {
		t.Error("expected failure")
	}
	if res.TerminationReason != core.TerminationDegraded {
		t.Errorf("expected degraded_repeatedly, got %s", res.TerminationReason)
	}
	if res.TotalIterations != 3 {
		t.Errorf("expected stop at iteration 3, got %d", res.TotalIterations)
	}
}

func TestMaxIterationsBound(t *testing.T) {
	scorer := &scriptedScorer{scores: []float64{0.5, 0.6, 0.5, 0.6}}
	c := NewController(&stubPlanner{}, &stubExecutor{}, scorer, func(o *Options) {
		o.ConfidenceThreshold = 0.9
		o.MaxIterations = 3
		o.MaxDegradations = 10
	})

	res, err := c.Run(context.Background(), "market_scanner", "task-3", testGoal())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.TerminationReason != core.TerminationMaxIterations {
		t.Errorf("expected max_iterations, got %s", res.TerminationReason)
	}
	if res.TotalIterations != 3 {
		t.Errorf("total_iterations must never exceed the configured bound, got %d", res.TotalIterations)
	}
}

func TestWallClockTimeout(t *testing.T) {
	scorer := &scriptedScorer{scores: []float64{0.1, 0.1, 0.1}}
	c := NewController(&stubPlanner{}, &stubExecutor{delay: 20 * time.Millisecond}, scorer, func(o *Options) {
		o.ConfidenceThreshold = 0.9
		o.MaxIterations = 100
		o.MaxDegradations = 100
		o.MaxDuration = 10 * time.Millisecond
	})

	res, err := c.Run(context.Background(), "market_scanner", "task-4", testGoal())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.TerminationReason != core.TerminationTimeout {
		t.Errorf("expected timeout, got %s", res.TerminationReason)
	}
}

func TestReplanningReceivesPriorFeedback(t *testing.T) {
	planner := &stubPlanner{}
	scorer := &scriptedScorer{scores: []float64{0.5, 0.9}}
	c := NewController(planner, &stubExecutor{}, scorer, func(o *Options) {
		o.ConfidenceThreshold = 0.8
		o.MaxIterations = 3
	})

	if _, err := c.Run(context.Background(), "market_scanner", "task-5", testGoal()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if planner.calls != 2 {
		t.Fatalf("expected initial plan + one re-plan, got %d", planner.calls)
	}
	if planner.feedbacks[0] != nil {
		t.Error("initial planning must receive nil feedback")
	}
	if planner.feedbacks[1] == nil {
		t.Error("re-planning must receive the prior iteration's feedback")
	}
}

func TestCheckpointingIsBestEffort(t *testing.T) {
	store := &mapCheckpointStore{}
	scorer := &scriptedScorer{scores: []float64{0.1, 0.2, 0.3, 0.4}}
	c := NewController(&stubPlanner{}, &stubExecutor{}, scorer, func(o *Options) {
		o.ConfidenceThreshold = 0.9
		o.MaxIterations = 4
		o.MaxDegradations = 10
		o.CheckpointInterval = 2
		o.CheckpointStore = store
	})

	if _, err := c.Run(context.Background(), "market_scanner", "task-6", testGoal()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(store.saved) != 2 {
		t.Fatalf("expected checkpoints at iterations 2 and 4, got %d", len(store.saved))
	}
	latest, _ := store.Latest("market_scanner", "task-6")
	if latest == nil || latest.Iteration != 4 {
		t.Error("latest checkpoint should be iteration 4")
	}
}

func TestPlannerHardFailureSurfaces(t *testing.T) {
	planner := &stubPlanner{err: errors.New("prompt render broken")}
	c := NewController(planner, &stubExecutor{}, &scriptedScorer{scores: []float64{0}})

	_, err := c.Run(context.Background(), "market_scanner", "task-7", testGoal())
	if err == nil {
		t.Error("planner hard failure must surface as an error")
	}
}

func TestPlannerFailureReasonTracksBudget(t *testing.T) {
	planner := &stubPlanner{err: errors.New("prompt render broken")}
	c := NewController(planner, &stubExecutor{}, &scriptedScorer{scores: []float64{0}})

	res, err := c.Run(context.Background(), "market_scanner", "task-8", testGoal())
	if err == nil {
		t.Fatal("expected planner error")
	}
	if res.TerminationReason != core.TerminationMaxIterations {
		t.Errorf("with budget left the reason is max_iterations, got %s", res.TerminationReason)
	}
	if res.TotalIterations != 0 {
		t.Errorf("no iteration completed, got %d", res.TotalIterations)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err = c.Run(ctx, "market_scanner", "task-9", testGoal())
	if err == nil {
		t.Fatal("expected planner error")
	}
	if res.TerminationReason != core.TerminationTimeout {
		t.Errorf("with the context done the reason is timeout, got %s", res.TerminationReason)
	}
}
