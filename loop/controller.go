// Package loop implements the bounded iteration controller that ties
// planning, execution and confidence scoring into a retry loop with four
// enumerated termination causes. The controller drives its collaborators
// strictly sequentially: plan execution, scoring and re-planning never
// overlap for the same task.
package loop

import (
	"context"
	"fmt"
	"time"

	"github.com/careerpilot/agentcore/core"
	"github.com/careerpilot/agentcore/logging"
)

// PlanExecutor runs every step of a plan and reports what happened. Step
// failures are captured in the feedback, not returned as errors.
type PlanExecutor interface {
	Execute(ctx context.Context, plan core.Plan) (output any, feedback core.ExecutionFeedback)
}

// Planner regenerates plans. priorFeedback is nil only for the initial
// plan.
type Planner interface {
	Generate(ctx context.Context, goal core.Goal, priorFeedback *core.ExecutionFeedback) (core.Plan, error)
}

// Scorer evaluates feedback against the goal and decides whether a score
// clears the confidence bar.
type Scorer interface {
	Score(goal core.Goal, feedback core.ExecutionFeedback, previous *core.Assessment) core.Assessment
	MeetsBar(score, threshold float64) bool
}

// Options configure one controller.
type Options struct {
	// ConfidenceThreshold is the minimum assessment score required to stop
	// iterating successfully.
	ConfidenceThreshold float64
	// MaxIterations bounds the loop; the result's TotalIterations never
	// exceeds it.
	MaxIterations int
	// MaxDuration is the wall-clock budget for the whole run.
	MaxDuration time.Duration
	// MaxDegradations is the number of consecutive score drops tolerated
	// before giving up.
	MaxDegradations int
	// CheckpointInterval persists loop state every N iterations when a
	// CheckpointStore is set. Best-effort: checkpoint failures are logged
	// and ignored.
	CheckpointInterval int
	CheckpointStore    core.CheckpointStore
	Logger             logging.Logger
}

// Controller runs the bounded plan/execute/score loop for one task.
type Controller struct {
	planner  Planner
	executor PlanExecutor
	scorer   Scorer
	opts     Options
}

// NewController constructs a controller with conservative defaults
// (threshold 0.8, 5 iterations, 2 minute budget, 2 tolerated
// degradations).
func NewController(planner Planner, executor PlanExecutor, scorer Scorer, optFns ...func(o *Options)) *Controller {
	opts := Options{
		ConfidenceThreshold: 0.8,
		MaxIterations:       5,
		MaxDuration:         2 * time.Minute,
		MaxDegradations:     2,
		CheckpointInterval:  0,
		Logger:              logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Controller{planner: planner, executor: executor, scorer: scorer, opts: opts}
}

// Run executes the loop until one of the four termination causes fires.
// The returned result always carries exactly one termination reason; an
// error is returned only for context cancellation or a planner hard
// failure. In those cases the error is the authoritative outcome, the
// result still reflects the iterations that completed, and its reason
// reports which budget the run was closest to: timeout when the clock is
// spent or the context is done, max_iterations otherwise.
func (c *Controller) Run(ctx context.Context, agentName, taskID string, goal core.Goal) (core.IterationResult, error) {
	start := time.Now()

	var (
		iteration     int
		history       []core.Assessment
		degradations  int
		lastOutput    any
		lastAssess    core.Assessment
		priorFeedback *core.ExecutionFeedback
	)

	plan, err := c.planner.Generate(ctx, goal, nil)
	if err != nil {
		return c.result(false, iteration, lastAssess, c.planFailureReason(ctx, start), lastOutput, start),
			fmt.Errorf("initial planning failed: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return c.result(false, iteration, lastAssess, core.TerminationTimeout, lastOutput, start), err
		}

		output, feedback := c.executor.Execute(ctx, plan)
		lastOutput = output

		var previous *core.Assessment
		if len(history) > 0 {
			previous = &history[len(history)-1]
		}
		assessment := c.scorer.Score(goal, feedback, previous)
		history = append(history, assessment)
		lastAssess = assessment
		iteration++

		c.opts.Logger.Debug("loop.iteration",
			"agent", agentName, "task_id", taskID,
			"iteration", iteration, "score", assessment.OverallScore, "degraded", assessment.Degraded)

		c.maybeCheckpoint(agentName, taskID, iteration, plan, history)

		if c.scorer.MeetsBar(assessment.OverallScore, c.opts.ConfidenceThreshold) {
			return c.result(true, iteration, assessment, core.TerminationConfidenceMet, lastOutput, start), nil
		}
		if iteration >= c.opts.MaxIterations {
			return c.result(false, iteration, assessment, core.TerminationMaxIterations, lastOutput, start), nil
		}
		if c.opts.MaxDuration > 0 && time.Since(start) >= c.opts.MaxDuration {
			return c.result(false, iteration, assessment, core.TerminationTimeout, lastOutput, start), nil
		}

		if assessment.Degraded {
			degradations++
		} else {
			degradations = 0
		}
		if degradations >= c.opts.MaxDegradations {
			return c.result(false, iteration, assessment, core.TerminationDegraded, lastOutput, start), nil
		}

		priorFeedback = &feedback
		plan, err = c.planner.Generate(ctx, goal, priorFeedback)
		if err != nil {
			return c.result(false, iteration, assessment, c.planFailureReason(ctx, start), lastOutput, start),
				fmt.Errorf("re-planning failed at iteration %d: %w", iteration, err)
		}
	}
}

// planFailureReason picks the reason reported alongside a planner error.
func (c *Controller) planFailureReason(ctx context.Context, start time.Time) core.TerminationReason {
	if ctx.Err() != nil || (c.opts.MaxDuration > 0 && time.Since(start) >= c.opts.MaxDuration) {
		return core.TerminationTimeout
	}
	return core.TerminationMaxIterations
}

func (c *Controller) result(
	success bool,
	iterations int,
	final core.Assessment,
	reason core.TerminationReason,
	output any,
	start time.Time,
) core.IterationResult {
	return core.IterationResult{
		Success:           success,
		TotalIterations:   iterations,
		Final:             final,
		TerminationReason: reason,
		Output:            output,
		Duration:          time.Since(start),
	}
}

// maybeCheckpoint persists loop state when an interval and store are
// configured. Failures are logged, never propagated: checkpointing exists
// for observability, not correctness.
func (c *Controller) maybeCheckpoint(agentName, taskID string, iteration int, plan core.Plan, history []core.Assessment) {
	if c.opts.CheckpointStore == nil || c.opts.CheckpointInterval <= 0 {
		return
	}
	if iteration%c.opts.CheckpointInterval != 0 {
		return
	}
	cp := core.Checkpoint{
		AgentName:  agentName,
		TaskID:     taskID,
		Iteration:  iteration,
		Plan:       plan,
		History:    append([]core.Assessment(nil), history...),
		RecordedAt: time.Now().UTC(),
	}
	if err := c.opts.CheckpointStore.Save(cp); err != nil {
		c.opts.Logger.Warn("loop.checkpoint_failed", "task_id", taskID, "iteration", iteration, "error", err.Error())
	}
}
