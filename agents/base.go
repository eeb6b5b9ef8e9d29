package agents

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/careerpilot/agentcore/bus"
	"github.com/careerpilot/agentcore/core"
	"github.com/careerpilot/agentcore/fsm"
	"github.com/careerpilot/agentcore/logging"
	"github.com/careerpilot/agentcore/loop"
	"github.com/careerpilot/agentcore/memory"
	"github.com/careerpilot/agentcore/model"
	"github.com/careerpilot/agentcore/reasoning"
	"github.com/careerpilot/agentcore/tool"
)

// Options configures a BaseAgent.
type Options struct {
	// Bus publishes cross-agent events. Optional; agents run fine without
	// one and simply skip publishing.
	Bus *bus.Bus

	// Blackboard is the per-user shared context. Optional.
	Blackboard *bus.Blackboard

	// MemoryStore persists episodes and facts. Defaults to an in-process
	// store.
	MemoryStore core.MemoryStore

	// CheckpointStore persists loop snapshots. Optional.
	CheckpointStore core.CheckpointStore

	// Loop overrides iteration loop settings.
	Loop func(o *loop.Options)

	// Logger receives agent telemetry. Defaults to a no-op logger.
	Logger logging.Logger
}

// BaseAgent wires the orchestration core together for one named agent.
// Concrete agents embed it, register their tools and expose typed
// entrypoints.
type BaseAgent struct {
	name       string
	mdl        model.Model
	registry   *tool.Registry
	selector   *tool.Selector
	executor   *tool.Executor
	decomposer *reasoning.Decomposer
	planner    *reasoning.Planner
	scorer     *reasoning.Scorer
	machines   *fsm.Registry

	eventBus    *bus.Bus
	blackboard  *bus.Blackboard
	memoryStore core.MemoryStore
	checkpoints core.CheckpointStore
	loopOpt     func(o *loop.Options)
	logger      logging.Logger
}

// NewBaseAgent constructs a BaseAgent around a reasoning model and an
// empty tool registry.
func NewBaseAgent(name string, mdl model.Model, optFns ...func(o *Options)) *BaseAgent {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MemoryStore == nil {
		opts.MemoryStore = memory.NewInMemoryStore()
	}

	registry := tool.NewRegistry()
	selector := tool.NewSelector(registry)

	return &BaseAgent{
		name:        name,
		mdl:         mdl,
		registry:    registry,
		selector:    selector,
		executor:    tool.NewExecutor(registry, func(o *tool.ExecutorOptions) { o.Logger = opts.Logger }),
		decomposer:  reasoning.NewDecomposer(mdl),
		planner:     reasoning.NewPlanner(mdl, selector),
		scorer:      reasoning.NewScorer(),
		machines:    fsm.NewRegistry(),
		eventBus:    opts.Bus,
		blackboard:  opts.Blackboard,
		memoryStore: opts.MemoryStore,
		checkpoints: opts.CheckpointStore,
		loopOpt:     opts.Loop,
		logger:      opts.Logger,
	}
}

// Name returns the agent's name as used in routing and memory scoping.
func (a *BaseAgent) Name() string { return a.name }

// RegisterTool adds a tool definition to the agent's registry.
func (a *BaseAgent) RegisterTool(def tool.Definition) error {
	return a.registry.Register(def)
}

// RunTask drives one task through the full lifecycle: acquire the state
// machine, decompose the description into a goal, iterate the
// plan/execute/evaluate loop until termination, record the episode and
// release everything. It never panics across the boundary; failures land
// in the returned Result.
func (a *BaseAgent) RunTask(ctx context.Context, taskID, description string, taskContext map[string]any) core.Result {
	start := time.Now()
	logger := a.logger

	machine, err := a.machines.Acquire(a.name, taskID)
	if err != nil {
		return core.Result{
			Success:  false,
			Duration: time.Since(start),
			Error:    fmt.Sprintf("task %s already active for agent %s", taskID, a.name),
		}
	}
	defer a.machines.Release(a.name, taskID)

	mem := memory.NewManager(a.name, taskID, a.memoryStore)
	defer mem.ClearWorking()

	trace := newTraceRecorder()
	a.step(machine, fsm.EventStart)
	a.step(machine, fsm.EventInitComplete)

	goal, err := a.decomposer.Decompose(ctx, description, taskContext)
	if err != nil {
		a.step(machine, fsm.EventAbort)
		return core.Result{
			Success:        false,
			Duration:       time.Since(start),
			ReasoningTrace: trace.entries(),
			Error:          fmt.Sprintf("goal decomposition failed: %v", err),
		}
	}
	trace.addf("goal: %s (criteria: %d, priority: %s)", goal.Description, len(goal.SuccessCriteria), goal.Priority)
	mem.SetWorking("goal_id", goal.ID)

	controller := loop.NewController(
		&tracingPlanner{inner: a.planner, machine: machine, agent: a, trace: trace},
		&planExecutor{executor: a.executor, machine: machine, agent: a, trace: trace},
		&tracingScorer{inner: a.scorer, trace: trace},
		func(o *loop.Options) {
			o.Logger = logger
			if a.checkpoints != nil {
				o.CheckpointStore = a.checkpoints
				o.CheckpointInterval = 1
			}
			if a.loopOpt != nil {
				a.loopOpt(o)
			}
		},
	)

	ir, runErr := controller.Run(ctx, a.name, taskID, goal)
	if ir.Success {
		a.step(machine, fsm.EventEvaluationPass)
	} else {
		a.step(machine, fsm.EventAbort)
	}

	episode := core.Episode{
		EpisodeType: "task_run",
		ActionTaken: description,
		Context:     map[string]any{"goal_id": goal.ID, "iterations": ir.TotalIterations},
		Outcome: core.EpisodeOutcome{
			Success: ir.Success,
			Summary: string(ir.TerminationReason),
			Metrics: map[string]float64{"confidence": ir.Final.OverallScore},
		},
	}
	if err := mem.RecordEpisode(episode); err != nil {
		logger.Error("Episode record failed", "agent", a.name, "task_id", taskID, "error", err.Error())
	}

	result := core.Result{
		Success:        ir.Success,
		Output:         ir.Output,
		Iterations:     ir.TotalIterations,
		Confidence:     ir.Final.OverallScore,
		Duration:       time.Since(start),
		ReasoningTrace: trace.entries(),
	}
	if runErr != nil {
		result.Error = runErr.Error()
	} else if !ir.Success {
		result.Error = fmt.Sprintf("terminated: %s", ir.TerminationReason)
	}
	return result
}

// step applies a lifecycle event, logging illegal transitions instead of
// failing the task.
func (a *BaseAgent) step(machine *fsm.Machine, event fsm.Event) {
	if err := machine.Transition(event); err != nil {
		var ill *fsm.IllegalTransitionError
		if errors.As(err, &ill) {
			a.logger.Warn("Illegal lifecycle transition", "agent", a.name,
				"state", string(machine.State()), "event", string(event))
			return
		}
		a.logger.Error("Lifecycle transition failed", "agent", a.name, "error", err.Error())
	}
}

// publish sends an event through the bus when one is configured.
func (a *BaseAgent) publish(ctx context.Context, eventType core.EventType, payload map[string]any) {
	if a.eventBus == nil {
		return
	}
	res, err := a.eventBus.Publish(ctx, eventType, payload)
	if err != nil {
		a.logger.Error("Event publish failed", "agent", a.name,
			"event_type", string(eventType), "error", err.Error())
		return
	}
	if !res.Dispatched {
		a.logger.Warn("Event persisted but not dispatched", "agent", a.name,
			"event_id", res.EventID, "event_type", string(eventType))
	}
}

// traceRecorder accumulates human-readable reasoning steps.
type traceRecorder struct {
	mu    sync.Mutex
	lines []string
}

func newTraceRecorder() *traceRecorder { return &traceRecorder{} }

func (t *traceRecorder) addf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, fmt.Sprintf(format, args...))
}

func (t *traceRecorder) entries() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}

// tracingPlanner drives lifecycle transitions around plan generation and
// records each plan in the trace.
type tracingPlanner struct {
	inner   *reasoning.Planner
	machine *fsm.Machine
	agent   *BaseAgent
	trace   *traceRecorder
}

func (p *tracingPlanner) Generate(ctx context.Context, goal core.Goal, prior *core.ExecutionFeedback) (core.Plan, error) {
	if prior != nil {
		p.agent.step(p.machine, fsm.EventEvaluationFail)
		p.trace.addf("re-planning after %d failed steps", len(prior.FailedSteps()))
	}
	plan, err := p.inner.Generate(ctx, goal, prior)
	if err != nil {
		return core.Plan{}, err
	}
	tools := make([]string, 0, len(plan.Steps))
	for _, s := range plan.Steps {
		tools = append(tools, s.Tool)
	}
	p.trace.addf("plan %s: %d steps %v", plan.ID, len(plan.Steps), tools)
	p.agent.step(p.machine, fsm.EventPlanComplete)
	return plan, nil
}

// planExecutor adapts the tool executor to the loop's PlanExecutor
// boundary, running steps in order and mapping each structured result to
// step feedback.
type planExecutor struct {
	executor *tool.Executor
	machine  *fsm.Machine
	agent    *BaseAgent
	trace    *traceRecorder
}

func (e *planExecutor) Execute(ctx context.Context, plan core.Plan) (any, core.ExecutionFeedback) {
	feedback := core.ExecutionFeedback{PlanID: plan.ID}
	var lastOutput any
	anyFailed := false

	for _, step := range plan.Steps {
		res := e.executor.Execute(ctx, step.Tool, step.Input)
		sf := core.StepFeedback{
			StepID:  step.ID,
			Tool:    step.Tool,
			Input:   step.Input,
			Success: res.Success,
			Output:  res.Output,
		}
		if res.Error != nil {
			sf.Error = res.Error.Error()
		}
		feedback.Steps = append(feedback.Steps, sf)

		if res.Success {
			lastOutput = res.Output
			e.trace.addf("step %s (%s) succeeded in %s", step.ID, step.Tool, res.Duration.Round(time.Millisecond))
		} else {
			anyFailed = true
			e.trace.addf("step %s (%s) failed: %s", step.ID, step.Tool, sf.Error)
		}
	}

	if anyFailed {
		e.agent.step(e.machine, fsm.EventStepFailed)
	} else {
		e.agent.step(e.machine, fsm.EventExecutionComplete)
	}
	return lastOutput, feedback
}

// tracingScorer records each assessment in the trace.
type tracingScorer struct {
	inner *reasoning.Scorer
	trace *traceRecorder
}

func (s *tracingScorer) Score(goal core.Goal, feedback core.ExecutionFeedback, previous *core.Assessment) core.Assessment {
	a := s.inner.Score(goal, feedback, previous)
	s.trace.addf("assessment: %.2f (degraded: %v)", a.OverallScore, a.Degraded)
	return a
}

func (s *tracingScorer) MeetsBar(score, threshold float64) bool {
	return s.inner.MeetsBar(score, threshold)
}
