// Package fsm implements the per-task agent lifecycle state machine. One
// machine is created per task execution and discarded at task end; it is
// never persisted (crash recovery relies on the bus idempotency protocol,
// not on replaying state history).
package fsm

import "fmt"

// State is a lifecycle phase of one agent task execution.
type State string

const (
	// StateCreated is the initial state before the task starts.
	StateCreated State = "CREATED"
	// StateInitializing covers memory and tool setup.
	StateInitializing State = "INITIALIZING"
	// StatePlanning covers goal decomposition and plan generation.
	StatePlanning State = "PLANNING"
	// StateExecuting covers plan step execution.
	StateExecuting State = "EXECUTING"
	// StateEvaluating covers confidence scoring of execution feedback.
	StateEvaluating State = "EVALUATING"
	// StateSucceeded is terminal: the task met its confidence bar.
	StateSucceeded State = "SUCCEEDED"
	// StateFailed is terminal: the task was abandoned.
	StateFailed State = "FAILED"
)

// Terminal reports whether no further transitions are legal from s.
func (s State) Terminal() bool { return s == StateSucceeded || s == StateFailed }

// Event triggers a lifecycle transition.
type Event string

const (
	// EventStart moves a created task into initialization.
	EventStart Event = "START"
	// EventInitComplete moves an initializing task into planning.
	EventInitComplete Event = "INIT_COMPLETE"
	// EventPlanComplete moves a planning task into execution.
	EventPlanComplete Event = "PLAN_COMPLETE"
	// EventExecutionComplete moves an executing task into evaluation.
	EventExecutionComplete Event = "EXECUTION_COMPLETE"
	// EventStepFailed also moves execution into evaluation: step failures
	// are data for the scorer, not an abort.
	EventStepFailed Event = "STEP_FAILED"
	// EventEvaluationPass terminates the task successfully.
	EventEvaluationPass Event = "EVALUATION_PASS"
	// EventEvaluationFail sends the task back to planning for another
	// iteration.
	EventEvaluationFail Event = "EVALUATION_FAIL"
	// EventAbort terminates the task as failed from any non-terminal state.
	EventAbort Event = "ABORT"
)

// transitions maps (state, event) to the next state. Absence means the
// transition is illegal.
var transitions = map[State]map[Event]State{
	StateCreated: {
		EventStart: StateInitializing,
		EventAbort: StateFailed,
	},
	StateInitializing: {
		EventInitComplete: StatePlanning,
		EventAbort:        StateFailed,
	},
	StatePlanning: {
		EventPlanComplete: StateExecuting,
		EventAbort:        StateFailed,
	},
	StateExecuting: {
		EventExecutionComplete: StateEvaluating,
		EventStepFailed:        StateEvaluating,
		EventAbort:             StateFailed,
	},
	StateEvaluating: {
		EventEvaluationPass: StateSucceeded,
		EventEvaluationFail: StatePlanning,
		EventAbort:          StateFailed,
	},
}

// IllegalTransitionError reports an event that is not legal from the
// current state. It is a reported, not fatal, condition so callers can
// branch to a failure path.
type IllegalTransitionError struct {
	From  State
	Event Event
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition: event %s from state %s", e.Event, e.From)
}

// Machine is the lifecycle state machine for one (agent, task) execution.
// It is not safe for concurrent use; within one task execution transitions
// are strictly sequential.
type Machine struct {
	agentName string
	taskID    string
	state     State
}

// New creates a machine in StateCreated bound to one task execution.
func New(agentName, taskID string) *Machine {
	return &Machine{agentName: agentName, taskID: taskID, state: StateCreated}
}

// AgentName returns the owning agent's name.
func (m *Machine) AgentName() string { return m.agentName }

// TaskID returns the task this machine tracks.
func (m *Machine) TaskID() string { return m.taskID }

// State is a pure read of the current lifecycle state.
func (m *Machine) State() State { return m.state }

// Transition validates the event is legal from the current state, applies
// it and returns nil. An illegal transition leaves the state untouched and
// returns an IllegalTransitionError.
func (m *Machine) Transition(event Event) error {
	next, ok := transitions[m.state][event]
	if !ok {
		return &IllegalTransitionError{From: m.state, Event: event}
	}
	m.state = next
	return nil
}
