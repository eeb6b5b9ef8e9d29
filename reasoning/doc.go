// Package reasoning turns a natural language task into an executable plan
// and scores execution outcomes. It holds three collaborators that interact
// only through core value types so each can be unit-tested independently of
// the loop driver:
//
//   - Decomposer: description -> Goal with checkable success criteria
//   - Planner: Goal (+ prior feedback) -> Plan of tool invocations
//   - Scorer: Goal + ExecutionFeedback -> Assessment
//
// Where a deterministic fallback is defined (keyword extraction for
// decomposition, selector-driven planning), malformed or unavailable model
// output degrades to it instead of aborting the run.
package reasoning
