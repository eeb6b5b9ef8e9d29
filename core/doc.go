// Package core provides the foundational domain types and interfaces used by
// the agent orchestration layer. It defines the core abstractions for:
//
//   - Goals, Plans and PlanSteps (what an agent intends to do)
//   - ExecutionFeedback and Assessments (what happened and how well)
//   - Episodes and Facts (long-lived agent memory records)
//   - AgentEvents (durable, idempotency-tracked inter-agent messages)
//   - Pluggable stores for events, memory and loop checkpoints
//
// The package intentionally keeps implementation concerns (persistence, loop
// control, concrete agents) out of scope, exposing small interfaces to enable
// custom backends and extensions.
package core
