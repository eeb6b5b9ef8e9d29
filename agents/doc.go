// Package agents composes the orchestration core into runnable agents for
// the career platform: a market scanner, an interview analyzer and a job
// matcher, all built on a shared BaseAgent that wires the lifecycle state
// machine, memory, reasoning, the iteration loop and the event bus
// together. Public entrypoints return the flat core.Result; internal plan
// and assessment types never leak through them.
package agents
