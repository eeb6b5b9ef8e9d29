// Package bus implements inter-agent communication: a durable event log
// with idempotent dispatch and priority-lane routing, an in-process
// publish/subscribe layer with bounded history, a synchronous
// request/response broker, and a per-user shared-context blackboard.
//
// The durable layer guarantees at-most-one effect per event via explicit
// status checks, not transactional exactly-once messaging: handlers must
// run the ShouldSkip / MarkProcessing / MarkCompleted protocol before any
// side effect.
//
// The in-process structures (subscriber map, blackboard) are process-wide
// and hold no persistence: they do not survive a restart and are not
// shared across instances, a known horizontal-scaling limitation.
package bus
