package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the bus idempotency protocol. Callers branch with
// errors.Is rather than string matching.
var (
	// ErrEventNotFound is returned for an idempotency check on an unknown
	// event id.
	ErrEventNotFound = errors.New("agent event not found")
	// ErrAlreadyCompleted marks an event whose work already happened.
	ErrAlreadyCompleted = errors.New("agent event already completed")
	// ErrAlreadyProcessing marks an event another worker currently holds.
	ErrAlreadyProcessing = errors.New("agent event already processing")
	// ErrStuckJob marks a processing event whose lease is considered
	// expired; treated as retryable, not fatal.
	ErrStuckJob = errors.New("agent event processing lease expired")
	// ErrClaimLost is returned by EventStore.Claim when the row is no
	// longer claimable: another worker claimed it first or its work
	// already finished.
	ErrClaimLost = errors.New("agent event claim lost")
)

// CapabilityError wraps a failure from an external capability (the
// reasoning model, a tool handler, the job dispatcher). Capability is a
// short identifier like "reasoning" or the tool name.
type CapabilityError struct {
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s failed: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// NewCapabilityError wraps err with the capability that produced it.
func NewCapabilityError(capability string, err error) *CapabilityError {
	return &CapabilityError{Capability: capability, Err: err}
}

// TimeoutError reports an exceeded deadline for a tool call or an
// iteration budget. Op identifies what timed out.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("%s exceeded its deadline", e.Op) }

// DispatchError reports that the bus could not hand an event off to the
// job runner. It is recovered locally at the publish boundary by marking
// the row failed; callers of publish never see it as a returned error.
type DispatchError struct {
	EventID string
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch of event %s failed: %v", e.EventID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
