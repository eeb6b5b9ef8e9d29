package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/careerpilot/agentcore/core"
	"github.com/careerpilot/agentcore/logging"
)

// stuckThreshold is how long a processing row is honored before another
// worker may reclaim it. Measured from the event's creation time rather
// than the moment processing began, so an event that sat pending for
// longer than the threshold is reclaimable the instant a worker stalls
// on it. A processing_started_at column would tighten this.
const stuckThreshold = 5 * time.Minute

// SkipReason explains an idempotency check decision.
type SkipReason string

const (
	// SkipNotFound means no row exists for the event id.
	SkipNotFound SkipReason = "not_found"
	// SkipAlreadyCompleted means the event's work already happened.
	SkipAlreadyCompleted SkipReason = "already_completed"
	// SkipAlreadyProcessing means another worker holds a live lease.
	SkipAlreadyProcessing SkipReason = "already_processing"
	// SkipNone means the caller should proceed with the work.
	SkipNone SkipReason = ""
)

// PublishResult reports what Publish achieved. Persisted and Dispatched
// are independent: a row can land durably while the hand-off to the job
// runner fails.
type PublishResult struct {
	EventID    string
	Persisted  bool
	Dispatched bool
}

// Options configures a Bus.
type Options struct {
	// Dispatcher hands events to the job runner. When nil, publishing
	// persists the row and leaves it pending for a drainer to pick up.
	Dispatcher JobDispatcher

	// Logger receives bus activity. Defaults to a no-op logger.
	Logger logging.Logger
}

// Bus persists agent events and coordinates the idempotency protocol
// around their processing. All methods are safe for concurrent use as
// long as the underlying store is.
type Bus struct {
	store      core.EventStore
	dispatcher JobDispatcher
	logger     logging.Logger
	now        func() time.Time
}

// New creates a Bus over the given event store.
func New(store core.EventStore, optFns ...func(o *Options)) *Bus {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Bus{
		store:      store,
		dispatcher: opts.Dispatcher,
		logger:     opts.Logger,
		now:        time.Now,
	}
}

// Publish persists an event of the given type and hands it to the job
// runner. Routing metadata (priority, source, target, lane) comes from the
// static route table. Persistence failures are returned as errors;
// dispatch failures are absorbed: the row is marked failed with the
// dispatch error and the result reports Dispatched false with a nil error,
// so a flaky job runner never loses the durable record.
func (b *Bus) Publish(ctx context.Context, eventType core.EventType, payload map[string]any) (PublishResult, error) {
	route, err := RouteFor(eventType)
	if err != nil {
		return PublishResult{}, err
	}

	ev := core.NewAgentEvent(eventType, payload)
	ev.Priority = route.Priority
	ev.SourceAgent = route.SourceAgent
	ev.TargetAgent = route.TargetAgent

	if err := b.store.Insert(ev); err != nil {
		return PublishResult{EventID: ev.ID}, fmt.Errorf("persist event %s: %w", ev.ID, err)
	}

	result := PublishResult{EventID: ev.ID, Persisted: true}

	if b.dispatcher == nil {
		b.logger.Warn("No dispatcher configured, event left pending",
			"event_id", ev.ID, "event_type", string(eventType))
		return result, nil
	}

	jobID := fmt.Sprintf("%s:%s", route.Lane, route.TargetAgent)
	if _, err := b.dispatcher.Trigger(ctx, jobID, triggerPayload(ev)); err != nil {
		derr := &core.DispatchError{EventID: ev.ID, Err: err}
		b.logger.Error("Event dispatch failed", "event_id", ev.ID,
			"event_type", string(eventType), "error", derr.Error())
		if uerr := b.store.UpdateStatus(ev.ID, core.StatusFailed, derr.Error()); uerr != nil {
			b.logger.Error("Could not mark event failed", "event_id", ev.ID, "error", uerr.Error())
		}
	} else {
		result.Dispatched = true
	}

	b.fanOutToListener(ctx, ev)

	if result.Dispatched {
		b.logger.Info("Event published", "event_id", ev.ID,
			"event_type", string(eventType), "target", route.TargetAgent,
			"priority", string(route.Priority))
	}
	return result, nil
}

// fanOutToListener additionally triggers the global listener job for
// user-scoped events, whatever the lane dispatch outcome, so the listener
// observes the full event stream. Fan-out failures are logged and
// swallowed; the listener is an observer, not a required consumer.
func (b *Bus) fanOutToListener(ctx context.Context, ev core.AgentEvent) {
	if ev.UserID == "" || b.dispatcher == nil {
		return
	}
	if _, err := b.dispatcher.Trigger(ctx, GlobalListenerJob, triggerPayload(ev)); err != nil {
		b.logger.Warn("Global listener fan-out failed",
			"event_id", ev.ID, "error", err.Error())
	}
}

func triggerPayload(ev core.AgentEvent) map[string]any {
	return map[string]any{
		"event_id":   ev.ID,
		"event_type": string(ev.EventType),
		"payload":    ev.Payload,
	}
}

// ShouldSkip is the idempotency check handlers call before doing any work.
// It returns skip true with a reason when the work must not proceed:
// the row is unknown, already completed, or held by a worker whose lease
// is still live. A pending, failed, or stale-processing row returns skip
// false so the caller may claim it.
func (b *Bus) ShouldSkip(eventID string) (bool, SkipReason, error) {
	ev, err := b.store.Get(eventID)
	if err != nil {
		if errors.Is(err, core.ErrEventNotFound) {
			return true, SkipNotFound, nil
		}
		return true, SkipNone, err
	}

	switch ev.Status {
	case core.StatusCompleted:
		return true, SkipAlreadyCompleted, nil
	case core.StatusProcessing:
		if b.now().UTC().Sub(ev.CreatedAt) < stuckThreshold {
			return true, SkipAlreadyProcessing, nil
		}
		b.logger.Warn("Reclaiming stuck event", "event_id", eventID,
			"created_at", ev.CreatedAt, "retry_count", ev.RetryCount)
		return false, SkipNone, nil
	default:
		return false, SkipNone, nil
	}
}

// MarkProcessing claims the event for the calling worker. The claim is a
// single conditional store write, so workers that all passed ShouldSkip
// still race on the row itself; losers get core.ErrClaimLost and must not
// run the handler.
func (b *Bus) MarkProcessing(eventID string) error {
	return b.store.Claim(eventID, b.now().UTC().Add(-stuckThreshold))
}

// MarkCompleted records the event's work as done, clearing any prior
// error message.
func (b *Bus) MarkCompleted(eventID string) error {
	return b.store.UpdateStatus(eventID, core.StatusCompleted, "")
}

// MarkFailed records a handler failure and bumps the retry counter so a
// later drain pass can decide whether to give up.
func (b *Bus) MarkFailed(eventID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := b.store.UpdateStatus(eventID, core.StatusFailed, msg); err != nil {
		return err
	}
	return b.store.IncrementRetry(eventID)
}

// Event returns the stored event row.
func (b *Bus) Event(eventID string) (*core.AgentEvent, error) {
	return b.store.Get(eventID)
}

// EventsForUser returns a user's recent events, most recent first.
func (b *Bus) EventsForUser(userID string, limit int) ([]core.AgentEvent, error) {
	return b.store.ByUser(userID, limit)
}

// Pending returns up to limit pending events in drain order.
func (b *Bus) Pending(limit int) ([]core.AgentEvent, error) {
	return b.store.Pending(limit)
}
