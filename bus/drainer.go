package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/careerpilot/agentcore/core"
	"github.com/careerpilot/agentcore/logging"
)

// EventHandler processes one durable event. Returning an error marks the
// event failed and bumps its retry counter.
type EventHandler func(ctx context.Context, event core.AgentEvent) error

// DrainerOptions configures a Drainer.
type DrainerOptions struct {
	// PoolSize is the number of concurrent workers. Defaults to 4.
	PoolSize int

	// BatchSize is the maximum number of pending events claimed per drain
	// pass. Defaults to 32.
	BatchSize int

	// MaxRetries is the retry count at which a failed event is no longer
	// re-attempted by Drain. Defaults to 3.
	MaxRetries int

	// Logger receives drain activity. Defaults to a no-op logger.
	Logger logging.Logger
}

// Drainer pulls pending events off the durable store and runs registered
// per-type handlers over a bounded worker pool, wrapping every handler in
// the bus idempotency protocol so a crashed or duplicated drain pass never
// double-applies work.
type Drainer struct {
	bus       *Bus
	pool      *ants.Pool
	mu        sync.RWMutex
	handlers  map[core.EventType]EventHandler
	batchSize int
	maxRetry  int
	logger    logging.Logger
}

// NewDrainer creates a Drainer over the given bus.
func NewDrainer(b *Bus, optFns ...func(o *DrainerOptions)) (*Drainer, error) {
	opts := DrainerOptions{
		PoolSize:   4,
		BatchSize:  32,
		MaxRetries: 3,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	pool, err := ants.NewPool(opts.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Drainer{
		bus:       b,
		pool:      pool,
		handlers:  make(map[core.EventType]EventHandler),
		batchSize: opts.BatchSize,
		maxRetry:  opts.MaxRetries,
		logger:    opts.Logger,
	}, nil
}

// Register installs the handler for an event type, replacing any previous
// one.
func (d *Drainer) Register(eventType core.EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = handler
}

// Drain claims one batch of pending events and processes them across the
// worker pool, returning when the whole batch finished. Events without a
// registered handler or past the retry limit are skipped in place.
func (d *Drainer) Drain(ctx context.Context) error {
	events, err := d.bus.Pending(d.batchSize)
	if err != nil {
		return fmt.Errorf("load pending events: %w", err)
	}

	var wg sync.WaitGroup
	for _, ev := range events {
		ev := ev
		d.mu.RLock()
		handler, ok := d.handlers[ev.EventType]
		d.mu.RUnlock()
		if !ok {
			d.logger.Debug("No handler for event type, leaving pending",
				"event_id", ev.ID, "event_type", string(ev.EventType))
			continue
		}
		if ev.RetryCount >= d.maxRetry {
			d.logger.Warn("Event exceeded retry limit",
				"event_id", ev.ID, "retry_count", ev.RetryCount)
			continue
		}

		wg.Add(1)
		submitErr := d.pool.Submit(func() {
			defer wg.Done()
			d.process(ctx, ev, handler)
		})
		if submitErr != nil {
			wg.Done()
			d.logger.Error("Worker pool rejected event",
				"event_id", ev.ID, "error", submitErr.Error())
		}
	}
	wg.Wait()
	return nil
}

// process runs one event through the idempotency protocol.
func (d *Drainer) process(ctx context.Context, ev core.AgentEvent, handler EventHandler) {
	skip, reason, err := d.bus.ShouldSkip(ev.ID)
	if err != nil {
		d.logger.Error("Idempotency check failed", "event_id", ev.ID, "error", err.Error())
		return
	}
	if skip {
		d.logger.Debug("Skipping event", "event_id", ev.ID, "reason", string(reason))
		return
	}

	if err := d.bus.MarkProcessing(ev.ID); err != nil {
		if errors.Is(err, core.ErrClaimLost) {
			d.logger.Debug("Event claimed by another worker", "event_id", ev.ID)
			return
		}
		d.logger.Error("Could not claim event", "event_id", ev.ID, "error", err.Error())
		return
	}

	if err := handler(ctx, ev); err != nil {
		d.logger.Error("Event handler failed", "event_id", ev.ID,
			"event_type", string(ev.EventType), "error", err.Error())
		if merr := d.bus.MarkFailed(ev.ID, err); merr != nil {
			d.logger.Error("Could not mark event failed", "event_id", ev.ID, "error", merr.Error())
		}
		return
	}

	if err := d.bus.MarkCompleted(ev.ID); err != nil {
		d.logger.Error("Could not mark event completed", "event_id", ev.ID, "error", err.Error())
		return
	}
	d.logger.Info("Event processed", "event_id", ev.ID, "event_type", string(ev.EventType))
}

// Close releases the worker pool. Pending submissions finish first.
func (d *Drainer) Close() {
	d.pool.Release()
}
