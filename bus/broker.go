package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/careerpilot/agentcore/logging"
)

// RequestHandler answers a direct request addressed to an agent action.
type RequestHandler func(ctx context.Context, payload map[string]any) (any, error)

// BrokerOptions configures a Broker.
type BrokerOptions struct {
	// RequestTimeout bounds a single Request call when the caller's context
	// carries no deadline.
	RequestTimeout time.Duration

	// Logger receives broker activity. Defaults to a no-op logger.
	Logger logging.Logger
}

// handlerKey addresses one action of one agent.
type handlerKey struct {
	agent  string
	action string
}

// Broker routes synchronous request/response traffic between agents in
// the same process. Unlike the durable bus, nothing here survives a
// restart; it exists for coordination questions like "what is your
// current load" where durability would be overhead.
type Broker struct {
	mu       sync.RWMutex
	handlers map[handlerKey]RequestHandler
	timeout  time.Duration
	logger   logging.Logger
}

// NewBroker creates an empty Broker.
func NewBroker(optFns ...func(o *BrokerOptions)) *Broker {
	opts := BrokerOptions{
		RequestTimeout: 10 * time.Second,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Broker{
		handlers: make(map[handlerKey]RequestHandler),
		timeout:  opts.RequestTimeout,
		logger:   opts.Logger,
	}
}

// RegisterHandler installs the handler for one action of an agent,
// replacing any previous one.
func (b *Broker) RegisterHandler(agentName, action string, handler RequestHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[handlerKey{agent: agentName, action: action}] = handler
}

// Unregister removes an agent's handler for the given action.
func (b *Broker) Unregister(agentName, action string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, handlerKey{agent: agentName, action: action})
}

// Request sends a payload from one agent to the named action of another
// and waits for the answer. The call is bounded by the caller's context
// or, absent a deadline, the broker's configured timeout. A panicking
// handler surfaces as an error.
func (b *Broker) Request(ctx context.Context, fromAgent, targetAgent, action string, payload map[string]any) (any, error) {
	b.mu.RLock()
	handler, ok := b.handlers[handlerKey{agent: targetAgent, action: action}]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no handler registered for agent %s action %s", targetAgent, action)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	b.logger.Debug("Broker request", "from", fromAgent, "to", targetAgent, "action", action)

	type outcome struct {
		result any
		err    error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("handler for agent %s action %s panicked: %v", targetAgent, action, r)}
			}
		}()
		res, err := handler(ctx, payload)
		ch <- outcome{result: res, err: err}
	}()

	select {
	case out := <-ch:
		return out.result, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("request to agent %s action %s: %w", targetAgent, action, ctx.Err())
	}
}

// BroadcastResult holds one target's answer or error from a Broadcast.
type BroadcastResult struct {
	Result any
	Err    error
}

// Broadcast sends the payload to the named action of every target and
// collects a result or error per target, one entry per name. A target
// without a registered handler contributes an error entry; individual
// failures never abort the whole broadcast.
func (b *Broker) Broadcast(ctx context.Context, fromAgent string, targets []string, action string, payload map[string]any) map[string]BroadcastResult {
	results := make(map[string]BroadcastResult, len(targets))
	var wg sync.WaitGroup
	var resMu sync.Mutex
	for _, name := range targets {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			res, err := b.Request(ctx, fromAgent, name, action, payload)
			resMu.Lock()
			results[name] = BroadcastResult{Result: res, Err: err}
			resMu.Unlock()
			if err != nil {
				b.logger.Warn("Broadcast target failed", "agent", name, "action", action, "error", err.Error())
			}
		}(name)
	}
	wg.Wait()
	return results
}

// Registered returns the names of agents with at least one live handler.
func (b *Broker) Registered() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	seen := make(map[string]bool, len(b.handlers))
	names := make([]string, 0, len(b.handlers))
	for key := range b.handlers {
		if !seen[key.agent] {
			seen[key.agent] = true
			names = append(names, key.agent)
		}
	}
	return names
}
