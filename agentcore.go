// Package agentcore provides a high-level façade over the orchestration
// core (agents, event bus, stores, logging) enabling rapid construction of
// the career platform's agent fleet. Most applications interact with this
// package by:
//  1. Creating a Core via New() (optionally overriding the default
//     in-memory stores with the sqlite-backed ones from the store package)
//  2. Building the concrete agents (market scanner, interview analyzer,
//     job matcher) through the Build* helpers
//  3. Draining the event bus periodically via Drainer()
//
// All defaults are safe for local development and testing; production
// deployments supply the sqlite stores, a real JobDispatcher and a
// structured logger.
package agentcore

import (
	"github.com/careerpilot/agentcore/agents"
	"github.com/careerpilot/agentcore/bus"
	"github.com/careerpilot/agentcore/core"
	"github.com/careerpilot/agentcore/logging"
	"github.com/careerpilot/agentcore/loop"
	"github.com/careerpilot/agentcore/memory"
	"github.com/careerpilot/agentcore/model"
)

// Options configures the Core instance.
type Options struct {
	// EventStore persists agent events. Defaults to an in-memory store.
	EventStore core.EventStore

	// MemoryStore persists episodes and facts. Defaults to an in-memory
	// store.
	MemoryStore core.MemoryStore

	// CheckpointStore persists loop snapshots. Optional.
	CheckpointStore core.CheckpointStore

	// Dispatcher hands published events to a job runner. Optional; without
	// one, events stay pending until drained.
	Dispatcher bus.JobDispatcher

	// Loop overrides iteration loop settings for every built agent.
	Loop func(o *loop.Options)

	// Logger defaults to a no-op logger.
	Logger logging.Logger
}

// Core is the high-level façade aggregating the bus, shared stores and
// coordination structures the agents are built on.
type Core struct {
	opts       Options
	eventBus   *bus.Bus
	pubsub     *bus.PubSub
	broker     *bus.Broker
	blackboard *bus.Blackboard
}

// New creates a Core with optional overrides. Any unset store is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Core {
	opts := Options{
		EventStore:  bus.NewInMemoryEventStore(),
		MemoryStore: memory.NewInMemoryStore(),
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	eventBus := bus.New(opts.EventStore, func(o *bus.Options) {
		o.Dispatcher = opts.Dispatcher
		o.Logger = opts.Logger
	})

	return &Core{
		opts:       opts,
		eventBus:   eventBus,
		pubsub:     bus.NewPubSub(func(o *bus.Options) { o.Logger = opts.Logger }),
		broker:     bus.NewBroker(func(o *bus.BrokerOptions) { o.Logger = opts.Logger }),
		blackboard: bus.NewBlackboard(),
	}
}

// Bus returns the durable event bus.
func (c *Core) Bus() *bus.Bus { return c.eventBus }

// PubSub returns the in-process topic broadcaster.
func (c *Core) PubSub() *bus.PubSub { return c.pubsub }

// Broker returns the request/response broker.
func (c *Core) Broker() *bus.Broker { return c.broker }

// Blackboard returns the per-user shared context.
func (c *Core) Blackboard() *bus.Blackboard { return c.blackboard }

// Drainer builds an event drainer over the core's bus.
func (c *Core) Drainer(optFns ...func(o *bus.DrainerOptions)) (*bus.Drainer, error) {
	fns := append([]func(o *bus.DrainerOptions){func(o *bus.DrainerOptions) {
		o.Logger = c.opts.Logger
	}}, optFns...)
	return bus.NewDrainer(c.eventBus, fns...)
}

func (c *Core) agentOptions() func(o *agents.Options) {
	return func(o *agents.Options) {
		o.Bus = c.eventBus
		o.Blackboard = c.blackboard
		o.MemoryStore = c.opts.MemoryStore
		o.CheckpointStore = c.opts.CheckpointStore
		o.Loop = c.opts.Loop
		o.Logger = c.opts.Logger
	}
}

// BuildMarketScanner wires a market scanner agent into the core.
func (c *Core) BuildMarketScanner(mdl model.Model, source agents.PostingSource) (*agents.MarketScannerAgent, error) {
	return agents.NewMarketScanner(mdl, source, c.agentOptions())
}

// BuildInterviewAnalyzer wires an interview analyzer agent into the core
// and registers it as the INTERVIEW_COMPLETED consumer on the given
// drainer when one is passed.
func (c *Core) BuildInterviewAnalyzer(mdl model.Model, drainer *bus.Drainer) (*agents.InterviewAnalyzerAgent, error) {
	analyzer, err := agents.NewInterviewAnalyzer(mdl, c.agentOptions())
	if err != nil {
		return nil, err
	}
	if drainer != nil {
		drainer.Register(core.EventInterviewCompleted, analyzer.HandleInterviewCompleted)
	}
	return analyzer, nil
}

// BuildJobMatcher wires a job matcher agent into the core.
func (c *Core) BuildJobMatcher(mdl model.Model, source agents.PostingSource) (*agents.JobMatcherAgent, error) {
	return agents.NewJobMatcher(mdl, source, c.agentOptions())
}
