package bus

import (
	"sync"

	"github.com/careerpilot/agentcore/core"
	"github.com/careerpilot/agentcore/logging"
)

// historySize bounds the per-topic replay buffer.
const historySize = 100

// Message is a single pub/sub notification.
type Message struct {
	Topic   string
	Sender  string
	Payload map[string]any
}

// MessageHandler consumes a pub/sub message.
type MessageHandler func(msg Message)

type subscriber struct {
	id      string
	handler MessageHandler
}

type topicState struct {
	subscribers []subscriber
	history     []Message
}

// PubSub is an in-process topic broadcaster for lightweight coordination
// signals that do not need durability. Each topic keeps a bounded history
// so late subscribers can inspect recent traffic. Handlers run on their
// own goroutines and a panicking handler never takes down the publisher
// or its sibling subscribers.
type PubSub struct {
	mu     sync.RWMutex
	topics map[string]*topicState
	logger logging.Logger
}

// NewPubSub creates an empty PubSub.
func NewPubSub(optFns ...func(o *Options)) *PubSub {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &PubSub{topics: make(map[string]*topicState), logger: opts.Logger}
}

// Subscribe registers a handler for a topic and returns an unsubscribe
// function. Unsubscribing twice is harmless.
func (p *PubSub) Subscribe(topic string, handler MessageHandler) func() {
	id := core.NewID()

	p.mu.Lock()
	st := p.topics[topic]
	if st == nil {
		st = &topicState{}
		p.topics[topic] = st
	}
	st.subscribers = append(st.subscribers, subscriber{id: id, handler: handler})
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		st, ok := p.topics[topic]
		if !ok {
			return
		}
		for i, sub := range st.subscribers {
			if sub.id == id {
				st.subscribers = append(st.subscribers[:i], st.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Publish appends the message to the topic history and invokes every
// subscriber on its own goroutine. Publishing to a topic with no
// subscribers still records the message.
func (p *PubSub) Publish(topic, sender string, payload map[string]any) {
	msg := Message{Topic: topic, Sender: sender, Payload: payload}

	p.mu.Lock()
	st := p.topics[topic]
	if st == nil {
		st = &topicState{}
		p.topics[topic] = st
	}
	st.history = append(st.history, msg)
	if len(st.history) > historySize {
		st.history = st.history[len(st.history)-historySize:]
	}
	subs := make([]subscriber, len(st.subscribers))
	copy(subs, st.subscribers)
	p.mu.Unlock()

	for _, sub := range subs {
		go p.deliver(sub, msg)
	}
}

func (p *PubSub) deliver(sub subscriber, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Subscriber panicked", "topic", msg.Topic, "panic", r)
		}
	}()
	sub.handler(msg)
}

// History returns a copy of the topic's retained messages, oldest first.
func (p *PubSub) History(topic string) []Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st, ok := p.topics[topic]
	if !ok {
		return nil
	}
	out := make([]Message, len(st.history))
	copy(out, st.history)
	return out
}

// SubscriberCount returns the number of live subscriptions on a topic.
func (p *PubSub) SubscriberCount(topic string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st, ok := p.topics[topic]
	if !ok {
		return 0
	}
	return len(st.subscribers)
}
