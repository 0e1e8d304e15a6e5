// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package events broadcasts structured agent events to observers.
// Events are a side channel: nothing in the mandate chain depends on
// whether anyone is listening.
//
// Each subscriber gets its own buffered channel seeded with recent
// history. Fan-out never blocks the emitter: when a subscriber's
// buffer is full the event is dropped for that subscriber and it is
// flagged [Subscription.Lagged].
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/ap2/lib/clock"
)

// Agent names the component an event originates from.
type Agent string

const (
	AgentOrchestrator Agent = "orchestrator"
	AgentShopping     Agent = "shopping"
	AgentMandate      Agent = "mandate"
	AgentPayment      Agent = "payment"
)

// Type classifies an event.
type Type string

const (
	TypeStart    Type = "start"
	TypeToolCall Type = "tool_call"
	TypeResult   Type = "result"
	TypeError    Type = "error"
	TypeComplete Type = "complete"
)

// Event is one broadcast record.
type Event struct {
	Timestamp time.Time      `cbor:"timestamp" json:"timestamp"`
	Agent     Agent          `cbor:"agent" json:"agent"`
	Type      Type           `cbor:"type" json:"type"`
	Message   string         `cbor:"message" json:"message"`
	Data      map[string]any `cbor:"data,omitempty" json:"data,omitempty"`
}

// Defaults used when Config fields are zero.
const (
	DefaultHistory    = 100
	DefaultBufferSize = 64
)

// Config sizes a Broadcaster.
type Config struct {
	// History is how many recent events are retained for replay.
	History int

	// BufferSize is each subscriber's channel capacity beyond the
	// replayed events.
	BufferSize int
}

// Broadcaster fans events out to subscribers.
type Broadcaster struct {
	clock      clock.Clock
	capacity   int
	bufferSize int

	mu          sync.Mutex
	history     []Event
	subscribers map[*Subscription]struct{}
}

// NewBroadcaster returns a Broadcaster with no subscribers.
func NewBroadcaster(clk clock.Clock, config Config) *Broadcaster {
	if clk == nil {
		clk = clock.Real()
	}
	if config.History <= 0 {
		config.History = DefaultHistory
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBufferSize
	}
	return &Broadcaster{
		clock:       clk,
		capacity:    config.History,
		bufferSize:  config.BufferSize,
		subscribers: make(map[*Subscription]struct{}),
	}
}

// Emit timestamps and broadcasts an event, returning it.
func (b *Broadcaster) Emit(agent Agent, eventType Type, message string, data map[string]any) Event {
	event := Event{
		Timestamp: b.clock.Now(),
		Agent:     agent,
		Type:      eventType,
		Message:   message,
		Data:      data,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.history = append(b.history, event)
	if overflow := len(b.history) - b.capacity; overflow > 0 {
		b.history = append(b.history[:0], b.history[overflow:]...)
	}

	for subscription := range b.subscribers {
		select {
		case subscription.channel <- event:
		default:
			subscription.lagged.Store(true)
		}
	}
	return event
}

// Recent returns up to n of the most recent events, oldest first.
// n <= 0 returns the whole history.
func (b *Broadcaster) Recent(n int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recentLocked(n)
}

func (b *Broadcaster) recentLocked(n int) []Event {
	start := 0
	if n > 0 && n < len(b.history) {
		start = len(b.history) - n
	}
	return append([]Event{}, b.history[start:]...)
}

// Clear drops the history. Subscribers stay connected.
func (b *Broadcaster) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = nil
}

// Subscribers returns the number of open subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Subscribe opens a subscription whose channel first yields the last
// replay events of history, then live events.
func (b *Broadcaster) Subscribe(replay int) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	var seed []Event
	if replay > 0 {
		seed = b.recentLocked(replay)
	}
	channel := make(chan Event, len(seed)+b.bufferSize)
	for _, event := range seed {
		channel <- event
	}

	subscription := &Subscription{broadcaster: b, channel: channel, C: channel}
	b.subscribers[subscription] = struct{}{}
	return subscription
}

// Subscription is one observer's view of the stream.
type Subscription struct {
	// C yields events until Close.
	C <-chan Event

	broadcaster *Broadcaster
	channel     chan Event
	lagged      atomic.Bool
	closeOnce   sync.Once
}

// Lagged reports whether any event was dropped because the buffer was
// full.
func (s *Subscription) Lagged() bool {
	return s.lagged.Load()
}

// Close unsubscribes and closes C. Idempotent.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.broadcaster.mu.Lock()
		delete(s.broadcaster.subscribers, s)
		s.broadcaster.mu.Unlock()
		close(s.channel)
	})
}
