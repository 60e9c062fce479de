// Package notify fans warnings out from the detection engine to its
// collaborators (statistics aggregation, websocket delivery, anything else
// the host wires in).
package notify

import (
	"sync"

	"strobeguard/internal/session"
)

// WarningHandler receives warnings published on the bus.
type WarningHandler interface {
	HandleWarning(w *session.Warning)
}

// WarningHandlerFunc adapts a function to the WarningHandler interface.
type WarningHandlerFunc func(w *session.Warning)

// HandleWarning implements WarningHandler.
func (f WarningHandlerFunc) HandleWarning(w *session.Warning) {
	f(w)
}

// WarningBus provides pub/sub for warnings. Handlers are invoked
// synchronously in publish order; channel subscribers receive warnings
// non-blocking and may miss them if their buffer is full.
type WarningBus struct {
	subscribers map[*subscription]bool
	mu          sync.RWMutex
}

type subscription struct {
	sourceFilter string // empty means all sources
	channel      chan *session.Warning
	handler      WarningHandler
}

// NewWarningBus creates an empty bus.
func NewWarningBus() *WarningBus {
	return &WarningBus{
		subscribers: make(map[*subscription]bool),
	}
}

// Subscribe registers a handler for warnings from all sources.
// Returns an unsubscribe function.
func (b *WarningBus) Subscribe(handler WarningHandler) func() {
	return b.add(&subscription{handler: handler})
}

// SubscribeSource registers a handler for warnings from one source.
// Returns an unsubscribe function.
func (b *WarningBus) SubscribeSource(sourceID string, handler WarningHandler) func() {
	return b.add(&subscription{sourceFilter: sourceID, handler: handler})
}

// SubscribeChannel returns a buffered channel receiving all warnings, plus
// an unsubscribe function that also closes the channel.
func (b *WarningBus) SubscribeChannel(bufferSize int) (<-chan *session.Warning, func()) {
	if bufferSize <= 0 {
		bufferSize = 10
	}
	ch := make(chan *session.Warning, bufferSize)
	sub := &subscription{channel: ch}

	b.mu.Lock()
	b.subscribers[sub] = true
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[sub]; ok {
			delete(b.subscribers, sub)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, unsubscribe
}

func (b *WarningBus) add(sub *subscription) func() {
	b.mu.Lock()
	b.subscribers[sub] = true
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, sub)
		b.mu.Unlock()
	}
}

// Publish delivers a warning to all matching subscribers.
func (b *WarningBus) Publish(w *session.Warning) {
	if w == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		if sub.sourceFilter != "" && sub.sourceFilter != w.SourceID {
			continue
		}
		if sub.handler != nil {
			sub.handler.HandleWarning(w)
		} else if sub.channel != nil {
			select {
			case sub.channel <- w:
			default:
				// Subscriber fell behind, drop for this channel.
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *WarningBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close unsubscribes everything and closes subscriber channels.
func (b *WarningBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subscribers {
		if sub.channel != nil {
			close(sub.channel)
		}
		delete(b.subscribers, sub)
	}
}
