// Package bus is a session-scoped publish/subscribe hub for UI components.
//
// Dispatch is synchronous: Publish runs every handler for the event's
// topic before returning, in subscription order, and batches the
// commands they return. Components only publish from inside a bubbletea
// Update, so handlers never run concurrently with each other.
package bus

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Topic names a stream of events.
type Topic string

// Event is anything published on the bus.
type Event interface {
	Topic() Topic
}

// Handler reacts to an event and may return follow-up work.
type Handler func(Event) tea.Cmd

type subscription struct {
	id      uint64
	handler Handler
}

// Bus routes events to subscribers of their topic.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Topic][]subscription
	logger *slog.Logger
}

// New creates an empty bus. A nil logger uses slog.Default.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[Topic][]subscription),
		logger: logger,
	}
}

// Subscribe registers handler for topic and returns its unsubscribe
// function. Unsubscribing twice is harmless.
func (b *Bus) Subscribe(topic Topic, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subs[topic]
		for i, s := range subs {
			if s.id == id {
				b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// On subscribes a handler typed to one concrete event type.
func On[T Event](b *Bus, handler func(T) tea.Cmd) func() {
	var zero T
	return b.Subscribe(zero.Topic(), func(e Event) tea.Cmd {
		typed, ok := e.(T)
		if !ok {
			return nil
		}
		return handler(typed)
	})
}

// Publish delivers event to every subscriber of its topic and returns
// the batched commands they produced. Nil-safe: publishing on a nil bus
// is a no-op.
func (b *Bus) Publish(event Event) tea.Cmd {
	if b == nil || event == nil {
		return nil
	}
	topic := event.Topic()

	b.mu.RLock()
	handlers := make([]subscription, len(b.subs[topic]))
	copy(handlers, b.subs[topic])
	b.mu.RUnlock()

	b.logger.Debug("bus publish", "topic", string(topic), "subscribers", len(handlers))

	cmds := make([]tea.Cmd, 0, len(handlers))
	for _, s := range handlers {
		cmds = append(cmds, b.call(topic, s.handler, event))
	}
	return tea.Batch(cmds...)
}

// Subscribers reports how many handlers listen on topic.
func (b *Bus) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func (b *Bus) call(topic Topic, handler Handler, event Event) (cmd tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bus handler panic",
				"topic", string(topic),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			cmd = nil
		}
	}()
	return handler(event)
}
