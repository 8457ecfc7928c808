package broker

import (
	"sync"

	"github.com/dishpatch/dishpatch/pkg/events"
	"github.com/dishpatch/dishpatch/pkg/log"
	"github.com/dishpatch/dishpatch/pkg/metrics"
)

// DefaultMaxListeners bounds the listener registry. The ceiling exists
// to surface leaks, not to limit fan-out: crossing it logs a warning
// and registration still succeeds.
const DefaultMaxListeners = 100

// Message is what the dispatcher hands to fan-out consumers: the
// channel, the raw wire payload, and the decoded event.
type Message struct {
	Channel events.Channel
	Payload string
	Event   events.Event
}

// Handler receives messages synchronously, in registration order
type Handler func(Message)

// Broker is the in-process hand-off point between the notification
// dispatcher and fan-out consumers. It is an explicit, constructed
// instance owned by the composition root, not a global bus.
type Broker struct {
	mu           sync.RWMutex
	nextID       int
	order        []int
	handlers     map[int]Handler
	maxListeners int
}

// New creates a broker with the default listener ceiling
func New() *Broker {
	return NewWithCeiling(DefaultMaxListeners)
}

// NewWithCeiling creates a broker with an explicit listener ceiling
func NewWithCeiling(maxListeners int) *Broker {
	return &Broker{
		handlers:     make(map[int]Handler),
		maxListeners: maxListeners,
	}
}

// Subscribe registers a handler and returns its subscription id
func (b *Broker) Subscribe(h Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.order = append(b.order, id)

	if len(b.handlers) > b.maxListeners {
		logger := log.WithComponent("broker")
		logger.Warn().
			Int("listeners", len(b.handlers)).
			Int("ceiling", b.maxListeners).
			Msg("listener count exceeds ceiling, possible leak")
	}

	metrics.BrokerListeners.Set(float64(len(b.handlers)))
	return id
}

// Unsubscribe removes a handler by subscription id
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.handlers[id]; !ok {
		return
	}
	delete(b.handlers, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}

	metrics.BrokerListeners.Set(float64(len(b.handlers)))
}

// Publish delivers a message to every listener, synchronously and in
// registration order. Handlers run to completion before the next one
// is invoked; slow handlers delay delivery rather than drop messages.
func (b *Broker) Publish(msg Message) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(msg)
	}
}

// ListenerCount returns the number of registered listeners
func (b *Broker) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
