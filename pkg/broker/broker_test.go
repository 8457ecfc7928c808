package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dishpatch/dishpatch/pkg/events"
)

func TestPublishDeliversInRegistrationOrder(t *testing.T) {
	b := New()

	var order []string
	b.Subscribe(func(Message) { order = append(order, "first") })
	b.Subscribe(func(Message) { order = append(order, "second") })
	b.Subscribe(func(Message) { order = append(order, "third") })

	b.Publish(Message{Channel: events.ChannelOrderCreated})

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()

	calls := 0
	id := b.Subscribe(func(Message) { calls++ })

	b.Publish(Message{Channel: events.ChannelOrderCreated})
	b.Unsubscribe(id)
	b.Publish(Message{Channel: events.ChannelOrderCreated})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.ListenerCount())

	// Unsubscribing twice is harmless
	b.Unsubscribe(id)
}

func TestOrderPreservedAcrossUnsubscribe(t *testing.T) {
	b := New()

	var order []string
	b.Subscribe(func(Message) { order = append(order, "a") })
	id := b.Subscribe(func(Message) { order = append(order, "b") })
	b.Subscribe(func(Message) { order = append(order, "c") })

	b.Unsubscribe(id)
	b.Publish(Message{Channel: events.ChannelPaymentCompleted})

	assert.Equal(t, []string{"a", "c"}, order)
}

// TestCeilingIsNotFunctional verifies registrations past the ceiling
// still succeed; the ceiling only flags suspected leaks
func TestCeilingIsNotFunctional(t *testing.T) {
	b := NewWithCeiling(2)

	for i := 0; i < 5; i++ {
		b.Subscribe(func(Message) {})
	}

	assert.Equal(t, 5, b.ListenerCount())

	delivered := 0
	b.Subscribe(func(Message) { delivered++ })
	b.Publish(Message{Channel: events.ChannelTableStatusChanged})
	assert.Equal(t, 1, delivered)
}
