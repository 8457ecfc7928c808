package events

import (
	"encoding/json"
	"fmt"
)

// ErrUnknownChannel is returned when decoding a payload for a channel
// outside the fixed registry
var ErrUnknownChannel = fmt.Errorf("unknown channel")

// Encode serializes an event to its compact wire form. The same
// encoding is used for the transient transport payload and for the
// durable event log.
func Encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", ev.Channel(), err)
	}
	return data, nil
}

// Decode parses a wire payload back into the event variant for the
// given channel. The switch is exhaustive over the registry; adding a
// channel without extending it is a compile-time visible gap.
func Decode(ch Channel, data []byte) (Event, error) {
	var (
		ev  Event
		err error
	)

	switch ch {
	case ChannelOrderCreated:
		var e OrderCreated
		err = json.Unmarshal(data, &e)
		ev = e
	case ChannelOrderStatusChanged:
		var e OrderStatusChanged
		err = json.Unmarshal(data, &e)
		ev = e
	case ChannelOrderItemStatusChanged:
		var e OrderItemStatusChanged
		err = json.Unmarshal(data, &e)
		ev = e
	case ChannelKitchenNotification:
		var e KitchenNotification
		err = json.Unmarshal(data, &e)
		ev = e
	case ChannelRestaurantNotification:
		var e RestaurantNotification
		err = json.Unmarshal(data, &e)
		ev = e
	case ChannelPaymentCompleted:
		var e PaymentCompleted
		err = json.Unmarshal(data, &e)
		ev = e
	case ChannelTableStatusChanged:
		var e TableStatusChanged
		err = json.Unmarshal(data, &e)
		ev = e
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", ch, err)
	}
	return ev, nil
}

// EncodeThin produces a minimal stand-in payload for events whose full
// encoding exceeds the transport's payload ceiling. It carries only the
// tenant id, the timestamp, and a thin marker; consumers recover the
// full event from the durable log. The result decodes into the same
// variant as the original (missing fields zero-valued).
func EncodeThin(ev Event) []byte {
	data, _ := json.Marshal(map[string]interface{}{
		"restaurant_id": ev.Restaurant(),
		"timestamp":     ev.OccurredAt(),
		"thin":          true,
	})
	return data
}
