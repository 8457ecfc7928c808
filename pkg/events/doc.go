/*
Package events defines the fixed channel registry and the closed set of
event types Dishpatch distributes.

Every event belongs to exactly one restaurant (the tenant boundary) and
to exactly one channel. The channel set is a closed enumeration: one
channel per event kind, identical before and after any reconnection.

# Channels

	order_created              New order placed
	order_status_changed       Order moved between workflow states
	order_item_status_changed  Single line item changed state
	kitchen_notification       Free-form message for kitchen displays
	restaurant_notification    Free-form message for front-of-house staff
	payment_completed          Payment settled
	table_status_changed       Table availability changed

# Event Union

Event is a closed sum type: one struct variant per channel, sealed to
this package. Both the publish boundary (typed publisher entry points)
and the decode boundary (Decode's exhaustive switch) enumerate every
variant, so adding a new event kind is a compile-time-visible change at
every call site.

All variants carry:

  - RestaurantID: the tenant the event is scoped to
  - Timestamp: milliseconds since the Unix epoch

# Wire Encoding

Events serialize to compact JSON with snake_case keys. The same bytes
are written to the durable event log and sent as the transient
transport payload:

	ev := events.OrderStatusChanged{
		RestaurantID: "rest-42",
		Timestamp:    events.NowMillis(),
		OrderID:      "ord-7",
		OldStatus:    "preparing",
		NewStatus:    "ready",
	}
	data, err := events.Encode(ev)
	// {"restaurant_id":"rest-42","timestamp":...,"order_id":"ord-7",...}

	decoded, err := events.Decode(events.ChannelOrderStatusChanged, data)

Payloads that would exceed the transport's size ceiling are replaced on
the transient path by EncodeThin, a marker payload that decodes into the
same variant with only tenant id and timestamp populated; the full event
survives in the durable log.
*/
package events
