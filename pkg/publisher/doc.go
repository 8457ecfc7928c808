/*
Package publisher is the write side of Dishpatch: typed, per-event-kind
entry points that perform the durable dual write.

Every publish call runs the same sequence:

 1. Append the event to the durable event log. A failed append is
    logged and counted, and the call proceeds anyway.
 2. Attempt transient delivery through the hub, retrying with bounded
    exponential backoff. Exhausted retries are logged as terminal; the
    event remains recoverable from the durable log.

The contract callers rely on: publish never returns an error and never
panics. An event is a side effect of a business fact that has already
committed; losing real-time delivery must never roll back or block the
fact itself.

	pub := publisher.New(store, hub, publisher.Options{})
	pub.OrderStatusChanged(ctx, events.OrderStatusChanged{
		RestaurantID: "rest-42",
		OrderID:      "ord-7",
		OldStatus:    "preparing",
		NewStatus:    "ready",
	})

A zero Timestamp is stamped at publish time. Payloads over the
transport ceiling are swapped for thin stand-ins on the wire while the
durable record keeps the full payload.
*/
package publisher
