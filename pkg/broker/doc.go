/*
Package broker provides the in-process hand-off point between the
notification dispatcher and fan-out consumers.

The broker is a synchronous observer registry: listeners are invoked in
registration order for every published message, and a message is never
dropped because a listener is slow. This makes listener lifetime and
back-pressure explicit, in contrast to an implicit global event bus.

	b := broker.New()
	id := b.Subscribe(func(msg broker.Message) {
		// tenant filtering, per-connection delivery, etc.
	})
	defer b.Unsubscribe(id)

A generous listener ceiling (DefaultMaxListeners) guards against
subscription leaks; crossing it logs a warning but never rejects a
registration.
*/
package broker
