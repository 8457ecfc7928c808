/*
Package pubsub implements Dishpatch's transient delivery hub on top of
Postgres LISTEN/NOTIFY.

The hub owns exactly two transport connections with fixed roles:

	┌─────────────────────── PUB/SUB HUB ───────────────────────┐
	│                                                            │
	│   notify side                        listen side           │
	│   ┌──────────────┐                 ┌──────────────┐       │
	│   │ Conn (send)  │                 │ Conn (recv)  │       │
	│   │ NOTIFY ch,'p'│ ──► Postgres ──►│ LISTEN ch    │       │
	│   └──────────────┘                 └──────┬───────┘       │
	│         ▲                                  │               │
	│         │                           receive loop           │
	│   Publisher.Notify                         │               │
	│   (single attempt,                  MessageHandler         │
	│    retries upstream)                (dispatcher)           │
	│                                            │               │
	│                              error/closed ─┴─► reconnector │
	└────────────────────────────────────────────────────────────┘

The two handles fail independently: a dead listen connection is routed
to the reconnection controller, a dead notify connection surfaces as a
send error to the publisher's retry wrapper. Neither failure ever
reaches the business logic that produced an event.

# Initialization

Initialize is guarded by a single-flight group: when several publishers
race on a cold hub, the first caller dials and everyone else awaits the
same in-flight result, so concurrent lazy initialization can never leak
a duplicate connection. Calling Initialize on a live hub reuses the
existing handles.

# Connection ownership

Postgres allows one in-flight command per connection, and a pending
notification wait counts as one. Initialize therefore subscribes the
recorded channel set before the receive loop takes the listen
connection, and the loop owns that connection exclusively from then on:
Subscribe and Unsubscribe queue their commands and interrupt the loop's
wait, and the loop executes them between waits. The notify side is a
plain command connection guarded by a mutex, so concurrent publishers
serialize instead of colliding.

# Escaping

NOTIFY commands are assembled as text, so any quote character in a
payload could terminate the outer quoting. quoteLiteral doubles embedded
single quotes before send; payloads round-trip byte-identical through
the transport.

# Reconnection

On listen-side loss the reconnector schedules a single timer after a
fixed delay (a second loss signal while one is pending is a no-op). The
timer fires a full cycle: Cleanup, Initialize, resubscribe the complete
channel registry. Success resets the attempt counter; failure re-enters
the wait with the counter advanced. After the configured maximum the hub
gives up permanently: IsConnected reports false until the process is
restarted, and the dishpatch_reconnect_gaveup metric flips to 1.

Events published while disconnected are not redelivered on the
transient path; consumers recover them from the durable event log.

# Cleanup

Cleanup cancels any pending reconnect timer, stops the receive loop and
closes both handles, swallowing (but logging) close errors. It is
idempotent and safe to call from process-exit signal handlers.
*/
package pubsub
