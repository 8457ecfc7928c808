package pubsub

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dishpatch/dishpatch/pkg/events"
	"github.com/dishpatch/dishpatch/pkg/log"
	"github.com/dishpatch/dishpatch/pkg/metrics"
)

// reconnectTimeout bounds one full reconnection attempt
// (teardown + dial + resubscribe)
const reconnectTimeout = 30 * time.Second

// reconnector manages bounded, delayed reconnection of the hub after a
// lost listen-side connection.
//
// State machine: Connected -> AwaitingReconnect -> Reconnecting ->
// Connected | GivingUp. At most one reconnect timer is pending at any
// moment; the attempt counter resets only after a fully successful
// reconnection. GivingUp is terminal and requires a process restart.
type reconnector struct {
	hub         *Hub
	delay       time.Duration
	maxAttempts int
	logger      zerolog.Logger

	mu       sync.Mutex
	attempts int
	timer    *time.Timer
	gaveUp   bool
}

func newReconnector(hub *Hub, delay time.Duration, maxAttempts int) *reconnector {
	return &reconnector{
		hub:         hub,
		delay:       delay,
		maxAttempts: maxAttempts,
		logger:      log.WithComponent("reconnect"),
	}
}

// connectionLost enters AwaitingReconnect. A second signal while a
// timer is already pending is a no-op, so racing error and closed
// signals schedule exactly one attempt.
func (r *reconnector) connectionLost() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gaveUp || r.timer != nil {
		return
	}

	r.attempts++
	if r.attempts > r.maxAttempts {
		r.gaveUp = true
		metrics.ReconnectGaveUp.Set(1)
		r.logger.Error().
			Int("max_attempts", r.maxAttempts).
			Msg("reconnection attempts exhausted, hub stays down until restart")
		return
	}

	metrics.ReconnectAttempts.Inc()
	r.logger.Warn().
		Int("attempt", r.attempts).
		Int("max_attempts", r.maxAttempts).
		Dur("delay", r.delay).
		Msg("connection lost, scheduling reconnection")

	r.timer = time.AfterFunc(r.delay, r.reconnect)
}

// reconnect tears the hub down and rebuilds it subscribed to the
// complete channel registry. Subscribing through a cold hub makes
// initialization issue every subscribe command before the receive loop
// takes the fresh connection; partial resubscription is never
// attempted. Failure re-enters AwaitingReconnect under the same
// bounded-attempt logic.
func (r *reconnector) reconnect() {
	r.mu.Lock()
	r.timer = nil
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), reconnectTimeout)
	defer cancel()

	r.hub.Cleanup()

	err := r.hub.Subscribe(ctx, events.AllChannels()...)

	if err != nil {
		metrics.ReconnectFailures.Inc()
		r.logger.Error().Err(err).Msg("reconnection attempt failed")
		r.connectionLost()
		return
	}

	r.mu.Lock()
	r.attempts = 0
	r.mu.Unlock()

	r.logger.Info().Msg("reconnected, all channels resubscribed")
}

// cancelTimer stops a pending reconnection, if any
func (r *reconnector) cancelTimer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// pending reports whether a reconnect timer is outstanding
func (r *reconnector) pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer != nil
}
