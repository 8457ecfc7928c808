package publisher

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dishpatch/dishpatch/pkg/eventlog"
	"github.com/dishpatch/dishpatch/pkg/events"
	"github.com/dishpatch/dishpatch/pkg/log"
	"github.com/dishpatch/dishpatch/pkg/metrics"
)

// Notifier is the transient-delivery half of the dual write,
// implemented by the pub/sub hub
type Notifier interface {
	Notify(ctx context.Context, ch events.Channel, payload string) error
}

// Options configures the publish path
type Options struct {
	// MaxAttempts bounds transient-send attempts per publish call
	MaxAttempts int

	// BaseDelay and MaxDelay shape the retry backoff:
	// min(base * 2^(attempt-1), cap)
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// MaxPayloadBytes caps the transient payload; larger events go out
	// as thin stand-ins while the durable copy keeps the full payload
	MaxPayloadBytes int
}

// Publisher performs the durable dual write for every event kind:
// append to the event log first, then attempt transient delivery.
// No failure on either step ever reaches the caller; the business
// transaction that produced the event completes regardless.
type Publisher struct {
	store    eventlog.Store
	notifier Notifier
	opts     Options
	logger   zerolog.Logger
}

// New creates a publisher. Zero option fields get safe defaults.
func New(store eventlog.Store, notifier Notifier, opts Options) *Publisher {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 5 * time.Second
	}
	if opts.MaxPayloadBytes <= 0 {
		opts.MaxPayloadBytes = 7500
	}
	return &Publisher{
		store:    store,
		notifier: notifier,
		opts:     opts,
		logger:   log.WithComponent("publisher"),
	}
}

// OrderCreated publishes an order-created event
func (p *Publisher) OrderCreated(ctx context.Context, ev events.OrderCreated) {
	if ev.Timestamp == 0 {
		ev.Timestamp = events.NowMillis()
	}
	p.publish(ctx, ev)
}

// OrderStatusChanged publishes an order status transition
func (p *Publisher) OrderStatusChanged(ctx context.Context, ev events.OrderStatusChanged) {
	if ev.Timestamp == 0 {
		ev.Timestamp = events.NowMillis()
	}
	p.publish(ctx, ev)
}

// OrderItemStatusChanged publishes a line-item status transition
func (p *Publisher) OrderItemStatusChanged(ctx context.Context, ev events.OrderItemStatusChanged) {
	if ev.Timestamp == 0 {
		ev.Timestamp = events.NowMillis()
	}
	p.publish(ctx, ev)
}

// KitchenNotification publishes a kitchen display message
func (p *Publisher) KitchenNotification(ctx context.Context, ev events.KitchenNotification) {
	if ev.Timestamp == 0 {
		ev.Timestamp = events.NowMillis()
	}
	p.publish(ctx, ev)
}

// RestaurantNotification publishes a front-of-house message
func (p *Publisher) RestaurantNotification(ctx context.Context, ev events.RestaurantNotification) {
	if ev.Timestamp == 0 {
		ev.Timestamp = events.NowMillis()
	}
	p.publish(ctx, ev)
}

// PaymentCompleted publishes a settled payment
func (p *Publisher) PaymentCompleted(ctx context.Context, ev events.PaymentCompleted) {
	if ev.Timestamp == 0 {
		ev.Timestamp = events.NowMillis()
	}
	p.publish(ctx, ev)
}

// TableStatusChanged publishes a table availability change
func (p *Publisher) TableStatusChanged(ctx context.Context, ev events.TableStatusChanged) {
	if ev.Timestamp == 0 {
		ev.Timestamp = events.NowMillis()
	}
	p.publish(ctx, ev)
}

// publish is the dual write: durable append, then transient delivery
// with bounded retry. Both failures are terminal for this call only.
func (p *Publisher) publish(ctx context.Context, ev events.Event) {
	channel := ev.Channel()
	logger := log.WithRestaurantID(log.WithChannel(p.logger, string(channel)), ev.Restaurant())

	payload, err := events.Encode(ev)
	if err != nil {
		metrics.EventsPublished.WithLabelValues(string(channel), "encode_error").Inc()
		logger.Error().Err(err).Msg("failed to encode event, nothing published")
		return
	}

	rec := &eventlog.Record{
		EventType:    string(channel),
		EventData:    string(payload),
		RestaurantID: ev.Restaurant(),
	}
	if err := p.store.Append(ctx, rec); err != nil {
		metrics.StoreAppendFailures.Inc()
		logger.Error().Err(err).Msg("durable append failed, attempting transient delivery anyway")
	}

	wire := payload
	if len(wire) > p.opts.MaxPayloadBytes {
		metrics.OversizedPayloads.WithLabelValues(string(channel)).Inc()
		logger.Warn().
			Int("payload_bytes", len(wire)).
			Int("ceiling", p.opts.MaxPayloadBytes).
			Msg("payload exceeds transport ceiling, sending thin stand-in")
		wire = events.EncodeThin(ev)
	}

	if err := p.notifyWithRetry(ctx, channel, string(wire), logger); err != nil {
		metrics.EventsPublished.WithLabelValues(string(channel), "realtime_failed").Inc()
		logger.Error().Err(err).
			Int("attempts", p.opts.MaxAttempts).
			Msg("transient delivery exhausted, event recoverable from durable log only")
		return
	}

	metrics.EventsPublished.WithLabelValues(string(channel), "ok").Inc()
}
