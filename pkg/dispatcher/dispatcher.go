package dispatcher

import (
	"github.com/rs/zerolog"

	"github.com/dishpatch/dishpatch/pkg/broker"
	"github.com/dishpatch/dishpatch/pkg/events"
	"github.com/dishpatch/dishpatch/pkg/log"
	"github.com/dishpatch/dishpatch/pkg/metrics"
)

// Dispatcher converts inbound transport notifications into decoded
// events and re-emits them on the internal broker. It is a pure format
// bridge: no business interpretation happens here.
type Dispatcher struct {
	broker *broker.Broker
	logger zerolog.Logger
}

// New creates a dispatcher publishing to the given broker
func New(b *broker.Broker) *Dispatcher {
	return &Dispatcher{
		broker: b,
		logger: log.WithComponent("dispatcher"),
	}
}

// Dispatch handles one inbound (channel, payload) pair. A malformed
// payload is logged and skipped; later notifications are unaffected.
func (d *Dispatcher) Dispatch(channel, payload string) {
	ev, err := events.Decode(events.Channel(channel), []byte(payload))
	if err != nil {
		metrics.MalformedPayloads.Inc()
		logger := log.WithChannel(d.logger, channel)
		logger.Warn().Err(err).
			Msg("dropping undecodable notification")
		return
	}

	metrics.NotificationsDispatched.WithLabelValues(channel).Inc()
	d.broker.Publish(broker.Message{
		Channel: ev.Channel(),
		Payload: payload,
		Event:   ev,
	})
}
