package publisher

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/dishpatch/dishpatch/pkg/events"
	"github.com/dishpatch/dishpatch/pkg/metrics"
)

// notifyWithRetry attempts the single-send up to MaxAttempts times.
// Randomization is disabled so delays follow min(base * 2^(attempt-1),
// cap) exactly. Retries are bounded by attempt count, not wall clock.
func (p *Publisher) notifyWithRetry(ctx context.Context, ch events.Channel, payload string, logger zerolog.Logger) error {
	bo := &backoff.ExponentialBackOff{
		InitialInterval:     p.opts.BaseDelay,
		MaxInterval:         p.opts.MaxDelay,
		Multiplier:          2,
		RandomizationFactor: 0,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	bo.Reset()

	attempt := 0
	op := func() error {
		attempt++
		err := p.notifier.Notify(ctx, ch, payload)
		if err != nil {
			metrics.PublishRetries.WithLabelValues(string(ch)).Inc()
			logger.Warn().Err(err).
				Int("attempt", attempt).
				Int("max_attempts", p.opts.MaxAttempts).
				Msg("transient send failed")
		}
		return err
	}

	retries := uint64(p.opts.MaxAttempts - 1)
	return backoff.Retry(op, backoff.WithMaxRetries(backoff.WithContext(bo, ctx), retries))
}
