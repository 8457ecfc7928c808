package eventlog

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dishpatch/dishpatch/pkg/log"
	"github.com/dishpatch/dishpatch/pkg/metrics"
)

// DefaultSweepInterval is how often the janitor checks for expired records
const DefaultSweepInterval = time.Hour

// Janitor enforces the event retention window by periodically pruning
// records older than the configured number of days
type Janitor struct {
	store         Store
	retentionDays int
	interval      time.Duration
	logger        zerolog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewJanitor creates a retention janitor. A zero interval selects the
// default hourly sweep.
func NewJanitor(store Store, retentionDays int, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Janitor{
		store:         store,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        log.WithComponent("eventlog-janitor"),
		stopCh:        make(chan struct{}),
	}
}

// Start begins the sweep loop
func (j *Janitor) Start() {
	go j.run()
}

// Stop stops the sweep loop
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stopCh)
	})
}

func (j *Janitor) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep()
		case <-j.stopCh:
			return
		}
	}
}

func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -j.retentionDays)
	pruned, err := j.store.Prune(ctx, cutoff)
	if err != nil {
		j.logger.Error().Err(err).Msg("retention sweep failed")
		return
	}

	if pruned > 0 {
		metrics.EventsPruned.Add(float64(pruned))
		j.logger.Info().
			Int("pruned", pruned).
			Time("cutoff", cutoff).
			Msg("expired event records removed")
	}
}
