package videogen

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Poller reconciles processing jobs on a fixed interval so results land
// even when no client is polling.
type Poller struct {
	service  *Service
	interval time.Duration
	batches  int
	logger   zerolog.Logger
}

func NewPoller(service *Service, interval time.Duration, batches int, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if batches <= 0 {
		batches = 1
	}
	return &Poller{service: service, interval: interval, batches: batches, logger: logger}
}

// Run ticks until ctx is cancelled and returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info().Dur("interval", p.interval).Int("batches", p.batches).Msg("poller: started")
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		p.Tick(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick reconciles up to batches*MaxBatchSize of the oldest processing jobs,
// one batch at a time. It returns the number of jobs reconciled.
func (p *Poller) Tick(ctx context.Context) int {
	ids, err := p.service.jobs.ListProcessing(ctx, p.batches*MaxBatchSize)
	if err != nil {
		p.logger.Error().Err(err).Msg("poller: list processing jobs")
		return 0
	}
	done := 0
	for start := 0; start < len(ids); start += MaxBatchSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+MaxBatchSize, len(ids))
		done += len(p.service.ReconcileMany(ctx, ids[start:end]))
	}
	if len(ids) > 0 {
		p.logger.Debug().Int("pending", len(ids)).Int("reconciled", done).Msg("poller: tick")
	}
	return done
}
