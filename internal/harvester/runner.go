package harvester

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Runner drives the harvesters on a fixed schedule until its context is
// cancelled.
type Runner struct {
	harvesters []Harvester
	interval   time.Duration
	logger     zerolog.Logger
}

// NewRunner builds a runner. The interval is floored at ten seconds so a
// misconfigured value cannot hammer the feeds.
func NewRunner(harvesters []Harvester, interval time.Duration, logger zerolog.Logger) *Runner {
	if interval < 10*time.Second {
		interval = 10 * time.Second
	}
	return &Runner{
		harvesters: harvesters,
		interval:   interval,
		logger:     logger.With().Str("component", "harvest_runner").Logger(),
	}
}

// Run polls every harvester once per interval. A failing harvester is logged
// and retried next tick; it never stops the loop. Run returns once ctx is
// cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info().Dur("interval", r.interval).Int("harvesters", len(r.harvesters)).Msg("harvest loop started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("harvest loop stopped")
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	for _, h := range r.harvesters {
		if ctx.Err() != nil {
			return
		}
		if err := h.Harvest(ctx); err != nil {
			r.logger.Error().Err(err).Str("harvester", h.Name()).Msg("harvest pass failed")
		}
	}
}
