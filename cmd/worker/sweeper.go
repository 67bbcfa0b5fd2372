package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/vehicle-checker/internal/observability/metrics"
)

const defaultSweepInterval = time.Hour

type expiredSweeper interface {
	ClearExpired(ctx context.Context) (int, error)
}

type sweeper struct {
	cache   expiredSweeper
	metrics *metrics.WorkerMetrics
	logger  *slog.Logger
	now     func() time.Time
}

func newSweeper(cache expiredSweeper, m *metrics.WorkerMetrics, logger *slog.Logger) *sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &sweeper{cache: cache, metrics: m, logger: logger, now: time.Now}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	s.sweepOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *sweeper) sweepOnce(ctx context.Context) (int, error) {
	if s.metrics != nil {
		s.metrics.StartSweep()
	}
	started := s.now()
	removed, err := s.cache.ClearExpired(ctx)
	finished := s.now()
	if s.metrics != nil {
		s.metrics.FinishSweep(serviceName, finished, finished.Sub(started), removed, err)
	}
	if err != nil {
		s.logger.Warn("cache_sweep_failed", "error", err)
		return removed, err
	}
	s.logger.Info("cache_sweep_done", "removed", removed, "duration_ms", finished.Sub(started).Milliseconds())
	return removed, nil
}
