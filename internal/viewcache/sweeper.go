package viewcache

import (
	"context"
	"time"

	"github.com/parceldrop/parceldrop-backend/pkg/config"
	"github.com/parceldrop/parceldrop-backend/pkg/logger"
	"github.com/parceldrop/parceldrop-backend/pkg/metrics"
	"github.com/parceldrop/parceldrop-backend/pkg/redis"
)

const sweepJobName = "cache-sweeper"

// Sweeper periodically clears the volatile nearby-search keyspace so a missed
// invalidation can only survive until the next sweep. Each pass is time-boxed
// and independent of request handling.
type Sweeper struct {
	redis   *redis.Client
	cfg     config.CacheConfig
	logg    *logger.Logger
	metrics *metrics.JobMetrics
}

// NewSweeper builds the periodic cache maintenance job.
func NewSweeper(client *redis.Client, cfg config.CacheConfig, logg *logger.Logger, jobMetrics *metrics.JobMetrics) *Sweeper {
	return &Sweeper{
		redis:   client,
		cfg:     cfg,
		logg:    logg,
		metrics: jobMetrics,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

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

func (s *Sweeper) sweepOnce(parent context.Context) {
	ctx := parent
	if s.cfg.SweepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, s.cfg.SweepTimeout)
		defer cancel()
	}

	started := time.Now()
	deleted, err := s.Sweep(ctx)
	s.metrics.ObserveDuration(sweepJobName, time.Since(started))

	if err != nil {
		s.metrics.IncFailure(sweepJobName)
		if s.logg != nil {
			s.logg.Error(ctx, "cache sweep failed", err)
		}
		return
	}

	s.metrics.IncSuccess(sweepJobName)
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "deleted_keys", deleted), "cache sweep complete")
	}
}

// Sweep performs one pass and reports how many keys it removed.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	return s.redis.DeletePattern(ctx, s.redis.NearbySearchPattern())
}
