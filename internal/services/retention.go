package services

import (
	"context"
	"time"

	"github.com/sentinelsoc/soc-core/internal/metrics"
	"github.com/sentinelsoc/soc-core/internal/storage"
	"github.com/sentinelsoc/soc-core/pkg/logger"
)

// RetentionJob purges resolved events older than the retention window. It is
// opt-in and off by default: the service itself never deletes event data
// unless an operator configures retention explicitly.
type RetentionJob struct {
	events   storage.EventStore
	logger   logger.Logger
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewRetentionJob(events storage.EventStore, maxAge, interval time.Duration, log logger.Logger) *RetentionJob {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RetentionJob{
		events:   events,
		logger:   log,
		maxAge:   maxAge,
		interval: interval,
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled. One purge runs immediately on start so
// a service that restarts daily still enforces the window.
func (j *RetentionJob) Run(ctx context.Context) {
	j.logger.Info("retention job started", "max_age", j.maxAge, "interval", j.interval)
	j.purge(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.purge(ctx)
		}
	}
}

func (j *RetentionJob) purge(ctx context.Context) {
	cutoff := j.now().UTC().Add(-j.maxAge)
	n, err := j.events.DeleteResolvedBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("retention purge failed", "error", err)
		return
	}
	if n > 0 {
		metrics.EventsPurged.Add(float64(n))
		j.logger.Info("purged resolved events", "count", n, "cutoff", cutoff)
	}
}
