package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sentinelsoc/soc-core/internal/metrics"
	"github.com/sentinelsoc/soc-core/pkg/cache"
	"github.com/sentinelsoc/soc-core/pkg/logger"
)

const evaluateLockKey = "scheduler:evaluate"

// Scheduler drives periodic rule evaluation. A pass that overruns the tick
// interval is never stacked: the next tick is skipped and counted. Across
// replicas, a short-lived cache lock elects one evaluator per tick.
type Scheduler struct {
	engine   *AlertEngine
	notifier *Notifier
	cache    cache.Valkey
	logger   logger.Logger
	interval time.Duration
	reset    chan time.Duration
	inFlight atomic.Bool
}

func NewScheduler(engine *AlertEngine, notifier *Notifier, c cache.Valkey, interval time.Duration, log logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Scheduler{
		engine:   engine,
		notifier: notifier,
		cache:    c,
		logger:   log,
		interval: interval,
		reset:    make(chan time.Duration, 1),
	}
}

// SetInterval changes the tick interval from the next tick onward. Safe to
// call from the config watcher goroutine.
func (s *Scheduler) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case s.reset <- d:
	default:
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Info("alert scheduler started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("alert scheduler stopped")
			return
		case d := <-s.reset:
			s.interval = d
			ticker.Reset(d)
			s.logger.Info("alert scheduler interval updated", "interval", d)
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		metrics.SchedulerTicksSkipped.Inc()
		s.logger.Warn("evaluation pass still running, tick skipped")
		return
	}

	ok, err := s.cache.AcquireLock(ctx, evaluateLockKey, s.interval)
	if err != nil {
		s.logger.Warn("evaluation lock errored, proceeding solo", "error", err)
	} else if !ok {
		// another replica owns this tick
		s.inFlight.Store(false)
		return
	}

	go func() {
		defer s.inFlight.Store(false)
		s.runPass(ctx)
	}()
}

func (s *Scheduler) runPass(ctx context.Context) {
	start := time.Now()
	triggered, err := s.engine.EvaluateAllRules(ctx)
	metrics.EvaluationPassDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("evaluation pass failed", "error", err)
		return
	}
	for _, rule := range triggered {
		s.notifier.Enqueue(rule)
	}
	if len(triggered) > 0 {
		s.logger.Info("evaluation pass fired rules", "count", len(triggered), "took", time.Since(start))
	}
}
