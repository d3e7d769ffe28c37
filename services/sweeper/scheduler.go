package sweeper

import (
	"context"
	"time"

	"estatehub-marketplace/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Scheduler enqueues the daily expiry sweep at the configured local time.
type Scheduler struct {
	service *Service
	hour    int
	minute  int
}

func NewScheduler(svc *Service, cfg *config.Config) *Scheduler {
	return &Scheduler{
		service: svc,
		hour:    cfg.Sweep.Hour,
		minute:  cfg.Sweep.Minute,
	}
}

func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func (s *Scheduler) run(ctx context.Context) {
	zap.L().Info("[Scheduler] started advertisement expiry scheduler")

	for {
		now := time.Now()
		next := nextRunTime(now, s.hour, s.minute)

		sleepDuration := next.Sub(now)
		zap.L().Info("[Scheduler] next run scheduled",
			zap.Time("next_run", next),
			zap.Duration("sleep_for", sleepDuration),
		)
		select {
		case <-time.After(sleepDuration):
			s.runDaily(ctx)
		case <-ctx.Done():
			zap.L().Warn("[Scheduler] stopped")
			return
		}
	}
}

func (s *Scheduler) runDaily(ctx context.Context) {
	start := time.Now()
	zap.L().Info("[Scheduler] enqueueing daily expiry sweep")

	if err := s.service.Enqueue(ctx); err != nil {
		zap.L().Error("[Scheduler] failed to enqueue expiry sweep", zap.Error(err))
		return
	}

	zap.L().Info("[Scheduler] expiry sweep enqueued",
		zap.Duration("duration", time.Since(start)),
	)
}

func nextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if now.After(next) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
