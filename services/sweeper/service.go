package sweeper

import (
	"context"
	"time"

	"estatehub-marketplace/pkg/rediskey"
	"estatehub-marketplace/pkg/repository"
	"estatehub-marketplace/pkg/task"
	"estatehub-marketplace/pkg/taskname"
	"estatehub-marketplace/services/advertisement"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sweepLockTTL = 10 * time.Minute

type Service struct {
	node *snowflake.Node
	jobs repository.Repository[SweepJob]

	ads      *advertisement.Service
	enqueuer task.Enqueuer
	rdb      *redis.Client
}

type ServiceParams struct {
	fx.In
	DB             *gorm.DB
	Node           *snowflake.Node
	Advertisements *advertisement.Service
	Enqueuer       task.Enqueuer
	Redis          *redis.Client
}

func NewService(p ServiceParams) *Service {
	return &Service{
		node:     p.Node,
		jobs:     repository.ProvideStore[SweepJob](p.DB),
		ads:      p.Advertisements,
		enqueuer: p.Enqueuer,
		rdb:      p.Redis,
	}
}

// Enqueue puts one expiry run on the queue. The scheduler calls this on its
// daily tick; failures are left for the next tick.
func (s *Service) Enqueue(ctx context.Context) error {
	_, err := s.enqueuer.Enqueue(asynq.NewTask(taskname.AdvertisementExpiryRun, nil))
	if err != nil {
		zap.L().Error("failed to enqueue expiry run", zap.Error(err))
	}
	return err
}

// HandleExpiryRun is the asynq handler behind taskname.AdvertisementExpiryRun.
// A short-lived redis lock keeps overlapping workers from double-sweeping.
func (s *Service) HandleExpiryRun(ctx context.Context, _ *asynq.Task) error {
	lockKey := rediskey.BuildSweepLockKey(JobNameAdvertisementExpiry)

	ok, err := s.rdb.SetNX(ctx, lockKey, time.Now().Unix(), sweepLockTTL).Result()
	if err != nil {
		zap.L().Error("failed to take sweep lock", zap.Error(err))
		return err
	}
	if !ok {
		zap.L().Warn("sweep already running, skipping", zap.String("lock_key", lockKey))
		return nil
	}
	defer func() {
		if err := s.rdb.Del(context.WithoutCancel(ctx), lockKey).Err(); err != nil {
			zap.L().Warn("failed to release sweep lock", zap.Error(err))
		}
	}()

	_, err = s.RunSweep(ctx, time.Now())
	return err
}

// RunSweep expires everything past its end date and records the run as a
// SweepJob row.
func (s *Service) RunSweep(ctx context.Context, now time.Time) (*SweepJob, error) {
	started := time.Now()

	job := &SweepJob{
		ID:        s.node.Generate().String(),
		Name:      JobNameAdvertisementExpiry,
		Status:    JobStatusRunning,
		StartedAt: &started,
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	count, err := s.ads.ExpireAds(ctx, now)

	completed := time.Now()
	updates := map[string]any{
		"completed_at":  completed,
		"expired_count": count,
	}
	if err != nil {
		updates["status"] = JobStatusFailed
		updates["error_msg"] = err.Error()
	} else {
		updates["status"] = JobStatusSuccess
	}

	if uerr := s.jobs.Update(ctx, job.ID, updates); uerr != nil {
		zap.L().Error("failed to record sweep result", zap.String("job_id", job.ID), zap.Error(uerr))
	}

	if err != nil {
		zap.L().Error("sweep run failed", zap.String("job_id", job.ID), zap.Error(err))
		return nil, err
	}

	return s.jobs.FindOne(ctx, &SweepJob{ID: job.ID})
}
