package reward

import (
	"context"
	"time"

	"stakemine/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Scheduler struct {
	service *Service
	cfg     *config.Config
}

func NewScheduler(svc *Service, cfg *config.Config) *Scheduler {
	return &Scheduler{service: svc, cfg: cfg}
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
	zap.L().Info("[Scheduler] started daily reward scheduler",
		zap.Int("run_hour", s.cfg.Reward.RunHour),
		zap.Int("run_minute", s.cfg.Reward.RunMinute),
	)

	for {
		now := time.Now()
		next := nextRunTime(now, s.cfg.Reward.RunHour, s.cfg.Reward.RunMinute)

		zap.L().Info("[Scheduler] next run scheduled",
			zap.Time("next_run", next),
			zap.Duration("sleep_for", next.Sub(now)),
		)
		select {
		case <-time.After(next.Sub(now)):
			s.enqueueDaily(ctx)
		case <-ctx.Done():
			zap.L().Warn("[Scheduler] stopped")
			return
		}
	}
}

func (s *Scheduler) enqueueDaily(ctx context.Context) {
	runDate := time.Now().Format("2006-01-02")
	if err := s.service.Enqueue(ctx, runDate); err != nil {
		zap.L().Error("[Scheduler] failed to enqueue daily reward run",
			zap.String("run_date", runDate),
			zap.Error(err),
		)
	}
}

func nextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if now.After(next) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
