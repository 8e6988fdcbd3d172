package reward

import (
	"context"
	"encoding/json"
	"time"

	queue "stakemine/pkg/asynq"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Enqueue submits a daily reward task for the given run date (YYYY-MM-DD)
// onto the rewards queue. The scheduler calls this once per day; operators
// can call it again to replay a day, the run itself is idempotent.
func (s *Service) Enqueue(ctx context.Context, runDate string) error {
	payload, _ := json.Marshal(queue.DailyRewardPayload{RunDate: runDate})
	task := asynq.NewTask(queue.DailyRewardTask, payload)

	info, err := s.asynq.EnqueueContext(ctx, task, asynq.Queue(queue.QueueRewards))
	if err != nil {
		zap.L().Error("failed to enqueue daily reward task",
			zap.String("run_date", runDate),
			zap.Error(err),
		)
		return err
	}

	zap.L().Info("enqueued daily reward task",
		zap.String("run_date", runDate),
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue),
	)
	return nil
}

// HandleDailyRewardTask is the asynq worker entrypoint. It decodes the
// payload and delegates to Run.
func (s *Service) HandleDailyRewardTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DailyRewardPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		zap.L().Error("invalid daily reward payload", zap.Error(err))
		return err
	}

	asOf := time.Now()
	if payload.RunDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", payload.RunDate, time.Local)
		if err != nil {
			zap.L().Error("invalid run_date in daily reward payload",
				zap.String("run_date", payload.RunDate),
				zap.Error(err),
			)
			return err
		}
		asOf = parsed
	}

	_, err := s.Run(ctx, asOf)
	return err
}

func RegisterHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(queue.DailyRewardTask, svc.HandleDailyRewardTask)
}
