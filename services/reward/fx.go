package reward

import (
	"go.uber.org/fx"
)

var Module = fx.Module("reward.service",
	fx.Provide(NewService),
)

// WorkerModule wires the asynq handler; only the worker process loads it.
var WorkerModule = fx.Module("reward.worker",
	fx.Invoke(RegisterHandlers),
)

// SchedulerModule owns the daily trigger loop.
var SchedulerModule = fx.Module("reward.scheduler",
	fx.Provide(NewScheduler),
	fx.Invoke(StartScheduler),
)
