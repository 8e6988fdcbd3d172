package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	pkgasynq "stakemine/pkg/asynq"
	"stakemine/pkg/config"
	"stakemine/pkg/db"
	"stakemine/pkg/featureflags"
	"stakemine/pkg/logger"
	"stakemine/pkg/profiling"
	"stakemine/pkg/redis"
	"stakemine/services/bonus"
	"stakemine/services/budget"
	"stakemine/services/claim"
	"stakemine/services/machine"
	"stakemine/services/member"
	"stakemine/services/oracle"
	"stakemine/services/referral"
	"stakemine/services/reward"
	"stakemine/services/wallet"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		featureflags.Module,
		profiling.Module,
		pkgasynq.Client,
		pkgasynq.Server,
		fx.Provide(provideSnowflakeNode),

		machine.Module,
		member.Module,
		referral.Module,
		budget.Module,
		bonus.Module,
		oracle.Module,
		wallet.Module,
		reward.Module,
		reward.WorkerModule,
		reward.SchedulerModule,
		claim.Module,

		fx.Invoke(migrate),
		fx.Invoke(registerDBTelemetry),
		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func registerDBTelemetry(cfg *config.Config, gdb *gorm.DB) error {
	if err := db.Otel(gdb); err != nil {
		return err
	}
	return db.Metric(gdb, cfg.Database.DBNAME)
}

func migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&machine.Machine{},
		&member.Member{},
		&referral.Edge{},
		&budget.Entry{},
		&bonus.Transaction{},
		&oracle.TokenPrice{},
		&wallet.Transaction{},
		&wallet.Due{},
		&reward.JobRecord{},
		&reward.RewardEvent{},
		&reward.Settings{},
		&claim.Settlement{},
	)
}
