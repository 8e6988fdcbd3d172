package reward

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"stakemine/pkg/config"
	"stakemine/pkg/featureflags"
	"stakemine/pkg/repository"
	"stakemine/services/bonus"
	"stakemine/services/budget"
	"stakemine/services/machine"
	"stakemine/services/member"
	"stakemine/services/oracle"
	"stakemine/services/referral"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FlagRewardsEnabled is the flagsmith kill switch. When a client is
// configured it overrides the settings row.
const FlagRewardsEnabled = "rewards_job_enabled"

type Service struct {
	db    *gorm.DB
	node  *snowflake.Node
	cfg   *config.Config
	asynq *asynq.Client
	flags featureflags.FeatureFlag

	machines  *machine.Service
	members   *member.Service
	referrals *referral.Service
	budget    *budget.Service
	bonus     *bonus.Service
	oracle    oracle.PriceOracle

	settings repository.Repository[Settings]
	jobs     repository.Repository[JobRecord]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config
	Asynq  *asynq.Client `optional:"true"`
	Flags  featureflags.FeatureFlag

	Machines  *machine.Service
	Members   *member.Service
	Referrals *referral.Service
	Budget    *budget.Service
	Bonus     *bonus.Service
	Oracle    oracle.PriceOracle
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:    p.DB,
		node:  p.Node,
		cfg:   p.Config,
		asynq: p.Asynq,
		flags: p.Flags,

		machines:  p.Machines,
		members:   p.Members,
		referrals: p.Referrals,
		budget:    p.Budget,
		bonus:     p.Bonus,
		oracle:    p.Oracle,

		settings: repository.ProvideStore[Settings](p.DB),
		jobs:     repository.ProvideStore[JobRecord](p.DB),
	}
}

// Run executes the daily reward batch for the day containing asOf. It is safe
// to invoke more than once for the same day: machines whose reward event is
// already completed are skipped and the bonus ledger's uniqueness guard
// absorbs anything that slips through.
func (s *Service) Run(ctx context.Context, asOf time.Time) (*JobRecord, error) {
	span := trace.SpanFromContext(ctx)
	log := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	runDate := asOf.Format("2006-01-02")

	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}
	snap := snapshotOf(settings, runDate, asOf)
	snap.TokenSymbol = s.cfg.Reward.TokenSymbol

	if enabled, ok := s.flags.Enabled(ctx, FlagRewardsEnabled); ok {
		snap.RewardsEnabled = enabled
	}

	job, err := s.openJob(ctx, runDate)
	if err != nil {
		return nil, err
	}
	if job.Status == StatusSuccess {
		log.Info("reward run already succeeded, skipping", zap.String("run_date", runDate))
		return job, nil
	}

	if !snap.RewardsEnabled {
		log.Warn("rewards disabled, run not initiated", zap.String("run_date", runDate))
		return job, s.finalize(ctx, job, StatusNotInitiated, 0, nil)
	}

	started := time.Now()
	job.Status = StatusRunning
	job.StartedAt = &started
	if err := s.jobs.Update(ctx, job.ID, map[string]any{
		"status":     StatusRunning,
		"started_at": started,
	}); err != nil {
		return nil, err
	}

	price, err := s.oracle.CurrentPrice(ctx)
	if err != nil {
		log.Error("failed to resolve token price, run failed", zap.Error(err))
		return job, s.finalize(ctx, job, StatusFailed, 0, []MachineFailure{{Message: "token price unavailable: " + err.Error()}})
	}
	snap.Price = price

	machines, err := s.machines.ActiveInWindow(ctx, asOf)
	if err != nil {
		log.Error("failed to list active machines, run failed", zap.Error(err))
		return job, s.finalize(ctx, job, StatusFailed, 0, []MachineFailure{{Message: "machine listing failed: " + err.Error()}})
	}

	var (
		mu       sync.Mutex
		failures []MachineFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Reward.Concurrency)
	for _, m := range machines {
		g.Go(func() error {
			if err := s.processMachine(gctx, snap, m); err != nil {
				log.Error("machine reward failed",
					zap.String("machine_id", m.ID),
					zap.String("run_date", runDate),
					zap.Error(err),
				)
				mu.Lock()
				failures = append(failures, MachineFailure{MachineID: m.ID, Message: err.Error()})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	status := StatusSuccess
	if len(failures) > 0 {
		status = StatusPartialSuccess
	}
	if err := s.finalize(ctx, job, status, len(machines), failures); err != nil {
		return nil, err
	}

	log.Info("reward run finished",
		zap.String("run_date", runDate),
		zap.String("status", string(status)),
		zap.Int("machines", len(machines)),
		zap.Int("failures", len(failures)),
		zap.Duration("duration", time.Since(started)),
	)
	return job, nil
}

func (s *Service) loadSettings(ctx context.Context) (*Settings, error) {
	row, err := s.settings.FindOne(ctx, &Settings{ID: settingsID})
	if err != nil {
		return nil, err
	}
	if row == nil {
		return defaultSettings(), nil
	}
	return row, nil
}

func (s *Service) openJob(ctx context.Context, runDate string) (*JobRecord, error) {
	job := &JobRecord{
		ID:      s.node.Generate().String(),
		RunDate: runDate,
		Status:  StatusNotInitiated,
	}
	err := s.db.WithContext(ctx).
		Where(&JobRecord{RunDate: runDate}).
		FirstOrCreate(job).Error
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Service) finalize(ctx context.Context, job *JobRecord, status JobStatus, total int, failures []MachineFailure) error {
	now := time.Now()
	job.Status = status
	job.TotalMachines = total
	job.CompletedAt = &now
	if job.StartedAt != nil {
		job.DurationMS = now.Sub(*job.StartedAt).Milliseconds()
	}
	if len(failures) > 0 {
		raw, _ := json.Marshal(failures)
		job.Failures = datatypes.JSON(raw)
	}
	return s.jobs.Update(ctx, job.ID, map[string]any{
		"status":         job.Status,
		"total_machines": job.TotalMachines,
		"completed_at":   now,
		"duration_ms":    job.DurationMS,
		"failures":       job.Failures,
	})
}

// processMachine rewards one machine: pin the reward event, compound the base
// reward into collateral and budget, then run the distribution cascade.
func (s *Service) processMachine(ctx context.Context, snap *Snapshot, m *machine.Machine) error {
	base := m.Collateral * snap.DailyYieldPercent / 100
	if base <= 0 {
		return fmt.Errorf("non-positive base reward for machine %s", m.ID)
	}

	ev := &RewardEvent{
		ID:         s.node.Generate().String(),
		MachineID:  m.ID,
		RunDate:    snap.RunDate,
		OwnerID:    m.OwnerID,
		Amount:     base,
		TokenPrice: snap.Price,
	}
	err := s.db.WithContext(ctx).
		Where(&RewardEvent{MachineID: m.ID, RunDate: snap.RunDate}).
		FirstOrCreate(ev).Error
	if err != nil {
		return err
	}
	if ev.Completed {
		zap.L().Debug("reward event already completed, skipping",
			zap.String("machine_id", m.ID),
			zap.String("run_date", snap.RunDate),
		)
		return nil
	}

	if !ev.Compounded {
		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.machines.AddCollateral(ctx, tx, m.ID, base); err != nil {
				return err
			}
			if _, err := s.budget.Credit(ctx, tx, m.OwnerID, base*snap.StakingMultiplier, ev.ID, snap.StakingMultiplier); err != nil {
				return err
			}
			return tx.WithContext(ctx).Model(&RewardEvent{}).
				Where("id = ?", ev.ID).
				Update("compounded", true).Error
		})
		if err != nil {
			return err
		}
		ev.Compounded = true
	}

	if err := s.distribute(ctx, snap, ev); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Model(&RewardEvent{}).
		Where("id = ?", ev.ID).
		Update("completed", true).Error
}
