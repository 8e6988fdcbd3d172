package reward

import (
	"time"

	"gorm.io/datatypes"
)

// JobStatus is the lifecycle state of one daily run.
type JobStatus string

const (
	StatusNotInitiated   JobStatus = "NOT_INITIATED"
	StatusRunning        JobStatus = "RUNNING"
	StatusSuccess        JobStatus = "SUCCESS"
	StatusPartialSuccess JobStatus = "PARTIAL_SUCCESS"
	StatusFailed         JobStatus = "FAILED"
)

// JobRecord is the audit row for one calendar day's reward run. RunDate is
// unique so re-invoking the job for the same day reuses the record instead of
// spawning a second run.
type JobRecord struct {
	ID            string         `gorm:"column:id;primaryKey"`
	RunDate       string         `gorm:"column:run_date;uniqueIndex"`
	Status        JobStatus      `gorm:"column:status"`
	TotalMachines int            `gorm:"column:total_machines"`
	StartedAt     *time.Time     `gorm:"column:started_at"`
	CompletedAt   *time.Time     `gorm:"column:completed_at"`
	DurationMS    int64          `gorm:"column:duration_ms"`
	Failures      datatypes.JSON `gorm:"column:failures"`
	CreatedAt     time.Time      `gorm:"column:created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at"`
}

func (JobRecord) TableName() string {
	return "reward_jobs"
}

// MachineFailure is one isolated per-machine error captured in the job's
// failure list. The run continues past it.
type MachineFailure struct {
	MachineID string `json:"machine_id"`
	Message   string `json:"message"`
}

// RewardEvent anchors idempotency per machine per day. Compounded flips once
// the base reward has been staked back and budget-credited; Completed flips
// once the distribution cascade has finished. A resumed run skips whatever
// already happened.
type RewardEvent struct {
	ID         string    `gorm:"column:id;primaryKey"`
	MachineID  string    `gorm:"column:machine_id;uniqueIndex:idx_machine_day"`
	RunDate    string    `gorm:"column:run_date;uniqueIndex:idx_machine_day"`
	OwnerID    string    `gorm:"column:owner_id;index"`
	Amount     float64   `gorm:"column:amount"`
	TokenPrice float64   `gorm:"column:token_price"`
	Compounded bool      `gorm:"column:compounded"`
	Completed  bool      `gorm:"column:completed"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (RewardEvent) TableName() string {
	return "reward_events"
}

// Settings is the single mutable row of reward parameters. The job reads it
// once per run into a Snapshot; mid-run edits only affect the next run.
type Settings struct {
	ID                   string    `gorm:"column:id;primaryKey"`
	RewardsEnabled       bool      `gorm:"column:rewards_enabled"`
	StakingMultiplier    float64   `gorm:"column:staking_multiplier"`
	DirectPercent        float64   `gorm:"column:direct_percent"`
	GenerationPercent    float64   `gorm:"column:generation_percent"`
	MinActiveFirstLine   int       `gorm:"column:min_active_first_line"`
	MinMachineCollateral float64   `gorm:"column:min_machine_collateral"`
	DailyYieldPercent    float64   `gorm:"column:daily_yield_percent"`
	UpdatedAt            time.Time `gorm:"column:updated_at"`
}

func (Settings) TableName() string {
	return "reward_settings"
}

const settingsID = "global"

func defaultSettings() *Settings {
	return &Settings{
		ID:                 settingsID,
		RewardsEnabled:     true,
		StakingMultiplier:  1,
		DirectPercent:      10,
		GenerationPercent:  5,
		MinActiveFirstLine: 1,
		DailyYieldPercent:  0.5,
	}
}

// Snapshot is the immutable view of settings plus the pinned token price for
// one run. Everything downstream of Run reads the snapshot, never the table.
type Snapshot struct {
	RunDate string
	AsOf    time.Time

	RewardsEnabled       bool
	StakingMultiplier    float64
	DirectPercent        float64
	GenerationPercent    float64
	MinActiveFirstLine   int
	MinMachineCollateral float64
	DailyYieldPercent    float64

	TokenSymbol string
	Price       float64
}

func snapshotOf(s *Settings, runDate string, asOf time.Time) *Snapshot {
	return &Snapshot{
		RunDate:              runDate,
		AsOf:                 asOf,
		RewardsEnabled:       s.RewardsEnabled,
		StakingMultiplier:    s.StakingMultiplier,
		DirectPercent:        s.DirectPercent,
		GenerationPercent:    s.GenerationPercent,
		MinActiveFirstLine:   s.MinActiveFirstLine,
		MinMachineCollateral: s.MinMachineCollateral,
		DailyYieldPercent:    s.DailyYieldPercent,
	}
}
