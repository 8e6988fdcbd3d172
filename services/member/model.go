package member

import (
	"time"

	"gorm.io/gorm"
)

// Member carries the account-level flags the eligibility evaluator reads.
// BuilderMultiplier amplifies generational bonus percentages when > 1; it is
// produced by the builder-referral programme outside this engine.
type Member struct {
	ID                string  `gorm:"column:id;primaryKey"`
	Blocked           bool    `gorm:"column:blocked"`
	DirectBlocked     bool    `gorm:"column:direct_blocked"`
	GenerationBlocked bool    `gorm:"column:generation_blocked"`
	MatchingBlocked   bool    `gorm:"column:matching_blocked"`
	BuilderMultiplier float64 `gorm:"column:builder_multiplier"`

	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Member) TableName() string {
	return "members"
}
