package bonus

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Transaction is one evaluated bonus opportunity, accepted or rejected. It is
// the audit trail of record: exactly one of {receivable with amount > 0} or
// {rejected with amount 0 and lost reasons} holds, and rows are never mutated
// after creation except for the claim flag flip during settlement.
//
// The unique index on (beneficiary, reward event, tier) makes duplicate
// attempts for the same reward event a storage-level no-op, which is what
// keeps the daily job re-runnable.
type Transaction struct {
	ID             string         `gorm:"column:id;primaryKey"`
	BeneficiaryID  string         `gorm:"column:beneficiary_id;index;uniqueIndex:idx_bonus_attempt"`
	SourceUserID   string         `gorm:"column:source_user_id;index"`
	Tier           string         `gorm:"column:tier;uniqueIndex:idx_bonus_attempt"`
	RewardEventRef string         `gorm:"column:reward_event_ref;uniqueIndex:idx_bonus_attempt"`
	Amount         float64        `gorm:"column:amount"`
	TokenAmount    float64        `gorm:"column:token_amount"`
	TokenPrice     float64        `gorm:"column:token_price"`
	Receivable     bool           `gorm:"column:receivable"`
	LostReasons    datatypes.JSON `gorm:"column:lost_reasons"`
	Claimed        bool           `gorm:"column:claimed;index"`
	ClaimID        string         `gorm:"column:claim_id;index"`
	Level          int            `gorm:"column:level"`
	Meta           datatypes.JSON `gorm:"column:meta"`

	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Transaction) TableName() string {
	return "bonus_transactions"
}

// AttemptMeta is the free-form reward metadata stored on each attempt.
type AttemptMeta struct {
	Level   int     `json:"level"`
	Percent float64 `json:"percent,omitempty"`
	Excess  bool    `json:"excess,omitempty"`
}
