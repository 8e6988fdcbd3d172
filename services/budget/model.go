package budget

import (
	"time"

	"gorm.io/gorm"
)

type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Entry is one credit or debit against a user's spendable reward budget
// (GASK). The ledger is append-only: the current budget is always the sum
// over rows, never a mutable counter, so any balance can be rebuilt by
// replay.
type Entry struct {
	ID        string    `gorm:"column:id;primaryKey"`
	UserID    string    `gorm:"column:user_id;index"`
	Direction Direction `gorm:"column:direction"`
	Amount    float64   `gorm:"column:amount"`
	SourceRef string    `gorm:"column:source_ref;index"`
	// Multiplier is the staking multiplier in force when the credit was
	// written. Changing the global multiplier later must not reprice past
	// credits, so it is pinned on the row.
	Multiplier float64 `gorm:"column:multiplier"`

	CreatedAt time.Time      `gorm:"column:created_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Entry) TableName() string {
	return "budget_entries"
}
