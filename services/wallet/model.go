package wallet

import (
	"time"
)

// Transaction is a wallet movement. The claim flow only ever creates CREDIT
// rows; deposits, withdrawals and swaps are owned by the wallet surface
// outside this engine.
type Transaction struct {
	ID          string    `gorm:"column:id;primaryKey"`
	UserID      string    `gorm:"column:user_id;index"`
	TokenSymbol string    `gorm:"column:token_symbol"`
	Amount      float64   `gorm:"column:amount"`
	Kind        string    `gorm:"column:kind"`
	Reference   string    `gorm:"column:reference;index"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (Transaction) TableName() string {
	return "wallet_transactions"
}

// Due is the user's outstanding debt, offset against claims before any
// wallet credit is issued.
type Due struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	Amount    float64   `gorm:"column:amount"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Due) TableName() string {
	return "wallet_dues"
}

const KindCredit = "CREDIT"
