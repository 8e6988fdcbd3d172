package claim

import (
	"time"
)

// Settlement is the audit row for one successful claim: the gross unclaimed
// total, the debt netted out of it, and the wallet credit actually issued.
type Settlement struct {
	ID           string    `gorm:"column:id;primaryKey"`
	UserID       string    `gorm:"column:user_id;index"`
	GrossAmount  float64   `gorm:"column:gross_amount"`
	DebtDeducted float64   `gorm:"column:debt_deducted"`
	NetAmount    float64   `gorm:"column:net_amount"`
	WalletTxID   string    `gorm:"column:wallet_tx_id"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (Settlement) TableName() string {
	return "claim_settlements"
}
