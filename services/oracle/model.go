package oracle

import (
	"time"
)

// TokenPrice is one observed price point for the reward token. The feed
// ingestion that appends rows lives outside this engine; the reward job only
// reads the latest observation.
type TokenPrice struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Symbol    string    `gorm:"column:symbol;index"`
	Price     float64   `gorm:"column:price"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

func (TokenPrice) TableName() string {
	return "token_prices"
}
