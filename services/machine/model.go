package machine

import (
	"time"

	"gorm.io/gorm"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusExpired  Status = "EXPIRED"
)

// Machine is a staking position. It earns a daily reward while ACTIVE and
// inside its [StartAt, EndAt) window. Rows are never hard-deleted.
type Machine struct {
	ID           string    `gorm:"column:id;primaryKey"`
	OwnerID      string    `gorm:"column:owner_id;index"`
	Name         string    `gorm:"column:name"`
	Collateral   float64   `gorm:"column:collateral"`
	ProductPrice float64   `gorm:"column:product_price"`
	Uncapped     bool      `gorm:"column:uncapped"`
	Status       Status    `gorm:"column:status;index"`
	StartAt      time.Time `gorm:"column:start_at"`
	EndAt        time.Time `gorm:"column:end_at"`

	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Machine) TableName() string {
	return "machines"
}
