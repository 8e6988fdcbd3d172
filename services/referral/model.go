package referral

import (
	"time"
)

// Edge is a single sponsor link in the referral tree. The upline of a user is
// recovered by walking sponsor pointers; tree construction itself happens in
// the onboarding flow, outside this engine.
type Edge struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	SponsorID string    `gorm:"column:sponsor_id;index"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Edge) TableName() string {
	return "referral_edges"
}
