package machine

import (
	"context"
	"time"

	"stakemine/pkg/db/option"
	"stakemine/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	machines repository.Repository[Machine]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,

		machines: repository.ProvideStore[Machine](p.DB),
	}
}

// Create registers a new staking position. Staking flows own the lifecycle;
// the reward job only reads machines and compounds collateral.
func (s *Service) Create(ctx context.Context, m *Machine) (*Machine, error) {
	if m.ID == "" {
		m.ID = s.node.Generate().String()
	}
	if err := s.machines.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ActiveInWindow returns every ACTIVE machine whose [start, end) window
// covers asOf. This is the daily reward job's work set.
func (s *Service) ActiveInWindow(ctx context.Context, asOf time.Time) ([]*Machine, error) {
	var out []*Machine
	err := s.db.WithContext(ctx).
		Where("status = ?", StatusActive).
		Where("start_at <= ? AND end_at > ?", asOf, asOf).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DailyCapFor derives the per-day bonus ceiling for a user: the product price
// of their highest-valued ACTIVE machine. nil means unlimited (an uncapped
// machine is held); a user with no active machine gets a zero cap, though the
// machine-eligibility gate rejects such users before the cap matters.
func (s *Service) DailyCapFor(ctx context.Context, userID string) (*float64, error) {
	var rows []*Machine
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND status = ?", userID, StatusActive).
		Order("product_price DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	cap := 0.0
	for _, m := range rows {
		if m.Uncapped {
			return nil, nil
		}
		if m.ProductPrice > cap {
			cap = m.ProductPrice
		}
	}
	return &cap, nil
}

// HasEligible reports whether the user holds an ACTIVE machine whose
// collateral meets the minimum threshold for receiving bonuses.
func (s *Service) HasEligible(ctx context.Context, userID string, minCollateral float64) (bool, error) {
	n, err := s.machines.Count(ctx, &Machine{OwnerID: userID, Status: StatusActive},
		option.ApplyOperator(option.Condition{
			Field:    "collateral",
			Operator: option.GTE,
			Value:    minCollateral,
		}))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddCollateral increments a machine's accumulated stake (auto-compound).
func (s *Service) AddCollateral(ctx context.Context, tx *gorm.DB, machineID string, amount float64) error {
	db := s.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Model(&Machine{}).
		Where("id = ?", machineID).
		Updates(map[string]any{
			"collateral": gorm.Expr("collateral + ?", amount),
			"updated_at": time.Now(),
		}).Error
}
