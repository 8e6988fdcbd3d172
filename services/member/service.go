package member

import (
	"context"

	"stakemine/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	members repository.Repository[Member]
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

		members: repository.ProvideStore[Member](p.DB),
	}
}

// Get returns the member's flags. A user without a row is treated as an
// unblocked member with the neutral multiplier, so absence never blocks a
// payout evaluation.
func (s *Service) Get(ctx context.Context, userID string) (*Member, error) {
	m, err := s.members.FindOne(ctx, &Member{ID: userID})
	if err != nil {
		return nil, err
	}
	if m == nil {
		return &Member{ID: userID, BuilderMultiplier: 1}, nil
	}
	if m.BuilderMultiplier < 1 {
		m.BuilderMultiplier = 1
	}
	return m, nil
}

func (s *Service) Upsert(ctx context.Context, m *Member) error {
	return s.db.WithContext(ctx).Save(m).Error
}
