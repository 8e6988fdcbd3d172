package referral

import (
	"context"

	"stakemine/pkg/repository"
	"stakemine/services/machine"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB

	edges repository.Repository[Edge]
}

type ServiceParams struct {
	fx.In
	DB *gorm.DB
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:    p.DB,
		edges: repository.ProvideStore[Edge](p.DB),
	}
}

func (s *Service) Link(ctx context.Context, userID, sponsorID string) error {
	return s.edges.Create(ctx, &Edge{UserID: userID, SponsorID: sponsorID})
}

// Upline walks sponsor pointers from userID to the tree root and returns the
// ordered ancestor chain (closest first). The walk is iterative with a
// visited guard, so a corrupt edge set cannot recurse or loop forever.
func (s *Service) Upline(ctx context.Context, userID string) ([]string, error) {
	var chain []string
	visited := map[string]bool{userID: true}

	current := userID
	for {
		edge, err := s.edges.FindOne(ctx, &Edge{UserID: current})
		if err != nil {
			return nil, err
		}
		if edge == nil || edge.SponsorID == "" {
			return chain, nil
		}
		if visited[edge.SponsorID] {
			zap.L().Warn("referral cycle detected, truncating upline walk",
				zap.String("user_id", userID),
				zap.String("at", edge.SponsorID),
			)
			return chain, nil
		}

		visited[edge.SponsorID] = true
		chain = append(chain, edge.SponsorID)
		current = edge.SponsorID
	}
}

// FirstLineActiveCount counts direct downlines that hold at least one ACTIVE
// machine. The direct-referral tier requires a minimum of these.
func (s *Service) FirstLineActiveCount(ctx context.Context, userID string) (int, error) {
	sub := s.db.Model(&machine.Machine{}).
		Select("owner_id").
		Where("status = ?", machine.StatusActive)

	var n int64
	err := s.db.WithContext(ctx).Model(&Edge{}).
		Where("sponsor_id = ?", userID).
		Where("user_id IN (?)", sub).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
