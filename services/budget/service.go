package budget

import (
	"context"

	"stakemine/pkg/errutil"
	"stakemine/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	entries repository.Repository[Entry]
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

		entries: repository.ProvideStore[Entry](p.DB),
	}
}

// Credit appends an IN entry. Called when staking activity grants budget;
// the multiplier in force at credit time is pinned on the row. tx may be nil
// to write outside any transaction.
func (s *Service) Credit(ctx context.Context, tx *gorm.DB, userID string, amount float64, sourceRef string, multiplier float64) (*Entry, error) {
	if amount <= 0 {
		return nil, errutil.BadRequest("credit amount must be > 0", nil)
	}

	entry := &Entry{
		ID:         s.node.Generate().String(),
		UserID:     userID,
		Direction:  DirectionIn,
		Amount:     amount,
		SourceRef:  sourceRef,
		Multiplier: multiplier,
	}
	if err := s.entries.WithTrx(tx).Create(ctx, entry); err != nil {
		zap.L().Error("failed to append budget credit", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return entry, nil
}

// Debit appends an OUT entry. The ledger does not enforce a floor; the
// eligibility evaluator is responsible for preventing overspend before a
// debit is issued. tx may be nil to write outside any transaction.
func (s *Service) Debit(ctx context.Context, tx *gorm.DB, userID string, amount float64, sourceRef string) (*Entry, error) {
	if amount <= 0 {
		return nil, errutil.BadRequest("debit amount must be > 0", nil)
	}

	entry := &Entry{
		ID:        s.node.Generate().String(),
		UserID:    userID,
		Direction: DirectionOut,
		Amount:    amount,
		SourceRef: sourceRef,
	}
	if err := s.entries.WithTrx(tx).Create(ctx, entry); err != nil {
		zap.L().Error("failed to append budget debit", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return entry, nil
}

// NetBalance reduces the ledger to sum(IN) - sum(OUT) over non-deleted rows.
// It is always computed from source rows so concurrent writers can never
// leave a stale cached value behind.
func (s *Service) NetBalance(ctx context.Context, userID string) (float64, error) {
	var net float64
	err := s.db.WithContext(ctx).Model(&Entry{}).
		Select("COALESCE(SUM(CASE WHEN direction = ? THEN amount ELSE -amount END), 0)", DirectionIn).
		Where("user_id = ?", userID).
		Scan(&net).Error
	if err != nil {
		return 0, err
	}
	return net, nil
}
