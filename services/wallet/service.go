package wallet

import (
	"context"
	"time"

	"stakemine/pkg/errutil"
	"stakemine/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Service is the wallet collaborator contract the settlement flow consumes.
type Service interface {
	// Credit writes a wallet credit and returns the transaction id. A tx is
	// passed so the credit commits or rolls back with the settlement.
	Credit(ctx context.Context, tx *gorm.DB, userID, symbol string, amount float64, reference string) (string, error)
	// DueBalance returns the user's outstanding debt.
	DueBalance(ctx context.Context, userID string) (float64, error)
	// SettleDue reduces the outstanding debt by amount.
	SettleDue(ctx context.Context, tx *gorm.DB, userID string, amount float64) error
}

type service struct {
	db   *gorm.DB
	node *snowflake.Node

	dues repository.Repository[Due]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) Service {
	return &service{
		db:   p.DB,
		node: p.Node,

		dues: repository.ProvideStore[Due](p.DB),
	}
}

var Module = fx.Module("wallet.service",
	fx.Provide(NewService),
)

func (s *service) Credit(ctx context.Context, tx *gorm.DB, userID, symbol string, amount float64, reference string) (string, error) {
	if amount < 0 {
		return "", errutil.BadRequest("credit amount must be >= 0", nil)
	}

	db := s.db
	if tx != nil {
		db = tx
	}

	record := &Transaction{
		ID:          s.node.Generate().String(),
		UserID:      userID,
		TokenSymbol: symbol,
		Amount:      amount,
		Kind:        KindCredit,
		Reference:   reference,
	}
	if err := db.WithContext(ctx).Create(record).Error; err != nil {
		return "", err
	}
	return record.ID, nil
}

func (s *service) DueBalance(ctx context.Context, userID string) (float64, error) {
	due, err := s.dues.FindOne(ctx, &Due{UserID: userID})
	if err != nil {
		return 0, err
	}
	if due == nil {
		return 0, nil
	}
	return due.Amount, nil
}

func (s *service) SettleDue(ctx context.Context, tx *gorm.DB, userID string, amount float64) error {
	if amount <= 0 {
		return nil
	}
	db := s.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Model(&Due{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"amount":     gorm.Expr("amount - ?", amount),
			"updated_at": time.Now(),
		}).Error
}
