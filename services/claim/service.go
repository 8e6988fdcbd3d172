package claim

import (
	"context"
	"errors"

	"stakemine/pkg/config"
	"stakemine/pkg/errutil"
	"stakemine/services/bonus"
	"stakemine/services/wallet"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNothingToClaim is returned when the user has no unclaimed receivable
// bonus transactions.
var ErrNothingToClaim = errors.New("nothing to claim")

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	cfg  *config.Config

	bonus  *bonus.Service
	wallet wallet.Service
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config
	Bonus  *bonus.Service
	Wallet wallet.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		cfg:    p.Config,
		bonus:  p.Bonus,
		wallet: p.Wallet,
	}
}

// Claim settles every unclaimed receivable bonus for the user in one database
// transaction: lock the rows, net outstanding debt off the gross total, credit
// the remainder to the wallet and flag the rows claimed. Retrying after a
// success finds nothing unclaimed and fails with ErrNothingToClaim, so a
// claim can never pay twice.
func (s *Service) Claim(ctx context.Context, userID string) (*Settlement, error) {
	span := trace.SpanFromContext(ctx)
	log := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	var settlement *Settlement

	err := s.db.Transaction(func(tx *gorm.DB) error {
		entries, err := s.bonus.UnclaimedEntries(ctx, tx, userID, true)
		if err != nil {
			return err
		}

		gross := 0.0
		ids := make([]string, 0, len(entries))
		for _, e := range entries {
			gross += e.Amount
			ids = append(ids, e.ID)
		}
		if gross <= 0 {
			return errutil.UnprocessableEntity("nothing to claim", ErrNothingToClaim)
		}

		debt, err := s.wallet.DueBalance(ctx, userID)
		if err != nil {
			return err
		}
		if debt < 0 {
			debt = 0
		}
		if debt > gross {
			debt = gross
		}
		net := gross - debt

		settlement = &Settlement{
			ID:           s.node.Generate().String(),
			UserID:       userID,
			GrossAmount:  gross,
			DebtDeducted: debt,
			NetAmount:    net,
		}

		txID, err := s.wallet.Credit(ctx, tx, userID, s.cfg.Reward.TokenSymbol, net, settlement.ID)
		if err != nil {
			return err
		}
		settlement.WalletTxID = txID

		if debt > 0 {
			if err := s.wallet.SettleDue(ctx, tx, userID, debt); err != nil {
				return err
			}
		}

		if err := tx.WithContext(ctx).Create(settlement).Error; err != nil {
			return err
		}

		return s.bonus.MarkClaimed(ctx, tx, ids, settlement.ID)
	})
	if err != nil {
		return nil, err
	}

	log.Info("claim settled",
		zap.String("user_id", userID),
		zap.String("settlement_id", settlement.ID),
		zap.Float64("gross", settlement.GrossAmount),
		zap.Float64("debt_deducted", settlement.DebtDeducted),
		zap.Float64("net", settlement.NetAmount),
	)
	return settlement, nil
}
