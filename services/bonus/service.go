package bonus

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"stakemine/pkg/db/option"
	"stakemine/pkg/repository"
	"stakemine/services/budget"
	"stakemine/services/eligibility"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BudgetLedger is the slice of the budget service this ledger needs: every
// accepted attempt debits the beneficiary's budget in the same transaction.
type BudgetLedger interface {
	Debit(ctx context.Context, tx *gorm.DB, userID string, amount float64, sourceRef string) (*budget.Entry, error)
}

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	budget BudgetLedger

	transactions repository.Repository[Transaction]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Budget *budget.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		budget: p.Budget,

		transactions: repository.ProvideStore[Transaction](p.DB),
	}
}

// Attempt is one evaluated bonus opportunity ready to be written down.
type Attempt struct {
	BeneficiaryID  string
	SourceUserID   string
	Tier           eligibility.Tier
	Proposed       float64
	Verdict        eligibility.Verdict
	RewardEventRef string
	Level          int
	Percent        float64
	TokenPrice     float64
	Excess         bool
}

// RecordAttempt writes the immutable transaction for an evaluated attempt and,
// on acceptance, debits the beneficiary's budget inside the same database
// transaction. It is the only writer of bonus transactions.
//
// A duplicate (beneficiary, reward event, tier) insert is treated as an
// idempotent replay: the existing row is returned untouched and no debit is
// issued, so re-running a reward event can never double-pay.
func (s *Service) RecordAttempt(ctx context.Context, tx *gorm.DB, a Attempt) (*Transaction, error) {
	if tx == nil {
		var out *Transaction
		err := s.db.Transaction(func(inner *gorm.DB) error {
			var err error
			out, err = s.recordAttempt(ctx, inner, a)
			return err
		})
		return out, err
	}
	return s.recordAttempt(ctx, tx, a)
}

func (s *Service) recordAttempt(ctx context.Context, tx *gorm.DB, a Attempt) (*Transaction, error) {
	record := &Transaction{
		ID:             s.node.Generate().String(),
		BeneficiaryID:  a.BeneficiaryID,
		SourceUserID:   a.SourceUserID,
		Tier:           string(a.Tier),
		RewardEventRef: a.RewardEventRef,
		TokenPrice:     a.TokenPrice,
		Level:          a.Level,
	}

	meta, _ := json.Marshal(AttemptMeta{Level: a.Level, Percent: a.Percent, Excess: a.Excess})
	record.Meta = datatypes.JSON(meta)

	if a.Verdict.Accepted {
		record.Receivable = true
		record.Amount = a.Verdict.ApprovedAmount
		if a.TokenPrice > 0 {
			record.TokenAmount = a.Verdict.ApprovedAmount / a.TokenPrice
		}
	} else {
		reasons, _ := json.Marshal(a.Verdict.Reasons)
		record.LostReasons = datatypes.JSON(reasons)
	}

	if err := tx.WithContext(ctx).Create(record).Error; err != nil {
		if isDuplicate(err) {
			existing, findErr := s.transactions.WithTrx(tx).FindOne(ctx, &Transaction{
				BeneficiaryID:  a.BeneficiaryID,
				RewardEventRef: a.RewardEventRef,
				Tier:           string(a.Tier),
			})
			if findErr != nil {
				return nil, findErr
			}
			zap.L().Debug("duplicate bonus attempt ignored",
				zap.String("beneficiary_id", a.BeneficiaryID),
				zap.String("reward_event_ref", a.RewardEventRef),
				zap.String("tier", string(a.Tier)),
			)
			return existing, nil
		}
		return nil, err
	}

	if record.Receivable {
		if _, err := s.budget.Debit(ctx, tx, a.BeneficiaryID, record.Amount, a.RewardEventRef); err != nil {
			return nil, err
		}
	}

	return record, nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// PaidToday sums accepted bonus amounts for the beneficiary on the calendar
// day containing asOf. The daily-cap gate clamps against this figure.
func (s *Service) PaidToday(ctx context.Context, userID string, asOf time.Time) (float64, error) {
	dayStart := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var total float64
	err := s.db.WithContext(ctx).Model(&Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("beneficiary_id = ? AND receivable = ?", userID, true).
		Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// UnclaimedTotal is the sum a claim would currently settle for the user.
func (s *Service) UnclaimedTotal(ctx context.Context, userID string) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).Model(&Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("beneficiary_id = ? AND receivable = ? AND claimed = ?", userID, true, false).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// UnclaimedEntries returns the user's unclaimed receivable transactions,
// locked FOR UPDATE when called inside a claim transaction.
func (s *Service) UnclaimedEntries(ctx context.Context, tx *gorm.DB, userID string, lock bool) ([]*Transaction, error) {
	opts := []option.QueryOption{
		option.ApplyOperator(option.Condition{Field: "claimed", Operator: option.EQ, Value: false}),
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at"}),
	}
	if lock {
		opts = append(opts, option.WithLockingUpdate())
	}

	return s.transactions.WithTrx(tx).Find(ctx, &Transaction{
		BeneficiaryID: userID,
		Receivable:    true,
	}, opts...)
}

// MarkClaimed flips the claimed flag and stamps the settlement reference on
// the given transactions. Settlement is the only caller; nothing else may
// mutate a written bonus transaction.
func (s *Service) MarkClaimed(ctx context.Context, tx *gorm.DB, ids []string, claimID string) error {
	if len(ids) == 0 {
		return nil
	}
	db := s.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Model(&Transaction{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"claimed":    true,
			"claim_id":   claimID,
			"updated_at": time.Now(),
		}).Error
}
