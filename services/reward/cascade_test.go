package reward

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stakemine/services/bonus"
	"stakemine/services/eligibility"
	"stakemine/services/member"
)

func testSnapshot(now time.Time) *Snapshot {
	return &Snapshot{
		RunDate:            now.Format("2006-01-02"),
		AsOf:               now,
		RewardsEnabled:     true,
		StakingMultiplier:  1,
		DirectPercent:      10,
		GenerationPercent:  5,
		MinActiveFirstLine: 1,
		DailyYieldPercent:  1,
		Price:              2,
	}
}

func (e *testEngine) seedEvent(t *testing.T, amount float64, now time.Time) *RewardEvent {
	t.Helper()

	ev := &RewardEvent{
		ID:         "ev-1",
		MachineID:  "m-miner",
		RunDate:    now.Format("2006-01-02"),
		OwnerID:    "miner",
		Amount:     amount,
		TokenPrice: 2,
		Compounded: true,
	}
	require.NoError(t, e.db.Create(ev).Error)
	return ev
}

func TestDistributeForwardsClampResidualUpline(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	now := time.Now()

	// miner <- s1 <- s2; s1's cap leaves headroom 4 against a 10 proposal
	require.NoError(t, e.referrals.Link(ctx, "miner", "s1"))
	require.NoError(t, e.referrals.Link(ctx, "s1", "s2"))

	require.NoError(t, e.db.Create(sideMachine("m-miner", "miner", 100, false, now)).Error)
	require.NoError(t, e.db.Create(sideMachine("m-s1", "s1", 4, false, now)).Error)
	require.NoError(t, e.db.Create(sideMachine("m-s2", "s2", 0, true, now)).Error)

	_, err := e.budget.Credit(ctx, nil, "s1", 100, "seed", 1)
	require.NoError(t, err)
	_, err = e.budget.Credit(ctx, nil, "s2", 100, "seed", 1)
	require.NoError(t, err)

	ev := e.seedEvent(t, 100, now)
	require.NoError(t, e.svc.distribute(ctx, testSnapshot(now), ev))

	// s1 clamped at the cap: approved 4 of 10, residual 6 moves up
	var s1Row bonus.Transaction
	require.NoError(t, e.db.Where("beneficiary_id = ? AND tier = ?", "s1", "DIRECT").First(&s1Row).Error)
	require.True(t, s1Row.Receivable)
	require.Equal(t, 4.0, s1Row.Amount)

	// s2 absorbs the residual under the matching tier plus its own generation cut
	var s2Matching bonus.Transaction
	require.NoError(t, e.db.Where("beneficiary_id = ? AND tier = ?", "s2", "MATCHING").First(&s2Matching).Error)
	require.True(t, s2Matching.Receivable)
	require.Equal(t, 6.0, s2Matching.Amount)

	var meta bonus.AttemptMeta
	require.NoError(t, json.Unmarshal(s2Matching.Meta, &meta))
	require.True(t, meta.Excess)

	var s2Gen bonus.Transaction
	require.NoError(t, e.db.Where("beneficiary_id = ? AND tier = ?", "s2", "GENERATION").First(&s2Gen).Error)
	require.Equal(t, 5.0, s2Gen.Amount)

	// nobody was paid past their cap
	paid, err := e.bonus.PaidToday(ctx, "s1", now)
	require.NoError(t, err)
	require.Equal(t, 4.0, paid)

	net, err := e.budget.NetBalance(ctx, "s2")
	require.NoError(t, err)
	require.Equal(t, 89.0, net)
}

func TestDistributeResumedRunCarriesRecordedResidual(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, e.referrals.Link(ctx, "miner", "s1"))
	require.NoError(t, e.referrals.Link(ctx, "s1", "s2"))

	require.NoError(t, e.db.Create(sideMachine("m-miner", "miner", 100, false, now)).Error)
	require.NoError(t, e.db.Create(sideMachine("m-s1", "s1", 4, false, now)).Error)
	require.NoError(t, e.db.Create(sideMachine("m-s2", "s2", 0, true, now)).Error)

	_, err := e.budget.Credit(ctx, nil, "s1", 100, "seed", 1)
	require.NoError(t, err)
	_, err = e.budget.Credit(ctx, nil, "s2", 100, "seed", 1)
	require.NoError(t, err)

	ev := e.seedEvent(t, 100, now)

	// an earlier attempt recorded s1's clamped direct row (approved 4 of 10)
	// and stopped before offering the leftover 6 upline
	require.NoError(t, e.db.Create(&bonus.Transaction{
		ID:             "pre-s1",
		BeneficiaryID:  "s1",
		SourceUserID:   "miner",
		Tier:           "DIRECT",
		RewardEventRef: ev.ID,
		Amount:         4,
		Receivable:     true,
		Level:          1,
	}).Error)

	require.NoError(t, e.svc.distribute(ctx, testSnapshot(now), ev))

	// the fresh evaluation sees s1's cap already spent, yet the stored row
	// still decides the carry: 10 - 4 = 6 lands on s2
	var s2Matching bonus.Transaction
	require.NoError(t, e.db.Where("beneficiary_id = ? AND tier = ?", "s2", "MATCHING").First(&s2Matching).Error)
	require.True(t, s2Matching.Receivable)
	require.Equal(t, 6.0, s2Matching.Amount)

	// s1's recorded row is left alone, not duplicated or re-paid
	var s1Count int64
	require.NoError(t, e.db.Model(&bonus.Transaction{}).
		Where("beneficiary_id = ? AND tier = ?", "s1", "DIRECT").
		Count(&s1Count).Error)
	require.EqualValues(t, 1, s1Count)

	paid, err := e.bonus.PaidToday(ctx, "s1", now)
	require.NoError(t, err)
	require.Equal(t, 4.0, paid)
}

func TestDistributeBuilderMultiplierAmplifiesGeneration(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, e.referrals.Link(ctx, "miner", "s1"))
	require.NoError(t, e.referrals.Link(ctx, "s1", "s2"))

	require.NoError(t, e.db.Create(sideMachine("m-miner", "miner", 100, false, now)).Error)
	require.NoError(t, e.db.Create(sideMachine("m-s1", "s1", 0, true, now)).Error)
	require.NoError(t, e.db.Create(sideMachine("m-s2", "s2", 0, true, now)).Error)

	_, err := e.budget.Credit(ctx, nil, "s1", 100, "seed", 1)
	require.NoError(t, err)
	_, err = e.budget.Credit(ctx, nil, "s2", 100, "seed", 1)
	require.NoError(t, err)

	require.NoError(t, e.db.Create(&member.Member{ID: "s2", BuilderMultiplier: 2}).Error)

	ev := e.seedEvent(t, 100, now)
	require.NoError(t, e.svc.distribute(ctx, testSnapshot(now), ev))

	// 100 * 5% * 2
	var s2Row bonus.Transaction
	require.NoError(t, e.db.Where("beneficiary_id = ? AND tier = ?", "s2", "GENERATION").First(&s2Row).Error)
	require.Equal(t, 10.0, s2Row.Amount)
}

func TestDistributeBlockedAncestorIsSkippedNotPaid(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, e.referrals.Link(ctx, "miner", "s1"))
	require.NoError(t, e.referrals.Link(ctx, "s1", "s2"))

	require.NoError(t, e.db.Create(sideMachine("m-miner", "miner", 100, false, now)).Error)
	require.NoError(t, e.db.Create(sideMachine("m-s1", "s1", 100, false, now)).Error)
	require.NoError(t, e.db.Create(sideMachine("m-s2", "s2", 0, true, now)).Error)

	_, err := e.budget.Credit(ctx, nil, "s1", 100, "seed", 1)
	require.NoError(t, err)
	_, err = e.budget.Credit(ctx, nil, "s2", 100, "seed", 1)
	require.NoError(t, err)

	require.NoError(t, e.db.Create(&member.Member{ID: "s1", Blocked: true, BuilderMultiplier: 1}).Error)

	ev := e.seedEvent(t, 100, now)
	require.NoError(t, e.svc.distribute(ctx, testSnapshot(now), ev))

	var s1Row bonus.Transaction
	require.NoError(t, e.db.Where("beneficiary_id = ?", "s1").First(&s1Row).Error)
	require.False(t, s1Row.Receivable)
	require.Zero(t, s1Row.Amount)

	var reasons []eligibility.LostReason
	require.NoError(t, json.Unmarshal(s1Row.LostReasons, &reasons))
	require.Contains(t, reasons, eligibility.ReasonUserBlocked)

	net, err := e.budget.NetBalance(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, 100.0, net)

	// the chain continues past the blocked level
	var s2Row bonus.Transaction
	require.NoError(t, e.db.Where("beneficiary_id = ? AND tier = ?", "s2", "GENERATION").First(&s2Row).Error)
	require.True(t, s2Row.Receivable)
	require.Equal(t, 5.0, s2Row.Amount)
}

func TestDistributeResidualAtRootIsForfeited(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, e.referrals.Link(ctx, "miner", "s1"))

	require.NoError(t, e.db.Create(sideMachine("m-miner", "miner", 100, false, now)).Error)
	require.NoError(t, e.db.Create(sideMachine("m-s1", "s1", 4, false, now)).Error)

	_, err := e.budget.Credit(ctx, nil, "s1", 100, "seed", 1)
	require.NoError(t, err)

	ev := e.seedEvent(t, 100, now)
	require.NoError(t, e.svc.distribute(ctx, testSnapshot(now), ev))

	// only the clamped direct attempt exists; the residual has nowhere to go
	var count int64
	require.NoError(t, e.db.Model(&bonus.Transaction{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}
