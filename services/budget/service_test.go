package budget

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stakemine/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &Entry{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParams{DB: db, Node: node})
}

func TestNetBalanceReplaysLedger(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Credit(ctx, nil, "u1", 100, "reward-1", 1)
	require.NoError(t, err)
	_, err = svc.Credit(ctx, nil, "u1", 40, "reward-2", 1)
	require.NoError(t, err)
	_, err = svc.Debit(ctx, nil, "u1", 30, "bonus-1")
	require.NoError(t, err)

	net, err := svc.NetBalance(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 110.0, net)

	// other users' rows never leak into the balance
	_, err = svc.Credit(ctx, nil, "u2", 500, "reward-3", 1)
	require.NoError(t, err)

	net, err = svc.NetBalance(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 110.0, net)
}

func TestNetBalanceEmptyLedgerIsZero(t *testing.T) {
	svc := newTestService(t)

	net, err := svc.NetBalance(context.Background(), "ghost")
	require.NoError(t, err)
	require.Zero(t, net)
}

func TestCreditPinsMultiplier(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Credit(ctx, nil, "u1", 100, "reward-1", 2.5)
	require.NoError(t, err)
	require.Equal(t, 2.5, entry.Multiplier)

	var stored Entry
	require.NoError(t, svc.db.Where("id = ?", entry.ID).First(&stored).Error)
	require.Equal(t, 2.5, stored.Multiplier)
	require.Equal(t, DirectionIn, stored.Direction)
	require.Equal(t, "reward-1", stored.SourceRef)
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Credit(context.Background(), nil, "u1", 0, "x", 1)
	require.Error(t, err)

	_, err = svc.Credit(context.Background(), nil, "u1", -5, "x", 1)
	require.Error(t, err)
}

func TestDebitRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Debit(context.Background(), nil, "u1", 0, "x")
	require.Error(t, err)
}

func TestDebitCanDriveBalanceNegative(t *testing.T) {
	// the ledger itself has no floor; overspend prevention lives in the
	// eligibility gates upstream
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Debit(ctx, nil, "u1", 25, "bonus-1")
	require.NoError(t, err)

	net, err := svc.NetBalance(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, -25.0, net)
}
