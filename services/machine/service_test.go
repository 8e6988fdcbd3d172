package machine

import (
	"context"
	"testing"
	"time"

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

	db := testutil.NewTestDB(t, &Machine{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParams{DB: db, Node: node})
}

func TestActiveInWindow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	machines := []*Machine{
		{ID: "in-window", OwnerID: "u1", Status: StatusActive, StartAt: now.Add(-time.Hour), EndAt: now.Add(time.Hour)},
		{ID: "not-started", OwnerID: "u1", Status: StatusActive, StartAt: now.Add(time.Hour), EndAt: now.Add(2 * time.Hour)},
		{ID: "ended", OwnerID: "u1", Status: StatusActive, StartAt: now.Add(-2 * time.Hour), EndAt: now.Add(-time.Hour)},
		{ID: "inactive", OwnerID: "u1", Status: StatusInactive, StartAt: now.Add(-time.Hour), EndAt: now.Add(time.Hour)},
	}
	for _, m := range machines {
		require.NoError(t, svc.db.Create(m).Error)
	}

	active, err := svc.ActiveInWindow(ctx, now)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "in-window", active[0].ID)
}

func TestDailyCapForTakesHighestProductPrice(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	machines := []*Machine{
		{ID: "m1", OwnerID: "u1", Status: StatusActive, ProductPrice: 50},
		{ID: "m2", OwnerID: "u1", Status: StatusActive, ProductPrice: 120},
		{ID: "m3", OwnerID: "u1", Status: StatusExpired, ProductPrice: 999},
	}
	for _, m := range machines {
		require.NoError(t, svc.db.Create(m).Error)
	}

	cap, err := svc.DailyCapFor(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, cap)
	require.Equal(t, 120.0, *cap)
}

func TestDailyCapForUncappedMachineIsUnlimited(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	machines := []*Machine{
		{ID: "m1", OwnerID: "u1", Status: StatusActive, ProductPrice: 50},
		{ID: "m2", OwnerID: "u1", Status: StatusActive, Uncapped: true},
	}
	for _, m := range machines {
		require.NoError(t, svc.db.Create(m).Error)
	}

	cap, err := svc.DailyCapFor(ctx, "u1")
	require.NoError(t, err)
	require.Nil(t, cap)
}

func TestDailyCapForNoActiveMachineIsZero(t *testing.T) {
	svc := newTestService(t)

	cap, err := svc.DailyCapFor(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, cap)
	require.Zero(t, *cap)
}

func TestHasEligibleRespectsCollateralFloor(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.db.Create(&Machine{
		ID: "m1", OwnerID: "u1", Status: StatusActive, Collateral: 100,
	}).Error)

	ok, err := svc.HasEligible(ctx, "u1", 50)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.HasEligible(ctx, "u1", 200)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = svc.HasEligible(ctx, "stranger", 0)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAddCollateralCompounds(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.db.Create(&Machine{
		ID: "m1", OwnerID: "u1", Status: StatusActive, Collateral: 1000,
	}).Error)

	require.NoError(t, svc.AddCollateral(ctx, nil, "m1", 12.5))

	var m Machine
	require.NoError(t, svc.db.Where("id = ?", "m1").First(&m).Error)
	require.Equal(t, 1012.5, m.Collateral)
}
