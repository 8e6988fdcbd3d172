package eligibility

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func capOf(v float64) *float64 {
	return &v
}

func TestEvaluateAcceptsWithinBudgetAndCap(t *testing.T) {
	v := Evaluate(Input{
		UserID:             "u1",
		Tier:               TierGeneration,
		Proposed:           50,
		NetBudget:          100,
		DailyCap:           capOf(200),
		PaidToday:          0,
		HasEligibleMachine: true,
	})

	require.True(t, v.Accepted)
	require.Equal(t, 50.0, v.ApprovedAmount)
	require.Zero(t, v.Residual)
	require.Empty(t, v.Reasons)
}

func TestEvaluateZeroProposedIsNoop(t *testing.T) {
	v := Evaluate(Input{UserID: "u1", Tier: TierDirect})

	require.False(t, v.Accepted)
	require.Empty(t, v.Reasons)
}

func TestEvaluateDirectRequiresActiveFirstLine(t *testing.T) {
	// The first-line gate short-circuits: even a blocked user without budget
	// gets exactly one reason.
	v := Evaluate(Input{
		UserID:             "u1",
		Tier:               TierDirect,
		Proposed:           10,
		NetBudget:          0,
		Blocked:            true,
		ActiveFirstLine:    0,
		MinActiveFirstLine: 1,
	})

	require.False(t, v.Accepted)
	require.Equal(t, []LostReason{ReasonInactiveFirstUser}, v.Reasons)
}

func TestEvaluateDirectPassesFirstLineGate(t *testing.T) {
	v := Evaluate(Input{
		UserID:             "u1",
		Tier:               TierDirect,
		Proposed:           10,
		NetBudget:          100,
		ActiveFirstLine:    2,
		MinActiveFirstLine: 1,
		HasEligibleMachine: true,
	})

	require.True(t, v.Accepted)
	require.Equal(t, 10.0, v.ApprovedAmount)
}

func TestEvaluateInsufficientBudget(t *testing.T) {
	v := Evaluate(Input{
		UserID:             "u1",
		Tier:               TierGeneration,
		Proposed:           150,
		NetBudget:          100,
		HasEligibleMachine: true,
	})

	require.False(t, v.Accepted)
	require.Equal(t, []LostReason{ReasonInsufficientGask}, v.Reasons)
}

func TestEvaluateAccumulatesIndependentReasons(t *testing.T) {
	v := Evaluate(Input{
		UserID:             "u1",
		Tier:               TierGeneration,
		Proposed:           150,
		NetBudget:          100,
		Blocked:            true,
		TierBlocked:        true,
		HasEligibleMachine: false,
	})

	require.False(t, v.Accepted)
	require.Equal(t, []LostReason{
		ReasonUserBlocked,
		ReasonBlockedForGeneration,
		ReasonMachineNotEligible,
		ReasonInsufficientGask,
	}, v.Reasons)
}

func TestEvaluateTierBlockReasonMatchesTier(t *testing.T) {
	for tier, want := range map[Tier]LostReason{
		TierDirect:     ReasonBlockedForDirect,
		TierGeneration: ReasonBlockedForGeneration,
		TierMatching:   ReasonBlockedForMatching,
	} {
		in := Input{
			UserID:             "u1",
			Tier:               tier,
			Proposed:           10,
			NetBudget:          100,
			TierBlocked:        true,
			HasEligibleMachine: true,
			ActiveFirstLine:    1,
			MinActiveFirstLine: 1,
		}
		v := Evaluate(in)
		require.False(t, v.Accepted)
		require.Equal(t, []LostReason{want}, v.Reasons)
	}
}

func TestEvaluateClampsAtDailyCap(t *testing.T) {
	v := Evaluate(Input{
		UserID:             "u1",
		Tier:               TierGeneration,
		Proposed:           70,
		NetBudget:          100,
		DailyCap:           capOf(50),
		HasEligibleMachine: true,
	})

	require.True(t, v.Accepted)
	require.Equal(t, 50.0, v.ApprovedAmount)
	require.Equal(t, 20.0, v.Residual)
	require.Empty(t, v.Reasons)
}

func TestEvaluateClampCountsAlreadyPaidToday(t *testing.T) {
	v := Evaluate(Input{
		UserID:             "u1",
		Tier:               TierGeneration,
		Proposed:           50,
		NetBudget:          100,
		DailyCap:           capOf(40),
		PaidToday:          10,
		HasEligibleMachine: true,
	})

	require.True(t, v.Accepted)
	require.Equal(t, 30.0, v.ApprovedAmount)
	require.Equal(t, 20.0, v.Residual)
}

func TestEvaluateRejectsWhenCapExhausted(t *testing.T) {
	v := Evaluate(Input{
		UserID:             "u1",
		Tier:               TierGeneration,
		Proposed:           50,
		NetBudget:          100,
		DailyCap:           capOf(40),
		PaidToday:          40,
		HasEligibleMachine: true,
	})

	require.False(t, v.Accepted)
	require.Equal(t, []LostReason{ReasonDailyCapping}, v.Reasons)
}

func TestEvaluateNilCapIsUnlimited(t *testing.T) {
	v := Evaluate(Input{
		UserID:             "u1",
		Tier:               TierGeneration,
		Proposed:           5000,
		NetBudget:          10000,
		PaidToday:          99999,
		HasEligibleMachine: true,
	})

	require.True(t, v.Accepted)
	require.Equal(t, 5000.0, v.ApprovedAmount)
	require.Zero(t, v.Residual)
}
