package eligibility

// Tier identifies which bonus category an attempt belongs to.
type Tier string

const (
	// TierDirect is the first-line referral bonus.
	TierDirect Tier = "DIRECT"
	// TierGeneration covers uplines deeper than the first line.
	TierGeneration Tier = "GENERATION"
	// TierMatching carries residual amounts redistributed upline after a
	// daily-cap clamp.
	TierMatching Tier = "MATCHING"
)

// LostReason is the machine-readable cause recorded on a rejected or clamped
// bonus attempt. It is the user-facing answer to "why didn't I get this".
type LostReason string

const (
	ReasonInsufficientGask     LostReason = "INSUFFICIENT_GASK"
	ReasonDailyCapping         LostReason = "DAILY_CAPPING"
	ReasonInactiveFirstUser    LostReason = "INACTIVE_FIRST_USER"
	ReasonUserBlocked          LostReason = "USER_BLOCKED"
	ReasonBlockedForDirect     LostReason = "BLOCKED_FOR_DIRECT"
	ReasonBlockedForGeneration LostReason = "BLOCKED_FOR_GENERATION"
	ReasonBlockedForMatching   LostReason = "BLOCKED_FOR_MATCHING"
	ReasonMachineNotEligible   LostReason = "USER_MACHINE_NOT_ELIGIBLE"
)

// BlockedReasonFor maps a tier to its tier-specific block reason.
func BlockedReasonFor(tier Tier) LostReason {
	switch tier {
	case TierDirect:
		return ReasonBlockedForDirect
	case TierGeneration:
		return ReasonBlockedForGeneration
	default:
		return ReasonBlockedForMatching
	}
}

// Input carries every externally gathered fact the evaluator needs. The
// caller snapshots these before evaluation; Evaluate itself touches nothing.
type Input struct {
	UserID   string
	Tier     Tier
	Proposed float64

	NetBudget float64
	// DailyCap is the per-day payout ceiling; nil means unlimited.
	DailyCap  *float64
	PaidToday float64

	ActiveFirstLine    int
	MinActiveFirstLine int

	Blocked            bool
	TierBlocked        bool
	HasEligibleMachine bool
}

// Verdict is the evaluator's decision. A clamp (partial approval) is a
// distinct outcome from rejection: Accepted stays true, ApprovedAmount drops
// below the proposal and the difference is carried in Residual for upline
// redistribution.
type Verdict struct {
	Accepted       bool
	ApprovedAmount float64
	Residual       float64
	Reasons        []LostReason
}
