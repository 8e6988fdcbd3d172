package eligibility

// Evaluate applies the payout gates to a proposed bonus and returns the
// verdict. It is a pure function: every fact it consults arrives in Input.
//
// Gate order:
//  1. direct-tier first-line requirement (short-circuits: a failing
//     beneficiary gets exactly one reason and no further evaluation)
//  2. account block, tier block, machine eligibility and budget sufficiency,
//     all checked independently so simultaneous failures accumulate
//  3. daily-cap clamp, applied last and only to otherwise-accepted proposals;
//     zero headroom rejects with DAILY_CAPPING, partial headroom approves the
//     remainder and reports the rest as Residual.
func Evaluate(in Input) Verdict {
	if in.Proposed <= 0 {
		return Verdict{}
	}

	if in.Tier == TierDirect && in.ActiveFirstLine < in.MinActiveFirstLine {
		return Verdict{Reasons: []LostReason{ReasonInactiveFirstUser}}
	}

	var reasons []LostReason
	if in.Blocked {
		reasons = append(reasons, ReasonUserBlocked)
	}
	if in.TierBlocked {
		reasons = append(reasons, BlockedReasonFor(in.Tier))
	}
	if !in.HasEligibleMachine {
		reasons = append(reasons, ReasonMachineNotEligible)
	}
	if in.Proposed > in.NetBudget {
		reasons = append(reasons, ReasonInsufficientGask)
	}
	if len(reasons) > 0 {
		return Verdict{Reasons: reasons}
	}

	approved := in.Proposed
	if in.DailyCap != nil {
		headroom := *in.DailyCap - in.PaidToday
		if headroom <= 0 {
			return Verdict{Reasons: []LostReason{ReasonDailyCapping}}
		}
		if approved > headroom {
			approved = headroom
		}
	}

	return Verdict{
		Accepted:       true,
		ApprovedAmount: approved,
		Residual:       in.Proposed - approved,
	}
}
