package reward

import (
	"context"

	"stakemine/services/bonus"
	"stakemine/services/eligibility"
	"stakemine/services/member"

	"go.uber.org/zap"
)

// distribute walks the owner's upline and records one bonus attempt per
// level. Level 1 earns the direct percentage; deeper levels earn the
// generational percentage amplified by the beneficiary's builder multiplier.
//
// Residual amounts left behind by a daily-cap clamp are not discarded: they
// are carried upward and offered to each higher ancestor under the matching
// tier until fully absorbed or the root is reached. The carry is offered to a
// level before that level's own residual joins it, so an amount never flows
// back down.
//
// Each level's outcome is read back from the row the ledger actually holds,
// not from the in-memory verdict. A run resumed after a crash replays the
// rows written by the first attempt, so a recorded clamp keeps feeding its
// residual upward instead of being re-evaluated against an already-spent cap.
func (s *Service) distribute(ctx context.Context, snap *Snapshot, ev *RewardEvent) error {
	upline, err := s.referrals.Upline(ctx, ev.OwnerID)
	if err != nil {
		return err
	}

	carry := 0.0
	for i, ancestor := range upline {
		level := i + 1

		mem, err := s.members.Get(ctx, ancestor)
		if err != nil {
			return err
		}

		tier := eligibility.TierGeneration
		percent := snap.GenerationPercent
		multiplier := mem.BuilderMultiplier
		if level == 1 {
			tier = eligibility.TierDirect
			percent = snap.DirectPercent
			multiplier = 1
		}
		proposed := ev.Amount * percent / 100 * multiplier

		if carry > 0 {
			absorbed, err := s.offerExcess(ctx, snap, ev, ancestor, mem, level, carry)
			if err != nil {
				return err
			}
			carry -= absorbed
		}

		in, err := s.buildInput(ctx, snap, ancestor, mem, tier, proposed)
		if err != nil {
			return err
		}
		verdict := eligibility.Evaluate(in)

		rec, err := s.bonus.RecordAttempt(ctx, nil, bonus.Attempt{
			BeneficiaryID:  ancestor,
			SourceUserID:   ev.OwnerID,
			Tier:           tier,
			Proposed:       proposed,
			Verdict:        verdict,
			RewardEventRef: ev.ID,
			Level:          level,
			Percent:        percent,
			TokenPrice:     snap.Price,
		})
		if err != nil {
			return err
		}

		carry += residualOf(rec, proposed)
	}

	if carry > 0 {
		zap.L().Info("residual reward reached tree root unabsorbed",
			zap.String("reward_event_id", ev.ID),
			zap.Float64("forfeited", carry),
		)
	}
	return nil
}

// offerExcess proposes the carried residual to one ancestor under the
// matching tier and returns the amount they absorbed.
func (s *Service) offerExcess(ctx context.Context, snap *Snapshot, ev *RewardEvent, ancestor string, mem *member.Member, level int, carry float64) (float64, error) {
	in, err := s.buildInput(ctx, snap, ancestor, mem, eligibility.TierMatching, carry)
	if err != nil {
		return 0, err
	}
	verdict := eligibility.Evaluate(in)

	rec, err := s.bonus.RecordAttempt(ctx, nil, bonus.Attempt{
		BeneficiaryID:  ancestor,
		SourceUserID:   ev.OwnerID,
		Tier:           eligibility.TierMatching,
		Proposed:       carry,
		Verdict:        verdict,
		RewardEventRef: ev.ID,
		Level:          level,
		TokenPrice:     snap.Price,
		Excess:         true,
	})
	if err != nil {
		return 0, err
	}

	if !rec.Receivable {
		return 0, nil
	}
	return rec.Amount, nil
}

// residualOf derives a level's leftover from its recorded transaction. The
// stored amount is authoritative: on a replay it may differ from the current
// evaluation.
func residualOf(rec *bonus.Transaction, proposed float64) float64 {
	if !rec.Receivable {
		return 0
	}
	if r := proposed - rec.Amount; r > 0 {
		return r
	}
	return 0
}

// buildInput gathers every external fact the evaluator needs for one attempt.
func (s *Service) buildInput(ctx context.Context, snap *Snapshot, userID string, mem *member.Member, tier eligibility.Tier, proposed float64) (eligibility.Input, error) {
	net, err := s.budget.NetBalance(ctx, userID)
	if err != nil {
		return eligibility.Input{}, err
	}
	cap, err := s.machines.DailyCapFor(ctx, userID)
	if err != nil {
		return eligibility.Input{}, err
	}
	paid, err := s.bonus.PaidToday(ctx, userID, snap.AsOf)
	if err != nil {
		return eligibility.Input{}, err
	}
	hasMachine, err := s.machines.HasEligible(ctx, userID, snap.MinMachineCollateral)
	if err != nil {
		return eligibility.Input{}, err
	}

	firstLine := 0
	if tier == eligibility.TierDirect {
		firstLine, err = s.referrals.FirstLineActiveCount(ctx, userID)
		if err != nil {
			return eligibility.Input{}, err
		}
	}

	return eligibility.Input{
		UserID:             userID,
		Tier:               tier,
		Proposed:           proposed,
		NetBudget:          net,
		DailyCap:           cap,
		PaidToday:          paid,
		ActiveFirstLine:    firstLine,
		MinActiveFirstLine: snap.MinActiveFirstLine,
		Blocked:            mem.Blocked,
		TierBlocked:        tierBlocked(mem, tier),
		HasEligibleMachine: hasMachine,
	}, nil
}

func tierBlocked(m *member.Member, tier eligibility.Tier) bool {
	switch tier {
	case eligibility.TierDirect:
		return m.DirectBlocked
	case eligibility.TierGeneration:
		return m.GenerationBlocked
	default:
		return m.MatchingBlocked
	}
}
