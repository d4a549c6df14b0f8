package calculations

import (
	"sort"
	"time"

	"github.com/deep60/nexus-security/types"
	"github.com/shopspring/decimal"
)

var streakStep = decimal.NewFromFloat(0.1)

// AccuracyOutcome is one submission's contribution to its engine's
// reputation, derived after the owning bounty resolved.
type AccuracyOutcome struct {
	Correct bool
	// MatchedConsensus: the verdict sat on the winning weighted side.
	MatchedConsensus bool
	// Early: submitted within the leading fraction of the voting window.
	Early      bool
	Confidence decimal.Decimal
	Streak     int64
}

// ReputationDelta maps an outcome into a signed score change. Correct answers
// earn the base points, multiplied by min(1 + streak*0.1, cap) when a streak
// is running, plus additive consensus and early bonuses. Incorrect answers
// lose the penalty. The whole delta is then scaled by the submission's own
// confidence, which also softens punishment for hedged wrong guesses.
func ReputationDelta(params types.ReputationParams, outcome AccuracyOutcome) int64 {
	var delta decimal.Decimal
	if outcome.Correct {
		delta = decimal.NewFromInt(params.CorrectPoints)
		if outcome.Streak > 0 {
			multiplier := one.Add(decimal.NewFromInt(outcome.Streak).Mul(streakStep))
			cap := decimal.NewFromFloat(params.StreakBonusCap)
			if multiplier.GreaterThan(cap) {
				multiplier = cap
			}
			delta = delta.Mul(multiplier)
		}
		if outcome.MatchedConsensus {
			delta = delta.Add(decimal.NewFromInt(params.ConsensusBonus))
		}
		if outcome.Early {
			delta = delta.Add(decimal.NewFromInt(params.EarlyBonus))
		}
	} else {
		delta = decimal.NewFromInt(-params.IncorrectPenalty)
	}
	return delta.Mul(outcome.Confidence).IntPart()
}

// ClampScore keeps a reputation score inside [MinScore, MaxScore].
func ClampScore(score int64, params types.ReputationParams) int64 {
	if score < params.MinScore {
		return params.MinScore
	}
	if score > params.MaxScore {
		return params.MaxScore
	}
	return score
}

// ApplyDecay reduces a score by decayRate per day of inactivity, never below
// zero times the original and always clamped. Decay is a periodic process,
// not tied to any single submission.
func ApplyDecay(score int64, daysInactive int64, params types.ReputationParams) int64 {
	if daysInactive <= 0 {
		return ClampScore(score, params)
	}
	factor := one.Sub(decimal.NewFromFloat(params.DecayRate).Mul(decimal.NewFromInt(daysInactive)))
	if factor.IsNegative() {
		factor = decimal.Zero
	}
	decayed := decimal.NewFromInt(score).Mul(factor).IntPart()
	return ClampScore(decayed, params)
}

// UpdateReputation folds one scored submission into the engine's record:
// score, counts, accuracy rate, streaks and earnings.
func UpdateReputation(rep *types.Reputation, outcome AccuracyOutcome, delta int64, earned decimal.Decimal, now time.Time, params types.ReputationParams) {
	rep.Score = ClampScore(rep.Score+delta, params)
	rep.TotalSubmissions++
	if outcome.Correct {
		rep.CorrectSubmissions++
		rep.CurrentStreak++
		if rep.CurrentStreak > rep.BestStreak {
			rep.BestStreak = rep.CurrentStreak
		}
		rep.TotalEarned = rep.TotalEarned.Add(earned)
	} else {
		rep.CurrentStreak = 0
	}
	rep.AccuracyRate = decimal.NewFromInt(rep.CorrectSubmissions).Div(decimal.NewFromInt(rep.TotalSubmissions))
	rep.LastUpdated = now
}

// RankReputations fills rank and percentile over the full population, highest
// score first. Ties keep their relative input order.
func RankReputations(reps []types.Reputation) {
	sort.SliceStable(reps, func(i, j int) bool {
		return reps[i].Score > reps[j].Score
	})
	total := decimal.NewFromInt(int64(len(reps)))
	for i := range reps {
		reps[i].Rank = int64(i + 1)
		reps[i].Percentile = decimal.NewFromInt(int64(len(reps) - i)).Div(total).Mul(hundred)
	}
}

// IsEarly reports whether a submission landed within the leading
// EarlyWindowFraction of the bounty's voting window.
func IsEarly(bounty *types.Bounty, submittedAt time.Time, params types.ReputationParams) bool {
	window := bounty.VotingDeadline.Sub(bounty.CreatedAt)
	if window <= 0 {
		return false
	}
	cutoff := bounty.CreatedAt.Add(time.Duration(float64(window) * params.EarlyWindowFraction))
	return !submittedAt.After(cutoff)
}
