package calculations

import (
	"github.com/deep60/nexus-security/types"
	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// timeFactor is a constant placeholder. The contract allows replacing it with
// a decaying function of submission order, as long as it stays deterministic
// and bounded.
var timeFactor = one

// VoteWeight converts one vote into its scalar influence: the stake scaled by
// a normalized blend of reputation, confidence and time. The blend is divided
// by the coefficient sum so the scaling factor stays within [0, 1] regardless
// of coefficient tuning. Pure; safe to call concurrently.
func VoteWeight(vote types.Vote, params types.ConsensusParams) decimal.Decimal {
	wr := decimal.NewFromFloat(params.ReputationWeight)
	wc := decimal.NewFromFloat(params.ConfidenceWeight)
	wt := decimal.NewFromFloat(params.TimeWeight)
	total := wr.Add(wc).Add(wt)
	if total.IsZero() {
		return decimal.Zero
	}
	factor := reputationFactor(vote.Reputation, params.ReputationCeiling).Mul(wr).
		Add(vote.Confidence.Mul(wc)).
		Add(timeFactor.Mul(wt)).
		Div(total)
	return vote.Stake.Mul(factor)
}

// reputationFactor normalizes a raw score into [0, 1]. Zero reputation means
// zero factor, never a floor.
func reputationFactor(score int64, ceiling int64) decimal.Decimal {
	if score <= 0 || ceiling <= 0 {
		return decimal.Zero
	}
	factor := decimal.NewFromInt(score).Div(decimal.NewFromInt(ceiling))
	if factor.GreaterThan(one) {
		return one
	}
	return factor
}
