package calculations

import (
	"github.com/deep60/nexus-security/types"
	"github.com/shopspring/decimal"
)

// thresholdOrder is the category scan order for both the threshold check and
// the fallback tie-break. Unknown is excluded: it represents "no signal" and
// is never a threshold-eligible winner. Erring toward Malicious on ties is
// deliberate policy.
var thresholdOrder = []types.Verdict{types.VerdictMalicious, types.VerdictBenign, types.VerdictSuspicious}

// Resolve picks the final verdict: the first category in priority order whose
// percentage meets the threshold wins with that category's average confidence.
// If none meets it, the category with the highest weighted count wins, ties
// broken by priority order. Unknown with confidence zero is the terminal
// fallback when every eligible category is weightless.
func Resolve(dist *Distribution, threshold decimal.Decimal) (types.Verdict, decimal.Decimal) {
	thresholdPct := threshold.Mul(hundred)
	for _, verdict := range thresholdOrder {
		if dist.Get(verdict).Percentage.GreaterThanOrEqual(thresholdPct) {
			return verdict, dist.Get(verdict).AvgConfidence
		}
	}

	winner := types.VerdictUnknown
	topWeight := decimal.Zero
	for _, verdict := range thresholdOrder {
		if dist.Get(verdict).WeightedCount.GreaterThan(topWeight) {
			winner = verdict
			topWeight = dist.Get(verdict).WeightedCount
		}
	}
	if winner == types.VerdictUnknown {
		return types.VerdictUnknown, decimal.Zero
	}
	return winner, dist.Get(winner).AvgConfidence
}

// ConsensusReached requires both the percentage bar and the evidence bar: the
// winning category at or above the threshold AND at least minSubmissions
// votes. A fallback Unknown never counts as consensus.
func ConsensusReached(dist *Distribution, winner types.Verdict, threshold decimal.Decimal, minSubmissions int) bool {
	if winner == types.VerdictUnknown {
		return false
	}
	if dist.TotalVotes < minSubmissions {
		return false
	}
	return dist.Get(winner).Percentage.GreaterThanOrEqual(threshold.Mul(hundred))
}

// Agreement is the maximum percentage across all four categories: how
// dominant the winning side is, 0..100.
func Agreement(dist *Distribution) decimal.Decimal {
	max := decimal.Zero
	for _, verdict := range types.VerdictOrder {
		if dist.Get(verdict).Percentage.GreaterThan(max) {
			max = dist.Get(verdict).Percentage
		}
	}
	return max
}

// CanDispute opens fragmented results to dispute. A landslide is not
// disputable by this rule alone.
func CanDispute(agreementScore decimal.Decimal, disputeThreshold decimal.Decimal) bool {
	return agreementScore.LessThan(disputeThreshold.Mul(hundred))
}

// Evaluate runs the full aggregation pass over one bounty's votes and caches
// every derived figure in a ConsensusResult.
func Evaluate(votes []types.Vote, weighted bool, threshold decimal.Decimal, minSubmissions int, params types.ConsensusParams) *types.ConsensusResult {
	dist := BuildDistribution(votes, weighted, params)
	verdict, confidence := Resolve(dist, threshold)
	agreement := Agreement(dist)

	weightedScore := decimal.Zero
	if dist.TotalWeight.IsPositive() {
		weightedScore = dist.Get(verdict).WeightedCount.Div(dist.TotalWeight)
	}
	disputeThreshold := decimal.NewFromFloat(params.DisputeThreshold)
	return &types.ConsensusResult{
		FinalVerdict:     verdict,
		Confidence:       confidence,
		TotalSubmissions: dist.TotalVotes,
		Distribution:     dist.Stats,
		WeightedScore:    weightedScore,
		ConsensusReached: ConsensusReached(dist, verdict, threshold, minSubmissions),
		AgreementScore:   agreement,
		DisputeEligible:  CanDispute(agreement, disputeThreshold),
	}
}
