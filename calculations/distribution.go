package calculations

import (
	"github.com/deep60/nexus-security/types"
	"github.com/shopspring/decimal"
)

// Distribution groups weighted votes by verdict category. All four categories
// are always present, zero-initialized, and emitted in types.VerdictOrder so
// the output is byte-identical for the same vote set.
type Distribution struct {
	Stats       map[types.Verdict]*types.VoteStats
	TotalVotes  int
	TotalWeight decimal.Decimal
}

func (d *Distribution) Get(verdict types.Verdict) *types.VoteStats {
	return d.Stats[verdict]
}

// BuildDistribution aggregates votes in one pass. In weighted mode each vote
// contributes VoteWeight; in simple-majority mode each vote contributes one.
// The mode applies uniformly to the whole vote set, never mixed. An empty
// input yields an all-zero distribution, not an error.
func BuildDistribution(votes []types.Vote, weighted bool, params types.ConsensusParams) *Distribution {
	dist := &Distribution{
		Stats:       make(map[types.Verdict]*types.VoteStats, len(types.VerdictOrder)),
		TotalWeight: decimal.Zero,
	}
	confidenceSums := make(map[types.Verdict]decimal.Decimal, len(types.VerdictOrder))
	for _, verdict := range types.VerdictOrder {
		dist.Stats[verdict] = &types.VoteStats{
			WeightedCount: decimal.Zero,
			Percentage:    decimal.Zero,
			AvgConfidence: decimal.Zero,
			Voters:        []string{},
		}
		confidenceSums[verdict] = decimal.Zero
	}

	for _, vote := range votes {
		weight := one
		if weighted {
			weight = VoteWeight(vote, params)
		}
		stats := dist.Stats[vote.Verdict]
		stats.Count++
		stats.WeightedCount = stats.WeightedCount.Add(weight)
		stats.Voters = append(stats.Voters, vote.EngineId)
		confidenceSums[vote.Verdict] = confidenceSums[vote.Verdict].Add(vote.Confidence)
		dist.TotalVotes++
		dist.TotalWeight = dist.TotalWeight.Add(weight)
	}

	for _, verdict := range types.VerdictOrder {
		stats := dist.Stats[verdict]
		if stats.Count > 0 {
			stats.AvgConfidence = confidenceSums[verdict].Div(decimal.NewFromInt(int64(stats.Count)))
		}
		if dist.TotalWeight.IsPositive() {
			stats.Percentage = stats.WeightedCount.Div(dist.TotalWeight).Mul(hundred)
		}
	}
	return dist
}
