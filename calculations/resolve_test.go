package calculations_test

import (
	"testing"

	"github.com/deep60/nexus-security/calculations"
	"github.com/deep60/nexus-security/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestResolveThresholdWinner(t *testing.T) {
	dist := calculations.BuildDistribution(threeVoteSet(), true, defaultConsensusParams)
	verdict, confidence := calculations.Resolve(dist, decimal.NewFromFloat(0.66))
	require.Equal(t, types.VerdictMalicious, verdict)
	require.True(t, confidence.Equal(decimal.NewFromFloat(0.875)))
}

func TestResolveFallbackHighestWeight(t *testing.T) {
	// 50/50 split by weight, nobody crosses 0.66: Suspicious holds slightly
	// more weight and wins the fallback.
	votes := []types.Vote{
		{EngineId: "a", Verdict: types.VerdictBenign, Confidence: decimal.NewFromFloat(0.9), Stake: decimal.NewFromInt(100), Reputation: 5000},
		{EngineId: "b", Verdict: types.VerdictSuspicious, Confidence: decimal.NewFromFloat(0.9), Stake: decimal.NewFromInt(110), Reputation: 5000},
	}
	dist := calculations.BuildDistribution(votes, true, defaultConsensusParams)
	verdict, confidence := calculations.Resolve(dist, decimal.NewFromFloat(0.66))
	require.Equal(t, types.VerdictSuspicious, verdict)
	require.True(t, confidence.Equal(decimal.NewFromFloat(0.9)))
}

func TestResolveTieBreakPrefersMalicious(t *testing.T) {
	votes := []types.Vote{
		{EngineId: "a", Verdict: types.VerdictMalicious, Confidence: decimal.NewFromFloat(0.5), Stake: decimal.NewFromInt(100), Reputation: 5000},
		{EngineId: "b", Verdict: types.VerdictBenign, Confidence: decimal.NewFromFloat(0.5), Stake: decimal.NewFromInt(100), Reputation: 5000},
	}
	dist := calculations.BuildDistribution(votes, true, defaultConsensusParams)
	verdict, _ := calculations.Resolve(dist, decimal.NewFromFloat(0.66))
	require.Equal(t, types.VerdictMalicious, verdict)
}

func TestResolveEmptyDistributionIsUnknown(t *testing.T) {
	dist := calculations.BuildDistribution(nil, true, defaultConsensusParams)
	for i := 0; i < 3; i++ {
		verdict, confidence := calculations.Resolve(dist, decimal.NewFromFloat(0.66))
		require.Equal(t, types.VerdictUnknown, verdict)
		require.True(t, confidence.IsZero())
	}
}

func TestResolveAllUnknownVotesFallsBackToUnknown(t *testing.T) {
	votes := []types.Vote{
		{EngineId: "a", Verdict: types.VerdictUnknown, Confidence: decimal.NewFromFloat(0.9), Stake: decimal.NewFromInt(100), Reputation: 5000},
	}
	dist := calculations.BuildDistribution(votes, true, defaultConsensusParams)
	verdict, confidence := calculations.Resolve(dist, decimal.NewFromFloat(0.66))
	require.Equal(t, types.VerdictUnknown, verdict)
	require.True(t, confidence.IsZero())
	require.False(t, calculations.ConsensusReached(dist, verdict, decimal.NewFromFloat(0.66), 1))
}

func TestConsensusReachedNeedsBothBars(t *testing.T) {
	dist := calculations.BuildDistribution(threeVoteSet(), true, defaultConsensusParams)
	verdict, _ := calculations.Resolve(dist, decimal.NewFromFloat(0.66))

	require.True(t, calculations.ConsensusReached(dist, verdict, decimal.NewFromFloat(0.66), 3))
	// Percentage alone is not enough below the submission minimum.
	require.False(t, calculations.ConsensusReached(dist, verdict, decimal.NewFromFloat(0.66), 4))
}

func TestThresholdMonotonicity(t *testing.T) {
	dist := calculations.BuildDistribution(threeVoteSet(), true, defaultConsensusParams)
	verdict, _ := calculations.Resolve(dist, decimal.NewFromFloat(0.5))

	failed := false
	for _, threshold := range []float64{0.1, 0.3, 0.5, 0.7, 0.75, 0.8, 0.95} {
		reached := calculations.ConsensusReached(dist, verdict, decimal.NewFromFloat(threshold), 3)
		if failed {
			// Once a threshold fails, every stricter one must fail too.
			require.False(t, reached, "threshold %v flipped back to reached", threshold)
		}
		if !reached {
			failed = true
		}
	}
	require.True(t, failed, "expected some threshold above the winning share to fail")
}

func TestModesCanDisagreeOnWinner(t *testing.T) {
	// One huge-stake Benign vote against two tiny-stake Malicious votes.
	votes := []types.Vote{
		{EngineId: "whale", Verdict: types.VerdictBenign, Confidence: decimal.NewFromFloat(0.9), Stake: decimal.NewFromInt(100000), Reputation: 5000},
		{EngineId: "m1", Verdict: types.VerdictMalicious, Confidence: decimal.NewFromFloat(0.9), Stake: decimal.NewFromInt(10), Reputation: 5000},
		{EngineId: "m2", Verdict: types.VerdictMalicious, Confidence: decimal.NewFromFloat(0.9), Stake: decimal.NewFromInt(10), Reputation: 5000},
	}
	threshold := decimal.NewFromFloat(0.66)

	weighted := calculations.BuildDistribution(votes, true, defaultConsensusParams)
	weightedVerdict, _ := calculations.Resolve(weighted, threshold)
	require.Equal(t, types.VerdictBenign, weightedVerdict)

	simple := calculations.BuildDistribution(votes, false, defaultConsensusParams)
	simpleVerdict, _ := calculations.Resolve(simple, threshold)
	require.Equal(t, types.VerdictMalicious, simpleVerdict)
}

func TestAgreementIsDominantShare(t *testing.T) {
	dist := calculations.BuildDistribution(threeVoteSet(), false, defaultConsensusParams)
	agreement := calculations.Agreement(dist)
	require.True(t, agreement.GreaterThan(decimal.NewFromInt(66)))
	require.True(t, agreement.LessThan(decimal.NewFromInt(67)))
}

func TestCanDispute(t *testing.T) {
	require.True(t, calculations.CanDispute(decimal.NewFromInt(60), decimal.NewFromFloat(0.75)))
	require.False(t, calculations.CanDispute(decimal.NewFromInt(90), decimal.NewFromFloat(0.75)))
	require.False(t, calculations.CanDispute(decimal.NewFromInt(75), decimal.NewFromFloat(0.75)))
}

func TestEvaluateCachesEveryFigure(t *testing.T) {
	result := calculations.Evaluate(threeVoteSet(), true, decimal.NewFromFloat(0.66), 3, defaultConsensusParams)
	require.Equal(t, types.VerdictMalicious, result.FinalVerdict)
	require.True(t, result.ConsensusReached)
	require.Equal(t, 3, result.TotalSubmissions)
	require.Len(t, result.Distribution, 4)
	require.True(t, result.WeightedScore.GreaterThan(decimal.NewFromFloat(0.75)))
	require.True(t, result.WeightedScore.LessThan(decimal.NewFromFloat(0.76)))
	// 75.4% agreement sits at or above the 0.75 dispute bar.
	require.False(t, result.DisputeEligible)
}
