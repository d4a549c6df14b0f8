package calculations_test

import (
	"testing"

	"github.com/deep60/nexus-security/calculations"
	"github.com/deep60/nexus-security/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAccuracyScoreBoundaries(t *testing.T) {
	score := calculations.AccuracyScore(types.VerdictMalicious, types.VerdictMalicious, decimal.NewFromInt(1))
	require.True(t, score.Equal(decimal.NewFromInt(1)))

	score = calculations.AccuracyScore(types.VerdictMalicious, types.VerdictMalicious, decimal.Zero)
	require.True(t, score.Equal(decimal.NewFromFloat(0.5)))

	// Wrong answers never get partial credit from confidence.
	for _, confidence := range []float64{0, 0.5, 1} {
		score = calculations.AccuracyScore(types.VerdictBenign, types.VerdictMalicious, decimal.NewFromFloat(confidence))
		require.True(t, score.IsZero())
	}
}

func TestAccuracyScoreScalesWithConfidence(t *testing.T) {
	low := calculations.AccuracyScore(types.VerdictSuspicious, types.VerdictSuspicious, decimal.NewFromFloat(0.2))
	high := calculations.AccuracyScore(types.VerdictSuspicious, types.VerdictSuspicious, decimal.NewFromFloat(0.8))
	require.True(t, low.Equal(decimal.NewFromFloat(0.6)))
	require.True(t, high.Equal(decimal.NewFromFloat(0.9)))
	require.True(t, low.GreaterThanOrEqual(decimal.NewFromFloat(0.5)))
}
