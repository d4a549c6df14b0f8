package reputation

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/deep60/nexus-security/store"
	"github.com/deep60/nexus-security/types"
)

func seedEngine(t *testing.T, s *store.MemoryStore, engine string, score int64, lastUpdated time.Time) {
	t.Helper()
	require.NoError(t, s.SetReputation(context.Background(), &types.Reputation{
		EngineId:    engine,
		Score:       score,
		LastUpdated: lastUpdated,
	}))
}

func TestRunOnceDecaysInactiveEngines(t *testing.T) {
	s := store.NewMemoryStore()
	w := NewDecayWorker(s, types.DefaultParams().Reputation)
	now := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }
	ctx := context.Background()

	seedEngine(t, s, "engine-idle", 1000, now.AddDate(0, 0, -30))
	seedEngine(t, s, "engine-fresh", 2000, now.Add(-time.Hour))

	w.RunOnce(ctx)

	// 30 days at 1% per day takes 30% off.
	idle, err := s.GetReputation(ctx, "engine-idle")
	require.NoError(t, err)
	require.Equal(t, int64(700), idle.Score)

	fresh, err := s.GetReputation(ctx, "engine-fresh")
	require.NoError(t, err)
	require.Equal(t, int64(2000), fresh.Score)
}

func TestRunOnceDoesNotCompoundAcrossPasses(t *testing.T) {
	s := store.NewMemoryStore()
	w := NewDecayWorker(s, types.DefaultParams().Reputation)
	now := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }
	ctx := context.Background()

	seedEngine(t, s, "engine-idle", 1000, now.AddDate(0, 0, -30))

	// A restart or shortened interval can run two passes at the same clock;
	// the 30 idle days must only be charged once.
	w.RunOnce(ctx)
	w.RunOnce(ctx)

	idle, err := s.GetReputation(ctx, "engine-idle")
	require.NoError(t, err)
	require.Equal(t, int64(700), idle.Score)

	// A day later only the one new idle day is charged: 700 * 0.99.
	now = now.AddDate(0, 0, 1)
	w.RunOnce(ctx)
	idle, err = s.GetReputation(ctx, "engine-idle")
	require.NoError(t, err)
	require.Equal(t, int64(693), idle.Score)
}

func TestRunOnceRecomputesRanks(t *testing.T) {
	s := store.NewMemoryStore()
	w := NewDecayWorker(s, types.DefaultParams().Reputation)
	now := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }
	ctx := context.Background()

	// The idle leader decays below the active runner-up and loses the top
	// rank to it.
	seedEngine(t, s, "engine-idle", 3000, now.AddDate(0, 0, -60))
	seedEngine(t, s, "engine-active", 2000, now.Add(-time.Hour))

	w.RunOnce(ctx)

	active, err := s.GetReputation(ctx, "engine-active")
	require.NoError(t, err)
	require.Equal(t, int64(1), active.Rank)
	require.True(t, decimal.NewFromInt(100).Equal(active.Percentile))

	idle, err := s.GetReputation(ctx, "engine-idle")
	require.NoError(t, err)
	require.Equal(t, int64(1200), idle.Score)
	require.Equal(t, int64(2), idle.Rank)
	require.True(t, decimal.NewFromInt(50).Equal(idle.Percentile))
}

func TestRunOnceEmptyPopulation(t *testing.T) {
	s := store.NewMemoryStore()
	w := NewDecayWorker(s, types.DefaultParams().Reputation)
	w.RunOnce(context.Background())

	reps, err := s.AllReputations(context.Background())
	require.NoError(t, err)
	require.Empty(t, reps)
}
