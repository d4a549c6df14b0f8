package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/deep60/nexus-security/store"
	"github.com/deep60/nexus-security/types"
)

type flakyExecutor struct {
	failures int
	calls    int
}

func (e *flakyExecutor) Execute(_ context.Context, payout types.Payout) (common.Hash, error) {
	e.calls++
	if e.calls <= e.failures {
		return common.Hash{}, errors.New("payment rail unavailable")
	}
	return common.HexToHash("0xabc123"), nil
}

func pendingPayout(id string) *types.Payout {
	return &types.Payout{
		Id:        id,
		BountyId:  "bounty-1",
		Recipient: "engine-a",
		Amount:    decimal.NewFromInt(100),
		Type:      types.PayoutStakeReturn,
		Status:    types.PayoutPending,
	}
}

func newTestProcessor(executor types.PaymentExecutor) (*Processor, *store.MemoryStore) {
	s := store.NewMemoryStore()
	p := NewProcessor(s, executor, types.DefaultParams().Settlement)
	return p, s
}

func TestProcessPendingCompletesPayout(t *testing.T) {
	executor := &flakyExecutor{}
	p, s := newTestProcessor(executor)
	ctx := context.Background()
	require.NoError(t, s.SetPayout(ctx, pendingPayout("p1")))

	p.ProcessPending(ctx)

	payouts, err := s.PayoutsForBounty(ctx, "bounty-1")
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	require.Equal(t, types.PayoutCompleted, payouts[0].Status)
	require.Equal(t, common.HexToHash("0xabc123"), payouts[0].TxHash)
	require.Equal(t, 1, payouts[0].Attempts)

	pending, err := s.PendingPayouts(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestProcessPendingRetriesAfterBackoff(t *testing.T) {
	executor := &flakyExecutor{failures: 1}
	p, s := newTestProcessor(executor)
	ctx := context.Background()
	require.NoError(t, s.SetPayout(ctx, pendingPayout("p1")))

	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	p.ProcessPending(ctx)
	payouts, _ := s.PayoutsForBounty(ctx, "bounty-1")
	require.Equal(t, types.PayoutPending, payouts[0].Status)
	require.Equal(t, 1, payouts[0].Attempts)

	// Still inside the backoff window: no new attempt.
	clock = clock.Add(5 * time.Second)
	p.ProcessPending(ctx)
	require.Equal(t, 1, executor.calls)

	clock = clock.Add(10 * time.Second)
	p.ProcessPending(ctx)
	payouts, _ = s.PayoutsForBounty(ctx, "bounty-1")
	require.Equal(t, types.PayoutCompleted, payouts[0].Status)
	require.Equal(t, 2, payouts[0].Attempts)
}

func TestProcessPendingParksExhaustedPayout(t *testing.T) {
	executor := &flakyExecutor{failures: 100}
	p, s := newTestProcessor(executor)
	ctx := context.Background()
	require.NoError(t, s.SetPayout(ctx, pendingPayout("p1")))

	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	for i := 0; i < p.params.MaxAttempts; i++ {
		p.ProcessPending(ctx)
		clock = clock.Add(time.Hour)
	}

	payouts, _ := s.PayoutsForBounty(ctx, "bounty-1")
	require.Equal(t, types.PayoutFailed, payouts[0].Status)
	require.Equal(t, p.params.MaxAttempts, payouts[0].Attempts)

	// Failed payouts leave the pending queue for good.
	pending, err := s.PendingPayouts(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)

	p.ProcessPending(ctx)
	require.Equal(t, p.params.MaxAttempts, executor.calls)
}

func TestProcessPendingRequeuesStaleProcessing(t *testing.T) {
	executor := &flakyExecutor{}
	p, s := newTestProcessor(executor)
	ctx := context.Background()

	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	// Orphaned by a crash after the Processing write but before any outcome
	// was recorded.
	stale := pendingPayout("p1")
	stale.Status = types.PayoutProcessing
	stale.UpdatedAt = clock.Add(-10 * time.Minute)
	require.NoError(t, s.SetPayout(ctx, stale))

	// A Processing payout inside the stale window belongs to a live attempt.
	fresh := pendingPayout("p2")
	fresh.Status = types.PayoutProcessing
	fresh.UpdatedAt = clock.Add(-time.Minute)
	require.NoError(t, s.SetPayout(ctx, fresh))

	p.ProcessPending(ctx)

	payouts, err := s.PayoutsForBounty(ctx, "bounty-1")
	require.NoError(t, err)
	byId := make(map[string]types.Payout, len(payouts))
	for _, payout := range payouts {
		byId[payout.Id] = payout
	}
	require.Equal(t, types.PayoutCompleted, byId["p1"].Status)
	require.Equal(t, 1, byId["p1"].Attempts)
	require.Equal(t, types.PayoutProcessing, byId["p2"].Status)
	require.Equal(t, 1, executor.calls)
}

func TestBackoffGrowthIsCapped(t *testing.T) {
	p, _ := newTestProcessor(&flakyExecutor{})
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return base }

	payout := pendingPayout("p1")
	payout.UpdatedAt = base.Add(-6 * time.Minute)
	payout.Attempts = 50
	// 10s base doubled per attempt would dwarf any poll interval; the cap
	// keeps the worst case at 32x.
	require.True(t, p.due(payout))

	payout.UpdatedAt = base.Add(-time.Minute)
	require.False(t, p.due(payout))
}
