package payments_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/deep60/nexus-security/internal/payments"
	"github.com/deep60/nexus-security/types"
)

func TestExecuteReturnsDeterministicHash(t *testing.T) {
	executor := payments.NewLocalExecutor()
	payout := types.Payout{
		Id:        "payout-1",
		BountyId:  "bounty-1",
		Recipient: "engine-a",
		Amount:    decimal.NewFromInt(100),
		Type:      types.PayoutStakeReturn,
	}

	first, err := executor.Execute(context.Background(), payout)
	require.NoError(t, err)
	second, err := executor.Execute(context.Background(), payout)
	require.NoError(t, err)
	require.Equal(t, first, second)

	payout.Amount = decimal.NewFromInt(101)
	third, err := executor.Execute(context.Background(), payout)
	require.NoError(t, err)
	require.NotEqual(t, first, third)
}
