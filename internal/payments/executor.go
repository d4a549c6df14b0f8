package payments

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/deep60/nexus-security/logging"
	"github.com/deep60/nexus-security/types"
)

// LocalExecutor stands in for the on-chain payment collaborator in local and
// test deployments: it acknowledges every action with a deterministic
// pseudo-transaction hash derived from the payout record. The production
// chain adapter implements the same types.PaymentExecutor contract.
type LocalExecutor struct{}

var _ types.PaymentExecutor = (*LocalExecutor)(nil)

func NewLocalExecutor() *LocalExecutor {
	return &LocalExecutor{}
}

func (e *LocalExecutor) Execute(_ context.Context, payout types.Payout) (common.Hash, error) {
	payload, err := json.Marshal(struct {
		Id        string           `json:"id"`
		BountyId  string           `json:"bounty_id"`
		Recipient string           `json:"recipient"`
		Amount    string           `json:"amount"`
		Type      types.PayoutType `json:"type"`
	}{
		Id:        payout.Id,
		BountyId:  payout.BountyId,
		Recipient: payout.Recipient,
		Amount:    payout.Amount.String(),
		Type:      payout.Type,
	})
	if err != nil {
		return common.Hash{}, err
	}
	hash := crypto.Keccak256Hash(payload)
	logging.Debug("Executed payout locally", types.Payments, "payout", payout.Id, "tx", hash.Hex())
	return hash, nil
}
