package settlement

import (
	"context"
	"time"

	"github.com/deep60/nexus-security/logging"
	"github.com/deep60/nexus-security/types"
)

// Processor drives persisted payouts through the external payment executor.
// It owns retries: capped exponential backoff between attempts, and payouts
// that exhaust MaxAttempts are parked in Failed status for an operator. It
// never blocks the consensus worker; they share only the store.
type Processor struct {
	payouts  types.PayoutStore
	executor types.PaymentExecutor
	params   types.SettlementParams
	now      func() time.Time
}

func NewProcessor(payouts types.PayoutStore, executor types.PaymentExecutor, params types.SettlementParams) *Processor {
	return &Processor{
		payouts:  payouts,
		executor: executor,
		params:   params,
		now:      time.Now,
	}
}

func (p *Processor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.params.ProcessInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessPending(ctx)
		}
	}
}

// ProcessPending executes every due pending payout once. A payout that is not
// yet due (still inside its backoff window) is left for a later pass.
func (p *Processor) ProcessPending(ctx context.Context) {
	p.sweepStale(ctx)

	pending, err := p.payouts.PendingPayouts(ctx)
	if err != nil {
		logging.Error("Error listing pending payouts", types.Payments, "error", err)
		return
	}
	for _, payout := range pending {
		if !p.due(&payout) {
			continue
		}
		if err := p.execute(ctx, payout); err != nil {
			logging.Error("Error processing payout", types.Payments, "payout", payout.Id, "error", err)
		}
	}
}

// sweepStale requeues payouts orphaned in Processing by a crash between the
// status write and the execution outcome. The attempt was never recorded, so
// requeueing cannot double-count against MaxAttempts; the executor is assumed
// idempotent per payout id.
func (p *Processor) sweepStale(ctx context.Context) {
	processing, err := p.payouts.ProcessingPayouts(ctx)
	if err != nil {
		logging.Error("Error listing processing payouts", types.Payments, "error", err)
		return
	}
	for _, payout := range processing {
		if p.now().Sub(payout.UpdatedAt) < p.params.StaleProcessing {
			continue
		}
		payout.Status = types.PayoutPending
		payout.UpdatedAt = p.now()
		if err := p.payouts.SetPayout(ctx, &payout); err != nil {
			logging.Error("Error requeueing stale payout", types.Payments, "payout", payout.Id, "error", err)
			continue
		}
		logging.Warn("Requeued payout stuck in processing", types.Payments,
			"payout", payout.Id, "bounty", payout.BountyId, "attempts", payout.Attempts)
	}
}

// due applies capped exponential backoff: RetryBackoff doubled per attempt,
// capped at 32x.
func (p *Processor) due(payout *types.Payout) bool {
	if payout.Attempts == 0 {
		return true
	}
	shift := payout.Attempts - 1
	if shift > 5 {
		shift = 5
	}
	delay := p.params.RetryBackoff * (1 << shift)
	return !p.now().Before(payout.UpdatedAt.Add(delay))
}

func (p *Processor) execute(ctx context.Context, payout types.Payout) error {
	payout.Status = types.PayoutProcessing
	payout.UpdatedAt = p.now()
	if err := p.payouts.SetPayout(ctx, &payout); err != nil {
		return err
	}

	txHash, err := p.executor.Execute(ctx, payout)
	payout.Attempts++
	payout.UpdatedAt = p.now()
	if err != nil {
		if payout.Attempts >= p.params.MaxAttempts {
			payout.Status = types.PayoutFailed
			logging.Error("Payout exhausted retries, operator intervention required", types.Payments,
				"payout", payout.Id, "bounty", payout.BountyId, "attempts", payout.Attempts, "error", err)
		} else {
			payout.Status = types.PayoutPending
			logging.Warn("Payout execution failed, will retry", types.Payments,
				"payout", payout.Id, "attempts", payout.Attempts, "error", err)
		}
		return p.payouts.SetPayout(ctx, &payout)
	}

	payout.Status = types.PayoutCompleted
	payout.TxHash = txHash
	logging.Info("Payout executed", types.Payments,
		"payout", payout.Id, "bounty", payout.BountyId, "recipient", payout.Recipient,
		"amount", payout.Amount, "tx", txHash.Hex())
	return p.payouts.SetPayout(ctx, &payout)
}
