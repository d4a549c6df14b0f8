package reputation

import (
	"context"
	"time"

	"github.com/deep60/nexus-security/calculations"
	"github.com/deep60/nexus-security/logging"
	"github.com/deep60/nexus-security/types"
)

// DecayWorker periodically erodes the scores of inactive engines and
// recomputes the rank/percentile table. It runs on its own timer, detached
// from any submission event, and shares nothing with the consensus worker but
// the store.
type DecayWorker struct {
	reputations types.ReputationStore
	params      types.ReputationParams
	now         func() time.Time
}

func NewDecayWorker(reputations types.ReputationStore, params types.ReputationParams) *DecayWorker {
	return &DecayWorker{
		reputations: reputations,
		params:      params,
		now:         time.Now,
	}
}

func (w *DecayWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.params.DecayInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce applies one decay pass over the whole population.
func (w *DecayWorker) RunOnce(ctx context.Context) {
	reps, err := w.reputations.AllReputations(ctx)
	if err != nil {
		logging.Error("Error listing reputations for decay", types.Reputations, "error", err)
		return
	}
	now := w.now()
	decayed := 0
	for i := range reps {
		// Charge decay only for days not already charged: the base is the
		// later of the last activity and the last decay pass, so repeated
		// or overlapping passes never compound on the same idle days.
		base := reps[i].LastUpdated
		if reps[i].LastDecayedAt.After(base) {
			base = reps[i].LastDecayedAt
		}
		daysInactive := int64(now.Sub(base).Hours() / 24)
		if daysInactive <= 0 {
			continue
		}
		score := calculations.ApplyDecay(reps[i].Score, daysInactive, w.params)
		// Fractional leftover days stay uncharged for the next pass.
		reps[i].LastDecayedAt = base.Add(time.Duration(daysInactive) * 24 * time.Hour)
		if score != reps[i].Score {
			reps[i].Score = score
			decayed++
		}
	}

	calculations.RankReputations(reps)
	for i := range reps {
		if err := w.reputations.SetReputation(ctx, &reps[i]); err != nil {
			logging.Error("Error persisting decayed reputation", types.Reputations,
				"engine", reps[i].EngineId, "error", err)
		}
	}
	if decayed > 0 {
		logging.Info("Reputation decay applied", types.Reputations, "decayed", decayed, "total", len(reps))
	}
}
