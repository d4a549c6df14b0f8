package settlement

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"

	"github.com/deep60/nexus-security/types"
)

// payoutNamespace seeds deterministic payout ids: regenerating a plan for the
// same resolved bounty yields byte-identical records, so a crashed settlement
// can be retried without double-paying.
var payoutNamespace = uuid.MustParse("8f0e2f76-3b5a-4a51-9d2c-6de1c6a7b9e4")

// WeightedSubmission pairs a scored submission with the weight it carried in
// the winning distribution. Weights are snapshotted at resolution time so the
// plan does not drift when reputations change afterward.
type WeightedSubmission struct {
	Submission types.Submission
	Weight     decimal.Decimal
}

func payoutId(bountyId string, recipient string, payoutType types.PayoutType, submissionId string) string {
	return uuid.NewSHA1(payoutNamespace, []byte(bountyId+"/"+recipient+"/"+string(payoutType)+"/"+submissionId)).String()
}

func newPayout(bounty *types.Bounty, sub types.Submission, payoutType types.PayoutType, amount decimal.Decimal) types.Payout {
	return types.Payout{
		Id:           payoutId(bounty.Id, sub.EngineId, payoutType, sub.Id),
		BountyId:     bounty.Id,
		SubmissionId: sub.Id,
		Recipient:    sub.EngineId,
		Amount:       amount,
		Type:         payoutType,
		Status:       types.PayoutPending,
	}
}

// BuildPlan translates a resolved bounty into monetary actions. Correct
// submissions get their stake back plus a pro-rata share of the reward by
// weight among all correct submissions; incorrect submissions forfeit
// SlashFraction of their stake. The plan is ordered and deterministic; it
// moves no funds itself.
func BuildPlan(bounty *types.Bounty, submissions []WeightedSubmission, params types.SettlementParams) []types.Payout {
	totalCorrectWeight := decimal.Zero
	for _, ws := range submissions {
		if ws.Submission.Status == types.SubmissionCorrect {
			totalCorrectWeight = totalCorrectWeight.Add(ws.Weight)
		}
	}
	slashFraction := decimal.NewFromFloat(params.SlashFraction)

	plan := make([]types.Payout, 0, len(submissions)*2)
	for _, ws := range submissions {
		sub := ws.Submission
		switch sub.Status {
		case types.SubmissionCorrect:
			plan = append(plan, newPayout(bounty, sub, types.PayoutStakeReturn, sub.StakeAmount))
			if totalCorrectWeight.IsPositive() {
				share := ws.Weight.Div(totalCorrectWeight).Mul(bounty.RewardAmount)
				plan = append(plan, newPayout(bounty, sub, types.PayoutBountyReward, share))
			}
		case types.SubmissionIncorrect:
			plan = append(plan, newPayout(bounty, sub, types.PayoutStakeSlash, sub.StakeAmount.Mul(slashFraction)))
		}
	}
	sortPlan(plan)
	return plan
}

// BuildExpiryPlan returns every stake on a bounty that expired without
// consensus. Nobody is slashed for the crowd failing to converge.
func BuildExpiryPlan(bounty *types.Bounty, submissions []types.Submission) []types.Payout {
	plan := make([]types.Payout, 0, len(submissions))
	for _, sub := range submissions {
		plan = append(plan, newPayout(bounty, sub, types.PayoutStakeReturn, sub.StakeAmount))
	}
	sortPlan(plan)
	return plan
}

// correctionId derives the id of the top-up record that adjusts an existing
// payout upward. Deriving it from the base id keeps re-runs writing the same
// record instead of stacking duplicates.
func correctionId(baseId string) string {
	return uuid.NewSHA1(payoutNamespace, []byte(baseId+"/correction")).String()
}

// Reconcile computes the compensating actions a dispute re-resolution owes on
// top of an already-persisted plan. Payouts from the first pass are final (no
// clawback): desired actions with no prior record are emitted whole, and a
// desired amount above what a prior record plus its correction already cover
// is emitted as a top-up. Shrunk amounts are left alone.
func Reconcile(existing []types.Payout, desired []types.Payout) []types.Payout {
	prior := make(map[string]types.Payout, len(existing))
	for _, p := range existing {
		prior[p.Id] = p
	}
	delta := make([]types.Payout, 0)
	for _, p := range desired {
		covered := decimal.Zero
		seen := false
		if prev, ok := prior[p.Id]; ok {
			covered = covered.Add(prev.Amount)
			seen = true
		}
		if prev, ok := prior[correctionId(p.Id)]; ok {
			covered = covered.Add(prev.Amount)
			seen = true
		}
		if !seen {
			delta = append(delta, p)
			continue
		}
		diff := p.Amount.Sub(covered)
		if diff.IsPositive() {
			topUp := p
			topUp.Id = correctionId(p.Id)
			topUp.Amount = diff
			delta = append(delta, topUp)
		}
	}
	sortPlan(delta)
	return delta
}

func sortPlan(plan []types.Payout) {
	slices.SortFunc(plan, func(a, b types.Payout) int {
		if a.Recipient != b.Recipient {
			if a.Recipient < b.Recipient {
				return -1
			}
			return 1
		}
		if a.Type != b.Type {
			if a.Type < b.Type {
				return -1
			}
			return 1
		}
		if a.Id < b.Id {
			return -1
		}
		if a.Id > b.Id {
			return 1
		}
		return 0
	})
}
