package dispute

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/deep60/nexus-security/calculations"
	"github.com/deep60/nexus-security/internal/settlement"
	"github.com/deep60/nexus-security/logging"
	"github.com/deep60/nexus-security/types"
)

// Resolver handles the Completed -> UnderReview -> Completed dispute cycle.
// An accepted dispute fully excludes the disputed submission and re-runs the
// aggregation over the remaining set; payouts already executed from the first
// pass are final, so only the missing compensating actions are planned.
type Resolver struct {
	bounties    types.BountyStore
	submissions types.SubmissionStore
	reputations types.ReputationStore
	payouts     types.PayoutStore
	disputes    types.DisputeStore
	publisher   types.EventPublisher
	params      types.Params
	now         func() time.Time
}

func NewResolver(
	bounties types.BountyStore,
	submissions types.SubmissionStore,
	reputations types.ReputationStore,
	payouts types.PayoutStore,
	disputes types.DisputeStore,
	publisher types.EventPublisher,
	params types.Params,
) *Resolver {
	return &Resolver{
		bounties:    bounties,
		submissions: submissions,
		reputations: reputations,
		payouts:     payouts,
		disputes:    disputes,
		publisher:   publisher,
		params:      params,
		now:         time.Now,
	}
}

// OpenDispute stakes a challenge against a submission of a Completed bounty.
func (r *Resolver) OpenDispute(ctx context.Context, bountyId string, submissionId string, disputerId string, reason string, evidence []byte, stake decimal.Decimal) (*types.Dispute, error) {
	bounty, err := r.bounties.GetBounty(ctx, bountyId)
	if err != nil {
		return nil, err
	}
	if bounty.Status != types.BountyCompleted {
		return nil, types.ErrBountyNotCompleted
	}
	if _, err := r.submissions.GetSubmission(ctx, bountyId, submissionId); err != nil {
		return nil, err
	}

	dispute := &types.Dispute{
		Id:           uuid.New().String(),
		BountyId:     bountyId,
		SubmissionId: submissionId,
		DisputerId:   disputerId,
		Reason:       reason,
		Evidence:     evidence,
		StakeAmount:  stake,
		Status:       types.DisputeOpen,
		CreatedAt:    r.now(),
	}
	if err := r.disputes.SetDispute(ctx, dispute); err != nil {
		return nil, err
	}
	logging.Info("Dispute opened", types.Disputes,
		"dispute", dispute.Id, "bounty", bountyId, "submission", submissionId, "disputer", disputerId)
	return dispute, nil
}

// ResolveDispute closes an open dispute. Accepted disputes reopen the bounty
// and re-resolve without the disputed submission; rejected disputes cost the
// disputer their stake and leave the bounty untouched.
func (r *Resolver) ResolveDispute(ctx context.Context, disputeId string, accepted bool, resolverId string, resolution string) error {
	dispute, err := r.disputes.GetDispute(ctx, disputeId)
	if err != nil {
		return err
	}
	switch dispute.Status {
	case types.DisputeOpen:
	case types.DisputeUnderReview:
		// An accept interrupted mid-review may be retried, but only as an
		// accept: the bounty is already reopened.
		if !accepted {
			return types.ErrDisputeNotOpen
		}
	default:
		return types.ErrDisputeNotOpen
	}

	if !accepted {
		return r.reject(ctx, dispute, resolverId, resolution)
	}
	return r.accept(ctx, dispute, resolverId, resolution)
}

func (r *Resolver) reject(ctx context.Context, dispute *types.Dispute, resolverId string, resolution string) error {
	now := r.now()
	slash := &types.Payout{
		Id:        uuid.New().String(),
		BountyId:  dispute.BountyId,
		Recipient: dispute.DisputerId,
		Amount:    dispute.StakeAmount,
		Type:      types.PayoutStakeSlash,
		Status:    types.PayoutPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.payouts.SetPayout(ctx, slash); err != nil {
		return err
	}

	dispute.Status = types.DisputeRejected
	dispute.ResolverId = resolverId
	dispute.Resolution = resolution
	dispute.ResolvedAt = &now
	if err := r.disputes.SetDispute(ctx, dispute); err != nil {
		return err
	}
	logging.Info("Dispute rejected, disputer stake slashed", types.Disputes,
		"dispute", dispute.Id, "disputer", dispute.DisputerId, "stake", dispute.StakeAmount)
	r.publishResolved(ctx, dispute, false, "")
	return nil
}

func (r *Resolver) accept(ctx context.Context, dispute *types.Dispute, resolverId string, resolution string) error {
	swapped, err := r.bounties.TransitionStatus(ctx, dispute.BountyId, types.BountyCompleted, types.BountyUnderReview)
	if err != nil {
		return err
	}
	bounty, err := r.bounties.GetBounty(ctx, dispute.BountyId)
	if err != nil {
		return err
	}
	// A retry after an interrupted review finds the bounty already
	// UnderReview; that pass is ours to finish, not a conflict.
	if !swapped && bounty.Status != types.BountyUnderReview {
		return types.ErrBountyNotCompleted
	}

	dispute.Status = types.DisputeUnderReview
	if err := r.disputes.SetDispute(ctx, dispute); err != nil {
		return err
	}

	result, err := r.reresolve(ctx, bounty, dispute)
	if err != nil {
		return err
	}

	now := r.now()
	dispute.Status = types.DisputeResolved
	dispute.ResolverId = resolverId
	dispute.Resolution = resolution
	dispute.ResolvedAt = &now
	if err := r.disputes.SetDispute(ctx, dispute); err != nil {
		return err
	}

	if _, err := r.bounties.TransitionStatus(ctx, dispute.BountyId, types.BountyUnderReview, types.BountyCompleted); err != nil {
		return err
	}
	logging.Info("Dispute accepted, bounty re-resolved", types.Disputes,
		"dispute", dispute.Id, "bounty", dispute.BountyId, "verdict", result.FinalVerdict)
	r.publishResolved(ctx, dispute, true, result.FinalVerdict)
	return nil
}

// reresolve re-runs the aggregation pipeline over the bounty's submissions
// minus the disputed one, rewrites submission statuses against the new final
// verdict, and plans only the compensating payout actions.
func (r *Resolver) reresolve(ctx context.Context, bounty *types.Bounty, dispute *types.Dispute) (*types.ConsensusResult, error) {
	submissions, err := r.submissions.SubmissionsForBounty(ctx, bounty.Id)
	if err != nil {
		return nil, err
	}

	retained := make([]types.Submission, 0, len(submissions))
	var disputed *types.Submission
	for i := range submissions {
		if submissions[i].Id == dispute.SubmissionId {
			disputed = &submissions[i]
			continue
		}
		retained = append(retained, submissions[i])
	}

	votes := r.votesFor(ctx, retained)
	threshold := bounty.ConsensusThreshold
	if threshold.IsZero() {
		threshold = decimal.NewFromFloat(r.params.Consensus.DefaultThreshold)
	}
	minSubmissions := bounty.MinSubmissions
	if minSubmissions <= 0 {
		minSubmissions = r.params.Consensus.MinSubmissions
	}
	result := calculations.Evaluate(votes, bounty.WeightedVoting, threshold, minSubmissions, r.params.Consensus)

	now := r.now()
	weighted := make([]settlement.WeightedSubmission, 0, len(retained))
	for i := range retained {
		sub := &retained[i]
		if sub.Verdict == result.FinalVerdict {
			sub.Status = types.SubmissionCorrect
		} else {
			sub.Status = types.SubmissionIncorrect
		}
		sub.AccuracyScore = calculations.AccuracyScore(sub.Verdict, result.FinalVerdict, sub.Confidence)
		processedAt := now
		sub.ProcessedAt = &processedAt
		if err := r.submissions.SetSubmission(ctx, sub); err != nil {
			logging.Error("Error persisting re-scored submission", types.Disputes,
				"bounty", bounty.Id, "submission", sub.Id, "error", err)
			continue
		}
		weight := decimal.NewFromInt(1)
		if bounty.WeightedVoting {
			for _, vote := range votes {
				if vote.SubmissionId == sub.Id {
					weight = calculations.VoteWeight(vote, r.params.Consensus)
					break
				}
			}
		}
		weighted = append(weighted, settlement.WeightedSubmission{Submission: *sub, Weight: weight})
	}

	// An upheld dispute marks the challenged submission incorrect outright.
	// It still belongs in the plan so its stake gets slashed.
	if disputed != nil {
		disputed.Status = types.SubmissionIncorrect
		disputed.AccuracyScore = decimal.Zero
		processedAt := now
		disputed.ProcessedAt = &processedAt
		if err := r.submissions.SetSubmission(ctx, disputed); err != nil {
			logging.Error("Error persisting disputed submission", types.Disputes,
				"bounty", bounty.Id, "submission", disputed.Id, "error", err)
		}
		weight := decimal.NewFromInt(1)
		if bounty.WeightedVoting {
			disputedVotes := r.votesFor(ctx, []types.Submission{*disputed})
			weight = calculations.VoteWeight(disputedVotes[0], r.params.Consensus)
		}
		weighted = append(weighted, settlement.WeightedSubmission{Submission: *disputed, Weight: weight})
	}

	existing, err := r.payouts.PayoutsForBounty(ctx, bounty.Id)
	if err != nil {
		return nil, err
	}
	desired := settlement.BuildPlan(bounty, weighted, r.params.Settlement)
	delta := settlement.Reconcile(existing, desired)
	for i := range delta {
		delta[i].CreatedAt = now
		delta[i].UpdatedAt = now
		if err := r.payouts.SetPayout(ctx, &delta[i]); err != nil {
			logging.Error("Error persisting compensating payout", types.Disputes,
				"bounty", bounty.Id, "payout", delta[i].Id, "error", err)
		}
	}
	if len(delta) > 0 {
		logging.Info("Compensating settlement planned", types.Settle,
			"bounty", bounty.Id, "actions", len(delta))
	}

	bounty.Result = result
	resolvedAt := now
	bounty.ResolvedAt = &resolvedAt
	if err := r.bounties.SetBounty(ctx, bounty); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Resolver) votesFor(ctx context.Context, submissions []types.Submission) []types.Vote {
	votes := make([]types.Vote, 0, len(submissions))
	for _, sub := range submissions {
		reputation := r.params.Reputation.InitialScore
		if rep, err := r.reputations.GetReputation(ctx, sub.EngineId); err == nil {
			reputation = rep.Score
		}
		votes = append(votes, types.Vote{
			SubmissionId: sub.Id,
			EngineId:     sub.EngineId,
			Verdict:      sub.Verdict,
			Confidence:   sub.Confidence,
			Stake:        sub.StakeAmount,
			Reputation:   reputation,
			SubmittedAt:  sub.SubmittedAt,
		})
	}
	return votes
}

func (r *Resolver) publishResolved(ctx context.Context, dispute *types.Dispute, accepted bool, verdict types.Verdict) {
	event := types.DisputeResolvedEvent{
		DisputeId:    dispute.Id,
		BountyId:     dispute.BountyId,
		Accepted:     accepted,
		FinalVerdict: verdict,
	}
	if err := r.publisher.PublishDisputeResolved(ctx, event); err != nil {
		logging.Warn("Error publishing dispute resolved event", types.EventProcessing,
			"dispute", dispute.Id, "error", err)
	}
}
