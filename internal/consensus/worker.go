package consensus

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/deep60/nexus-security/calculations"
	"github.com/deep60/nexus-security/internal/settlement"
	"github.com/deep60/nexus-security/logging"
	"github.com/deep60/nexus-security/types"
)

// Worker polls open bounties on a fixed interval and drives each one through
// the aggregation pipeline: weighting, distribution, resolution, per-submission
// scoring, reputation deltas and settlement planning. Bounties are independent
// units of work; a failure on one is logged and skipped, never aborting the
// tick. The Open->Completed transition goes through the store's
// compare-and-swap so overlapping ticks can never resolve a bounty twice.
type Worker struct {
	bounties    types.BountyStore
	submissions types.SubmissionStore
	reputations types.ReputationStore
	payouts     types.PayoutStore
	publisher   types.EventPublisher
	params      types.Params
	now         func() time.Time
}

func NewWorker(
	bounties types.BountyStore,
	submissions types.SubmissionStore,
	reputations types.ReputationStore,
	payouts types.PayoutStore,
	publisher types.EventPublisher,
	params types.Params,
) *Worker {
	return &Worker{
		bounties:    bounties,
		submissions: submissions,
		reputations: reputations,
		payouts:     payouts,
		publisher:   publisher,
		params:      params,
		now:         time.Now,
	}
}

func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.params.Consensus.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick evaluates every open bounty once.
func (w *Worker) Tick(ctx context.Context) {
	bounties, err := w.bounties.OpenBounties(ctx)
	if err != nil {
		logging.Error("Error listing open bounties", types.Consensus, "error", err)
		return
	}
	for i := range bounties {
		if err := w.ProcessBounty(ctx, &bounties[i]); err != nil {
			logging.Error("Error processing bounty, will retry next tick", types.Consensus,
				"bounty", bounties[i].Id, "error", err)
		}
	}
}

// ProcessBounty runs one evaluation pass for one open bounty.
func (w *Worker) ProcessBounty(ctx context.Context, bounty *types.Bounty) error {
	if bounty.Status != types.BountyOpen {
		return nil
	}
	if w.now().After(bounty.VotingDeadline) {
		return w.expire(ctx, bounty)
	}

	submissions, err := w.submissions.SubmissionsForBounty(ctx, bounty.Id)
	if err != nil {
		return err
	}
	minSubmissions := bounty.MinSubmissions
	if minSubmissions <= 0 {
		minSubmissions = w.params.Consensus.MinSubmissions
	}
	if len(submissions) < minSubmissions {
		// Not an error, just not enough evidence yet.
		logging.Debug("Bounty below submission minimum", types.Consensus,
			"bounty", bounty.Id, "submissions", len(submissions), "min", minSubmissions)
		return nil
	}

	votes := w.votesFor(ctx, submissions)
	threshold := bounty.ConsensusThreshold
	if threshold.IsZero() {
		threshold = decimal.NewFromFloat(w.params.Consensus.DefaultThreshold)
	}

	result := calculations.Evaluate(votes, bounty.WeightedVoting, threshold, minSubmissions, w.params.Consensus)
	if !result.ConsensusReached {
		// Cache the latest computation and re-evaluate next tick.
		bounty.Result = result
		return w.bounties.SetBounty(ctx, bounty)
	}

	swapped, err := w.bounties.TransitionStatus(ctx, bounty.Id, types.BountyOpen, types.BountyCompleted)
	if err != nil {
		return err
	}
	if !swapped {
		logging.Debug("Bounty resolved by a concurrent writer, discarding pass", types.Consensus, "bounty", bounty.Id)
		return nil
	}
	bounty.Status = types.BountyCompleted
	return w.settle(ctx, bounty, result, submissions, votes)
}

// votesFor converts submissions into weighting inputs, pulling each
// submitter's current reputation. Votes are ordered by submission time so the
// distribution's voter lists are stable across passes.
func (w *Worker) votesFor(ctx context.Context, submissions []types.Submission) []types.Vote {
	sorted := make([]types.Submission, len(submissions))
	copy(sorted, submissions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].SubmittedAt.Equal(sorted[j].SubmittedAt) {
			return sorted[i].Id < sorted[j].Id
		}
		return sorted[i].SubmittedAt.Before(sorted[j].SubmittedAt)
	})

	votes := make([]types.Vote, 0, len(sorted))
	for _, sub := range sorted {
		votes = append(votes, types.Vote{
			SubmissionId: sub.Id,
			EngineId:     sub.EngineId,
			Verdict:      sub.Verdict,
			Confidence:   sub.Confidence,
			Stake:        sub.StakeAmount,
			Reputation:   w.reputationScore(ctx, sub.EngineId),
			SubmittedAt:  sub.SubmittedAt,
		})
	}
	return votes
}

func (w *Worker) reputationScore(ctx context.Context, engineId string) int64 {
	rep, err := w.reputations.GetReputation(ctx, engineId)
	if err != nil {
		// Unknown engines weigh in at the configured starting score.
		return w.params.Reputation.InitialScore
	}
	return rep.Score
}

// settle freezes submission statuses, applies reputation deltas, persists the
// payout plan and fans out the completion event. Runs exactly once per
// resolution: the caller already won the status compare-and-swap.
func (w *Worker) settle(ctx context.Context, bounty *types.Bounty, result *types.ConsensusResult, submissions []types.Submission, votes []types.Vote) error {
	now := w.now()

	weights := make(map[string]decimal.Decimal, len(votes))
	for _, vote := range votes {
		if bounty.WeightedVoting {
			weights[vote.SubmissionId] = calculations.VoteWeight(vote, w.params.Consensus)
		} else {
			weights[vote.SubmissionId] = decimal.NewFromInt(1)
		}
	}

	weighted := make([]settlement.WeightedSubmission, 0, len(submissions))
	for i := range submissions {
		sub := &submissions[i]
		if sub.Verdict == result.FinalVerdict {
			sub.Status = types.SubmissionCorrect
		} else {
			sub.Status = types.SubmissionIncorrect
		}
		sub.AccuracyScore = calculations.AccuracyScore(sub.Verdict, result.FinalVerdict, sub.Confidence)
		processedAt := now
		sub.ProcessedAt = &processedAt
		if err := w.submissions.SetSubmission(ctx, sub); err != nil {
			logging.Error("Error persisting scored submission", types.Consensus,
				"bounty", bounty.Id, "submission", sub.Id, "error", err)
			continue
		}
		weighted = append(weighted, settlement.WeightedSubmission{Submission: *sub, Weight: weights[sub.Id]})
	}

	planned := true
	rewards := map[string]decimal.Decimal{}
	if !bounty.SettlementPlanned {
		plan := settlement.BuildPlan(bounty, weighted, w.params.Settlement)
		for i := range plan {
			plan[i].CreatedAt = now
			plan[i].UpdatedAt = now
			if err := w.payouts.SetPayout(ctx, &plan[i]); err != nil {
				logging.Error("Error persisting payout action", types.Settle,
					"bounty", bounty.Id, "payout", plan[i].Id, "error", err)
				planned = false
			}
		}
		for _, payout := range plan {
			if payout.Type == types.PayoutBountyReward {
				rewards[payout.Recipient] = rewards[payout.Recipient].Add(payout.Amount)
			}
		}
		logging.Info("Settlement plan persisted", types.Settle,
			"bounty", bounty.Id, "actions", len(plan), "verdict", result.FinalVerdict)
	}

	w.applyReputationDeltas(ctx, bounty, result, submissions, rewards, now)

	bounty.Result = result
	resolvedAt := now
	bounty.ResolvedAt = &resolvedAt
	bounty.SettlementPlanned = bounty.SettlementPlanned || planned
	if err := w.bounties.SetBounty(ctx, bounty); err != nil {
		return err
	}

	logging.Info("Bounty resolved", types.Consensus,
		"bounty", bounty.Id, "verdict", result.FinalVerdict,
		"confidence", result.Confidence, "agreement", result.AgreementScore)
	w.publishCompleted(ctx, bounty, result, submissions)
	return nil
}

func (w *Worker) applyReputationDeltas(ctx context.Context, bounty *types.Bounty, result *types.ConsensusResult, submissions []types.Submission, rewards map[string]decimal.Decimal, now time.Time) {
	for _, sub := range submissions {
		rep, err := w.reputations.GetReputation(ctx, sub.EngineId)
		if err != nil {
			rep = &types.Reputation{
				EngineId:     sub.EngineId,
				Score:        w.params.Reputation.InitialScore,
				AccuracyRate: decimal.Zero,
				TotalEarned:  decimal.Zero,
			}
		}
		correct := sub.Status == types.SubmissionCorrect
		outcome := calculations.AccuracyOutcome{
			Correct:          correct,
			MatchedConsensus: correct && result.ConsensusReached,
			Early:            calculations.IsEarly(bounty, sub.SubmittedAt, w.params.Reputation),
			Confidence:       sub.Confidence,
			Streak:           rep.CurrentStreak,
		}
		delta := calculations.ReputationDelta(w.params.Reputation, outcome)
		calculations.UpdateReputation(rep, outcome, delta, rewards[sub.EngineId], now, w.params.Reputation)
		if err := w.reputations.SetReputation(ctx, rep); err != nil {
			logging.Error("Error persisting reputation", types.Reputations,
				"engine", sub.EngineId, "error", err)
		}
	}
}

// expire closes out a bounty whose voting window passed without consensus.
// Stakes come back; an engine that submitted in good time is not punished for
// the crowd failing to converge.
func (w *Worker) expire(ctx context.Context, bounty *types.Bounty) error {
	swapped, err := w.bounties.TransitionStatus(ctx, bounty.Id, types.BountyOpen, types.BountyExpired)
	if err != nil {
		return err
	}
	if !swapped {
		return nil
	}
	bounty.Status = types.BountyExpired

	submissions, err := w.submissions.SubmissionsForBounty(ctx, bounty.Id)
	if err != nil {
		return err
	}
	now := w.now()
	plan := settlement.BuildExpiryPlan(bounty, submissions)
	for i := range plan {
		plan[i].CreatedAt = now
		plan[i].UpdatedAt = now
		if err := w.payouts.SetPayout(ctx, &plan[i]); err != nil {
			logging.Error("Error persisting expiry stake return", types.Settle,
				"bounty", bounty.Id, "payout", plan[i].Id, "error", err)
		}
	}
	bounty.SettlementPlanned = true
	if err := w.bounties.SetBounty(ctx, bounty); err != nil {
		return err
	}
	logging.Info("Bounty expired without consensus, stakes returned", types.Consensus,
		"bounty", bounty.Id, "submissions", len(submissions))
	return nil
}

func (w *Worker) publishCompleted(ctx context.Context, bounty *types.Bounty, result *types.ConsensusResult, submissions []types.Submission) {
	participants := make([]string, 0, len(submissions))
	for _, sub := range submissions {
		participants = append(participants, sub.EngineId)
	}
	event := types.BountyCompletedEvent{
		BountyId:     bounty.Id,
		FinalVerdict: result.FinalVerdict,
		Confidence:   result.Confidence,
		Participants: participants,
	}
	// Best effort: notification failure never rolls back a resolution.
	if err := w.publisher.PublishBountyCompleted(ctx, event); err != nil {
		logging.Warn("Error publishing bounty completed event", types.EventProcessing,
			"bounty", bounty.Id, "error", err)
	}
}
