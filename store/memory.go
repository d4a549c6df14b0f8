package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/deep60/nexus-security/types"
)

// MemoryStore keeps every table in concurrent maps. It backs tests and local
// development runs; production uses BadgerStore.
type MemoryStore struct {
	bounties    cmap.ConcurrentMap[string, types.Bounty]
	submissions cmap.ConcurrentMap[string, types.Submission]
	reputations cmap.ConcurrentMap[string, types.Reputation]
	payouts     cmap.ConcurrentMap[string, types.Payout]
	disputes    cmap.ConcurrentMap[string, types.Dispute]

	// transitionMu serializes status compare-and-swaps, which span a read
	// and a write of the same bounty.
	transitionMu sync.Mutex
}

var _ types.BountyStore = (*MemoryStore)(nil)
var _ types.SubmissionStore = (*MemoryStore)(nil)
var _ types.ReputationStore = (*MemoryStore)(nil)
var _ types.PayoutStore = (*MemoryStore)(nil)
var _ types.DisputeStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bounties:    cmap.New[types.Bounty](),
		submissions: cmap.New[types.Submission](),
		reputations: cmap.New[types.Reputation](),
		payouts:     cmap.New[types.Payout](),
		disputes:    cmap.New[types.Dispute](),
	}
}

func (s *MemoryStore) GetBounty(_ context.Context, bountyId string) (*types.Bounty, error) {
	bounty, ok := s.bounties.Get(bountyId)
	if !ok {
		return nil, types.ErrBountyNotFound
	}
	return &bounty, nil
}

func (s *MemoryStore) SetBounty(_ context.Context, bounty *types.Bounty) error {
	s.bounties.Set(bounty.Id, *bounty)
	return nil
}

func (s *MemoryStore) OpenBounties(_ context.Context) ([]types.Bounty, error) {
	open := make([]types.Bounty, 0)
	for _, bounty := range s.bounties.Items() {
		if bounty.Status == types.BountyOpen {
			open = append(open, bounty)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Id < open[j].Id })
	return open, nil
}

func (s *MemoryStore) TransitionStatus(_ context.Context, bountyId string, from types.BountyStatus, to types.BountyStatus) (bool, error) {
	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()
	bounty, ok := s.bounties.Get(bountyId)
	if !ok {
		return false, types.ErrBountyNotFound
	}
	if bounty.Status != from {
		return false, nil
	}
	bounty.Status = to
	s.bounties.Set(bountyId, bounty)
	return true, nil
}

func submissionKey(bountyId, submissionId string) string {
	return bountyId + "/" + submissionId
}

func (s *MemoryStore) GetSubmission(_ context.Context, bountyId string, submissionId string) (*types.Submission, error) {
	submission, ok := s.submissions.Get(submissionKey(bountyId, submissionId))
	if !ok {
		return nil, types.ErrSubmissionNotFound
	}
	return &submission, nil
}

func (s *MemoryStore) SetSubmission(_ context.Context, submission *types.Submission) error {
	s.submissions.Set(submissionKey(submission.BountyId, submission.Id), *submission)
	return nil
}

func (s *MemoryStore) SubmissionsForBounty(_ context.Context, bountyId string) ([]types.Submission, error) {
	out := make([]types.Submission, 0)
	prefix := bountyId + "/"
	for k, submission := range s.submissions.Items() {
		if strings.HasPrefix(k, prefix) {
			out = append(out, submission)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out, nil
}

func (s *MemoryStore) GetReputation(_ context.Context, engineId string) (*types.Reputation, error) {
	rep, ok := s.reputations.Get(engineId)
	if !ok {
		return nil, types.ErrReputationNotFound
	}
	return &rep, nil
}

func (s *MemoryStore) SetReputation(_ context.Context, rep *types.Reputation) error {
	s.reputations.Set(rep.EngineId, *rep)
	return nil
}

func (s *MemoryStore) AllReputations(_ context.Context) ([]types.Reputation, error) {
	out := make([]types.Reputation, 0)
	for _, rep := range s.reputations.Items() {
		out = append(out, rep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EngineId < out[j].EngineId })
	return out, nil
}

func (s *MemoryStore) SetPayout(_ context.Context, payout *types.Payout) error {
	s.payouts.Set(payout.BountyId+"/"+payout.Id, *payout)
	return nil
}

func (s *MemoryStore) PayoutsForBounty(_ context.Context, bountyId string) ([]types.Payout, error) {
	out := make([]types.Payout, 0)
	prefix := bountyId + "/"
	for k, payout := range s.payouts.Items() {
		if strings.HasPrefix(k, prefix) {
			out = append(out, payout)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out, nil
}

func (s *MemoryStore) PendingPayouts(_ context.Context) ([]types.Payout, error) {
	out := make([]types.Payout, 0)
	for _, payout := range s.payouts.Items() {
		if payout.Status == types.PayoutPending {
			out = append(out, payout)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out, nil
}

func (s *MemoryStore) ProcessingPayouts(_ context.Context) ([]types.Payout, error) {
	out := make([]types.Payout, 0)
	for _, payout := range s.payouts.Items() {
		if payout.Status == types.PayoutProcessing {
			out = append(out, payout)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out, nil
}

func (s *MemoryStore) GetDispute(_ context.Context, disputeId string) (*types.Dispute, error) {
	dispute, ok := s.disputes.Get(disputeId)
	if !ok {
		return nil, types.ErrDisputeNotFound
	}
	return &dispute, nil
}

func (s *MemoryStore) SetDispute(_ context.Context, dispute *types.Dispute) error {
	s.disputes.Set(dispute.Id, *dispute)
	return nil
}
