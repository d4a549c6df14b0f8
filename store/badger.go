package store

import (
	"context"
	"encoding/json"

	"github.com/dgraph-io/badger"

	"github.com/deep60/nexus-security/logging"
	"github.com/deep60/nexus-security/types"
)

// BadgerStore persists every table of the consensus pipeline in a single
// badger KV database, one key prefix per table. Values are JSON.
type BadgerStore struct {
	db *badger.DB
}

var _ types.BountyStore = (*BadgerStore)(nil)
var _ types.SubmissionStore = (*BadgerStore)(nil)
var _ types.ReputationStore = (*BadgerStore)(nil)
var _ types.PayoutStore = (*BadgerStore)(nil)
var _ types.DisputeStore = (*BadgerStore)(nil)

func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func key(prefix string, parts []byte) []byte {
	return append(types.KeyPrefix(prefix), parts...)
}

func set(db *badger.DB, k []byte, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, b)
	})
}

func get(db *badger.DB, k []byte, out any) (bool, error) {
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func scan[T any](db *badger.DB, prefix []byte) ([]T, error) {
	var out []T
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var v T
				if err := json.Unmarshal(val, &v); err != nil {
					return err
				}
				out = append(out, v)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

func (s *BadgerStore) GetBounty(_ context.Context, bountyId string) (*types.Bounty, error) {
	var bounty types.Bounty
	found, err := get(s.db, key(types.BountyKeyPrefix, types.BountyKey(bountyId)), &bounty)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.ErrBountyNotFound
	}
	return &bounty, nil
}

func (s *BadgerStore) SetBounty(_ context.Context, bounty *types.Bounty) error {
	return set(s.db, key(types.BountyKeyPrefix, types.BountyKey(bounty.Id)), bounty)
}

func (s *BadgerStore) OpenBounties(_ context.Context) ([]types.Bounty, error) {
	all, err := scan[types.Bounty](s.db, types.KeyPrefix(types.BountyKeyPrefix))
	if err != nil {
		return nil, err
	}
	open := make([]types.Bounty, 0, len(all))
	for _, b := range all {
		if b.Status == types.BountyOpen {
			open = append(open, b)
		}
	}
	return open, nil
}

// TransitionStatus flips the status inside a single serializable badger
// transaction so only one of two racing writers can observe the expected
// status. The losing writer gets false and must discard its work.
func (s *BadgerStore) TransitionStatus(_ context.Context, bountyId string, from types.BountyStatus, to types.BountyStatus) (bool, error) {
	k := key(types.BountyKeyPrefix, types.BountyKey(bountyId))
	swapped := false
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		var bounty types.Bounty
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &bounty)
		}); err != nil {
			return err
		}
		if bounty.Status != from {
			return nil
		}
		bounty.Status = to
		b, err := json.Marshal(&bounty)
		if err != nil {
			return err
		}
		if err := txn.Set(k, b); err != nil {
			return err
		}
		swapped = true
		return nil
	})
	if err == badger.ErrKeyNotFound {
		return false, types.ErrBountyNotFound
	}
	if err == badger.ErrConflict {
		logging.Debug("Bounty transition lost to concurrent writer", types.Storage, "bounty", bountyId)
		return false, nil
	}
	return swapped, err
}

func (s *BadgerStore) GetSubmission(_ context.Context, bountyId string, submissionId string) (*types.Submission, error) {
	var submission types.Submission
	found, err := get(s.db, key(types.SubmissionKeyPrefix, types.SubmissionKey(bountyId, submissionId)), &submission)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.ErrSubmissionNotFound
	}
	return &submission, nil
}

func (s *BadgerStore) SetSubmission(_ context.Context, submission *types.Submission) error {
	return set(s.db, key(types.SubmissionKeyPrefix, types.SubmissionKey(submission.BountyId, submission.Id)), submission)
}

func (s *BadgerStore) SubmissionsForBounty(_ context.Context, bountyId string) ([]types.Submission, error) {
	prefix := key(types.SubmissionKeyPrefix, append([]byte(bountyId), '/'))
	return scan[types.Submission](s.db, prefix)
}

func (s *BadgerStore) GetReputation(_ context.Context, engineId string) (*types.Reputation, error) {
	var rep types.Reputation
	found, err := get(s.db, key(types.ReputationKeyPrefix, types.ReputationKey(engineId)), &rep)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.ErrReputationNotFound
	}
	return &rep, nil
}

func (s *BadgerStore) SetReputation(_ context.Context, rep *types.Reputation) error {
	return set(s.db, key(types.ReputationKeyPrefix, types.ReputationKey(rep.EngineId)), rep)
}

func (s *BadgerStore) AllReputations(_ context.Context) ([]types.Reputation, error) {
	return scan[types.Reputation](s.db, types.KeyPrefix(types.ReputationKeyPrefix))
}

func (s *BadgerStore) SetPayout(_ context.Context, payout *types.Payout) error {
	return set(s.db, key(types.PayoutKeyPrefix, types.PayoutKey(payout.BountyId, payout.Id)), payout)
}

func (s *BadgerStore) PayoutsForBounty(_ context.Context, bountyId string) ([]types.Payout, error) {
	prefix := key(types.PayoutKeyPrefix, append([]byte(bountyId), '/'))
	return scan[types.Payout](s.db, prefix)
}

func (s *BadgerStore) PendingPayouts(_ context.Context) ([]types.Payout, error) {
	all, err := scan[types.Payout](s.db, types.KeyPrefix(types.PayoutKeyPrefix))
	if err != nil {
		return nil, err
	}
	pending := make([]types.Payout, 0, len(all))
	for _, p := range all {
		if p.Status == types.PayoutPending {
			pending = append(pending, p)
		}
	}
	return pending, nil
}

func (s *BadgerStore) ProcessingPayouts(_ context.Context) ([]types.Payout, error) {
	all, err := scan[types.Payout](s.db, types.KeyPrefix(types.PayoutKeyPrefix))
	if err != nil {
		return nil, err
	}
	processing := make([]types.Payout, 0, len(all))
	for _, p := range all {
		if p.Status == types.PayoutProcessing {
			processing = append(processing, p)
		}
	}
	return processing, nil
}

func (s *BadgerStore) GetDispute(_ context.Context, disputeId string) (*types.Dispute, error) {
	var dispute types.Dispute
	found, err := get(s.db, key(types.DisputeKeyPrefix, types.DisputeKey(disputeId)), &dispute)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.ErrDisputeNotFound
	}
	return &dispute, nil
}

func (s *BadgerStore) SetDispute(_ context.Context, dispute *types.Dispute) error {
	return set(s.db, key(types.DisputeKeyPrefix, types.DisputeKey(dispute.Id)), dispute)
}
