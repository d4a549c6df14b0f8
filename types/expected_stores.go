package types

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// BountyStore defines the expected interface for bounty persistence.
type BountyStore interface {
	GetBounty(ctx context.Context, bountyId string) (*Bounty, error)
	SetBounty(ctx context.Context, bounty *Bounty) error
	OpenBounties(ctx context.Context) ([]Bounty, error)

	// TransitionStatus flips a bounty's status only if it still holds the
	// expected one at write time, returning false when a concurrent writer
	// got there first. This is the at-most-one-resolution guard.
	TransitionStatus(ctx context.Context, bountyId string, from BountyStatus, to BountyStatus) (bool, error)
}

// SubmissionStore defines the expected interface for submission persistence.
// Ingestion writes validated submissions; this module only rewrites the
// post-resolution fields.
type SubmissionStore interface {
	GetSubmission(ctx context.Context, bountyId string, submissionId string) (*Submission, error)
	SetSubmission(ctx context.Context, submission *Submission) error
	SubmissionsForBounty(ctx context.Context, bountyId string) ([]Submission, error)
}

// ReputationStore defines the expected interface for per-engine reputation.
type ReputationStore interface {
	GetReputation(ctx context.Context, engineId string) (*Reputation, error)
	SetReputation(ctx context.Context, reputation *Reputation) error
	AllReputations(ctx context.Context) ([]Reputation, error)
}

// PayoutStore defines the expected interface for settlement plan persistence.
type PayoutStore interface {
	SetPayout(ctx context.Context, payout *Payout) error
	PayoutsForBounty(ctx context.Context, bountyId string) ([]Payout, error)
	PendingPayouts(ctx context.Context) ([]Payout, error)
	ProcessingPayouts(ctx context.Context) ([]Payout, error)
}

// DisputeStore defines the expected interface for dispute persistence.
type DisputeStore interface {
	GetDispute(ctx context.Context, disputeId string) (*Dispute, error)
	SetDispute(ctx context.Context, dispute *Dispute) error
}

// PaymentExecutor is the external payment collaborator. Execution and on-chain
// confirmation are entirely its responsibility; this module never blocks on
// confirmation.
type PaymentExecutor interface {
	Execute(ctx context.Context, payout Payout) (common.Hash, error)
}

// EventPublisher fans out resolution events. Best effort: a publish failure
// must never roll back a resolution.
type EventPublisher interface {
	PublishBountyCompleted(ctx context.Context, event BountyCompletedEvent) error
	PublishDisputeResolved(ctx context.Context, event DisputeResolvedEvent) error
}
