package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Verdict classifies an analyzed artifact.
type Verdict string

const (
	VerdictMalicious  Verdict = "malicious"
	VerdictBenign     Verdict = "benign"
	VerdictSuspicious Verdict = "suspicious"
	VerdictUnknown    Verdict = "unknown"
)

// VerdictOrder is the canonical category order. Distribution output and the
// resolver's threshold/tie-break scan both follow it, so it must never be
// reordered: Malicious wins ties over Benign, Suspicious is checked last and
// Unknown is never a threshold-eligible winner.
var VerdictOrder = []Verdict{VerdictMalicious, VerdictBenign, VerdictSuspicious, VerdictUnknown}

type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionCorrect   SubmissionStatus = "correct"
	SubmissionIncorrect SubmissionStatus = "incorrect"
)

type BountyStatus string

const (
	BountyOpen        BountyStatus = "open"
	BountyCompleted   BountyStatus = "completed"
	BountyUnderReview BountyStatus = "under_review"
	BountyExpired     BountyStatus = "expired"
	BountyCancelled   BountyStatus = "cancelled"
)

type DisputeStatus string

const (
	DisputeOpen        DisputeStatus = "open"
	DisputeUnderReview DisputeStatus = "under_review"
	DisputeResolved    DisputeStatus = "resolved"
	DisputeRejected    DisputeStatus = "rejected"
)

type PayoutType string

const (
	PayoutBountyReward PayoutType = "bounty_reward"
	PayoutStakeReturn  PayoutType = "stake_return"
	PayoutStakeSlash   PayoutType = "stake_slash"
	PayoutFee          PayoutType = "fee"
	PayoutRefund       PayoutType = "refund"
)

type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutFailed     PayoutStatus = "failed"
)

// Submission is one engine's staked verdict on one bounty's artifact.
// Ingestion validates confidence and minimum stake before the record ever
// reaches this module. Status, AccuracyScore and ProcessedAt are written only
// when the owning bounty resolves, and rewritten on dispute re-resolution.
type Submission struct {
	Id            string           `json:"id"`
	BountyId      string           `json:"bounty_id"`
	EngineId      string           `json:"engine_id"`
	Verdict       Verdict          `json:"verdict"`
	Confidence    decimal.Decimal  `json:"confidence"`
	StakeAmount   decimal.Decimal  `json:"stake_amount"`
	SubmittedAt   time.Time        `json:"submitted_at"`
	Status        SubmissionStatus `json:"status"`
	AccuracyScore decimal.Decimal  `json:"accuracy_score"`
	ProcessedAt   *time.Time       `json:"processed_at,omitempty"`
}

// Bounty is an artifact-analysis request and its settlement envelope.
type Bounty struct {
	Id                 string          `json:"id"`
	RewardAmount       decimal.Decimal `json:"reward_amount"`
	MinStake           decimal.Decimal `json:"min_stake"`
	MinSubmissions     int             `json:"min_submissions"`
	ConsensusThreshold decimal.Decimal `json:"consensus_threshold"`
	WeightedVoting     bool            `json:"weighted_voting"`
	CreatedAt          time.Time       `json:"created_at"`
	VotingDeadline     time.Time       `json:"voting_deadline"`
	Status             BountyStatus    `json:"status"`

	// SettlementPlanned marks that a payout plan has been persisted for this
	// bounty. It is written together with the Completed transition so a
	// crashed settlement can be retried without double-paying.
	SettlementPlanned bool             `json:"settlement_planned"`
	Result            *ConsensusResult `json:"result,omitempty"`
	ResolvedAt        *time.Time       `json:"resolved_at,omitempty"`
}

// VoteStats aggregates one verdict category.
type VoteStats struct {
	Count         int             `json:"count"`
	WeightedCount decimal.Decimal `json:"weighted_count"`
	Percentage    decimal.Decimal `json:"percentage"`
	AvgConfidence decimal.Decimal `json:"avg_confidence"`
	Voters        []string        `json:"voters"`
}

// ConsensusResult is the cached outcome of the last resolution pass for a
// bounty. It is derived state, recomputed on every pass.
type ConsensusResult struct {
	FinalVerdict     Verdict                `json:"final_verdict"`
	Confidence       decimal.Decimal        `json:"confidence"`
	TotalSubmissions int                    `json:"total_submissions"`
	Distribution     map[Verdict]*VoteStats `json:"verdict_distribution"`
	WeightedScore    decimal.Decimal        `json:"weighted_score"`
	ConsensusReached bool                   `json:"consensus_reached"`
	AgreementScore   decimal.Decimal        `json:"agreement_score"`
	DisputeEligible  bool                   `json:"dispute_eligible"`
}

// Dispute challenges a submission of a Completed bounty. The disputer stakes
// too, and loses that stake when the dispute is rejected.
type Dispute struct {
	Id           string          `json:"id"`
	BountyId     string          `json:"bounty_id"`
	SubmissionId string          `json:"submission_id"`
	DisputerId   string          `json:"disputer_id"`
	Reason       string          `json:"reason"`
	Evidence     []byte          `json:"evidence,omitempty"`
	StakeAmount  decimal.Decimal `json:"stake_amount"`
	Status       DisputeStatus   `json:"status"`
	Resolution   string          `json:"resolution,omitempty"`
	ResolverId   string          `json:"resolver_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	ResolvedAt   *time.Time      `json:"resolved_at,omitempty"`
}

// Reputation is the per-engine scoring record. Mutated only by the reputation
// scorer, read by vote weighting.
type Reputation struct {
	EngineId           string          `json:"engine_id"`
	Score              int64           `json:"score"`
	TotalSubmissions   int64           `json:"total_submissions"`
	CorrectSubmissions int64           `json:"correct_submissions"`
	AccuracyRate       decimal.Decimal `json:"accuracy_rate"`
	CurrentStreak      int64           `json:"current_streak"`
	BestStreak         int64           `json:"best_streak"`
	TotalEarned        decimal.Decimal `json:"total_earned"`
	Rank               int64           `json:"rank"`
	Percentile         decimal.Decimal `json:"percentile"`
	LastUpdated        time.Time       `json:"last_updated"`

	// LastDecayedAt marks how far inactivity decay has been charged, so
	// overlapping or repeated decay passes never charge the same days twice.
	LastDecayedAt time.Time `json:"last_decayed_at,omitempty"`
}

// Payout is one intended monetary action from a settlement plan. Execution and
// confirmation belong to the payment collaborator, which fills TxHash and
// drives Status.
type Payout struct {
	Id           string          `json:"id"`
	BountyId     string          `json:"bounty_id"`
	SubmissionId string          `json:"submission_id,omitempty"`
	Recipient    string          `json:"recipient"`
	Amount       decimal.Decimal `json:"amount"`
	Type         PayoutType      `json:"type"`
	Status       PayoutStatus    `json:"status"`
	TxHash       common.Hash     `json:"tx_hash,omitempty"`
	Attempts     int             `json:"attempts"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Vote is the weighting input derived from a submission plus the submitter's
// current reputation. Pure calculation code operates on votes, never on store
// records.
type Vote struct {
	SubmissionId string
	EngineId     string
	Verdict      Verdict
	Confidence   decimal.Decimal
	Stake        decimal.Decimal
	Reputation   int64
	SubmittedAt  time.Time
}

// BountyCompletedEvent fans out after each successful resolution.
type BountyCompletedEvent struct {
	BountyId     string          `json:"bounty_id"`
	FinalVerdict Verdict         `json:"final_verdict"`
	Confidence   decimal.Decimal `json:"confidence"`
	Participants []string        `json:"participants"`
}

// DisputeResolvedEvent fans out after a dispute is accepted or rejected.
type DisputeResolvedEvent struct {
	DisputeId    string  `json:"dispute_id"`
	BountyId     string  `json:"bounty_id"`
	Accepted     bool    `json:"accepted"`
	FinalVerdict Verdict `json:"final_verdict,omitempty"`
}
