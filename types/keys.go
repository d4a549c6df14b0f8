package types

const (
	// ModuleName defines the module name
	ModuleName = "consensus"
)

const (
	BountyKeyPrefix     = "Bounty/value/"
	SubmissionKeyPrefix = "Submission/value/"
	ReputationKeyPrefix = "Reputation/value/"
	PayoutKeyPrefix     = "Payout/value/"
	DisputeKeyPrefix    = "Dispute/value/"
)

func KeyPrefix(p string) []byte {
	return []byte(p)
}

// BountyKey returns the store key for a bounty.
func BountyKey(bountyId string) []byte {
	return append([]byte(bountyId), '/')
}

// SubmissionKey indexes submissions under their owning bounty so one prefix
// scan yields a bounty's full submission set.
func SubmissionKey(bountyId string, submissionId string) []byte {
	var key []byte
	key = append(key, []byte(bountyId)...)
	key = append(key, '/')
	key = append(key, []byte(submissionId)...)
	key = append(key, '/')
	return key
}

func ReputationKey(engineId string) []byte {
	return append([]byte(engineId), '/')
}

// PayoutKey indexes payouts under their bounty for idempotency checks.
func PayoutKey(bountyId string, payoutId string) []byte {
	var key []byte
	key = append(key, []byte(bountyId)...)
	key = append(key, '/')
	key = append(key, []byte(payoutId)...)
	key = append(key, '/')
	return key
}

func DisputeKey(disputeId string) []byte {
	return append([]byte(disputeId), '/')
}
