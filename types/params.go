package types

import "time"

// Params carries every tunable policy knob of the consensus pipeline. Loaded
// once at startup through apiconfig and passed down by value; components never
// reach for globals.
type Params struct {
	Consensus  ConsensusParams  `koanf:"consensus"`
	Reputation ReputationParams `koanf:"reputation"`
	Settlement SettlementParams `koanf:"settlement"`
}

type ConsensusParams struct {
	// Weight coefficients for the vote weighting model. They need not sum to
	// one; the weighting function normalizes by their sum.
	ReputationWeight float64 `koanf:"reputation_weight"`
	ConfidenceWeight float64 `koanf:"confidence_weight"`
	TimeWeight       float64 `koanf:"time_weight"`

	// ReputationCeiling normalizes raw reputation scores into 0..1.
	ReputationCeiling int64 `koanf:"reputation_ceiling"`

	// DefaultThreshold applies when a bounty carries no threshold of its own.
	DefaultThreshold float64 `koanf:"default_threshold"`

	// DisputeThreshold: results with agreement below this fraction are open
	// to dispute.
	DisputeThreshold float64 `koanf:"dispute_threshold"`

	MinSubmissions int           `koanf:"min_submissions"`
	WeightedVoting bool          `koanf:"weighted_voting"`
	TickInterval   time.Duration `koanf:"tick_interval"`
}

type ReputationParams struct {
	CorrectPoints    int64   `koanf:"correct_points"`
	IncorrectPenalty int64   `koanf:"incorrect_penalty"`
	StreakBonusCap   float64 `koanf:"streak_bonus_cap"`
	ConsensusBonus   int64   `koanf:"consensus_bonus"`
	EarlyBonus       int64   `koanf:"early_bonus"`

	// EarlyWindowFraction: a submission made within this leading fraction of
	// the bounty's voting window counts as early.
	EarlyWindowFraction float64 `koanf:"early_window_fraction"`

	// DecayRate is the per-day score multiplier loss for inactive engines.
	DecayRate     float64       `koanf:"decay_rate"`
	MinScore      int64         `koanf:"min_score"`
	MaxScore      int64         `koanf:"max_score"`
	InitialScore  int64         `koanf:"initial_score"`
	DecayInterval time.Duration `koanf:"decay_interval"`
}

type SettlementParams struct {
	// SlashFraction of an incorrect submission's stake is forfeited. Applied
	// uniformly; 1.0 means full slash.
	SlashFraction float64 `koanf:"slash_fraction"`

	MaxAttempts     int           `koanf:"max_attempts"`
	RetryBackoff    time.Duration `koanf:"retry_backoff"`
	ProcessInterval time.Duration `koanf:"process_interval"`

	// StaleProcessing is how long a payout may sit in Processing before it is
	// treated as orphaned by a crash and requeued as Pending.
	StaleProcessing time.Duration `koanf:"stale_processing"`
}

func DefaultParams() Params {
	return Params{
		Consensus: ConsensusParams{
			ReputationWeight:  0.4,
			ConfidenceWeight:  0.4,
			TimeWeight:        0.2,
			ReputationCeiling: 10000,
			DefaultThreshold:  0.66,
			DisputeThreshold:  0.75,
			MinSubmissions:    3,
			WeightedVoting:    true,
			TickInterval:      60 * time.Second,
		},
		Reputation: ReputationParams{
			CorrectPoints:       100,
			IncorrectPenalty:    150,
			StreakBonusCap:      2.0,
			ConsensusBonus:      25,
			EarlyBonus:          10,
			EarlyWindowFraction: 0.2,
			DecayRate:           0.01,
			MinScore:            0,
			MaxScore:            10000,
			InitialScore:        1000,
			DecayInterval:       24 * time.Hour,
		},
		Settlement: SettlementParams{
			SlashFraction:   1.0,
			MaxAttempts:     5,
			RetryBackoff:    10 * time.Second,
			ProcessInterval: 30 * time.Second,
			StaleProcessing: 5 * time.Minute,
		},
	}
}
