package types

// DONTCOVER

import (
	sdkerrors "cosmossdk.io/errors"
)

// consensus module sentinel errors
var (
	ErrBountyNotFound        = sdkerrors.Register(ModuleName, 1100, "bounty not found")
	ErrSubmissionNotFound    = sdkerrors.Register(ModuleName, 1101, "submission not found")
	ErrDisputeNotFound       = sdkerrors.Register(ModuleName, 1102, "dispute not found")
	ErrPayoutNotFound        = sdkerrors.Register(ModuleName, 1103, "payout not found")
	ErrReputationNotFound    = sdkerrors.Register(ModuleName, 1104, "reputation record not found")
	ErrBountyNotOpen         = sdkerrors.Register(ModuleName, 1105, "bounty is not open")
	ErrBountyNotCompleted    = sdkerrors.Register(ModuleName, 1106, "bounty is not completed")
	ErrBountyAlreadyResolved = sdkerrors.Register(ModuleName, 1107, "bounty already resolved by a concurrent writer")
	ErrDisputeNotOpen        = sdkerrors.Register(ModuleName, 1108, "dispute is not open")
	ErrConfidenceOutOfRange  = sdkerrors.Register(ModuleName, 1109, "confidence must be within [0, 1]")
	ErrStakeBelowMinimum     = sdkerrors.Register(ModuleName, 1110, "stake amount below bounty minimum")
	ErrNoSubmissions         = sdkerrors.Register(ModuleName, 1111, "bounty has no submissions to resolve")
)
