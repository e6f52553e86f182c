package bridge

import (
	"fmt"
	"time"
)

// Parameters is the governance-controlled parameter set read by both
// protocol engines. Updated atomically as a whole.
type Parameters struct {
	// ChallengeDepositAmount is the minimum bond a fraud challenger must
	// escrow, in native ledger units.
	ChallengeDepositAmount uint64
	// ChallengeDefeatTimeout is how long a wallet has to defeat a
	// challenge before timeout punishment becomes available.
	ChallengeDefeatTimeout time.Duration
	// ChallengeRewardMultiplier is the percentage of the slashed stake
	// awarded to the timeout notifier by the staking collaborator.
	ChallengeRewardMultiplier uint8
	// DepositTxMaxFee is the per-deposit ceiling on the share of a sweep
	// transaction fee, in satoshi.
	DepositTxMaxFee uint64
	// DepositMinAge is how long a deposit must stay revealed before it
	// may enter a sweep proposal.
	DepositMinAge time.Duration
	// RefundSafetyMargin is how far before a deposit's refund activation
	// a sweep of it must no longer be proposed.
	RefundSafetyMargin time.Duration
	// MaxSweepSize is the maximum number of deposits in one sweep
	// proposal.
	MaxSweepSize uint16
	// HeartbeatRequestValidity is the wallet lock duration acquired by a
	// heartbeat request.
	HeartbeatRequestValidity time.Duration
	// DepositSweepProposalValidity is the wallet lock duration acquired
	// by a deposit sweep proposal.
	DepositSweepProposalValidity time.Duration
	// HeartbeatRequestGasOffset, DepositSweepProposalGasOffset and
	// ChallengeDefeatGasOffset are the cost estimates handed to the
	// reimbursement collaborator.
	HeartbeatRequestGasOffset     uint64
	DepositSweepProposalGasOffset uint64
	ChallengeDefeatGasOffset      uint64
}

// Validate enforces the global parameter invariants.
func (p Parameters) Validate() error {
	if p.ChallengeDepositAmount == 0 {
		return fmt.Errorf("challenge deposit amount must be greater than zero")
	}
	if p.ChallengeDefeatTimeout <= 0 {
		return fmt.Errorf("challenge defeat timeout must be greater than zero")
	}
	if p.ChallengeRewardMultiplier > 100 {
		return fmt.Errorf("challenge reward multiplier must be in the range [0, 100]")
	}
	if p.MaxSweepSize == 0 {
		return fmt.Errorf("maximum sweep size must be greater than zero")
	}
	if p.HeartbeatRequestValidity <= 0 {
		return fmt.Errorf("heartbeat request validity must be greater than zero")
	}
	if p.DepositSweepProposalValidity <= 0 {
		return fmt.Errorf("deposit sweep proposal validity must be greater than zero")
	}
	return nil
}
