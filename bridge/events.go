package bridge

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JSanchezFDZ/tbtc-v2/common"
	"github.com/JSanchezFDZ/tbtc-v2/common/logging"
)

// Event is a domain record emitted for off-chain observers. Events are
// published only after the operation that produced them has committed.
type Event interface {
	Name() string
}

// DepositSweepProposal is the ephemeral content of a sweep proposal. It is
// emitted, never persisted; validity is established fresh against store
// state at validation time.
type DepositSweepProposal struct {
	WalletPubKeyHash [20]byte
	DepositsKeys     []DepositKey
	// SweepTxFee is the proposed aggregate transaction fee in satoshi.
	SweepTxFee uint64
}

type ChallengeSubmitted struct {
	WalletPubKeyHash [20]byte
	Sighash          [32]byte
	Signature        common.Signature
}

func (ChallengeSubmitted) Name() string { return "ChallengeSubmitted" }

type ChallengeDefeated struct {
	WalletPubKeyHash [20]byte
	Sighash          [32]byte
}

func (ChallengeDefeated) Name() string { return "ChallengeDefeated" }

type ChallengeDefeatTimedOut struct {
	WalletPubKeyHash [20]byte
	Sighash          [32]byte
}

func (ChallengeDefeatTimedOut) Name() string { return "ChallengeDefeatTimedOut" }

type WalletTerminated struct {
	ExternalWalletID [32]byte
	WalletPubKeyHash [20]byte
}

func (WalletTerminated) Name() string { return "WalletTerminated" }

type CoordinatorAdded struct {
	Address Address
}

func (CoordinatorAdded) Name() string { return "CoordinatorAdded" }

type CoordinatorRemoved struct {
	Address Address
}

func (CoordinatorRemoved) Name() string { return "CoordinatorRemoved" }

type WalletManuallyUnlocked struct {
	WalletPubKeyHash [20]byte
}

func (WalletManuallyUnlocked) Name() string { return "WalletManuallyUnlocked" }

type HeartbeatRequestSubmitted struct {
	WalletPubKeyHash [20]byte
	Message          []byte
}

func (HeartbeatRequestSubmitted) Name() string { return "HeartbeatRequestSubmitted" }

type DepositSweepProposalSubmitted struct {
	Proposal    DepositSweepProposal
	Coordinator Address
}

func (DepositSweepProposalSubmitted) Name() string { return "DepositSweepProposalSubmitted" }

type ParametersUpdated struct {
	Parameters Parameters
}

func (ParametersUpdated) Name() string { return "ParametersUpdated" }

// BondReturned records a challenge bond leaving escrow back to the
// challenger after a defeat timeout.
type BondReturned struct {
	Challenger Address
	Amount     uint64
}

func (BondReturned) Name() string { return "BondReturned" }

// Recorder receives emitted events. Implementations must not assume they
// are called before the producing operation has committed.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// LogRecorder publishes events to the context logger, tagging each with a
// correlation id.
type LogRecorder struct{}

func (LogRecorder) Record(ctx context.Context, event Event) {
	logging.GetLoggerFromContext(ctx).Info(
		"event emitted",
		zap.String("event", event.Name()),
		zap.String("id", uuid.NewString()),
		zap.Any("payload", event),
	)
}

// MemoryRecorder collects events in order, for tests and in-process
// observers.
type MemoryRecorder struct {
	Events []Event
}

func (r *MemoryRecorder) Record(_ context.Context, event Event) {
	r.Events = append(r.Events, event)
}
