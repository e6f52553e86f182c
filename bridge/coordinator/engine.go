// Package coordinator implements the wallet action-coordination protocol:
// per-wallet time-locks gating heartbeat requests and deposit sweep
// proposals, and the read-only validator establishing a proposal's validity
// against current ledger state.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JSanchezFDZ/tbtc-v2/bridge"
	"github.com/JSanchezFDZ/tbtc-v2/bridge/store"
	"github.com/JSanchezFDZ/tbtc-v2/common"
	"github.com/JSanchezFDZ/tbtc-v2/common/logging"
)

// Config bundles the subsystems the coordination engine depends on.
type Config struct {
	Store *store.Store
	Clock bridge.Clock
	// Admin manages the coordinator allow-list and may manually unlock
	// wallets.
	Admin bridge.Address
	// Reimburser is optional; lock-acquiring calls reimburse the
	// coordinator's cost on success. Failures never roll the call back.
	Reimburser bridge.Reimburser
	// Recorder is optional; emitted records are published to it after
	// the producing operation commits.
	Recorder bridge.Recorder
}

// Engine gates coordinated wallet actions behind per-wallet time-locks.
type Engine struct {
	store      *store.Store
	clock      bridge.Clock
	admin      bridge.Address
	reimburser bridge.Reimburser
	recorder   bridge.Recorder
}

// New creates a coordination engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Admin.IsZero() {
		return nil, fmt.Errorf("admin address is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = bridge.SystemClock{}
	}
	return &Engine{
		store:      cfg.Store,
		clock:      clock,
		admin:      cfg.Admin,
		reimburser: cfg.Reimburser,
		recorder:   cfg.Recorder,
	}, nil
}

// AddCoordinator puts an identity on the coordinator allow-list.
// Admin-only.
func (e *Engine) AddCoordinator(ctx context.Context, caller, coordinator bridge.Address) error {
	if caller != e.admin {
		return ErrNotAdmin
	}
	err := e.store.Update(func(txn *store.Txn) error {
		return txn.PutCoordinator(coordinator)
	})
	if err != nil {
		return err
	}
	e.record(ctx, bridge.CoordinatorAdded{Address: coordinator})
	return nil
}

// RemoveCoordinator drops an identity from the coordinator allow-list.
// Admin-only.
func (e *Engine) RemoveCoordinator(ctx context.Context, caller, coordinator bridge.Address) error {
	if caller != e.admin {
		return ErrNotAdmin
	}
	err := e.store.Update(func(txn *store.Txn) error {
		return txn.DeleteCoordinator(coordinator)
	})
	if err != nil {
		return err
	}
	e.record(ctx, bridge.CoordinatorRemoved{Address: coordinator})
	return nil
}

// UpdateParameters replaces the governance parameter set after validating
// the global invariants. Admin-only.
func (e *Engine) UpdateParameters(ctx context.Context, caller bridge.Address, params bridge.Parameters) error {
	if caller != e.admin {
		return ErrNotAdmin
	}
	if err := e.store.UpdateParameters(params); err != nil {
		return err
	}
	logging.GetLoggerFromContext(ctx).Info(
		"governance parameters updated",
		zap.Uint64("challengeDepositAmount", params.ChallengeDepositAmount),
		zap.Duration("challengeDefeatTimeout", params.ChallengeDefeatTimeout),
	)
	e.record(ctx, bridge.ParametersUpdated{Parameters: params})
	return nil
}

// RequestHeartbeat asks the wallet's off-chain signers to sign a heartbeat
// message. The caller must be a coordinator, the message must be a
// well-formed heartbeat and the wallet's lock must have strictly expired.
// On success the wallet is locked for the heartbeat validity period.
func (e *Engine) RequestHeartbeat(
	ctx context.Context,
	caller bridge.Address,
	walletPubKeyHash [20]byte,
	message []byte,
) error {
	if !common.IsValidHeartbeatMessage(message) {
		return ErrInvalidHeartbeatMessage
	}

	var gasOffset uint64
	err := e.store.Update(func(txn *store.Txn) error {
		params, err := txn.Parameters()
		if err != nil {
			return err
		}
		gasOffset = params.HeartbeatRequestGasOffset

		if !txn.IsCoordinator(caller) {
			return ErrNotCoordinator
		}
		return e.acquireLock(txn, walletPubKeyHash, params.HeartbeatRequestValidity, bridge.ActionHeartbeat)
	})
	if err != nil {
		return err
	}

	heartbeatRequestsCounter.Add(ctx, 1)
	logging.GetLoggerFromContext(ctx).Info(
		"heartbeat request submitted",
		zap.String("wallet", fmt.Sprintf("%x", walletPubKeyHash)),
		zap.String("coordinator", caller.String()),
	)
	e.record(ctx, bridge.HeartbeatRequestSubmitted{
		WalletPubKeyHash: walletPubKeyHash,
		Message:          message,
	})
	e.reimburse(ctx, caller, gasOffset)
	return nil
}

// SubmitDepositSweepProposal emits a deposit sweep proposal for off-chain
// consumption. The caller must be a coordinator and the target wallet's
// lock must have strictly expired. On success the wallet is locked for the
// proposal validity period. Proposal content is not persisted; validity is
// always established fresh by ValidateDepositSweepProposal.
func (e *Engine) SubmitDepositSweepProposal(
	ctx context.Context,
	caller bridge.Address,
	proposal bridge.DepositSweepProposal,
) error {
	var gasOffset uint64
	err := e.store.Update(func(txn *store.Txn) error {
		params, err := txn.Parameters()
		if err != nil {
			return err
		}
		gasOffset = params.DepositSweepProposalGasOffset

		if !txn.IsCoordinator(caller) {
			return ErrNotCoordinator
		}
		return e.acquireLock(txn, proposal.WalletPubKeyHash, params.DepositSweepProposalValidity, bridge.ActionDepositSweep)
	})
	if err != nil {
		return err
	}

	sweepProposalsCounter.Add(ctx, 1)
	logging.GetLoggerFromContext(ctx).Info(
		"deposit sweep proposal submitted",
		zap.String("wallet", fmt.Sprintf("%x", proposal.WalletPubKeyHash)),
		zap.Int("deposits", len(proposal.DepositsKeys)),
		zap.Uint64("sweepTxFee", proposal.SweepTxFee),
	)
	e.record(ctx, bridge.DepositSweepProposalSubmitted{
		Proposal:    proposal,
		Coordinator: caller,
	})
	e.reimburse(ctx, caller, gasOffset)
	return nil
}

// UnlockWallet resets a wallet's lock to unlocked, bypassing normal expiry.
// Admin-only escape hatch for stuck off-chain coordination.
func (e *Engine) UnlockWallet(ctx context.Context, caller bridge.Address, walletPubKeyHash [20]byte) error {
	if caller != e.admin {
		return ErrNotAdmin
	}
	err := e.store.Update(func(txn *store.Txn) error {
		return txn.PutLock(walletPubKeyHash, bridge.WalletLock{
			ExpiresAt: 0,
			Cause:     bridge.ActionIdle,
		})
	})
	if err != nil {
		return err
	}
	logging.GetLoggerFromContext(ctx).Info(
		"wallet manually unlocked",
		zap.String("wallet", fmt.Sprintf("%x", walletPubKeyHash)),
	)
	e.record(ctx, bridge.WalletManuallyUnlocked{WalletPubKeyHash: walletPubKeyHash})
	return nil
}

// acquireLock overwrites the wallet's lock once the previous one has
// strictly expired. A call at the exact expiry instant still rejects.
func (e *Engine) acquireLock(
	txn *store.Txn,
	walletPubKeyHash [20]byte,
	validity time.Duration,
	cause bridge.WalletAction,
) error {
	lock, err := txn.Lock(walletPubKeyHash)
	if err != nil {
		return err
	}

	now := e.clock.Now().Unix()
	if lock.ExpiresAt != 0 && now <= lock.ExpiresAt {
		return fmt.Errorf("%w: %s until %d", ErrWalletLocked, lock.Cause, lock.ExpiresAt)
	}

	return txn.PutLock(walletPubKeyHash, bridge.WalletLock{
		ExpiresAt: now + int64(validity.Seconds()),
		Cause:     cause,
	})
}

func (e *Engine) reimburse(ctx context.Context, caller bridge.Address, costEstimate uint64) {
	if e.reimburser == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logging.GetLoggerFromContext(ctx).Warn(
				"reimbursement failed",
				zap.Any("panic", r),
			)
		}
	}()
	e.reimburser.Reimburse(caller, costEstimate)
}

func (e *Engine) record(ctx context.Context, event bridge.Event) {
	if e.recorder != nil {
		e.recorder.Record(ctx, event)
	}
}
