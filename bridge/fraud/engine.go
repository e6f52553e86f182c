// Package fraud implements the fraud-challenge protocol: bonded accusations
// that a wallet signed an unauthorized sighash, resolved either by a
// cryptographic defeat or by timeout-based punishment.
package fraud

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"go.uber.org/zap"

	"github.com/JSanchezFDZ/tbtc-v2/bridge"
	"github.com/JSanchezFDZ/tbtc-v2/bridge/store"
	"github.com/JSanchezFDZ/tbtc-v2/common"
	"github.com/JSanchezFDZ/tbtc-v2/common/logging"
)

// Config bundles the subsystems the fraud engine depends on.
type Config struct {
	Store    *store.Store
	Clock    bridge.Clock
	Treasury bridge.Treasury
	Registry bridge.WalletRegistry
	// Reimburser is optional; when set, successful defeats reimburse the
	// caller's cost. Reimbursement failures never roll the defeat back.
	Reimburser bridge.Reimburser
	// Recorder is optional; emitted records are published to it after
	// the producing operation commits.
	Recorder bridge.Recorder
}

// Engine accepts, defeats and times out fraud challenges against the shared
// ledger state store.
type Engine struct {
	store      *store.Store
	clock      bridge.Clock
	treasury   bridge.Treasury
	registry   bridge.WalletRegistry
	reimburser bridge.Reimburser
	recorder   bridge.Recorder
}

// New creates a fraud engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Treasury == nil {
		return nil, fmt.Errorf("treasury is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("wallet registry is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = bridge.SystemClock{}
	}
	return &Engine{
		store:      cfg.Store,
		clock:      clock,
		treasury:   cfg.Treasury,
		registry:   cfg.Registry,
		reimburser: cfg.Reimburser,
		recorder:   cfg.Recorder,
	}, nil
}

// SubmitChallenge accuses the wallet of having signed the given sighash.
// The wallet must exist in a challengeable state, the bond must cover the
// configured deposit amount, and the signature must recover to the accused
// wallet's key. The bond is escrowed until the challenge is resolved.
func (e *Engine) SubmitChallenge(
	ctx context.Context,
	challenger bridge.Address,
	walletPubKey *btcec.PublicKey,
	sighash [32]byte,
	signature common.Signature,
	bond uint64,
) error {
	compressed := walletPubKey.SerializeCompressed()
	walletPubKeyHash := common.PubKeyHash(walletPubKey)
	challengeKey := bridge.ChallengeKey(compressed, sighash)
	now := e.clock.Now().Unix()

	err := e.store.Update(func(txn *store.Txn) error {
		params, err := txn.Parameters()
		if err != nil {
			return err
		}

		wallet, err := txn.Wallet(walletPubKeyHash)
		if err != nil {
			return err
		}
		switch wallet.State {
		case bridge.StateLive, bridge.StateMovingFunds, bridge.StateClosing:
		default:
			return fmt.Errorf("%w: wallet is %s", ErrBadWalletState, wallet.State)
		}

		if bond < params.ChallengeDepositAmount {
			return fmt.Errorf("%w: got %d, need at least %d", ErrInsufficientBond, bond, params.ChallengeDepositAmount)
		}

		recovered, err := common.RecoverPubKey(sighash, signature)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSignatureVerification, err)
		}
		if common.PubKeyHash(recovered) != walletPubKeyHash {
			return fmt.Errorf("%w: recovered key does not match wallet", ErrSignatureVerification)
		}

		// A resolved record at this key may be superseded by a fresh
		// challenge; only an unresolved one blocks submission.
		existing, err := txn.Challenge(challengeKey)
		if err == nil && !existing.Resolved {
			return ErrChallengeExists
		}

		if err := txn.SetEscrowBalance(txn.EscrowBalance() + bond); err != nil {
			return err
		}
		return txn.PutChallenge(challengeKey, bridge.FraudChallenge{
			Challenger: challenger,
			Amount:     bond,
			ReportedAt: now,
			Resolved:   false,
		})
	})
	if err != nil {
		return err
	}

	challengesSubmittedCounter.Add(ctx, 1)
	logging.GetLoggerFromContext(ctx).Info(
		"fraud challenge submitted",
		zap.String("wallet", fmt.Sprintf("%x", walletPubKeyHash)),
		zap.String("sighash", fmt.Sprintf("%x", sighash)),
	)
	e.record(ctx, bridge.ChallengeSubmitted{
		WalletPubKeyHash: walletPubKeyHash,
		Sighash:          sighash,
		Signature:        signature,
	})
	return nil
}

// DefeatChallenge proves that the challenged sighash corresponds to an
// authorized spend. The preimage must be declared with the sign-all sighash
// type and must spend either a deposit swept by the wallet or one of the
// wallet's previously recorded main custody UTXOs. On success the bond is
// forfeited to the treasury.
func (e *Engine) DefeatChallenge(
	ctx context.Context,
	caller bridge.Address,
	walletPubKey *btcec.PublicKey,
	preimage []byte,
	isWitnessInput bool,
) error {
	parsed, err := common.ParseSighashPreimage(preimage, isWitnessInput)
	if err != nil {
		return err
	}

	resolve := func(txn *store.Txn, _ bridge.FraudChallenge) error {
		if parsed.SighashType != common.SighashAll {
			return fmt.Errorf("%w: got %d, want %d", ErrWrongSighashType, parsed.SighashType, common.SighashAll)
		}

		walletPubKeyHash := common.PubKeyHash(walletPubKey)
		outpoint := common.SerializeOutpoint(parsed.SpentOutpoint)

		if !e.correctlySpent(txn, outpoint, walletPubKeyHash) {
			return ErrSpentUtxoNotFound
		}
		return nil
	}

	if err := e.defeat(ctx, walletPubKey, parsed.Sighash, resolve); err != nil {
		return err
	}

	e.reimburse(ctx, caller)
	return nil
}

// DefeatChallengeWithHeartbeat defeats a challenge whose sighash is the
// double-SHA256 of a well-formed heartbeat message. Heartbeats are the one
// class of non-transaction digests wallets legitimately sign.
func (e *Engine) DefeatChallengeWithHeartbeat(
	ctx context.Context,
	caller bridge.Address,
	walletPubKey *btcec.PublicKey,
	heartbeatMessage []byte,
) error {
	if !common.IsValidHeartbeatMessage(heartbeatMessage) {
		return ErrInvalidHeartbeatMessage
	}

	sighash := [32]byte(chainhash.DoubleHashH(heartbeatMessage))

	resolve := func(*store.Txn, bridge.FraudChallenge) error { return nil }
	if err := e.defeat(ctx, walletPubKey, sighash, resolve); err != nil {
		return err
	}

	e.reimburse(ctx, caller)
	return nil
}

// defeat is the shared resolution path of both defeat flavors: it marks the
// challenge resolved and forfeits the bond to the treasury once the flavor
// specific check passes.
func (e *Engine) defeat(
	ctx context.Context,
	walletPubKey *btcec.PublicKey,
	sighash [32]byte,
	check func(*store.Txn, bridge.FraudChallenge) error,
) error {
	compressed := walletPubKey.SerializeCompressed()
	walletPubKeyHash := common.PubKeyHash(walletPubKey)
	challengeKey := bridge.ChallengeKey(compressed, sighash)

	var forfeited uint64
	err := e.store.Update(func(txn *store.Txn) error {
		challenge, err := txn.Challenge(challengeKey)
		if err != nil {
			return err
		}
		if challenge.Resolved {
			return ErrChallengeResolved
		}

		if err := check(txn, challenge); err != nil {
			return err
		}

		challenge.Resolved = true
		if err := txn.PutChallenge(challengeKey, challenge); err != nil {
			return err
		}
		if err := txn.SetEscrowBalance(txn.EscrowBalance() - challenge.Amount); err != nil {
			return err
		}
		forfeited = challenge.Amount
		return nil
	})
	if err != nil {
		return err
	}

	e.treasury.ReceiveForfeitedBond(forfeited)

	challengesDefeatedCounter.Add(ctx, 1)
	logging.GetLoggerFromContext(ctx).Info(
		"fraud challenge defeated",
		zap.String("wallet", fmt.Sprintf("%x", walletPubKeyHash)),
		zap.String("sighash", fmt.Sprintf("%x", sighash)),
	)
	e.record(ctx, bridge.ChallengeDefeated{
		WalletPubKeyHash: walletPubKeyHash,
		Sighash:          sighash,
	})
	return nil
}

// NotifyDefeatTimeout resolves a challenge the wallet failed to defeat in
// time. The bond is returned to the challenger and, unless the wallet is
// already Terminated, it is terminated: the live wallet counter shrinks,
// the active wallet pointer is cleared if it referenced this wallet, and
// the wallet registry is signalled to close the signer group.
func (e *Engine) NotifyDefeatTimeout(
	ctx context.Context,
	notifier bridge.Address,
	walletPubKey *btcec.PublicKey,
	sighash [32]byte,
) error {
	compressed := walletPubKey.SerializeCompressed()
	walletPubKeyHash := common.PubKeyHash(walletPubKey)
	challengeKey := bridge.ChallengeKey(compressed, sighash)
	now := e.clock.Now().Unix()

	var (
		events     []bridge.Event
		terminated bool
	)
	err := e.store.Update(func(txn *store.Txn) error {
		events = events[:0]
		terminated = false

		params, err := txn.Parameters()
		if err != nil {
			return err
		}

		challenge, err := txn.Challenge(challengeKey)
		if err != nil {
			return err
		}
		if challenge.Resolved {
			return ErrChallengeResolved
		}

		deadline := challenge.ReportedAt + int64(params.ChallengeDefeatTimeout.Seconds())
		if now <= deadline {
			return fmt.Errorf("%w: deadline at %d, now %d", ErrDefeatTimeoutNotElapsed, deadline, now)
		}

		wallet, err := txn.Wallet(walletPubKeyHash)
		if err != nil {
			return err
		}
		switch wallet.State {
		case bridge.StateLive, bridge.StateMovingFunds, bridge.StateClosing, bridge.StateTerminated:
		default:
			return fmt.Errorf("%w: wallet is %s", ErrBadWalletState, wallet.State)
		}

		challenge.Resolved = true
		if err := txn.PutChallenge(challengeKey, challenge); err != nil {
			return err
		}
		if err := txn.SetEscrowBalance(txn.EscrowBalance() - challenge.Amount); err != nil {
			return err
		}
		events = append(events, bridge.BondReturned{
			Challenger: challenge.Challenger,
			Amount:     challenge.Amount,
		})

		if wallet.State != bridge.StateTerminated {
			wasLive := wallet.State == bridge.StateLive
			wallet.State = bridge.StateTerminated
			if err := txn.PutWallet(walletPubKeyHash, wallet); err != nil {
				return err
			}
			if wasLive {
				if err := txn.SetLiveWalletsCount(txn.LiveWalletsCount() - 1); err != nil {
					return err
				}
			}
			if active, ok := txn.ActiveWallet(); ok && active == walletPubKeyHash {
				if err := txn.ClearActiveWallet(); err != nil {
					return err
				}
			}
			if err := e.registry.CloseWallet(ctx, wallet.ExternalWalletID); err != nil {
				return fmt.Errorf("failed to close wallet in registry: %w", err)
			}
			terminated = true
			events = append(events, bridge.WalletTerminated{
				ExternalWalletID: wallet.ExternalWalletID,
				WalletPubKeyHash: walletPubKeyHash,
			})
		}

		events = append(events, bridge.ChallengeDefeatTimedOut{
			WalletPubKeyHash: walletPubKeyHash,
			Sighash:          sighash,
		})
		return nil
	})
	if err != nil {
		return err
	}

	challengeTimeoutsCounter.Add(ctx, 1)
	logger := logging.GetLoggerFromContext(ctx)
	logger.Info(
		"fraud challenge defeat timed out",
		zap.String("wallet", fmt.Sprintf("%x", walletPubKeyHash)),
		zap.String("sighash", fmt.Sprintf("%x", sighash)),
		zap.Bool("walletTerminated", terminated),
		zap.String("notifier", notifier.String()),
	)
	for _, event := range events {
		e.record(ctx, event)
	}
	return nil
}

// correctlySpent reports whether the outpoint belongs to the ledger's set
// of correctly spent UTXOs for the wallet: a deposit the wallet swept, or a
// previously recorded main custody UTXO of the wallet.
func (e *Engine) correctlySpent(txn *store.Txn, outpoint [36]byte, walletPubKeyHash [20]byte) bool {
	var key bridge.DepositKey
	copy(key.FundingTxHash[:], outpoint[:32])
	key.FundingOutputIndex = binary.LittleEndian.Uint32(outpoint[32:36])

	if deposit, err := txn.Deposit(key); err == nil {
		if deposit.SweptAt > 0 && deposit.WalletPubKeyHash == walletPubKeyHash {
			return true
		}
	}

	if spender, ok := txn.MainUTXOSpentBy(outpoint); ok && spender == walletPubKeyHash {
		return true
	}
	return false
}

func (e *Engine) reimburse(ctx context.Context, caller bridge.Address) {
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

	var offset uint64
	_ = e.store.View(func(txn *store.Txn) error {
		params, err := txn.Parameters()
		if err != nil {
			return err
		}
		offset = params.ChallengeDefeatGasOffset
		return nil
	})
	e.reimburser.Reimburse(caller, offset)
}

func (e *Engine) record(ctx context.Context, event bridge.Event) {
	if e.recorder != nil {
		e.recorder.Record(ctx, event)
	}
}
