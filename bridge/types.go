// Package bridge defines the domain model of the custody bridge security
// core: wallets, deposits, fraud challenges, wallet locks, the governance
// parameter set, and the contracts of the external collaborators the two
// protocol engines depend on.
package bridge

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Address is a 20-byte ledger identity: a challenger, coordinator,
// depositor, vault or administrator.
type Address [20]byte

// IsZero reports whether the address is the zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// WalletState is the lifecycle state of a wallet. Terminated and Closed are
// absorbing.
type WalletState uint8

const (
	StateUnknown WalletState = iota
	StateLive
	StateMovingFunds
	StateClosing
	StateClosed
	StateTerminated
)

func (s WalletState) String() string {
	switch s {
	case StateLive:
		return "Live"
	case StateMovingFunds:
		return "MovingFunds"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// Wallet is the ledger record of a rotating signer group custodying a
// Bitcoin UTXO set. It is keyed in the store by the hash160 of the group's
// compressed public key.
type Wallet struct {
	// ExternalWalletID identifies the signer group in the wallet
	// registry collaborator.
	ExternalWalletID [32]byte
	// MainUTXOHash commits to the wallet's current main custody UTXO.
	// Zero when the wallet holds no main UTXO yet.
	MainUTXOHash [32]byte
	// PendingRedemptionsValue is the total value of redemption requests
	// not yet settled by this wallet, in satoshi.
	PendingRedemptionsValue uint64
	// CreatedAt is the ledger time the wallet was registered.
	CreatedAt int64
	// MovingFundsRequestedAt is the ledger time the wallet entered
	// MovingFunds, zero otherwise.
	MovingFundsRequestedAt int64
	// ClosingStartedAt is the ledger time the wallet entered Closing,
	// zero otherwise.
	ClosingStartedAt int64
	// State is the lifecycle state.
	State WalletState
	// MovingFundsTargetWalletsCommitmentHash commits to the target
	// wallet set of an in-progress funds migration.
	MovingFundsTargetWalletsCommitmentHash [32]byte
}

// DepositKey identifies a revealed deposit by its funding outpoint.
type DepositKey struct {
	FundingTxHash      chainhash.Hash
	FundingOutputIndex uint32
}

// Bytes renders the key in store order: funding tx hash followed by the
// little-endian output index.
func (k DepositKey) Bytes() [36]byte {
	var out [36]byte
	copy(out[:32], k.FundingTxHash[:])
	binary.LittleEndian.PutUint32(out[32:36], k.FundingOutputIndex)
	return out
}

// Deposit is the ledger record of a revealed deposit. Created and swept by
// external collaborators; read-only to the sweep proposal validator.
type Deposit struct {
	// Depositor is the ledger identity that revealed the deposit.
	Depositor Address
	// RevealedAt is the ledger time of the reveal.
	RevealedAt int64
	// SweptAt is the ledger time the deposit was swept, zero while
	// unswept.
	SweptAt int64
	// WalletPubKeyHash is the custodying wallet.
	WalletPubKeyHash [20]byte
	// Vault is the optional destination vault, zero for none.
	Vault Address
}

// FraudChallenge is a bonded accusation that a wallet signed an
// unauthorized sighash. Keyed in the store by ChallengeKey of the wallet
// public key and the claimed sighash.
type FraudChallenge struct {
	// Challenger posted the bond and receives it back if the challenge
	// is not defeated in time.
	Challenger Address
	// Amount is the actual bonded value, never less than the configured
	// challenge deposit amount.
	Amount uint64
	// ReportedAt is the ledger time of submission.
	ReportedAt int64
	// Resolved transitions false to true exactly once, by defeat or by
	// timeout.
	Resolved bool
}

// ChallengeKey computes the store key of a fraud challenge: the SHA256 of
// the wallet's compressed public key concatenated with the claimed sighash.
func ChallengeKey(compressedPubKey []byte, sighash [32]byte) [32]byte {
	h := sha256.New()
	h.Write(compressedPubKey)
	h.Write(sighash[:])
	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}

// WalletAction is the cause recorded on a wallet lock.
type WalletAction uint8

const (
	ActionIdle WalletAction = iota
	ActionHeartbeat
	ActionDepositSweep
	ActionRedemption
	ActionMovingFunds
	ActionMovedFundsSweep
)

func (a WalletAction) String() string {
	switch a {
	case ActionHeartbeat:
		return "Heartbeat"
	case ActionDepositSweep:
		return "DepositSweep"
	case ActionRedemption:
		return "Redemption"
	case ActionMovingFunds:
		return "MovingFunds"
	case ActionMovedFundsSweep:
		return "MovedFundsSweep"
	default:
		return "Idle"
	}
}

// WalletLock serializes conflicting coordinated actions on one wallet.
// A lock with zero expiry is unlocked.
type WalletLock struct {
	// ExpiresAt is the ledger time the lock lapses. The lock is held
	// while now <= ExpiresAt; the boundary instant itself still rejects.
	ExpiresAt int64
	// Cause is the action that acquired the lock.
	Cause WalletAction
}

// Clock is the monotonically non-decreasing ledger clock all timeout and
// age checks read from.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
