package coordinator

import "errors"

var (
	// ErrNotCoordinator rejects callers missing from the coordinator
	// allow-list.
	ErrNotCoordinator = errors.New("caller is not a coordinator")
	// ErrNotAdmin rejects admin-only calls from other identities.
	ErrNotAdmin = errors.New("caller is not the admin")
	// ErrWalletLocked rejects a lock-acquiring call while the wallet's
	// lock has not strictly expired.
	ErrWalletLocked = errors.New("wallet locked")
	// ErrInvalidHeartbeatMessage rejects malformed heartbeat messages.
	ErrInvalidHeartbeatMessage = errors.New("not a valid heartbeat message")

	// Sweep proposal validation failures.
	ErrWalletNotLive          = errors.New("wallet is not in Live state")
	ErrInvalidBatchSize       = errors.New("sweep batch size out of range")
	ErrExtraInfoMismatch      = errors.New("extra info array length does not match deposit keys")
	ErrZeroSweepFee           = errors.New("proposed sweep transaction fee is zero")
	ErrDepositFeeTooHigh      = errors.New("per-deposit fee share exceeds the configured maximum")
	ErrDepositNotRevealed     = errors.New("deposit not revealed")
	ErrDepositMinAgeNotMet    = errors.New("deposit min age not achieved yet")
	ErrDepositAlreadySwept    = errors.New("deposit already swept")
	ErrDepositValueTooLow     = errors.New("deposit value does not cover its fee share")
	ErrFundingTxMismatch      = errors.New("funding transaction hash does not match deposit key")
	ErrScriptMismatch         = errors.New("funding output script does not match deposit parameters")
	ErrRefundTooClose         = errors.New("deposit refund is too close in time")
	ErrDepositWalletMismatch  = errors.New("deposit controlled by a different wallet")
	ErrVaultMismatch          = errors.New("deposits target different vaults")
)
