package fraud

import "errors"

var (
	// ErrBadWalletState rejects operations against a wallet whose
	// lifecycle state does not admit them.
	ErrBadWalletState = errors.New("wallet state does not allow the operation")
	// ErrInsufficientBond rejects a challenge whose bond is below the
	// configured deposit amount.
	ErrInsufficientBond = errors.New("insufficient bond")
	// ErrSignatureVerification rejects a challenge whose signature does
	// not recover to the accused wallet's key.
	ErrSignatureVerification = errors.New("signature verification failure")
	// ErrChallengeExists rejects a duplicate of an unresolved challenge.
	ErrChallengeExists = errors.New("fraud challenge already exists")
	// ErrChallengeResolved guards resolved challenges against replayed
	// defeat or timeout notifications.
	ErrChallengeResolved = errors.New("fraud challenge already resolved")
	// ErrWrongSighashType rejects defeat preimages not declared with the
	// sign-all sighash type.
	ErrWrongSighashType = errors.New("wrong sighash type")
	// ErrSpentUtxoNotFound rejects a defeat whose referenced previous
	// output is not among the wallet's correctly spent UTXOs.
	ErrSpentUtxoNotFound = errors.New("spent UTXO not found among correctly spent UTXOs")
	// ErrDefeatTimeoutNotElapsed means the timeout notification came too
	// early; the caller may retry after the deadline.
	ErrDefeatTimeoutNotElapsed = errors.New("fraud challenge defeat timeout not elapsed")
	// ErrInvalidHeartbeatMessage rejects a heartbeat defeat whose message
	// is not a well-formed heartbeat.
	ErrInvalidHeartbeatMessage = errors.New("not a valid heartbeat message")
)
