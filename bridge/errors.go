package bridge

import "errors"

var (
	ErrNotInitialized     = errors.New("store not initialized")
	ErrAlreadyInitialized = errors.New("store already initialized")
	ErrWalletNotFound     = errors.New("wallet not found")
	ErrDepositNotFound    = errors.New("deposit not revealed")
	ErrChallengeNotFound  = errors.New("fraud challenge not found")
)
