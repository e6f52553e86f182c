package bridge

import "context"

// WalletRegistry is the external signer-set lifecycle collaborator. The
// fraud engine signals it when a wallet is terminated by defeat timeout.
// CloseWallet must be safe to call on an already-closed group.
type WalletRegistry interface {
	CloseWallet(ctx context.Context, externalWalletID [32]byte) error
}

// Treasury is the external bond custody collaborator. It receives bonds
// forfeited by wrong accusations.
type Treasury interface {
	ReceiveForfeitedBond(amount uint64)
}

// Reimburser is the external cost-reimbursement collaborator, invoked as a
// wrapper around lock-acquiring and challenge-defeating calls. Failures
// inside Reimburse never roll back the wrapped operation.
type Reimburser interface {
	Reimburse(caller Address, costEstimate uint64)
}
