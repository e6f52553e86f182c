package store

import (
	"encoding/binary"

	bolt "go.etcd.io/bbolt"

	"github.com/JSanchezFDZ/tbtc-v2/bridge"
)

// Txn is a typed view over one bbolt transaction. All accessors operate on
// the same underlying transaction, so reads and writes within one core
// operation are mutually consistent.
type Txn struct {
	tx *bolt.Tx
}

// Initialized reports whether the one-time bring-up has happened.
func (t *Txn) Initialized() bool {
	return t.tx.Bucket(bucketMeta).Get(metaKeyInitialized) != nil
}

// Parameters returns the current governance parameter set.
func (t *Txn) Parameters() (bridge.Parameters, error) {
	raw := t.tx.Bucket(bucketMeta).Get(metaKeyParameters)
	if raw == nil {
		return bridge.Parameters{}, bridge.ErrNotInitialized
	}
	return decodeParameters(raw)
}

// PutParameters overwrites the governance parameter set.
func (t *Txn) PutParameters(params bridge.Parameters) error {
	return t.tx.Bucket(bucketMeta).Put(metaKeyParameters, encodeParameters(params))
}

// Wallet returns the wallet record for the given public key hash, or
// bridge.ErrWalletNotFound.
func (t *Txn) Wallet(pubKeyHash [20]byte) (bridge.Wallet, error) {
	raw := t.tx.Bucket(bucketWallets).Get(pubKeyHash[:])
	if raw == nil {
		return bridge.Wallet{}, bridge.ErrWalletNotFound
	}
	return decodeWallet(raw)
}

// PutWallet writes the wallet record for the given public key hash.
func (t *Txn) PutWallet(pubKeyHash [20]byte, wallet bridge.Wallet) error {
	return t.tx.Bucket(bucketWallets).Put(pubKeyHash[:], encodeWallet(wallet))
}

// Deposit returns the deposit record for the given key, or
// bridge.ErrDepositNotFound if the deposit was never revealed.
func (t *Txn) Deposit(key bridge.DepositKey) (bridge.Deposit, error) {
	keyBytes := key.Bytes()
	raw := t.tx.Bucket(bucketDeposits).Get(keyBytes[:])
	if raw == nil {
		return bridge.Deposit{}, bridge.ErrDepositNotFound
	}
	return decodeDeposit(raw)
}

// PutDeposit writes the deposit record for the given key.
func (t *Txn) PutDeposit(key bridge.DepositKey, deposit bridge.Deposit) error {
	keyBytes := key.Bytes()
	return t.tx.Bucket(bucketDeposits).Put(keyBytes[:], encodeDeposit(deposit))
}

// Challenge returns the fraud challenge stored under the given key, or
// bridge.ErrChallengeNotFound.
func (t *Txn) Challenge(key [32]byte) (bridge.FraudChallenge, error) {
	raw := t.tx.Bucket(bucketChallenges).Get(key[:])
	if raw == nil {
		return bridge.FraudChallenge{}, bridge.ErrChallengeNotFound
	}
	return decodeChallenge(raw)
}

// PutChallenge writes the fraud challenge under the given key.
func (t *Txn) PutChallenge(key [32]byte, challenge bridge.FraudChallenge) error {
	return t.tx.Bucket(bucketChallenges).Put(key[:], encodeChallenge(challenge))
}

// Lock returns the lock record of the given wallet. A wallet with no stored
// lock is unlocked.
func (t *Txn) Lock(pubKeyHash [20]byte) (bridge.WalletLock, error) {
	raw := t.tx.Bucket(bucketLocks).Get(pubKeyHash[:])
	if raw == nil {
		return bridge.WalletLock{}, nil
	}
	return decodeLock(raw)
}

// PutLock overwrites the lock record of the given wallet.
func (t *Txn) PutLock(pubKeyHash [20]byte, lock bridge.WalletLock) error {
	return t.tx.Bucket(bucketLocks).Put(pubKeyHash[:], encodeLock(lock))
}

// MarkMainUTXOSpent records that the given outpoint was correctly spent as
// a main custody UTXO of the given wallet. Invoked by the external sweep
// and redemption settlement collaborators.
func (t *Txn) MarkMainUTXOSpent(outpoint [36]byte, walletPubKeyHash [20]byte) error {
	return t.tx.Bucket(bucketSpentMainUtxos).Put(outpoint[:], walletPubKeyHash[:])
}

// MainUTXOSpentBy returns the wallet that correctly spent the given
// outpoint as a main custody UTXO, and whether such a record exists.
func (t *Txn) MainUTXOSpentBy(outpoint [36]byte) ([20]byte, bool) {
	raw := t.tx.Bucket(bucketSpentMainUtxos).Get(outpoint[:])
	var pubKeyHash [20]byte
	if raw == nil {
		return pubKeyHash, false
	}
	copy(pubKeyHash[:], raw)
	return pubKeyHash, true
}

// IsCoordinator reports whether the address is on the coordinator
// allow-list.
func (t *Txn) IsCoordinator(address bridge.Address) bool {
	return t.tx.Bucket(bucketCoordinators).Get(address[:]) != nil
}

// PutCoordinator adds the address to the coordinator allow-list.
func (t *Txn) PutCoordinator(address bridge.Address) error {
	return t.tx.Bucket(bucketCoordinators).Put(address[:], []byte{1})
}

// DeleteCoordinator removes the address from the coordinator allow-list.
func (t *Txn) DeleteCoordinator(address bridge.Address) error {
	return t.tx.Bucket(bucketCoordinators).Delete(address[:])
}

// LiveWalletsCount returns the number of wallets currently in the Live
// state.
func (t *Txn) LiveWalletsCount() uint32 {
	raw := t.tx.Bucket(bucketMeta).Get(metaKeyLiveWalletsCount)
	if raw == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(raw)
}

// SetLiveWalletsCount overwrites the live wallet counter.
func (t *Txn) SetLiveWalletsCount(count uint32) error {
	var raw [4]byte
	binary.LittleEndian.PutUint32(raw[:], count)
	return t.tx.Bucket(bucketMeta).Put(metaKeyLiveWalletsCount, raw[:])
}

// ActiveWallet returns the active wallet pointer and whether one is set.
func (t *Txn) ActiveWallet() ([20]byte, bool) {
	raw := t.tx.Bucket(bucketMeta).Get(metaKeyActiveWallet)
	var pubKeyHash [20]byte
	if raw == nil {
		return pubKeyHash, false
	}
	copy(pubKeyHash[:], raw)
	return pubKeyHash, true
}

// SetActiveWallet sets the active wallet pointer.
func (t *Txn) SetActiveWallet(pubKeyHash [20]byte) error {
	return t.tx.Bucket(bucketMeta).Put(metaKeyActiveWallet, pubKeyHash[:])
}

// ClearActiveWallet clears the active wallet pointer.
func (t *Txn) ClearActiveWallet() error {
	return t.tx.Bucket(bucketMeta).Delete(metaKeyActiveWallet)
}

// EscrowBalance returns the total value currently bonded by open fraud
// challenges.
func (t *Txn) EscrowBalance() uint64 {
	raw := t.tx.Bucket(bucketMeta).Get(metaKeyEscrowBalance)
	if raw == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(raw)
}

// SetEscrowBalance overwrites the bond escrow balance.
func (t *Txn) SetEscrowBalance(balance uint64) error {
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:], balance)
	return t.tx.Bucket(bucketMeta).Put(metaKeyEscrowBalance, raw[:])
}
