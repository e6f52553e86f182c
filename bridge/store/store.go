// Package store is the authoritative ledger state store of the bridge
// security core. Every core operation runs inside a single bbolt read-write
// transaction, so a failing operation leaves no partial effect.
package store

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/JSanchezFDZ/tbtc-v2/bridge"
)

var (
	bucketWallets        = []byte("wallets_by_pubkey_hash")
	bucketDeposits       = []byte("deposits_by_outpoint")
	bucketChallenges     = []byte("challenges_by_key")
	bucketLocks          = []byte("locks_by_pubkey_hash")
	bucketSpentMainUtxos = []byte("spent_main_utxos_by_outpoint")
	bucketCoordinators   = []byte("coordinators_by_address")
	bucketMeta           = []byte("meta")
)

var (
	metaKeyInitialized      = []byte("initialized")
	metaKeyParameters       = []byte("parameters")
	metaKeyLiveWalletsCount = []byte("live_wallets_count")
	metaKeyActiveWallet     = []byte("active_wallet_pubkey_hash")
	metaKeyEscrowBalance    = []byte("escrow_balance")
)

// Store owns the bbolt database holding wallet, deposit, challenge and lock
// records plus governance parameters and chain metadata.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the store at the given path and ensures all buckets
// exist.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path required")
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt store: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketWallets, bucketDeposits, bucketChallenges,
			bucketLocks, bucketSpentMainUtxos, bucketCoordinators,
			bucketMeta,
		}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", string(b), err)
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Update runs fn inside a single read-write transaction. A non-nil error
// from fn rolls every change back.
func (s *Store) Update(fn func(*Txn) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&Txn{tx: tx})
	})
}

// View runs fn inside a read-only transaction.
func (s *Store) View(fn func(*Txn) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(&Txn{tx: tx})
	})
}

// Initialize writes the initial governance parameters exactly once. A
// second call fails with ErrAlreadyInitialized; this is the one-time
// bring-up guard of the core.
func (s *Store) Initialize(params bridge.Parameters) error {
	if err := params.Validate(); err != nil {
		return err
	}
	return s.Update(func(txn *Txn) error {
		meta := txn.tx.Bucket(bucketMeta)
		if meta.Get(metaKeyInitialized) != nil {
			return bridge.ErrAlreadyInitialized
		}
		if err := meta.Put(metaKeyInitialized, []byte{1}); err != nil {
			return err
		}
		return txn.PutParameters(params)
	})
}

// UpdateParameters replaces the governance parameter set after validating
// the global invariants.
func (s *Store) UpdateParameters(params bridge.Parameters) error {
	if err := params.Validate(); err != nil {
		return err
	}
	return s.Update(func(txn *Txn) error {
		if !txn.Initialized() {
			return bridge.ErrNotInitialized
		}
		return txn.PutParameters(params)
	})
}
