package common

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// ErrSignatureRecovery is returned when a (v, r, s) signature cannot be
// resolved to any public key over the given digest.
var ErrSignatureRecovery = errors.New("failed to recover public key from signature")

// Signature is an ECDSA signature in recoverable (v, r, s) form, the shape
// in which challenge submissions arrive from off-chain observers.
type Signature struct {
	V uint8
	R [32]byte
	S [32]byte
}

// compactHeader normalizes the recovery flag to the 27-based header byte
// expected by the compact signature format. Both raw recovery ids (0..3)
// and pre-offset header bytes (27..34, where values above 30 carry the
// compressed-key bit) are accepted; everything else is rejected.
func (s Signature) compactHeader() (byte, error) {
	v := s.V
	if v >= 27 {
		v -= 27
		if v >= 8 {
			return 0, fmt.Errorf("invalid recovery id %d", s.V)
		}
		v &= 3
	} else if v > 3 {
		return 0, fmt.Errorf("invalid recovery id %d", s.V)
	}
	// Force the compressed-key bit; only the recovery id matters for
	// recovering the key itself.
	return 27 + 4 + v, nil
}

// RecoverPubKey recovers the public key that produced the signature over the
// given message hash.
func RecoverPubKey(hash [32]byte, sig Signature) (*btcec.PublicKey, error) {
	header, err := sig.compactHeader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureRecovery, err)
	}

	compact := make([]byte, 65)
	compact[0] = header
	copy(compact[1:33], sig.R[:])
	copy(compact[33:65], sig.S[:])

	pubKey, _, err := ecdsa.RecoverCompact(compact, hash[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureRecovery, err)
	}
	return pubKey, nil
}

// PubKeyHash reduces a public key to its 20-byte on-ledger identity: the
// hash160 of the compressed serialization.
func PubKeyHash(pubKey *btcec.PublicKey) [20]byte {
	var hash [20]byte
	copy(hash[:], Hash160(pubKey.SerializeCompressed()))
	return hash
}
