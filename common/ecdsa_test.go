package common

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signRecoverable(t *testing.T, key *btcec.PrivateKey, hash [32]byte) Signature {
	t.Helper()

	compact := ecdsa.SignCompact(key, hash[:], true)
	require.Len(t, compact, 65)

	var sig Signature
	sig.V = compact[0]
	copy(sig.R[:], compact[1:33])
	copy(sig.S[:], compact[33:65])
	return sig
}

func TestRecoverPubKeyRoundTrip(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	digest := [32]byte(chainhash.DoubleHashH([]byte("signable content")))
	sig := signRecoverable(t, key, digest)

	recovered, err := RecoverPubKey(digest, sig)
	require.NoError(t, err)

	assert.True(t, recovered.IsEqual(key.PubKey()))
	assert.Equal(t, PubKeyHash(key.PubKey()), PubKeyHash(recovered))
}

func TestRecoverPubKeyRejectsTampering(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	digest := [32]byte(chainhash.DoubleHashH([]byte("signable content")))
	sig := signRecoverable(t, key, digest)
	expected := PubKeyHash(key.PubKey())

	t.Run("swapped r and s", func(t *testing.T) {
		tampered := sig
		tampered.R, tampered.S = sig.S, sig.R
		recovered, err := RecoverPubKey(digest, tampered)
		if err == nil {
			assert.NotEqual(t, expected, PubKeyHash(recovered))
		}
	})

	t.Run("flipped recovery id", func(t *testing.T) {
		tampered := sig
		tampered.V = sig.V ^ 0x01
		recovered, err := RecoverPubKey(digest, tampered)
		if err == nil {
			assert.NotEqual(t, expected, PubKeyHash(recovered))
		}
	})

	t.Run("different digest", func(t *testing.T) {
		otherDigest := [32]byte(chainhash.DoubleHashH([]byte("other content")))
		recovered, err := RecoverPubKey(otherDigest, sig)
		if err == nil {
			assert.NotEqual(t, expected, PubKeyHash(recovered))
		}
	})

	t.Run("invalid recovery id", func(t *testing.T) {
		tampered := sig
		tampered.V = 99
		_, err := RecoverPubKey(digest, tampered)
		assert.ErrorIs(t, err, ErrSignatureRecovery)
	})

	t.Run("raw recovery id above 3", func(t *testing.T) {
		// Raw ids live in 0..3; 4..7 must not fold onto them.
		for _, v := range []uint8{4, 5, 6, 7} {
			tampered := sig
			tampered.V = v
			_, err := RecoverPubKey(digest, tampered)
			assert.ErrorIs(t, err, ErrSignatureRecovery)
		}
	})
}

func TestPubKeyHashUsesCompressedForm(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	hash := PubKeyHash(key.PubKey())
	assert.Equal(t, Hash160(key.PubKey().SerializeCompressed()), hash[:])
}
