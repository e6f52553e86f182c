package common

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// SighashAll is the "sign all inputs and outputs" sighash type. It is the
// only type a wallet is ever authorized to sign with.
const SighashAll uint32 = 1

// Minimum plausible preimage sizes. A witness (BIP-143) preimage is
// version(4) || hashPrevouts(32) || hashSequence(32) || outpoint(36) ||
// scriptCode(>=1) || value(8) || sequence(4) || hashOutputs(32) ||
// locktime(4) || sighashType(4). A legacy preimage is a serialized
// transaction with scriptSig slots followed by the 4-byte sighash type.
const (
	minWitnessPreimageSize = 4 + 32 + 32 + 36 + 1 + 8 + 4 + 32 + 4 + 4
	minLegacyPreimageSize  = 4 + 1 + 36 + 1 + 1 + 4 + 1 + 4 + 4
)

var (
	ErrMalformedPreimage = errors.New("malformed sighash preimage")
	// ErrNoSignedInput is returned for a legacy preimage in which no
	// input slot, or more than one, carries the previous output script.
	ErrNoSignedInput = errors.New("preimage does not identify exactly one signed input")
)

// ParsedPreimage is the result of decomposing a sighash preimage.
type ParsedPreimage struct {
	// Sighash is the double-SHA256 of the whole preimage, the digest the
	// wallet's signature authorizes.
	Sighash [32]byte
	// SighashType is the declared signing mode, read from the trailing
	// 4 little-endian bytes of the preimage.
	SighashType uint32
	// SpentOutpoint is the previous output referenced by the input being
	// signed.
	SpentOutpoint wire.OutPoint
}

// ParseSighashPreimage decomposes a sighash preimage and identifies the
// previous output it spends. For witness preimages the outpoint sits at the
// fixed BIP-143 offset; for legacy preimages it is the outpoint of the one
// input whose script slot is non-empty.
func ParseSighashPreimage(preimage []byte, witness bool) (ParsedPreimage, error) {
	if witness {
		return parseWitnessPreimage(preimage)
	}
	return parseLegacyPreimage(preimage)
}

func parseWitnessPreimage(preimage []byte) (ParsedPreimage, error) {
	if len(preimage) < minWitnessPreimageSize {
		return ParsedPreimage{}, fmt.Errorf("%w: witness preimage too short (%d bytes)", ErrMalformedPreimage, len(preimage))
	}

	// Outpoint of the signed input follows version, hashPrevouts and
	// hashSequence.
	outpoint, err := readOutpoint(preimage[68:104])
	if err != nil {
		return ParsedPreimage{}, err
	}

	return ParsedPreimage{
		Sighash:       [32]byte(chainhash.DoubleHashH(preimage)),
		SighashType:   binary.LittleEndian.Uint32(preimage[len(preimage)-4:]),
		SpentOutpoint: outpoint,
	}, nil
}

func parseLegacyPreimage(preimage []byte) (ParsedPreimage, error) {
	if len(preimage) < minLegacyPreimageSize {
		return ParsedPreimage{}, fmt.Errorf("%w: legacy preimage too short (%d bytes)", ErrMalformedPreimage, len(preimage))
	}

	// Everything but the trailing sighash type is the serialized
	// transaction with per-input script slots.
	r := bytes.NewReader(preimage[4 : len(preimage)-4])

	inputCount, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return ParsedPreimage{}, fmt.Errorf("%w: failed to read input count: %v", ErrMalformedPreimage, err)
	}

	var (
		signedOutpoint wire.OutPoint
		signedInputs   int
	)
	for i := uint64(0); i < inputCount; i++ {
		var rawOutpoint [36]byte
		if _, err := io.ReadFull(r, rawOutpoint[:]); err != nil {
			return ParsedPreimage{}, fmt.Errorf("%w: truncated at input %d", ErrMalformedPreimage, i)
		}
		scriptLen, err := wire.ReadVarInt(r, 0)
		if err != nil {
			return ParsedPreimage{}, fmt.Errorf("%w: failed to read script length of input %d: %v", ErrMalformedPreimage, i, err)
		}
		if scriptLen > uint64(r.Len()) {
			return ParsedPreimage{}, fmt.Errorf("%w: input %d script length %d exceeds preimage", ErrMalformedPreimage, i, scriptLen)
		}
		if _, err := r.Seek(int64(scriptLen), io.SeekCurrent); err != nil {
			return ParsedPreimage{}, fmt.Errorf("%w: truncated in script of input %d", ErrMalformedPreimage, i)
		}
		var sequence [4]byte
		if _, err := io.ReadFull(r, sequence[:]); err != nil {
			return ParsedPreimage{}, fmt.Errorf("%w: truncated at sequence of input %d", ErrMalformedPreimage, i)
		}

		// The input being signed is the one carrying the previous
		// output's script; all other script slots are emptied before
		// hashing.
		if scriptLen > 0 {
			signedInputs++
			outpoint, err := readOutpoint(rawOutpoint[:])
			if err != nil {
				return ParsedPreimage{}, err
			}
			signedOutpoint = outpoint
		}
	}

	if signedInputs != 1 {
		return ParsedPreimage{}, ErrNoSignedInput
	}

	return ParsedPreimage{
		Sighash:       [32]byte(chainhash.DoubleHashH(preimage)),
		SighashType:   binary.LittleEndian.Uint32(preimage[len(preimage)-4:]),
		SpentOutpoint: signedOutpoint,
	}, nil
}

func readOutpoint(raw []byte) (wire.OutPoint, error) {
	if len(raw) != 36 {
		return wire.OutPoint{}, fmt.Errorf("%w: outpoint must be 36 bytes, got %d", ErrMalformedPreimage, len(raw))
	}
	var hash chainhash.Hash
	copy(hash[:], raw[:32])
	return wire.OutPoint{
		Hash:  hash,
		Index: binary.LittleEndian.Uint32(raw[32:36]),
	}, nil
}

// SerializeOutpoint renders an outpoint in Bitcoin wire order: the 32-byte
// transaction hash followed by the little-endian output index. The result is
// also the canonical store key for deposit and spent-UTXO lookups.
func SerializeOutpoint(outpoint wire.OutPoint) [36]byte {
	var out [36]byte
	copy(out[:32], outpoint.Hash[:])
	binary.LittleEndian.PutUint32(out[32:36], outpoint.Index)
	return out
}
