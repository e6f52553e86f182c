package common

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// MaxOutputVectorSize caps the serialized output vector accepted by the
// parser. Malformed vectors can claim huge output counts via VarInts, so the
// size is bounded before any allocation happens.
const MaxOutputVectorSize = 400_000

// TxInfo is the decomposed representation of a Bitcoin transaction as it
// crosses the off-chain assembly boundary. Input and output vectors are kept
// as raw serialized bytes, including their leading compact-size counts.
type TxInfo struct {
	Version      []byte
	InputVector  []byte
	OutputVector []byte
	Locktime     []byte
}

// Hash computes the transaction identifier of the decomposed transaction:
// the double-SHA256 of version || inputs || outputs || locktime.
func (t TxInfo) Hash() (chainhash.Hash, error) {
	if len(t.Version) != 4 {
		return chainhash.Hash{}, fmt.Errorf("version must be 4 bytes, got %d", len(t.Version))
	}
	if len(t.Locktime) != 4 {
		return chainhash.Hash{}, fmt.Errorf("locktime must be 4 bytes, got %d", len(t.Locktime))
	}
	if len(t.InputVector) == 0 || len(t.OutputVector) == 0 {
		return chainhash.Hash{}, fmt.Errorf("input and output vectors must not be empty")
	}

	raw := make([]byte, 0, len(t.Version)+len(t.InputVector)+len(t.OutputVector)+len(t.Locktime))
	raw = append(raw, t.Version...)
	raw = append(raw, t.InputVector...)
	raw = append(raw, t.OutputVector...)
	raw = append(raw, t.Locktime...)

	return chainhash.DoubleHashH(raw), nil
}

// ExtractOutputScript returns the locking script of the output at the given
// index within a serialized output vector (compact-size count followed by
// the outputs).
func ExtractOutputScript(outputVector []byte, index uint32) ([]byte, error) {
	if len(outputVector) > MaxOutputVectorSize {
		return nil, fmt.Errorf("output vector size %d exceeds maximum %d", len(outputVector), MaxOutputVectorSize)
	}

	r := bytes.NewReader(outputVector)
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read output count: %w", err)
	}
	if uint64(index) >= count {
		return nil, fmt.Errorf("output index %d out of range, vector has %d outputs", index, count)
	}

	for i := uint64(0); ; i++ {
		// Each output is value (8 bytes) followed by a compact-size
		// script length and the script itself.
		var value [8]byte
		if _, err := io.ReadFull(r, value[:]); err != nil {
			return nil, fmt.Errorf("output vector truncated at output %d: %w", i, err)
		}
		scriptLen, err := wire.ReadVarInt(r, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to read script length of output %d: %w", i, err)
		}
		if scriptLen > uint64(r.Len()) {
			return nil, fmt.Errorf("output %d script length %d exceeds remaining vector", i, scriptLen)
		}
		script := make([]byte, scriptLen)
		if _, err := io.ReadFull(r, script); err != nil {
			return nil, fmt.Errorf("output vector truncated in script of output %d: %w", i, err)
		}
		if i == uint64(index) {
			return script, nil
		}
	}
}

// ExtractOutputValue returns the value in satoshi of the output at the given
// index within a serialized output vector.
func ExtractOutputValue(outputVector []byte, index uint32) (uint64, error) {
	if len(outputVector) > MaxOutputVectorSize {
		return 0, fmt.Errorf("output vector size %d exceeds maximum %d", len(outputVector), MaxOutputVectorSize)
	}

	r := bytes.NewReader(outputVector)
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to read output count: %w", err)
	}
	if uint64(index) >= count {
		return 0, fmt.Errorf("output index %d out of range, vector has %d outputs", index, count)
	}

	for i := uint64(0); ; i++ {
		var value [8]byte
		if _, err := io.ReadFull(r, value[:]); err != nil {
			return 0, fmt.Errorf("output vector truncated at output %d: %w", i, err)
		}
		if i == uint64(index) {
			return binary.LittleEndian.Uint64(value[:]), nil
		}
		scriptLen, err := wire.ReadVarInt(r, 0)
		if err != nil {
			return 0, fmt.Errorf("failed to read script length of output %d: %w", i, err)
		}
		if scriptLen > uint64(r.Len()) {
			return 0, fmt.Errorf("output %d script length %d exceeds remaining vector", i, scriptLen)
		}
		if _, err := r.Seek(int64(scriptLen), io.SeekCurrent); err != nil {
			return 0, fmt.Errorf("output vector truncated in script of output %d: %w", i, err)
		}
	}
}

// Hash160 computes RIPEMD160(SHA256(data)).
func Hash160(data []byte) []byte {
	return btcutil.Hash160(data)
}

// Sha256 computes the single SHA256 of data.
func Sha256(data []byte) [32]byte {
	return sha256.Sum256(data)
}
