package common

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
)

// Errors returned by the script matcher.
var (
	ErrScriptHashMismatch  = errors.New("reconstructed script does not match funding output script hash")
	ErrUnsupportedOutputTy = errors.New("funding output is neither P2SH nor P2WSH")
)

// DepositScriptParams carries everything needed to reconstruct the locking
// script of a revealed deposit's funding output.
type DepositScriptParams struct {
	// Depositor is the 20-byte ledger identity of the depositor.
	Depositor [20]byte
	// BlindingFactor distinguishes deposits made by the same depositor.
	BlindingFactor [8]byte
	// WalletPubKeyHash is the hash160 of the custodying wallet's
	// compressed public key.
	WalletPubKeyHash [20]byte
	// RefundPubKeyHash is the hash160 of the depositor's refund public key.
	RefundPubKeyHash [20]byte
	// RefundLocktime is the raw 4-byte little-endian absolute locktime
	// after which the depositor can take the funds back.
	RefundLocktime [4]byte
}

// BuildDepositScript reconstructs the canonical two-branch deposit locking
// script. The main branch pays to the wallet's key; the else branch pays to
// the refund key, gated by an absolute time lock.
func BuildDepositScript(params DepositScriptParams) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddData(params.Depositor[:]).
		AddOp(txscript.OP_DROP).
		AddData(params.BlindingFactor[:]).
		AddOp(txscript.OP_DROP).
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(params.WalletPubKeyHash[:]).
		AddOp(txscript.OP_EQUAL).
		AddOp(txscript.OP_IF).
		AddOp(txscript.OP_CHECKSIG).
		AddOp(txscript.OP_ELSE).
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(params.RefundPubKeyHash[:]).
		AddOp(txscript.OP_EQUALVERIFY).
		AddData(params.RefundLocktime[:]).
		AddOp(txscript.OP_CHECKLOCKTIMEVERIFY).
		AddOp(txscript.OP_DROP).
		AddOp(txscript.OP_CHECKSIG).
		AddOp(txscript.OP_ENDIF).
		Script()
}

// ExtractScriptHash pulls the committed script hash out of a standard
// hash-locked output script. A 20-byte hash means the output is P2SH, a
// 32-byte hash means P2WSH.
func ExtractScriptHash(outputScript []byte) ([]byte, error) {
	// P2SH: OP_HASH160 <20-byte hash> OP_EQUAL
	if len(outputScript) == 23 &&
		outputScript[0] == txscript.OP_HASH160 &&
		outputScript[1] == txscript.OP_DATA_20 &&
		outputScript[22] == txscript.OP_EQUAL {
		return outputScript[2:22], nil
	}
	// P2WSH: OP_0 <32-byte hash>
	if len(outputScript) == 34 &&
		outputScript[0] == txscript.OP_0 &&
		outputScript[1] == txscript.OP_DATA_32 {
		return outputScript[2:34], nil
	}
	return nil, ErrUnsupportedOutputTy
}

// MatchDepositFundingOutput checks that the funding output's locking script
// commits to the deposit script reconstructed from the given parameters.
// The hash length selects the commitment scheme: hash160 of the script for
// P2SH outputs, single SHA256 for P2WSH outputs.
func MatchDepositFundingOutput(params DepositScriptParams, outputScript []byte) error {
	script, err := BuildDepositScript(params)
	if err != nil {
		return fmt.Errorf("failed to build deposit script: %w", err)
	}

	scriptHash, err := ExtractScriptHash(outputScript)
	if err != nil {
		return err
	}

	switch len(scriptHash) {
	case 20:
		if !bytes.Equal(Hash160(script), scriptHash) {
			return ErrScriptHashMismatch
		}
	case 32:
		digest := Sha256(script)
		if !bytes.Equal(digest[:], scriptHash) {
			return ErrScriptHashMismatch
		}
	default:
		return ErrUnsupportedOutputTy
	}
	return nil
}
