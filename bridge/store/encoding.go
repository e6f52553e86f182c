package store

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/JSanchezFDZ/tbtc-v2/bridge"
)

// Fixed binary record layouts. All integers are little-endian; timestamps
// are unix seconds.
const (
	walletRecordSize    = 32 + 32 + 8 + 8 + 8 + 8 + 1 + 32
	depositRecordSize   = 20 + 8 + 8 + 20 + 20
	challengeRecordSize = 20 + 8 + 8 + 1
	lockRecordSize      = 8 + 1
	paramsRecordSize    = 8 + 8 + 1 + 8 + 8 + 8 + 2 + 8 + 8 + 8 + 8 + 8
)

func encodeWallet(w bridge.Wallet) []byte {
	out := make([]byte, 0, walletRecordSize)
	out = append(out, w.ExternalWalletID[:]...)
	out = append(out, w.MainUTXOHash[:]...)
	out = appendUint64(out, w.PendingRedemptionsValue)
	out = appendUint64(out, uint64(w.CreatedAt))
	out = appendUint64(out, uint64(w.MovingFundsRequestedAt))
	out = appendUint64(out, uint64(w.ClosingStartedAt))
	out = append(out, byte(w.State))
	out = append(out, w.MovingFundsTargetWalletsCommitmentHash[:]...)
	return out
}

func decodeWallet(raw []byte) (bridge.Wallet, error) {
	if len(raw) != walletRecordSize {
		return bridge.Wallet{}, fmt.Errorf("wallet record: expected %d bytes, got %d", walletRecordSize, len(raw))
	}
	var w bridge.Wallet
	copy(w.ExternalWalletID[:], raw[0:32])
	copy(w.MainUTXOHash[:], raw[32:64])
	w.PendingRedemptionsValue = binary.LittleEndian.Uint64(raw[64:72])
	w.CreatedAt = int64(binary.LittleEndian.Uint64(raw[72:80]))
	w.MovingFundsRequestedAt = int64(binary.LittleEndian.Uint64(raw[80:88]))
	w.ClosingStartedAt = int64(binary.LittleEndian.Uint64(raw[88:96]))
	w.State = bridge.WalletState(raw[96])
	copy(w.MovingFundsTargetWalletsCommitmentHash[:], raw[97:129])
	return w, nil
}

func encodeDeposit(d bridge.Deposit) []byte {
	out := make([]byte, 0, depositRecordSize)
	out = append(out, d.Depositor[:]...)
	out = appendUint64(out, uint64(d.RevealedAt))
	out = appendUint64(out, uint64(d.SweptAt))
	out = append(out, d.WalletPubKeyHash[:]...)
	out = append(out, d.Vault[:]...)
	return out
}

func decodeDeposit(raw []byte) (bridge.Deposit, error) {
	if len(raw) != depositRecordSize {
		return bridge.Deposit{}, fmt.Errorf("deposit record: expected %d bytes, got %d", depositRecordSize, len(raw))
	}
	var d bridge.Deposit
	copy(d.Depositor[:], raw[0:20])
	d.RevealedAt = int64(binary.LittleEndian.Uint64(raw[20:28]))
	d.SweptAt = int64(binary.LittleEndian.Uint64(raw[28:36]))
	copy(d.WalletPubKeyHash[:], raw[36:56])
	copy(d.Vault[:], raw[56:76])
	return d, nil
}

func encodeChallenge(c bridge.FraudChallenge) []byte {
	out := make([]byte, 0, challengeRecordSize)
	out = append(out, c.Challenger[:]...)
	out = appendUint64(out, c.Amount)
	out = appendUint64(out, uint64(c.ReportedAt))
	resolved := byte(0)
	if c.Resolved {
		resolved = 1
	}
	out = append(out, resolved)
	return out
}

func decodeChallenge(raw []byte) (bridge.FraudChallenge, error) {
	if len(raw) != challengeRecordSize {
		return bridge.FraudChallenge{}, fmt.Errorf("challenge record: expected %d bytes, got %d", challengeRecordSize, len(raw))
	}
	var c bridge.FraudChallenge
	copy(c.Challenger[:], raw[0:20])
	c.Amount = binary.LittleEndian.Uint64(raw[20:28])
	c.ReportedAt = int64(binary.LittleEndian.Uint64(raw[28:36]))
	c.Resolved = raw[36] == 1
	return c, nil
}

func encodeLock(l bridge.WalletLock) []byte {
	out := make([]byte, 0, lockRecordSize)
	out = appendUint64(out, uint64(l.ExpiresAt))
	out = append(out, byte(l.Cause))
	return out
}

func decodeLock(raw []byte) (bridge.WalletLock, error) {
	if len(raw) != lockRecordSize {
		return bridge.WalletLock{}, fmt.Errorf("lock record: expected %d bytes, got %d", lockRecordSize, len(raw))
	}
	return bridge.WalletLock{
		ExpiresAt: int64(binary.LittleEndian.Uint64(raw[0:8])),
		Cause:     bridge.WalletAction(raw[8]),
	}, nil
}

func encodeParameters(p bridge.Parameters) []byte {
	out := make([]byte, 0, paramsRecordSize)
	out = appendUint64(out, p.ChallengeDepositAmount)
	out = appendUint64(out, uint64(p.ChallengeDefeatTimeout/time.Second))
	out = append(out, p.ChallengeRewardMultiplier)
	out = appendUint64(out, p.DepositTxMaxFee)
	out = appendUint64(out, uint64(p.DepositMinAge/time.Second))
	out = appendUint64(out, uint64(p.RefundSafetyMargin/time.Second))
	out = appendUint16(out, p.MaxSweepSize)
	out = appendUint64(out, uint64(p.HeartbeatRequestValidity/time.Second))
	out = appendUint64(out, uint64(p.DepositSweepProposalValidity/time.Second))
	out = appendUint64(out, p.HeartbeatRequestGasOffset)
	out = appendUint64(out, p.DepositSweepProposalGasOffset)
	out = appendUint64(out, p.ChallengeDefeatGasOffset)
	return out
}

func decodeParameters(raw []byte) (bridge.Parameters, error) {
	if len(raw) != paramsRecordSize {
		return bridge.Parameters{}, fmt.Errorf("parameters record: expected %d bytes, got %d", paramsRecordSize, len(raw))
	}
	var p bridge.Parameters
	p.ChallengeDepositAmount = binary.LittleEndian.Uint64(raw[0:8])
	p.ChallengeDefeatTimeout = time.Duration(binary.LittleEndian.Uint64(raw[8:16])) * time.Second
	p.ChallengeRewardMultiplier = raw[16]
	p.DepositTxMaxFee = binary.LittleEndian.Uint64(raw[17:25])
	p.DepositMinAge = time.Duration(binary.LittleEndian.Uint64(raw[25:33])) * time.Second
	p.RefundSafetyMargin = time.Duration(binary.LittleEndian.Uint64(raw[33:41])) * time.Second
	p.MaxSweepSize = binary.LittleEndian.Uint16(raw[41:43])
	p.HeartbeatRequestValidity = time.Duration(binary.LittleEndian.Uint64(raw[43:51])) * time.Second
	p.DepositSweepProposalValidity = time.Duration(binary.LittleEndian.Uint64(raw[51:59])) * time.Second
	p.HeartbeatRequestGasOffset = binary.LittleEndian.Uint64(raw[59:67])
	p.DepositSweepProposalGasOffset = binary.LittleEndian.Uint64(raw[67:75])
	p.ChallengeDefeatGasOffset = binary.LittleEndian.Uint64(raw[75:83])
	return p, nil
}

func appendUint64(out []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(out, tmp[:]...)
}

func appendUint16(out []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(out, tmp[:]...)
}
