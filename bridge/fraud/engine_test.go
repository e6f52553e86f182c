package fraud

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JSanchezFDZ/tbtc-v2/bridge"
	"github.com/JSanchezFDZ/tbtc-v2/bridge/store"
	"github.com/JSanchezFDZ/tbtc-v2/common"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeTreasury struct {
	received uint64
}

func (t *fakeTreasury) ReceiveForfeitedBond(amount uint64) { t.received += amount }

type fakeRegistry struct {
	closed [][32]byte
	err    error
}

func (r *fakeRegistry) CloseWallet(_ context.Context, id [32]byte) error {
	if r.err != nil {
		return r.err
	}
	r.closed = append(r.closed, id)
	return nil
}

type fixture struct {
	store     *store.Store
	engine    *Engine
	clock     *fakeClock
	treasury  *fakeTreasury
	registry  *fakeRegistry
	recorder  *bridge.MemoryRecorder
	walletKey *btcec.PrivateKey
	pubKey    *btcec.PublicKey
	pkh       [20]byte
	params    bridge.Parameters
}

const testBondAmount = 100

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "bridge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	params := bridge.Parameters{
		ChallengeDepositAmount:       testBondAmount,
		ChallengeDefeatTimeout:       7 * 24 * time.Hour,
		ChallengeRewardMultiplier:    100,
		DepositTxMaxFee:              2_000,
		DepositMinAge:                2 * time.Hour,
		RefundSafetyMargin:           24 * time.Hour,
		MaxSweepSize:                 20,
		HeartbeatRequestValidity:     time.Hour,
		DepositSweepProposalValidity: 4 * time.Hour,
		ChallengeDefeatGasOffset:     30_000,
	}
	require.NoError(t, s.Initialize(params))

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	treasury := &fakeTreasury{}
	registry := &fakeRegistry{}
	recorder := &bridge.MemoryRecorder{}

	engine, err := New(Config{
		Store:    s,
		Clock:    clock,
		Treasury: treasury,
		Registry: registry,
		Recorder: recorder,
	})
	require.NoError(t, err)

	walletKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	f := &fixture{
		store:     s,
		engine:    engine,
		clock:     clock,
		treasury:  treasury,
		registry:  registry,
		recorder:  recorder,
		walletKey: walletKey,
		pubKey:    walletKey.PubKey(),
		pkh:       common.PubKeyHash(walletKey.PubKey()),
		params:    params,
	}
	f.putWallet(t, bridge.StateLive)
	return f
}

func (f *fixture) putWallet(t *testing.T, state bridge.WalletState) {
	t.Helper()
	wallet := bridge.Wallet{
		CreatedAt: f.clock.now.Unix(),
		State:     state,
	}
	wallet.ExternalWalletID[0] = 0xec
	require.NoError(t, f.store.Update(func(txn *store.Txn) error {
		if err := txn.PutWallet(f.pkh, wallet); err != nil {
			return err
		}
		if state == bridge.StateLive {
			if err := txn.SetLiveWalletsCount(1); err != nil {
				return err
			}
			return txn.SetActiveWallet(f.pkh)
		}
		return nil
	}))
}

func (f *fixture) sign(t *testing.T, sighash [32]byte) common.Signature {
	t.Helper()
	compact := btcecdsa.SignCompact(f.walletKey, sighash[:], true)
	var sig common.Signature
	sig.V = compact[0]
	copy(sig.R[:], compact[1:33])
	copy(sig.S[:], compact[33:65])
	return sig
}

// submit signs the sighash with the wallet key and submits a challenge.
func (f *fixture) submit(t *testing.T, sighash [32]byte) error {
	t.Helper()
	return f.engine.SubmitChallenge(
		context.Background(),
		bridge.Address{0xce},
		f.pubKey,
		sighash,
		f.sign(t, sighash),
		testBondAmount,
	)
}

func (f *fixture) challenge(t *testing.T, sighash [32]byte) bridge.FraudChallenge {
	t.Helper()
	key := bridge.ChallengeKey(f.pubKey.SerializeCompressed(), sighash)
	var challenge bridge.FraudChallenge
	require.NoError(t, f.store.View(func(txn *store.Txn) error {
		var err error
		challenge, err = txn.Challenge(key)
		return err
	}))
	return challenge
}

// buildSpendPreimage assembles a witness sighash preimage spending the given
// outpoint with the given declared sighash type.
func buildSpendPreimage(outpoint wire.OutPoint, sighashType uint32) []byte {
	preimage := make([]byte, 0, 160)
	preimage = append(preimage, 0x02, 0x00, 0x00, 0x00)
	preimage = append(preimage, bytes.Repeat([]byte{0xa1}, 32)...)
	preimage = append(preimage, bytes.Repeat([]byte{0xa2}, 32)...)
	raw := common.SerializeOutpoint(outpoint)
	preimage = append(preimage, raw[:]...)
	preimage = append(preimage, 0x01, 0xac) // minimal script code
	var value [8]byte
	binary.LittleEndian.PutUint64(value[:], 90_000)
	preimage = append(preimage, value[:]...)
	preimage = append(preimage, 0xff, 0xff, 0xff, 0xff)
	preimage = append(preimage, bytes.Repeat([]byte{0xa3}, 32)...)
	preimage = append(preimage, 0x00, 0x00, 0x00, 0x00)
	var typeBytes [4]byte
	binary.LittleEndian.PutUint32(typeBytes[:], sighashType)
	return append(preimage, typeBytes[:]...)
}

func preimageSighash(preimage []byte) [32]byte {
	return [32]byte(chainhash.DoubleHashH(preimage))
}

func sweptDepositOutpoint(t *testing.T, f *fixture) wire.OutPoint {
	t.Helper()
	outpoint := wire.OutPoint{Hash: chainhash.Hash{0xde, 0x90}, Index: 2}
	key := bridge.DepositKey{FundingTxHash: outpoint.Hash, FundingOutputIndex: outpoint.Index}
	require.NoError(t, f.store.Update(func(txn *store.Txn) error {
		return txn.PutDeposit(key, bridge.Deposit{
			Depositor:        bridge.Address{0xd0},
			RevealedAt:       f.clock.now.Add(-48 * time.Hour).Unix(),
			SweptAt:          f.clock.now.Add(-24 * time.Hour).Unix(),
			WalletPubKeyHash: f.pkh,
		})
	}))
	return outpoint
}

func TestSubmitChallenge(t *testing.T) {
	f := newFixture(t)
	sighash := [32]byte{0x5a}

	require.NoError(t, f.submit(t, sighash))

	challenge := f.challenge(t, sighash)
	assert.Equal(t, bridge.Address{0xce}, challenge.Challenger)
	assert.Equal(t, uint64(testBondAmount), challenge.Amount)
	assert.Equal(t, f.clock.now.Unix(), challenge.ReportedAt)
	assert.False(t, challenge.Resolved)

	require.NoError(t, f.store.View(func(txn *store.Txn) error {
		assert.Equal(t, uint64(testBondAmount), txn.EscrowBalance())
		return nil
	}))

	require.Len(t, f.recorder.Events, 1)
	submitted, ok := f.recorder.Events[0].(bridge.ChallengeSubmitted)
	require.True(t, ok)
	assert.Equal(t, f.pkh, submitted.WalletPubKeyHash)
	assert.Equal(t, sighash, submitted.Sighash)
}

func TestSubmitChallengeWalletStates(t *testing.T) {
	tests := []struct {
		state   bridge.WalletState
		allowed bool
	}{
		{bridge.StateLive, true},
		{bridge.StateMovingFunds, true},
		{bridge.StateClosing, true},
		{bridge.StateUnknown, false},
		{bridge.StateClosed, false},
		{bridge.StateTerminated, false},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			f := newFixture(t)
			f.putWallet(t, tt.state)

			err := f.submit(t, [32]byte{0x5a})
			if tt.allowed {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrBadWalletState)
			}
		})
	}
}

func TestSubmitChallengeUnknownWallet(t *testing.T) {
	f := newFixture(t)

	otherKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	sighash := [32]byte{0x5a}
	compact := btcecdsa.SignCompact(otherKey, sighash[:], true)
	var sig common.Signature
	sig.V = compact[0]
	copy(sig.R[:], compact[1:33])
	copy(sig.S[:], compact[33:65])

	err = f.engine.SubmitChallenge(
		context.Background(), bridge.Address{0xce}, otherKey.PubKey(), sighash, sig, testBondAmount,
	)
	assert.ErrorIs(t, err, bridge.ErrWalletNotFound)
}

func TestSubmitChallengeInsufficientBond(t *testing.T) {
	f := newFixture(t)
	sighash := [32]byte{0x5a}

	err := f.engine.SubmitChallenge(
		context.Background(), bridge.Address{0xce}, f.pubKey, sighash, f.sign(t, sighash), testBondAmount-1,
	)
	assert.ErrorIs(t, err, ErrInsufficientBond)

	// A bond above the minimum is accepted and recorded in full.
	require.NoError(t, f.engine.SubmitChallenge(
		context.Background(), bridge.Address{0xce}, f.pubKey, sighash, f.sign(t, sighash), testBondAmount+50,
	))
	assert.Equal(t, uint64(testBondAmount+50), f.challenge(t, sighash).Amount)
}

func TestSubmitChallengeSignatureVerification(t *testing.T) {
	f := newFixture(t)
	sighash := [32]byte{0x5a}
	valid := f.sign(t, sighash)

	tests := []struct {
		name   string
		mutate func(common.Signature) common.Signature
	}{
		{"swapped r and s", func(s common.Signature) common.Signature {
			s.R, s.S = s.S, s.R
			return s
		}},
		{"wrong recovery id", func(s common.Signature) common.Signature {
			s.V = s.V ^ 0x01
			return s
		}},
		{"invalid recovery id", func(s common.Signature) common.Signature {
			s.V = 99
			return s
		}},
		{"corrupted r", func(s common.Signature) common.Signature {
			s.R[0] ^= 0xff
			return s
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.engine.SubmitChallenge(
				context.Background(), bridge.Address{0xce}, f.pubKey, sighash, tt.mutate(valid), testBondAmount,
			)
			assert.ErrorIs(t, err, ErrSignatureVerification)
		})
	}

	t.Run("signature by another key", func(t *testing.T) {
		otherKey, err := btcec.NewPrivateKey()
		require.NoError(t, err)
		compact := btcecdsa.SignCompact(otherKey, sighash[:], true)
		var sig common.Signature
		sig.V = compact[0]
		copy(sig.R[:], compact[1:33])
		copy(sig.S[:], compact[33:65])

		err = f.engine.SubmitChallenge(
			context.Background(), bridge.Address{0xce}, f.pubKey, sighash, sig, testBondAmount,
		)
		assert.ErrorIs(t, err, ErrSignatureVerification)
	})
}

func TestSubmitChallengeDuplicate(t *testing.T) {
	f := newFixture(t)
	outpoint := sweptDepositOutpoint(t, f)
	preimage := buildSpendPreimage(outpoint, common.SighashAll)
	sighash := preimageSighash(preimage)

	require.NoError(t, f.submit(t, sighash))
	assert.ErrorIs(t, f.submit(t, sighash), ErrChallengeExists)

	// Once resolved, a fresh challenge at the same key is admissible.
	require.NoError(t, f.engine.DefeatChallenge(
		context.Background(), bridge.Address{0x01}, f.pubKey, preimage, true,
	))
	require.NoError(t, f.submit(t, sighash))
}

func TestDefeatChallenge(t *testing.T) {
	f := newFixture(t)
	outpoint := sweptDepositOutpoint(t, f)
	preimage := buildSpendPreimage(outpoint, common.SighashAll)
	sighash := preimageSighash(preimage)

	require.NoError(t, f.submit(t, sighash))
	require.NoError(t, f.engine.DefeatChallenge(
		context.Background(), bridge.Address{0x01}, f.pubKey, preimage, true,
	))

	assert.True(t, f.challenge(t, sighash).Resolved)
	assert.Equal(t, uint64(testBondAmount), f.treasury.received)
	require.NoError(t, f.store.View(func(txn *store.Txn) error {
		assert.Equal(t, uint64(0), txn.EscrowBalance())
		return nil
	}))

	var defeated bool
	for _, event := range f.recorder.Events {
		if e, ok := event.(bridge.ChallengeDefeated); ok {
			assert.Equal(t, f.pkh, e.WalletPubKeyHash)
			assert.Equal(t, sighash, e.Sighash)
			defeated = true
		}
	}
	assert.True(t, defeated)
}

func TestDefeatChallengeSpentMainUTXO(t *testing.T) {
	f := newFixture(t)

	outpoint := wire.OutPoint{Hash: chainhash.Hash{0x3c}, Index: 0}
	require.NoError(t, f.store.Update(func(txn *store.Txn) error {
		return txn.MarkMainUTXOSpent(common.SerializeOutpoint(outpoint), f.pkh)
	}))

	preimage := buildSpendPreimage(outpoint, common.SighashAll)
	require.NoError(t, f.submit(t, preimageSighash(preimage)))
	require.NoError(t, f.engine.DefeatChallenge(
		context.Background(), bridge.Address{0x01}, f.pubKey, preimage, true,
	))
}

func TestDefeatChallengeWrongSighashType(t *testing.T) {
	f := newFixture(t)
	outpoint := sweptDepositOutpoint(t, f)
	preimage := buildSpendPreimage(outpoint, 3)

	require.NoError(t, f.submit(t, preimageSighash(preimage)))
	err := f.engine.DefeatChallenge(
		context.Background(), bridge.Address{0x01}, f.pubKey, preimage, true,
	)
	assert.ErrorIs(t, err, ErrWrongSighashType)
	assert.False(t, f.challenge(t, preimageSighash(preimage)).Resolved)
}

func TestDefeatChallengeSpentUtxoNotFound(t *testing.T) {
	f := newFixture(t)

	t.Run("unknown outpoint", func(t *testing.T) {
		preimage := buildSpendPreimage(wire.OutPoint{Hash: chainhash.Hash{0x99}, Index: 1}, common.SighashAll)
		require.NoError(t, f.submit(t, preimageSighash(preimage)))
		err := f.engine.DefeatChallenge(context.Background(), bridge.Address{0x01}, f.pubKey, preimage, true)
		assert.ErrorIs(t, err, ErrSpentUtxoNotFound)
	})

	t.Run("unswept deposit", func(t *testing.T) {
		outpoint := wire.OutPoint{Hash: chainhash.Hash{0x98}, Index: 1}
		key := bridge.DepositKey{FundingTxHash: outpoint.Hash, FundingOutputIndex: outpoint.Index}
		require.NoError(t, f.store.Update(func(txn *store.Txn) error {
			return txn.PutDeposit(key, bridge.Deposit{
				RevealedAt:       f.clock.now.Unix(),
				WalletPubKeyHash: f.pkh,
			})
		}))
		preimage := buildSpendPreimage(outpoint, common.SighashAll)
		require.NoError(t, f.submit(t, preimageSighash(preimage)))
		err := f.engine.DefeatChallenge(context.Background(), bridge.Address{0x01}, f.pubKey, preimage, true)
		assert.ErrorIs(t, err, ErrSpentUtxoNotFound)
	})

	t.Run("deposit swept by another wallet", func(t *testing.T) {
		outpoint := wire.OutPoint{Hash: chainhash.Hash{0x97}, Index: 1}
		key := bridge.DepositKey{FundingTxHash: outpoint.Hash, FundingOutputIndex: outpoint.Index}
		require.NoError(t, f.store.Update(func(txn *store.Txn) error {
			return txn.PutDeposit(key, bridge.Deposit{
				RevealedAt:       f.clock.now.Unix(),
				SweptAt:          f.clock.now.Unix(),
				WalletPubKeyHash: [20]byte{0x77},
			})
		}))
		preimage := buildSpendPreimage(outpoint, common.SighashAll)
		require.NoError(t, f.submit(t, preimageSighash(preimage)))
		err := f.engine.DefeatChallenge(context.Background(), bridge.Address{0x01}, f.pubKey, preimage, true)
		assert.ErrorIs(t, err, ErrSpentUtxoNotFound)
	})
}

func TestDefeatChallengeLegacyPreimage(t *testing.T) {
	f := newFixture(t)
	outpoint := sweptDepositOutpoint(t, f)

	var buf bytes.Buffer
	buf.Write([]byte{0x01, 0x00, 0x00, 0x00})
	require.NoError(t, wire.WriteVarInt(&buf, 0, 1))
	raw := common.SerializeOutpoint(outpoint)
	buf.Write(raw[:])
	script := []byte{0x76, 0xa9, 0x14}
	require.NoError(t, wire.WriteVarInt(&buf, 0, uint64(len(script))))
	buf.Write(script)
	buf.Write([]byte{0xff, 0xff, 0xff, 0xff})
	require.NoError(t, wire.WriteVarInt(&buf, 0, 1))
	var value [8]byte
	binary.LittleEndian.PutUint64(value[:], 80_000)
	buf.Write(value[:])
	require.NoError(t, wire.WriteVarInt(&buf, 0, 1))
	buf.Write([]byte{0x51})
	buf.Write([]byte{0x00, 0x00, 0x00, 0x00})
	var typeBytes [4]byte
	binary.LittleEndian.PutUint32(typeBytes[:], common.SighashAll)
	buf.Write(typeBytes[:])
	preimage := buf.Bytes()

	require.NoError(t, f.submit(t, preimageSighash(preimage)))
	require.NoError(t, f.engine.DefeatChallenge(
		context.Background(), bridge.Address{0x01}, f.pubKey, preimage, false,
	))
	assert.True(t, f.challenge(t, preimageSighash(preimage)).Resolved)
}

func TestDefeatChallengeReplay(t *testing.T) {
	f := newFixture(t)
	outpoint := sweptDepositOutpoint(t, f)
	preimage := buildSpendPreimage(outpoint, common.SighashAll)

	require.NoError(t, f.submit(t, preimageSighash(preimage)))
	require.NoError(t, f.engine.DefeatChallenge(
		context.Background(), bridge.Address{0x01}, f.pubKey, preimage, true,
	))

	err := f.engine.DefeatChallenge(
		context.Background(), bridge.Address{0x01}, f.pubKey, preimage, true,
	)
	assert.ErrorIs(t, err, ErrChallengeResolved)
}

func TestDefeatChallengeNoChallenge(t *testing.T) {
	f := newFixture(t)
	preimage := buildSpendPreimage(testWireOutpoint(), common.SighashAll)

	err := f.engine.DefeatChallenge(
		context.Background(), bridge.Address{0x01}, f.pubKey, preimage, true,
	)
	assert.ErrorIs(t, err, bridge.ErrChallengeNotFound)
}

func testWireOutpoint() wire.OutPoint {
	return wire.OutPoint{Hash: chainhash.Hash{0x42}, Index: 0}
}

func TestDefeatChallengeWithHeartbeat(t *testing.T) {
	f := newFixture(t)

	message := make([]byte, 16)
	for i := 0; i < 8; i++ {
		message[i] = 0xff
	}
	sighash := [32]byte(chainhash.DoubleHashH(message))

	require.NoError(t, f.submit(t, sighash))
	require.NoError(t, f.engine.DefeatChallengeWithHeartbeat(
		context.Background(), bridge.Address{0x01}, f.pubKey, message,
	))

	assert.True(t, f.challenge(t, sighash).Resolved)
	assert.Equal(t, uint64(testBondAmount), f.treasury.received)
}

func TestDefeatChallengeWithHeartbeatInvalidMessage(t *testing.T) {
	f := newFixture(t)

	err := f.engine.DefeatChallengeWithHeartbeat(
		context.Background(), bridge.Address{0x01}, f.pubKey, []byte("not a heartbeat"),
	)
	assert.ErrorIs(t, err, ErrInvalidHeartbeatMessage)
}

func TestNotifyDefeatTimeout(t *testing.T) {
	f := newFixture(t)
	sighash := [32]byte{0x5a}
	require.NoError(t, f.submit(t, sighash))

	// Exactly at the deadline is still too early; strictly after is not.
	f.clock.Advance(f.params.ChallengeDefeatTimeout)
	err := f.engine.NotifyDefeatTimeout(context.Background(), bridge.Address{0x02}, f.pubKey, sighash)
	assert.ErrorIs(t, err, ErrDefeatTimeoutNotElapsed)

	f.clock.Advance(time.Second)
	require.NoError(t, f.engine.NotifyDefeatTimeout(context.Background(), bridge.Address{0x02}, f.pubKey, sighash))

	assert.True(t, f.challenge(t, sighash).Resolved)
	assert.Equal(t, uint64(0), f.treasury.received)

	require.NoError(t, f.store.View(func(txn *store.Txn) error {
		wallet, err := txn.Wallet(f.pkh)
		require.NoError(t, err)
		assert.Equal(t, bridge.StateTerminated, wallet.State)
		assert.Equal(t, uint32(0), txn.LiveWalletsCount())
		_, ok := txn.ActiveWallet()
		assert.False(t, ok)
		assert.Equal(t, uint64(0), txn.EscrowBalance())
		return nil
	}))

	require.Len(t, f.registry.closed, 1)

	var bondReturned, terminated, timedOut bool
	for _, event := range f.recorder.Events {
		switch e := event.(type) {
		case bridge.BondReturned:
			assert.Equal(t, bridge.Address{0xce}, e.Challenger)
			assert.Equal(t, uint64(testBondAmount), e.Amount)
			bondReturned = true
		case bridge.WalletTerminated:
			assert.Equal(t, f.pkh, e.WalletPubKeyHash)
			terminated = true
		case bridge.ChallengeDefeatTimedOut:
			assert.Equal(t, sighash, e.Sighash)
			timedOut = true
		}
	}
	assert.True(t, bondReturned)
	assert.True(t, terminated)
	assert.True(t, timedOut)
}

func TestNotifyDefeatTimeoutAlreadyTerminatedWallet(t *testing.T) {
	f := newFixture(t)
	sighash := [32]byte{0x5a}
	require.NoError(t, f.submit(t, sighash))

	// A second challenge times out after another already terminated the
	// wallet; resolution proceeds but no second termination happens.
	f.putWallet(t, bridge.StateTerminated)

	f.clock.Advance(f.params.ChallengeDefeatTimeout + time.Second)
	require.NoError(t, f.engine.NotifyDefeatTimeout(context.Background(), bridge.Address{0x02}, f.pubKey, sighash))

	assert.True(t, f.challenge(t, sighash).Resolved)
	assert.Empty(t, f.registry.closed)
	for _, event := range f.recorder.Events {
		_, isTermination := event.(bridge.WalletTerminated)
		assert.False(t, isTermination)
	}
}

func TestNotifyDefeatTimeoutReplay(t *testing.T) {
	f := newFixture(t)
	sighash := [32]byte{0x5a}
	require.NoError(t, f.submit(t, sighash))

	f.clock.Advance(f.params.ChallengeDefeatTimeout + time.Second)
	require.NoError(t, f.engine.NotifyDefeatTimeout(context.Background(), bridge.Address{0x02}, f.pubKey, sighash))

	err := f.engine.NotifyDefeatTimeout(context.Background(), bridge.Address{0x02}, f.pubKey, sighash)
	assert.ErrorIs(t, err, ErrChallengeResolved)
}

func TestNotifyDefeatTimeoutRegistryFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	sighash := [32]byte{0x5a}
	require.NoError(t, f.submit(t, sighash))

	f.registry.err = errors.New("registry unavailable")
	f.clock.Advance(f.params.ChallengeDefeatTimeout + time.Second)

	err := f.engine.NotifyDefeatTimeout(context.Background(), bridge.Address{0x02}, f.pubKey, sighash)
	require.Error(t, err)

	// The whole transition rolled back: challenge still open, wallet
	// still live, escrow untouched.
	assert.False(t, f.challenge(t, sighash).Resolved)
	require.NoError(t, f.store.View(func(txn *store.Txn) error {
		wallet, err := txn.Wallet(f.pkh)
		require.NoError(t, err)
		assert.Equal(t, bridge.StateLive, wallet.State)
		assert.Equal(t, uint32(1), txn.LiveWalletsCount())
		assert.Equal(t, uint64(testBondAmount), txn.EscrowBalance())
		return nil
	}))
}
