package coordinator

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/JSanchezFDZ/tbtc-v2/bridge"
	"github.com/JSanchezFDZ/tbtc-v2/bridge/store"
	"github.com/JSanchezFDZ/tbtc-v2/common"
)

// DepositExtraInfo carries the off-chain data needed to validate one
// deposit of a sweep proposal: the decomposed funding transaction and the
// reveal-time script parameters not kept in the ledger record.
type DepositExtraInfo struct {
	FundingTx        common.TxInfo
	BlindingFactor   [8]byte
	RefundPubKeyHash [20]byte
	// RefundLocktime is the raw 4-byte little-endian absolute locktime
	// of the deposit's refund branch.
	RefundLocktime [4]byte
}

// ValidateDepositSweepProposal establishes a proposal's validity against
// current ledger state. It never mutates state; any party should call it
// before committing off-chain signing effort. A nil return means the
// proposal is valid; otherwise the error names the specific reason.
func (e *Engine) ValidateDepositSweepProposal(
	ctx context.Context,
	proposal bridge.DepositSweepProposal,
	depositsExtraInfo []DepositExtraInfo,
) error {
	now := e.clock.Now().Unix()

	return e.store.View(func(txn *store.Txn) error {
		params, err := txn.Parameters()
		if err != nil {
			return err
		}

		wallet, err := txn.Wallet(proposal.WalletPubKeyHash)
		if err != nil {
			return err
		}
		if wallet.State != bridge.StateLive {
			return fmt.Errorf("%w: wallet is %s", ErrWalletNotLive, wallet.State)
		}

		depositsCount := len(proposal.DepositsKeys)
		if depositsCount == 0 || depositsCount > int(params.MaxSweepSize) {
			return fmt.Errorf("%w: got %d, allowed range [1, %d]", ErrInvalidBatchSize, depositsCount, params.MaxSweepSize)
		}
		if len(depositsExtraInfo) != depositsCount {
			return fmt.Errorf("%w: %d keys, %d extra info entries", ErrExtraInfoMismatch, depositsCount, len(depositsExtraInfo))
		}

		feePerDeposit, feeRemainder, err := validateSweepTxFee(proposal.SweepTxFee, depositsCount, params.DepositTxMaxFee)
		if err != nil {
			return err
		}

		// The first deposit's vault binds the whole batch.
		var expectedVault bridge.Address

		for i, key := range proposal.DepositsKeys {
			extraInfo := depositsExtraInfo[i]

			deposit, err := txn.Deposit(key)
			if err != nil {
				return fmt.Errorf("%w: deposit %d", ErrDepositNotRevealed, i)
			}

			if now <= deposit.RevealedAt+int64(params.DepositMinAge.Seconds()) {
				return fmt.Errorf("%w: deposit %d", ErrDepositMinAgeNotMet, i)
			}
			if deposit.SweptAt != 0 {
				return fmt.Errorf("%w: deposit %d", ErrDepositAlreadySwept, i)
			}

			fundingTxHash, err := extraInfo.FundingTx.Hash()
			if err != nil {
				return fmt.Errorf("%w: deposit %d: %v", ErrFundingTxMismatch, i, err)
			}
			if fundingTxHash != key.FundingTxHash {
				return fmt.Errorf("%w: deposit %d", ErrFundingTxMismatch, i)
			}

			fundingOutputScript, err := common.ExtractOutputScript(
				extraInfo.FundingTx.OutputVector,
				key.FundingOutputIndex,
			)
			if err != nil {
				return fmt.Errorf("%w: deposit %d: %v", ErrScriptMismatch, i, err)
			}
			err = common.MatchDepositFundingOutput(
				common.DepositScriptParams{
					Depositor:        deposit.Depositor,
					BlindingFactor:   extraInfo.BlindingFactor,
					WalletPubKeyHash: proposal.WalletPubKeyHash,
					RefundPubKeyHash: extraInfo.RefundPubKeyHash,
					RefundLocktime:   extraInfo.RefundLocktime,
				},
				fundingOutputScript,
			)
			if err != nil {
				return fmt.Errorf("%w: deposit %d: %v", ErrScriptMismatch, i, err)
			}

			fundingOutputValue, err := common.ExtractOutputValue(
				extraInfo.FundingTx.OutputVector,
				key.FundingOutputIndex,
			)
			if err != nil {
				return fmt.Errorf("%w: deposit %d: %v", ErrDepositValueTooLow, i, err)
			}
			feeShare := feePerDeposit
			if i == depositsCount-1 {
				feeShare += feeRemainder
			}
			if fundingOutputValue <= feeShare {
				return fmt.Errorf("%w: deposit %d holds %d, fee share %d", ErrDepositValueTooLow, i, fundingOutputValue, feeShare)
			}

			refundableAt := int64(binary.LittleEndian.Uint32(extraInfo.RefundLocktime[:]))
			if refundableAt-int64(params.RefundSafetyMargin.Seconds()) <= now {
				return fmt.Errorf("%w: deposit %d refundable at %d", ErrRefundTooClose, i, refundableAt)
			}

			if deposit.WalletPubKeyHash != proposal.WalletPubKeyHash {
				return fmt.Errorf("%w: deposit %d", ErrDepositWalletMismatch, i)
			}

			if i == 0 {
				expectedVault = deposit.Vault
			} else if deposit.Vault != expectedVault {
				return fmt.Errorf("%w: deposit %d", ErrVaultMismatch, i)
			}
		}
		return nil
	})
}

// validateSweepTxFee distributes the aggregate fee evenly across the batch,
// assigns the indivisible remainder to the last deposit, and checks every
// effective share against the per-deposit ceiling. It returns the even share
// and the remainder for the per-deposit value checks.
func validateSweepTxFee(sweepTxFee uint64, depositsCount int, depositTxMaxFee uint64) (uint64, uint64, error) {
	if sweepTxFee == 0 {
		return 0, 0, ErrZeroSweepFee
	}

	feePerDeposit := sweepTxFee / uint64(depositsCount)
	remainder := sweepTxFee % uint64(depositsCount)

	if feePerDeposit+remainder > depositTxMaxFee {
		return 0, 0, fmt.Errorf(
			"%w: %d per deposit (incl. remainder %d), maximum %d",
			ErrDepositFeeTooHigh, feePerDeposit+remainder, remainder, depositTxMaxFee,
		)
	}
	return feePerDeposit, remainder, nil
}
