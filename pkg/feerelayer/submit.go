package feerelayer

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/p2p-wallet/fee-relayer-go/pkg/feerelayer/api"
	"github.com/p2p-wallet/fee-relayer-go/pkg/retry"
	"github.com/p2p-wallet/fee-relayer-go/pkg/retry/backoff"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/relayprogram"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/system"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/token"
)

const (
	// submissionAttempts bounds retries of a relayed transaction that was
	// rejected for blowing the instruction budget: the initial attempt plus
	// three retries.
	submissionAttempts = 4

	submissionRetryDelay = 3 * time.Second
)

// TopUpAndRelayTransaction tops up the owner's relay account as needed, then
// submits the prepared transaction through the relayer. additionalPaybackFee
// is an extra amount the caller owes the fee payer on top of the prepared
// transaction's expected fee.
func (r *Relay) TopUpAndRelayTransaction(
	ctx context.Context,
	prepared *PreparedTransaction,
	payingFeeToken *TokenAccount,
	additionalPaybackFee uint64,
) ([]string, error) {
	if !r.Loaded() {
		return nil, ErrRelayInfoMissing
	}

	relayAccountStatus, err := r.GetRelayAccountStatus(ctx, false)
	if err != nil {
		return nil, err
	}

	expectedTopUpFee := FeeAmount{
		Transaction:     prepared.ExpectedFee.Transaction + additionalPaybackFee,
		AccountBalances: prepared.ExpectedFee.AccountBalances,
	}
	if _, err := r.CheckAndTopUp(ctx, expectedTopUpFee, payingFeeToken); err != nil {
		return nil, err
	}

	return r.relayTransaction(ctx, prepared, payingFeeToken, relayAccountStatus, additionalPaybackFee)
}

// relayTransaction appends the payback instruction, signs, and submits the
// prepared transaction, retrying the known transient instruction budget
// rejection with a fixed delay.
func (r *Relay) relayTransaction(
	ctx context.Context,
	prepared *PreparedTransaction,
	payingFeeToken *TokenAccount,
	relayAccountStatus RelayAccountStatus,
	additionalPaybackFee uint64,
) ([]string, error) {
	feePayer, ok := r.cache.getFeePayerAddress()
	if !ok {
		return nil, ErrRelayInfoMissing
	}
	if !bytes.Equal(prepared.FeePayer, feePayer) {
		return nil, ErrInvalidFeePayer
	}

	owner := r.Owner()
	expectedFee := prepared.ExpectedFee

	// Everything the fee payer fronts beyond the free allowance is paid back
	// within the same transaction.
	paybackFee := additionalPaybackFee + expectedFee.AccountBalances

	limit, err := r.GetFreeTransactionFeeLimit(ctx, true)
	if err != nil || !limit.IsFreeTransactionFeeAvailable(expectedFee.Transaction, false) {
		paybackFee += expectedFee.Transaction
	}

	instructions := make([]solana.Instruction, len(prepared.Instructions))
	copy(instructions, prepared.Instructions)

	if paybackFee > 0 {
		// When fees are paid in wrapped SOL and the relay account cannot
		// cover the payback, the owner pays from their own SOL balance.
		if payingFeeToken != nil &&
			bytes.Equal(payingFeeToken.Mint, token.WrappedSolMint) &&
			relayAccountStatus.Balance < paybackFee {
			instructions = append(instructions, system.Transfer(owner, feePayer, paybackFee))
		} else {
			userRelayAddress, err := relayprogram.GetUserRelayAddress(r.program, owner)
			if err != nil {
				return nil, err
			}
			instructions = append(instructions, relayprogram.TransferSOL(
				r.program, owner, userRelayAddress, feePayer, paybackFee,
			))
		}
	}

	blockhash, err := r.solana.GetLatestBlockhash()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get recent blockhash")
	}

	txn := solana.NewTransaction(feePayer, instructions...)
	txn.SetBlockhash(blockhash)

	signers := append([]ed25519.PrivateKey{r.owner}, prepared.Signers...)
	if err := txn.Sign(signers...); err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	params := api.NewRelayTransactionParams(txn)

	var signatures []string
	_, err = retry.Retry(
		func() error {
			signatures, err = r.relayer.RelayTransaction(ctx, &params)
			return err
		},
		retry.Limit(submissionAttempts),
		retry.RetriableIf(isRetriableSubmissionError),
		retry.Backoff(backoff.Constant(submissionRetryDelay), submissionRetryDelay),
	)
	if err != nil {
		return nil, err
	}

	// Only the portion not paid back was sponsored for free.
	var freeFeeAmountUsed uint64
	if total := expectedFee.Total() + additionalPaybackFee; total > paybackFee {
		freeFeeAmountUsed = total - paybackFee
	}
	r.cache.markTransactionAsCompleted(freeFeeAmountUsed)

	return signatures, nil
}

// isRetriableSubmissionError matches the relayer rejection caused by the
// transient per-transaction instruction budget, the one submission failure
// worth retrying as-is.
func isRetriableSubmissionError(err error) bool {
	var relayerErr *api.Error
	if !errors.As(err, &relayerErr) {
		return false
	}
	return relayerErr.IsInstructionBudgetExceeded()
}

// TransferSOL asks the relayer to execute a sponsored SOL transfer from the
// owner to recipient.
func (r *Relay) TransferSOL(ctx context.Context, recipient ed25519.PublicKey, lamports uint64) ([]string, error) {
	feePayer, ok := r.cache.getFeePayerAddress()
	if !ok {
		return nil, ErrRelayInfoMissing
	}

	blockhash, err := r.solana.GetLatestBlockhash()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get recent blockhash")
	}

	owner := r.Owner()

	txn := solana.NewTransaction(feePayer, system.Transfer(owner, recipient, lamports))
	txn.SetBlockhash(blockhash)
	if err := txn.Sign(r.owner); err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	signature, err := signatureOf(txn, owner)
	if err != nil {
		return nil, err
	}

	return r.relayer.RelayTransferSOL(ctx, &api.TransferSOLParams{
		SenderPubkey:    base58.Encode(owner),
		RecipientPubkey: base58.Encode(recipient),
		Lamports:        lamports,
		Signature:       signature,
		Blockhash:       base58.Encode(blockhash[:]),
	})
}
