package feerelayer

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/p2p-wallet/fee-relayer-go/pkg/feerelayer/api"
	"github.com/p2p-wallet/fee-relayer-go/pkg/orca"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/relayprogram"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/token"
)

// topUpSlippage is the tolerance applied when swapping the paying token into
// SOL for a top up.
const topUpSlippage = 0.01

// CheckAndTopUp ensures the owner's relay account covers expectedFee, topping
// it up via a sponsored swap of the paying token when it does not. Returns the
// relayer's submitted signatures, or nil when no top up was needed.
//
// A wrapped SOL paying token never tops up: the fee is paid back from the
// user's own SOL in the relayed transaction instead.
func (r *Relay) CheckAndTopUp(ctx context.Context, expectedFee FeeAmount, payingFeeToken *TokenAccount) ([]string, error) {
	if !r.Loaded() {
		return nil, ErrRelayInfoMissing
	}

	if payingFeeToken != nil && bytes.Equal(payingFeeToken.Mint, token.WrappedSolMint) {
		return nil, nil
	}

	relayAccountStatus, err := r.GetRelayAccountStatus(ctx, false)
	if err != nil {
		return nil, err
	}

	var payingTokenMint ed25519.PublicKey
	if payingFeeToken != nil {
		payingTokenMint = payingFeeToken.Mint
	}

	neededTopUpAmount := r.CalculateNeededTopUpAmount(ctx, expectedFee, payingTokenMint)
	if neededTopUpAmount.Total() == 0 {
		return nil, nil
	}
	if payingFeeToken == nil {
		return nil, ErrFeePayingTokenMissing
	}

	pairs, err := r.orca.GetTradablePoolsPairs(ctx, payingFeeToken.Mint, token.WrappedSolMint)
	if err != nil {
		return nil, err
	}

	topUpPools, err := orca.FindBestPoolsPairForEstimatedAmount(pairs, neededTopUpAmount.Total(), topUpSlippage)
	if err != nil {
		return nil, err
	}
	if topUpPools == nil {
		return nil, ErrSwapPoolsNotFound
	}

	topUpFee, err := r.calculateExpectedFeeForTopUp(ctx, relayAccountStatus)
	if err != nil {
		return nil, err
	}

	return r.topUp(ctx, *payingFeeToken, neededTopUpAmount.Total(), topUpPools, topUpFee)
}

// calculateExpectedFeeForTopUp returns what the top up transaction itself
// will cost the user.
func (r *Relay) calculateExpectedFeeForTopUp(ctx context.Context, status RelayAccountStatus) (FeeAmount, error) {
	minimumRelayAccountBalance, ok := r.cache.getMinimumRelayAccountBalance()
	if !ok {
		return FeeAmount{}, ErrRelayInfoMissing
	}

	var fee FeeAmount
	fee.Transaction = 2 * r.lamportsPerSignature()

	if status.State == RelayAccountNotYetCreated {
		fee.AccountBalances += minimumRelayAccountBalance
	}

	limit, err := r.GetFreeTransactionFeeLimit(ctx, true)
	if err != nil {
		return FeeAmount{}, err
	}
	if limit.IsFreeTransactionFeeAvailable(fee.Transaction, false) {
		fee.Transaction = 0
	}

	return fee, nil
}

// topUp builds, signs, and submits a relay top up swapping sourceToken into
// targetAmount lamports deposited in the owner's relay account.
func (r *Relay) topUp(
	ctx context.Context,
	sourceToken TokenAccount,
	targetAmount uint64,
	topUpPools orca.PoolsPair,
	expectedFee FeeAmount,
) ([]string, error) {
	feePayer, ok := r.cache.getFeePayerAddress()
	if !ok {
		return nil, ErrRelayInfoMissing
	}

	blockhash, err := r.solana.GetLatestBlockhash()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get recent blockhash")
	}

	transferAuthorityPub, transferAuthority, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate transfer authority")
	}

	swap, err := prepareSwapData(topUpPools, targetAmount, topUpSlippage, transferAuthorityPub)
	if err != nil {
		return nil, err
	}

	instructions, err := r.buildTopUpInstructions(feePayer, sourceToken, topUpPools, transferAuthorityPub, swap)
	if err != nil {
		return nil, err
	}

	txn := solana.NewTransaction(feePayer, instructions...)
	txn.SetBlockhash(blockhash)
	if err := txn.Sign(r.owner, transferAuthority); err != nil {
		return nil, errors.Wrap(err, "failed to sign top up transaction")
	}

	userSignature, err := signatureOf(txn, r.Owner())
	if err != nil {
		return nil, err
	}
	transferSignature, err := signatureOf(txn, transferAuthorityPub)
	if err != nil {
		return nil, err
	}

	params := &api.TopUpWithSwapParams{
		UserSourceTokenAccountPubkey: base58.Encode(sourceToken.Address),
		SourceTokenMintPubkey:        base58.Encode(sourceToken.Mint),
		UserAuthorityPubkey:          base58.Encode(r.Owner()),
		TopUpSwap:                    swap.wire,
		FeeAmount:                    expectedFee.Total(),
		Signatures: api.SwapTransactionSignatures{
			UserAuthoritySignature:     userSignature,
			TransferAuthoritySignature: transferSignature,
		},
		Blockhash: base58.Encode(blockhash[:]),
	}

	signatures, err := r.relayer.TopUpWithSwap(ctx, params)
	if err != nil {
		return nil, err
	}

	r.cache.markTransactionAsCompleted(expectedFee.Total())

	r.log.WithField("amount", targetAmount).Info("relay account topped up")

	return signatures, nil
}

// buildTopUpInstructions assembles the instruction list the top up transaction
// will carry, mirroring what the relayer reconstructs from the wire params.
func (r *Relay) buildTopUpInstructions(
	feePayer ed25519.PublicKey,
	sourceToken TokenAccount,
	topUpPools orca.PoolsPair,
	transferAuthority ed25519.PublicKey,
	swap preparedSwapData,
) ([]solana.Instruction, error) {
	owner := r.Owner()

	userRelayAddress, err := relayprogram.GetUserRelayAddress(r.program, owner)
	if err != nil {
		return nil, err
	}
	temporaryWSOL, err := relayprogram.GetUserTemporaryWSOLAddress(r.program, owner)
	if err != nil {
		return nil, err
	}

	instructions := []solana.Instruction{
		token.Approve(sourceToken.Address, transferAuthority, owner, swap.amountIn),
	}

	if topUpPools.IsTransitive() {
		transitMint := topUpPools.TransitTokenMint()
		transitAccount, err := relayprogram.GetTransitTokenAccountAddress(r.program, owner, transitMint)
		if err != nil {
			return nil, err
		}

		needsCreateTransit, err := r.needsCreateTransitTokenAccount(transitAccount)
		if err != nil {
			return nil, err
		}
		if needsCreateTransit {
			instructions = append(instructions, relayprogram.CreateTransitTokenAccount(
				r.program, feePayer, owner, transitAccount, transitMint,
			))
		}

		instructions = append(instructions, relayprogram.TopUpWithSPLSwapTransitive(
			r.program, feePayer, owner, userRelayAddress,
			sourceToken.Address, temporaryWSOL, transitAccount,
			swapAccounts(topUpPools[0], transferAuthority),
			swapAccounts(topUpPools[1], transferAuthority),
			swap.amountIn, swap.transitMinimum, swap.minimumAmountOut,
		))
	} else {
		instructions = append(instructions, relayprogram.TopUpWithSPLSwapDirect(
			r.program, feePayer, owner, userRelayAddress,
			sourceToken.Address, temporaryWSOL,
			swapAccounts(topUpPools[0], transferAuthority),
			swap.amountIn, swap.minimumAmountOut,
		))
	}

	return instructions, nil
}

func (r *Relay) needsCreateTransitTokenAccount(transitAccount ed25519.PublicKey) (bool, error) {
	_, err := r.solana.GetAccountInfo(transitAccount, solana.CommitmentConfirmed)
	if err != nil {
		if errors.Is(err, solana.ErrNoAccountInfo) {
			return true, nil
		}
		return false, errors.Wrap(err, "failed to get transit account info")
	}
	return false, nil
}

// signatureOf returns the base58 signature the provided account contributed
// to the transaction.
func signatureOf(txn solana.Transaction, account ed25519.PublicKey) (string, error) {
	for i, txnAccount := range txn.Message.Accounts {
		if i >= len(txn.Signatures) {
			break
		}
		if string(txnAccount) == string(account) {
			return base58.Encode(txn.Signatures[i][:]), nil
		}
	}

	return "", errors.Errorf("account %s did not sign the transaction", base58.Encode(account))
}
