package feerelayer

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/p2p-wallet/fee-relayer-go/pkg/orca"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/token"
)

// feeInPayingTokenSlippage is the tolerance applied when translating a SOL
// denominated fee into the paying token.
const feeInPayingTokenSlippage = 0.01

// CalculateNeededTopUpAmount returns how much SOL must be topped up into the
// owner's relay account before a transaction charging expectedFee can be
// relayed. Amounts already covered by the free transaction allowance and the
// relay account's existing balance are deducted.
//
// When the user pays fees in wrapped SOL, the relay account balance is not
// deducted: the payback instruction will draw from the user's own SOL, so the
// relay account must still be funded in full.
//
// If the collaborators cannot be reached, the uncovered expectedFee is
// returned so the caller over-provisions rather than under-provisions.
func (r *Relay) CalculateNeededTopUpAmount(ctx context.Context, expectedFee FeeAmount, payingTokenMint ed25519.PublicKey) FeeAmount {
	neededAmount := expectedFee

	// The top up transaction itself costs two signatures: the relayer's fee
	// payer and the user authority.
	expectedTopUpNetworkFee := 2 * r.lamportsPerSignature()
	expectedTransactionNetworkFee := expectedFee.Transaction

	limit, err := r.GetFreeTransactionFeeLimit(ctx, true)
	if err != nil {
		r.log.WithError(err).Warn("failed to get free fee limits, assuming full fee")
		return expectedFee
	}

	neededTopUpNetworkFee := expectedTopUpNetworkFee
	neededTransactionNetworkFee := expectedTransactionNetworkFee

	if limit.IsFreeTransactionFeeAvailable(expectedTopUpNetworkFee, false) {
		neededTopUpNetworkFee = 0
	}
	// The relayed transaction comes after the top up, so it burns one more
	// allowance use. The check is against the full sum of both fees, even if
	// the top up fee alone was just covered above.
	if limit.IsFreeTransactionFeeAvailable(expectedTopUpNetworkFee+expectedTransactionNetworkFee, true) {
		neededTransactionNetworkFee = 0
	}

	neededAmount.Transaction = neededTopUpNetworkFee + neededTransactionNetworkFee
	if neededAmount.Total() == 0 {
		return neededAmount
	}

	neededAmountWithoutCheckingRelayAccount := neededAmount

	status, err := r.GetRelayAccountStatus(ctx, false)
	if err != nil {
		r.log.WithError(err).Warn("failed to get relay account status, assuming full fee")
		return expectedFee
	}

	switch status.State {
	case RelayAccountNotYetCreated:
		if neededAmount.AccountBalances > 0 {
			neededAmount.AccountBalances += r.getRelayAccountCreationCost()
		} else {
			neededAmount.Transaction += r.getRelayAccountCreationCost()
		}
	case RelayAccountCreated:
		balance := status.Balance
		if balance >= neededAmount.Transaction {
			balance -= neededAmount.Transaction
			neededAmount.Transaction = 0

			if balance >= neededAmount.AccountBalances {
				neededAmount.AccountBalances = 0
			} else {
				neededAmount.AccountBalances -= balance
			}
		} else {
			neededAmount.Transaction -= balance
		}
	}

	if neededAmount.Total() > 0 && payingTokenMint != nil && bytes.Equal(payingTokenMint, token.WrappedSolMint) {
		return neededAmountWithoutCheckingRelayAccount
	}

	return neededAmount
}

// CalculateFeeInPayingToken translates a SOL denominated fee into the paying
// token, using the cheapest tradable route.
func (r *Relay) CalculateFeeInPayingToken(ctx context.Context, feeInSOL FeeAmount, payingFeeTokenMint ed25519.PublicKey) (FeeAmount, error) {
	pairs, err := r.orca.GetTradablePoolsPairs(ctx, payingFeeTokenMint, token.WrappedSolMint)
	if err != nil {
		return FeeAmount{}, err
	}

	best, err := orca.FindBestPoolsPairForEstimatedAmount(pairs, feeInSOL.Total(), feeInPayingTokenSlippage)
	if err != nil {
		return FeeAmount{}, err
	}
	if best == nil {
		return FeeAmount{}, ErrSwapPoolsNotFound
	}

	var feeInToken FeeAmount
	if feeInSOL.Transaction > 0 {
		feeInToken.Transaction, err = best.GetInputAmount(feeInSOL.Transaction, feeInPayingTokenSlippage)
		if err != nil {
			return FeeAmount{}, err
		}
	}
	if feeInSOL.AccountBalances > 0 {
		feeInToken.AccountBalances, err = best.GetInputAmount(feeInSOL.AccountBalances, feeInPayingTokenSlippage)
		if err != nil {
			return FeeAmount{}, err
		}
	}

	return feeInToken, nil
}

// CalculateSwappingNetworkFees estimates the fee of a relayed swap from
// sourceTokenMint to destinationTokenMint. destinationAddress is nil when the
// destination token account does not exist yet.
func (r *Relay) CalculateSwappingNetworkFees(sourceTokenMint, destinationTokenMint, destinationAddress ed25519.PublicKey) (FeeAmount, error) {
	minimumTokenAccountBalance, ok := r.cache.getMinimumTokenAccountBalance()
	if !ok {
		return FeeAmount{}, ErrRelayInfoMissing
	}
	lamportsPerSignature := r.lamportsPerSignature()

	var expectedFee FeeAmount

	// Fee payer and user authority signatures.
	expectedFee.Transaction = 2 * lamportsPerSignature

	// A wrapped SOL source is swapped out of an ephemeral account, which
	// signs and carries rent.
	if bytes.Equal(sourceTokenMint, token.WrappedSolMint) {
		expectedFee.Transaction += lamportsPerSignature
		expectedFee.AccountBalances += minimumTokenAccountBalance
	}

	// A missing destination account has to be created, unless the
	// destination is wrapped SOL, which is created ephemerally below.
	if destinationAddress == nil && !bytes.Equal(destinationTokenMint, token.WrappedSolMint) {
		expectedFee.AccountBalances += minimumTokenAccountBalance
	}

	// A wrapped SOL destination is an ephemeral signing account.
	if bytes.Equal(destinationTokenMint, token.WrappedSolMint) {
		expectedFee.Transaction += lamportsPerSignature
	}

	return expectedFee, nil
}
