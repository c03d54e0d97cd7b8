package feerelayer

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/p2p-wallet/fee-relayer-go/pkg/orca"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/relayprogram"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/system"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/token"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/tokenswap"
)

// PrepareSwapTransaction builds a sponsored swap of inputAmount of
// sourceToken into destinationTokenMint along the provided route. Pass a nil
// destinationAddress when the destination token account does not exist yet;
// the transaction will create it and the rent is reported in the expected
// fee's account balances.
//
// The returned transaction is not compiled or signed; the relayer co-signs as
// fee payer at submission.
func (r *Relay) PrepareSwapTransaction(
	ctx context.Context,
	sourceToken TokenAccount,
	destinationTokenMint ed25519.PublicKey,
	destinationAddress ed25519.PublicKey,
	pools orca.PoolsPair,
	inputAmount uint64,
	slippage float64,
) (*PreparedTransaction, error) {
	feePayer, ok := r.cache.getFeePayerAddress()
	if !ok {
		return nil, ErrRelayInfoMissing
	}
	minimumTokenAccountBalance, ok := r.cache.getMinimumTokenAccountBalance()
	if !ok {
		return nil, ErrRelayInfoMissing
	}

	owner := r.Owner()

	// The fee payer's own token accounts must never be spent from.
	feePayerSourceAccount, err := token.GetAssociatedAccount(feePayer, sourceToken.Mint)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(sourceToken.Address, feePayerSourceAccount) {
		return nil, ErrWrongAddress
	}

	var (
		instructions       []solana.Instruction
		signers            = []ed25519.PrivateKey{r.owner}
		accountCreationFee uint64
	)

	// A wrapped SOL source is swapped out of an ephemeral account funded with
	// the input amount plus rent.
	userSource := sourceToken.Address
	sourceIsWSOL := bytes.Equal(sourceToken.Mint, token.WrappedSolMint)
	if sourceIsWSOL {
		ephemeralPub, ephemeral, err := ed25519.GenerateKey(nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate ephemeral account")
		}

		instructions = append(instructions,
			system.CreateAccount(feePayer, ephemeralPub, token.ProgramKey, inputAmount+minimumTokenAccountBalance, token.AccountSize),
			token.InitializeAccount(ephemeralPub, token.WrappedSolMint, owner),
		)
		userSource = ephemeralPub
		signers = append(signers, ephemeral)
	}

	userDestination := destinationAddress
	needsCreateDestination := destinationAddress == nil
	if needsCreateDestination {
		destinationPub, destination, err := ed25519.GenerateKey(nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate destination account")
		}

		instructions = append(instructions,
			system.CreateAccount(feePayer, destinationPub, token.ProgramKey, minimumTokenAccountBalance, token.AccountSize),
			token.InitializeAccount(destinationPub, destinationTokenMint, owner),
		)
		accountCreationFee += minimumTokenAccountBalance
		userDestination = destinationPub
		signers = append(signers, destination)
	}

	minimumAmountOut, err := pools.GetMinimumAmountOut(inputAmount, slippage)
	if err != nil {
		return nil, err
	}

	switch len(pools) {
	case 1:
		pool := pools[0]
		instructions = append(instructions, tokenswap.Swap(
			pool.Program, pool.Account, pool.Authority, owner,
			userSource, pool.TokenAccountA, pool.TokenAccountB, userDestination,
			pool.PoolTokenMint, pool.FeeAccount,
			inputAmount, minimumAmountOut,
		))
	case 2:
		transitMint := pools.TransitTokenMint()
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

		transitMinimum := pools[0].GetMinimumAmountOut(inputAmount, slippage)
		instructions = append(instructions, relayprogram.SPLSwapTransitive(
			r.program, feePayer, owner,
			userSource, transitAccount, userDestination,
			swapAccounts(pools[0], owner), swapAccounts(pools[1], owner),
			inputAmount, transitMinimum, minimumAmountOut,
		))

		// The transit account only bridges this transaction; its rent goes
		// back to the fee payer.
		instructions = append(instructions, token.CloseAccount(transitAccount, feePayer, feePayer))
	default:
		return nil, ErrSwapPoolsNotFound
	}

	// Unwrap the ephemeral wrapped SOL source and return its rent to the fee
	// payer.
	if sourceIsWSOL {
		instructions = append(instructions,
			token.CloseAccount(userSource, owner, owner),
			system.Transfer(owner, feePayer, minimumTokenAccountBalance),
		)
	}

	// A wrapped SOL destination is unwrapped straight into the owner's SOL
	// balance. Its rent goes back to the fee payer, so it is not a lasting
	// cost.
	if bytes.Equal(destinationTokenMint, token.WrappedSolMint) {
		instructions = append(instructions,
			token.CloseAccount(userDestination, owner, owner),
			system.Transfer(owner, feePayer, minimumTokenAccountBalance),
		)
		if needsCreateDestination {
			accountCreationFee -= minimumTokenAccountBalance
		}
	}

	draft := solana.NewTransaction(feePayer, instructions...)

	return &PreparedTransaction{
		FeePayer:     feePayer,
		Instructions: instructions,
		Signers:      signers,
		ExpectedFee: FeeAmount{
			Transaction:     draft.Fee(r.lamportsPerSignature()),
			AccountBalances: accountCreationFee,
		},
	}, nil
}
