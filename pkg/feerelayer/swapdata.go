package feerelayer

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/p2p-wallet/fee-relayer-go/pkg/feerelayer/api"
	"github.com/p2p-wallet/fee-relayer-go/pkg/orca"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/relayprogram"
)

// preparedSwapData is a sized swap route in relayer wire form.
type preparedSwapData struct {
	wire             api.SwapData
	amountIn         uint64
	transitMinimum   uint64
	minimumAmountOut uint64
}

// prepareSwapData sizes a route for the requested minimum output and encodes
// it for the relayer. transferAuthority is the delegate that will sign the
// swap on-chain.
func prepareSwapData(pools orca.PoolsPair, minimumAmountOut uint64, slippage float64, transferAuthority ed25519.PublicKey) (preparedSwapData, error) {
	amountIn, err := pools.GetInputAmount(minimumAmountOut, slippage)
	if err != nil {
		return preparedSwapData{}, errors.Wrap(err, "failed to size swap route")
	}

	switch len(pools) {
	case 1:
		return preparedSwapData{
			wire:             directSwapData(pools[0], transferAuthority, amountIn, minimumAmountOut),
			amountIn:         amountIn,
			minimumAmountOut: minimumAmountOut,
		}, nil
	case 2:
		transitMinimum := pools[0].GetMinimumAmountOut(amountIn, slippage)

		return preparedSwapData{
			wire: api.TransitiveSwapData{
				From:                   directSwapData(pools[0], transferAuthority, amountIn, transitMinimum),
				To:                     directSwapData(pools[1], transferAuthority, transitMinimum, minimumAmountOut),
				TransitTokenMintPubkey: base58.Encode(pools.TransitTokenMint()),
			},
			amountIn:         amountIn,
			transitMinimum:   transitMinimum,
			minimumAmountOut: minimumAmountOut,
		}, nil
	default:
		return preparedSwapData{}, ErrSwapPoolsNotFound
	}
}

func directSwapData(pool orca.Pool, transferAuthority ed25519.PublicKey, amountIn, minimumAmountOut uint64) api.DirectSwapData {
	return api.DirectSwapData{
		ProgramID:               base58.Encode(pool.Program),
		AccountPubkey:           base58.Encode(pool.Account),
		AuthorityPubkey:         base58.Encode(pool.Authority),
		TransferAuthorityPubkey: base58.Encode(transferAuthority),
		SourcePubkey:            base58.Encode(pool.TokenAccountA),
		DestinationPubkey:       base58.Encode(pool.TokenAccountB),
		PoolTokenMintPubkey:     base58.Encode(pool.PoolTokenMint),
		PoolFeeAccountPubkey:    base58.Encode(pool.FeeAccount),
		AmountIn:                amountIn,
		MinimumAmountOut:        minimumAmountOut,
	}
}

// swapAccounts converts a pool into the account set a relay program swap leg
// references.
func swapAccounts(pool orca.Pool, transferAuthority ed25519.PublicKey) relayprogram.SwapAccounts {
	return relayprogram.SwapAccounts{
		Program:           pool.Program,
		Account:           pool.Account,
		Authority:         pool.Authority,
		TransferAuthority: transferAuthority,
		Source:            pool.TokenAccountA,
		Destination:       pool.TokenAccountB,
		PoolTokenMint:     pool.PoolTokenMint,
		PoolFeeAccount:    pool.FeeAccount,
	}
}
