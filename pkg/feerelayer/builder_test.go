package feerelayer

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p2p-wallet/fee-relayer-go/pkg/orca"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/relayprogram"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/system"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/token"
)

func TestPrepareSwapTransaction_Direct(t *testing.T) {
	env := setupLoaded(t)
	ctx := context.Background()

	destinationMint, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	destination, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	pair := orca.PoolsPair{testPool(testUSDCMint, destinationMint, 500000000000, 800000000000)}

	prepared, err := env.relay.PrepareSwapTransaction(ctx, *testPayingToken(t), destinationMint, destination, pair, 1000000, 0.01)
	require.NoError(t, err)

	assert.Equal(t, testFeePayer, prepared.FeePayer)
	require.Len(t, prepared.Instructions, 1)
	require.Len(t, prepared.Signers, 1)

	swap := prepared.Instructions[0]
	assert.Equal(t, pair[0].Program, swap.Program)

	// Two signatures: the relayer's fee payer and the owner as transfer
	// authority.
	assert.Equal(t, FeeAmount{Transaction: 2 * testLamportsPerSignature}, prepared.ExpectedFee)
}

func TestPrepareSwapTransaction_CreateDestination(t *testing.T) {
	env := setupLoaded(t)
	ctx := context.Background()

	destinationMint, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	pair := orca.PoolsPair{testPool(testUSDCMint, destinationMint, 500000000000, 800000000000)}

	prepared, err := env.relay.PrepareSwapTransaction(ctx, *testPayingToken(t), destinationMint, nil, pair, 1000000, 0.01)
	require.NoError(t, err)

	require.Len(t, prepared.Instructions, 3)
	assert.Equal(t, ed25519.PublicKey(system.ProgramKey[:]), prepared.Instructions[0].Program)
	assert.Equal(t, token.ProgramKey, prepared.Instructions[1].Program)
	assert.Equal(t, pair[0].Program, prepared.Instructions[2].Program)

	// The created destination account signs its own creation.
	require.Len(t, prepared.Signers, 2)

	assert.Equal(t, FeeAmount{
		Transaction:     3 * testLamportsPerSignature,
		AccountBalances: testMinimumTokenAccountBalance,
	}, prepared.ExpectedFee)
}

func TestPrepareSwapTransaction_WrappedSOLSource(t *testing.T) {
	env := setupLoaded(t)
	ctx := context.Background()

	destinationMint, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	destination, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	sourceAddress, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	source := TokenAccount{Address: sourceAddress, Mint: token.WrappedSolMint}
	pair := orca.PoolsPair{testPool(token.WrappedSolMint, destinationMint, 500000000000, 800000000000)}

	prepared, err := env.relay.PrepareSwapTransaction(ctx, source, destinationMint, destination, pair, 1000000, 0.01)
	require.NoError(t, err)

	// Create and initialize the ephemeral wrapped SOL account, swap, close it
	// out, and return its rent to the fee payer.
	require.Len(t, prepared.Instructions, 5)
	assert.Equal(t, ed25519.PublicKey(system.ProgramKey[:]), prepared.Instructions[0].Program)
	assert.Equal(t, token.ProgramKey, prepared.Instructions[1].Program)
	assert.Equal(t, pair[0].Program, prepared.Instructions[2].Program)
	assert.Equal(t, token.ProgramKey, prepared.Instructions[3].Program)
	assert.Equal(t, ed25519.PublicKey(system.ProgramKey[:]), prepared.Instructions[4].Program)

	// The ephemeral account signs, so three signatures; its rent flows back,
	// so no lasting account balance cost.
	require.Len(t, prepared.Signers, 2)
	assert.Equal(t, FeeAmount{Transaction: 3 * testLamportsPerSignature}, prepared.ExpectedFee)
}

func TestPrepareSwapTransaction_WrappedSOLDestination(t *testing.T) {
	env := setupLoaded(t)
	ctx := context.Background()

	pair := orca.PoolsPair{testPool(testUSDCMint, token.WrappedSolMint, 500000000000, 800000000000)}

	prepared, err := env.relay.PrepareSwapTransaction(ctx, *testPayingToken(t), token.WrappedSolMint, nil, pair, 1000000, 0.01)
	require.NoError(t, err)

	// The created wrapped SOL destination is closed within the transaction
	// and its rent transferred back to the fee payer, so it is not a lasting
	// cost.
	require.Len(t, prepared.Instructions, 5)
	assert.Equal(t, token.ProgramKey, prepared.Instructions[3].Program)
	assert.Equal(t, ed25519.PublicKey(system.ProgramKey[:]), prepared.Instructions[4].Program)
	assert.Equal(t, FeeAmount{Transaction: 3 * testLamportsPerSignature}, prepared.ExpectedFee)
}

func TestPrepareSwapTransaction_Transitive(t *testing.T) {
	env := setupLoaded(t)
	ctx := context.Background()

	destinationMint, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	transitMint, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	destination, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	pair := orca.PoolsPair{
		testPool(testUSDCMint, transitMint, 500000000000, 800000000000),
		testPool(transitMint, destinationMint, 700000000000, 2000000000000),
	}

	prepared, err := env.relay.PrepareSwapTransaction(ctx, *testPayingToken(t), destinationMint, destination, pair, 1000000, 0.01)
	require.NoError(t, err)

	// Transit account does not exist yet: create it, swap, close it out.
	require.Len(t, prepared.Instructions, 3)
	assert.Equal(t, relayprogram.ProgramKey, prepared.Instructions[0].Program)
	assert.EqualValues(t, relayprogram.CommandCreateTransitTokenAccount, prepared.Instructions[0].Data[0])
	assert.Equal(t, relayprogram.ProgramKey, prepared.Instructions[1].Program)
	assert.EqualValues(t, relayprogram.CommandSPLSwapTransitive, prepared.Instructions[1].Data[0])
	assert.Equal(t, token.ProgramKey, prepared.Instructions[2].Program)

	// With the transit account already on chain, the create step drops out.
	transitAccount, err := relayprogram.GetTransitTokenAccountAddress(relayprogram.ProgramKey, env.relay.Owner(), transitMint)
	require.NoError(t, err)
	env.solana.setAccount(transitAccount, solana.AccountInfo{Lamports: testMinimumTokenAccountBalance})

	prepared, err = env.relay.PrepareSwapTransaction(ctx, *testPayingToken(t), destinationMint, destination, pair, 1000000, 0.01)
	require.NoError(t, err)

	require.Len(t, prepared.Instructions, 2)
	assert.EqualValues(t, relayprogram.CommandSPLSwapTransitive, prepared.Instructions[0].Data[0])
}

func TestPrepareSwapTransaction_WrongAddress(t *testing.T) {
	env := setupLoaded(t)
	ctx := context.Background()

	feePayerAccount, err := token.GetAssociatedAccount(testFeePayer, testUSDCMint)
	require.NoError(t, err)

	destinationMint, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	destination, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	source := TokenAccount{Address: feePayerAccount, Mint: testUSDCMint}
	pair := orca.PoolsPair{testPool(testUSDCMint, destinationMint, 500000000000, 800000000000)}

	_, err = env.relay.PrepareSwapTransaction(ctx, source, destinationMint, destination, pair, 1000000, 0.01)
	assert.Equal(t, ErrWrongAddress, err)
}

func TestPrepareSwapTransaction_NotLoaded(t *testing.T) {
	env := setup(t)

	destinationMint, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	_, err = env.relay.PrepareSwapTransaction(context.Background(), *testPayingToken(t), destinationMint, nil, nil, 1000000, 0.01)
	assert.Equal(t, ErrRelayInfoMissing, err)
}
