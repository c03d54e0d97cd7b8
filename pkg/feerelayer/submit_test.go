package feerelayer

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p2p-wallet/fee-relayer-go/pkg/feerelayer/api"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/relayprogram"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/system"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/token"
)

func instructionBudgetExceededError() *api.Error {
	return &api.Error{
		Code:    api.ErrCodeClientError,
		Message: "Transaction simulation failed",
		Data: &api.ErrorData{
			ClientError: []string{"Transaction would exceed maximum number of instructions allowed (1234) at instruction #3"},
		},
	}
}

// testPrepared returns a minimal prepared transaction moving SOL from the
// owner, with the provided expected fee.
func testPrepared(t *testing.T, env *testEnv, expectedFee FeeAmount) *PreparedTransaction {
	recipient, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	return &PreparedTransaction{
		FeePayer: testFeePayer,
		Instructions: []solana.Instruction{
			system.Transfer(env.relay.Owner(), recipient, 100),
		},
		ExpectedFee: expectedFee,
	}
}

func TestTopUpAndRelayTransaction_FreeTransaction(t *testing.T) {
	env := setupLoaded(t)
	ctx := context.Background()

	prepared := testPrepared(t, env, FeeAmount{Transaction: 10000})

	signatures, err := env.relay.TopUpAndRelayTransaction(ctx, prepared, testPayingToken(t), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"relay-signature"}, signatures)

	assert.Empty(t, env.relayer.topUpCalls)
	require.Len(t, env.relayer.relayCalls, 1)

	// The allowance covers the whole fee, so no payback instruction is
	// appended.
	params := env.relayer.relayCalls[0]
	require.Len(t, params.Instructions, 1)
	assert.Equal(t, "CSymwgTNX1j3E4qhKfJAUE41nBWEwXufoYryPbkde5RR", params.Blockhash)

	// The owner signed; the fee payer slot is left for the relayer.
	require.Len(t, params.Signatures, 1)

	limit, err := env.relay.GetFreeTransactionFeeLimit(ctx, true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, limit.UsedCount)
	assert.EqualValues(t, 10000, limit.UsedAmount)
}

func TestTopUpAndRelayTransaction_Payback(t *testing.T) {
	env := setup(t)
	env.relayer.exhaustAllowance()
	require.NoError(t, env.relay.Load(context.Background()))
	env.fundRelayAccount(t, 5000000)

	ctx := context.Background()
	prepared := testPrepared(t, env, FeeAmount{Transaction: 10000})

	_, err := env.relay.TopUpAndRelayTransaction(ctx, prepared, testPayingToken(t), 0)
	require.NoError(t, err)

	// The relay account already covers the fee, so no top up, but the fee is
	// paid back out of the relay account.
	assert.Empty(t, env.relayer.topUpCalls)
	require.Len(t, env.relayer.relayCalls, 1)

	params := env.relayer.relayCalls[0]
	require.Len(t, params.Instructions, 2)

	payback := params.Instructions[1]
	assert.Equal(t, base58.Encode(relayprogram.ProgramKey), params.Pubkeys[payback.ProgramIndex])
	assert.EqualValues(t, relayprogram.CommandTransferSOL, payback.Data[0])

	// Nothing was sponsored for free.
	limit, err := env.relay.GetFreeTransactionFeeLimit(ctx, true)
	require.NoError(t, err)
	assert.EqualValues(t, 0, limit.UsedAmount)
}

func TestTopUpAndRelayTransaction_WrappedSOLPayback(t *testing.T) {
	env := setup(t)
	env.relayer.exhaustAllowance()
	require.NoError(t, env.relay.Load(context.Background()))

	sourceAddress, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	payingToken := &TokenAccount{Address: sourceAddress, Mint: token.WrappedSolMint}

	ctx := context.Background()
	prepared := testPrepared(t, env, FeeAmount{Transaction: 10000})

	_, err = env.relay.TopUpAndRelayTransaction(ctx, prepared, payingToken, 0)
	require.NoError(t, err)

	// Paying in wrapped SOL skips the top up entirely; the relay account
	// cannot cover the payback, so the owner pays it from their own SOL.
	assert.Empty(t, env.relayer.topUpCalls)
	require.Len(t, env.relayer.relayCalls, 1)

	params := env.relayer.relayCalls[0]
	require.Len(t, params.Instructions, 2)

	payback := params.Instructions[1]
	assert.Equal(t, base58.Encode(system.ProgramKey[:]), params.Pubkeys[payback.ProgramIndex])
}

func TestTopUpAndRelayTransaction_AdditionalPaybackFee(t *testing.T) {
	env := setup(t)
	env.relayer.exhaustAllowance()
	require.NoError(t, env.relay.Load(context.Background()))
	env.fundRelayAccount(t, 5000000)

	ctx := context.Background()
	prepared := testPrepared(t, env, FeeAmount{Transaction: 10000})

	const additionalPaybackFee = 7500

	_, err := env.relay.TopUpAndRelayTransaction(ctx, prepared, testPayingToken(t), additionalPaybackFee)
	require.NoError(t, err)

	require.Len(t, env.relayer.relayCalls, 1)
	params := env.relayer.relayCalls[0]
	require.Len(t, params.Instructions, 2)

	// lamports is encoded little endian after the command byte.
	payback := params.Instructions[1].Data
	require.Len(t, payback, 9)
	lamports := uint64(0)
	for i := 8; i >= 1; i-- {
		lamports = lamports<<8 | uint64(payback[i])
	}
	assert.EqualValues(t, 10000+additionalPaybackFee, lamports)
}

func TestTopUpAndRelayTransaction_InvalidFeePayer(t *testing.T) {
	env := setupLoaded(t)

	prepared := testPrepared(t, env, FeeAmount{})
	otherFeePayer, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	prepared.FeePayer = otherFeePayer

	_, err = env.relay.TopUpAndRelayTransaction(context.Background(), prepared, testPayingToken(t), 0)
	assert.Equal(t, ErrInvalidFeePayer, err)
	assert.Empty(t, env.relayer.relayCalls)
}

func TestTopUpAndRelayTransaction_RetriesInstructionBudget(t *testing.T) {
	env := setupLoaded(t)

	env.relayer.relayErrs = []error{
		instructionBudgetExceededError(),
		instructionBudgetExceededError(),
		instructionBudgetExceededError(),
		instructionBudgetExceededError(),
	}

	prepared := testPrepared(t, env, FeeAmount{Transaction: 10000})

	_, err := env.relay.TopUpAndRelayTransaction(context.Background(), prepared, testPayingToken(t), 0)
	require.Error(t, err)

	var relayerErr *api.Error
	require.ErrorAs(t, err, &relayerErr)
	assert.True(t, relayerErr.IsInstructionBudgetExceeded())

	// The initial attempt plus three retries.
	assert.Len(t, env.relayer.relayCalls, 4)

	// A failed submission burns nothing.
	limit, err := env.relay.GetFreeTransactionFeeLimit(context.Background(), true)
	require.NoError(t, err)
	assert.EqualValues(t, 0, limit.UsedCount)
}

func TestTopUpAndRelayTransaction_RetryThenSuccess(t *testing.T) {
	env := setupLoaded(t)

	env.relayer.relayErrs = []error{instructionBudgetExceededError()}

	prepared := testPrepared(t, env, FeeAmount{Transaction: 10000})

	signatures, err := env.relay.TopUpAndRelayTransaction(context.Background(), prepared, testPayingToken(t), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"relay-signature"}, signatures)
	assert.Len(t, env.relayer.relayCalls, 2)
}

func TestTopUpAndRelayTransaction_NonRetriableError(t *testing.T) {
	env := setupLoaded(t)

	env.relayer.relayErrs = []error{
		&api.Error{
			Code:    api.ErrCodeClientError,
			Message: "Transaction simulation failed",
			Data:    &api.ErrorData{ClientError: []string{"Program log: Error: insufficient funds"}},
		},
	}

	prepared := testPrepared(t, env, FeeAmount{Transaction: 10000})

	_, err := env.relay.TopUpAndRelayTransaction(context.Background(), prepared, testPayingToken(t), 0)
	require.Error(t, err)
	assert.Len(t, env.relayer.relayCalls, 1)
}

func TestTransferSOL(t *testing.T) {
	env := setupLoaded(t)

	recipient, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	signatures, err := env.relay.TransferSOL(context.Background(), recipient, 890880)
	require.NoError(t, err)
	assert.Equal(t, []string{"transfer-signature"}, signatures)

	require.Len(t, env.relayer.transferCalls, 1)
	params := env.relayer.transferCalls[0]

	assert.Equal(t, base58.Encode(env.relay.Owner()), params.SenderPubkey)
	assert.Equal(t, base58.Encode(recipient), params.RecipientPubkey)
	assert.EqualValues(t, 890880, params.Lamports)
	assert.Equal(t, "CSymwgTNX1j3E4qhKfJAUE41nBWEwXufoYryPbkde5RR", params.Blockhash)
	assert.NotEmpty(t, params.Signature)
}

func TestTransferSOL_NotLoaded(t *testing.T) {
	env := setup(t)

	recipient, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	_, err = env.relay.TransferSOL(context.Background(), recipient, 1000)
	assert.Equal(t, ErrRelayInfoMissing, err)
}
