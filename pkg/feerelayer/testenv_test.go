package feerelayer

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"

	"github.com/p2p-wallet/fee-relayer-go/pkg/feerelayer/api"
	"github.com/p2p-wallet/fee-relayer-go/pkg/orca"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana"
)

const (
	testMinimumTokenAccountBalance = 2039280
	testMinimumRelayAccountBalance = 890880
	testLamportsPerSignature       = 5000
)

var (
	testFeePayer  = solana.MustPublicKeyFromBase58("FG4Y3yX4AAchp1HvNZ7LfzFTewF2f6nDoMDCohTFrdpT")
	testUSDCMint  = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	testBlockhash = mustBlockhash("CSymwgTNX1j3E4qhKfJAUE41nBWEwXufoYryPbkde5RR")
)

func mustBlockhash(value string) solana.Blockhash {
	raw, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}

	var bh solana.Blockhash
	copy(bh[:], raw)
	return bh
}

type fakeSolanaClient struct {
	accounts  map[string]solana.AccountInfo
	blockhash solana.Blockhash
}

func newFakeSolanaClient() *fakeSolanaClient {
	return &fakeSolanaClient{
		accounts:  make(map[string]solana.AccountInfo),
		blockhash: testBlockhash,
	}
}

func (f *fakeSolanaClient) setAccount(key ed25519.PublicKey, info solana.AccountInfo) {
	f.accounts[base58.Encode(key)] = info
}

func (f *fakeSolanaClient) GetAccountInfo(key ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	info, ok := f.accounts[base58.Encode(key)]
	if !ok {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}
	return info, nil
}

func (f *fakeSolanaClient) GetBalance(key ed25519.PublicKey) (uint64, error) {
	info, ok := f.accounts[base58.Encode(key)]
	if !ok {
		return 0, solana.ErrNoBalance
	}
	return info.Lamports, nil
}

func (f *fakeSolanaClient) GetMinimumBalanceForRentExemption(size uint64) (uint64, error) {
	if size == 0 {
		return testMinimumRelayAccountBalance, nil
	}
	return testMinimumTokenAccountBalance, nil
}

func (f *fakeSolanaClient) GetLatestBlockhash() (solana.Blockhash, error) {
	return f.blockhash, nil
}

func (f *fakeSolanaClient) GetLamportsPerSignature() (uint64, error) {
	return testLamportsPerSignature, nil
}

func (f *fakeSolanaClient) SubmitTransaction(txn solana.Transaction, _ solana.Commitment) (solana.Signature, error) {
	return txn.Signatures[0], nil
}

type fakeRelayerClient struct {
	feePayer ed25519.PublicKey
	limits   api.FreeFeeLimitsResponse

	// Errors returned by successive RelayTransaction calls; nil entries
	// succeed. Calls beyond the slice succeed.
	relayErrs []error

	topUpCalls    []*api.TopUpWithSwapParams
	relayCalls    []*api.RelayTransactionParams
	transferCalls []*api.TransferSOLParams
}

func newFakeRelayerClient() *fakeRelayerClient {
	f := &fakeRelayerClient{
		feePayer: testFeePayer,
	}
	f.limits.Limits.MaxCount = 100
	f.limits.Limits.MaxAmount = 10000000
	return f
}

func (f *fakeRelayerClient) exhaustAllowance() {
	f.limits.ProcessedFee.Count = f.limits.Limits.MaxCount
}

func (f *fakeRelayerClient) GetFeePayerPubkey(_ context.Context) (ed25519.PublicKey, error) {
	return f.feePayer, nil
}

func (f *fakeRelayerClient) GetFreeFeeLimits(_ context.Context, _ ed25519.PublicKey) (*api.FreeFeeLimitsResponse, error) {
	limits := f.limits
	return &limits, nil
}

func (f *fakeRelayerClient) TopUpWithSwap(_ context.Context, params *api.TopUpWithSwapParams) ([]string, error) {
	f.topUpCalls = append(f.topUpCalls, params)
	return []string{"top-up-signature"}, nil
}

func (f *fakeRelayerClient) RelayTransaction(_ context.Context, params *api.RelayTransactionParams) ([]string, error) {
	f.relayCalls = append(f.relayCalls, params)

	if n := len(f.relayCalls); n <= len(f.relayErrs) && f.relayErrs[n-1] != nil {
		return nil, f.relayErrs[n-1]
	}
	return []string{"relay-signature"}, nil
}

func (f *fakeRelayerClient) RelayTransferSOL(_ context.Context, params *api.TransferSOLParams) ([]string, error) {
	f.transferCalls = append(f.transferCalls, params)
	return []string{"transfer-signature"}, nil
}

type fakeOrcaClient struct {
	pairs []orca.PoolsPair
	err   error
}

func (f *fakeOrcaClient) GetTradablePoolsPairs(_ context.Context, _, _ ed25519.PublicKey) ([]orca.PoolsPair, error) {
	return f.pairs, f.err
}

// testPool returns a pool oriented from the paying token towards wrapped SOL,
// deep enough that the fee sized trades barely move the price.
func testPool(aMint, bMint ed25519.PublicKey, aBalance, bBalance uint64) orca.Pool {
	program, _, _ := ed25519.GenerateKey(nil)
	account, _, _ := ed25519.GenerateKey(nil)
	authority, _, _ := ed25519.GenerateKey(nil)
	poolMint, _, _ := ed25519.GenerateKey(nil)
	feeAccount, _, _ := ed25519.GenerateKey(nil)
	tokenAccountA, _, _ := ed25519.GenerateKey(nil)
	tokenAccountB, _, _ := ed25519.GenerateKey(nil)

	return orca.Pool{
		Program:       program,
		Account:       account,
		Authority:     authority,
		PoolTokenMint: poolMint,
		FeeAccount:    feeAccount,

		TokenAMint:    aMint,
		TokenBMint:    bMint,
		TokenAccountA: tokenAccountA,
		TokenAccountB: tokenAccountB,
		TokenABalance: aBalance,
		TokenBBalance: bBalance,

		TradeFeeNumerator:        25,
		TradeFeeDenominator:      10000,
		OwnerTradeFeeNumerator:   5,
		OwnerTradeFeeDenominator: 10000,
	}
}

type testEnv struct {
	relay   *Relay
	solana  *fakeSolanaClient
	relayer *fakeRelayerClient
	orca    *fakeOrcaClient

	owner ed25519.PrivateKey
}

func setup(t *testing.T, opts ...Option) *testEnv {
	_, owner, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	env := &testEnv{
		solana:  newFakeSolanaClient(),
		relayer: newFakeRelayerClient(),
		orca:    &fakeOrcaClient{},
		owner:   owner,
	}

	env.relay, err = New(env.solana, env.relayer, env.orca, owner, opts...)
	require.NoError(t, err)

	return env
}

func setupLoaded(t *testing.T, opts ...Option) *testEnv {
	env := setup(t, opts...)
	require.NoError(t, env.relay.Load(context.Background()))
	return env
}

// fundRelayAccount marks the owner's relay account as created with the
// provided balance.
func (env *testEnv) fundRelayAccount(t *testing.T, lamports uint64) {
	relayAddress, err := env.relay.GetUserRelayAddress()
	require.NoError(t, err)
	env.solana.setAccount(relayAddress, solana.AccountInfo{Lamports: lamports})
}
