package feerelayer

import "crypto/ed25519"

// FeeAmount splits a fee into the network fee portion and the rent exempt
// balances of accounts that must be created.
type FeeAmount struct {
	Transaction     uint64
	AccountBalances uint64
}

// Total returns the combined fee.
func (f FeeAmount) Total() uint64 {
	return f.Transaction + f.AccountBalances
}

// TokenAccount identifies an SPL token account and its mint.
type TokenAccount struct {
	Address ed25519.PublicKey
	Mint    ed25519.PublicKey
}

// RelayAccountState is the lifecycle state of a user's relay account.
type RelayAccountState int

const (
	RelayAccountNotYetCreated RelayAccountState = iota
	RelayAccountCreated
)

// RelayAccountStatus is the observed state of a user's relay account.
type RelayAccountStatus struct {
	State   RelayAccountState
	Balance uint64
}

// FreeTransactionFeeLimit tracks the relayer's free transaction allowance for
// a user: how many sponsored transactions remain and how much fee value.
type FreeTransactionFeeLimit struct {
	MaxCount   uint64
	UsedCount  uint64
	MaxAmount  uint64
	UsedAmount uint64
}

// IsFreeTransactionFeeAvailable reports whether the allowance still covers a
// transaction costing transactionFee. With forNextTransaction, one additional
// use is assumed to be already spent, for callers sizing the transaction that
// follows a top up.
func (l FreeTransactionFeeLimit) IsFreeTransactionFeeAvailable(transactionFee uint64, forNextTransaction bool) bool {
	usedCount := l.UsedCount
	if forNextTransaction {
		usedCount++
	}

	return usedCount < l.MaxCount && l.UsedAmount+transactionFee <= l.MaxAmount
}
