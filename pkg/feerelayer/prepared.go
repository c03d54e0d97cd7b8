package feerelayer

import (
	"crypto/ed25519"

	"github.com/p2p-wallet/fee-relayer-go/pkg/solana"
)

// PreparedTransaction is a transaction that has been fully planned but not
// yet compiled: it owns its instruction list, the keys that must sign it, and
// the fee the signer expects to be charged. The fee payer's signature is left
// to the relayer.
type PreparedTransaction struct {
	FeePayer     ed25519.PublicKey
	Instructions []solana.Instruction
	Signers      []ed25519.PrivateKey
	ExpectedFee  FeeAmount
}

// Build compiles and signs the transaction against the provided blockhash.
func (p *PreparedTransaction) Build(blockhash solana.Blockhash) (solana.Transaction, error) {
	txn := solana.NewTransaction(p.FeePayer, p.Instructions...)
	txn.SetBlockhash(blockhash)

	if err := txn.Sign(p.Signers...); err != nil {
		return solana.Transaction{}, err
	}

	return txn, nil
}
