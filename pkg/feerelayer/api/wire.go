package api

import (
	"crypto/ed25519"
	"strconv"

	"github.com/mr-tron/base58"

	"github.com/p2p-wallet/fee-relayer-go/pkg/solana"
)

// SwapData is either a DirectSwapData or a TransitiveSwapData. The relayer
// distinguishes the two by shape, not by a type tag.
type SwapData interface {
	isSwapData()
}

// DirectSwapData describes a single pool swap leg.
type DirectSwapData struct {
	ProgramID               string `json:"program_id"`
	AccountPubkey           string `json:"account_pubkey"`
	AuthorityPubkey         string `json:"authority_pubkey"`
	TransferAuthorityPubkey string `json:"transfer_authority_pubkey"`
	SourcePubkey            string `json:"source_pubkey"`
	DestinationPubkey       string `json:"destination_pubkey"`
	PoolTokenMintPubkey     string `json:"pool_token_mint_pubkey"`
	PoolFeeAccountPubkey    string `json:"pool_fee_account_pubkey"`
	AmountIn                uint64 `json:"amount_in"`
	MinimumAmountOut        uint64 `json:"minimum_amount_out"`
}

func (DirectSwapData) isSwapData() {}

// TransitiveSwapData describes a two pool swap bridged by a transit token.
type TransitiveSwapData struct {
	From                   DirectSwapData `json:"from"`
	To                     DirectSwapData `json:"to"`
	TransitTokenMintPubkey string         `json:"transit_token_mint_pubkey"`
}

func (TransitiveSwapData) isSwapData() {}

// SwapTransactionSignatures carries the user and transfer authority signatures
// over the top up transaction.
type SwapTransactionSignatures struct {
	UserAuthoritySignature     string `json:"user_authority_signature"`
	TransferAuthoritySignature string `json:"transfer_authority_signature"`
}

// TopUpWithSwapParams is the request body for POST /relay_top_up_with_swap.
type TopUpWithSwapParams struct {
	UserSourceTokenAccountPubkey string                    `json:"user_source_token_account_pubkey"`
	SourceTokenMintPubkey        string                    `json:"source_token_mint_pubkey"`
	UserAuthorityPubkey          string                    `json:"user_authority_pubkey"`
	TopUpSwap                    SwapData                  `json:"top_up_swap"`
	FeeAmount                    uint64                    `json:"fee_amount"`
	Signatures                   SwapTransactionSignatures `json:"signatures"`
	Blockhash                    string                    `json:"blockhash"`
}

// TransferSOLParams is the request body for POST /relay_transfer_sol.
type TransferSOLParams struct {
	SenderPubkey    string `json:"sender_pubkey"`
	RecipientPubkey string `json:"recipient_pubkey"`
	Lamports        uint64 `json:"lamports"`
	Signature       string `json:"signature"`
	Blockhash       string `json:"blockhash"`
}

// RequestedAccountMeta references a transaction account by index.
type RequestedAccountMeta struct {
	Pubkey     uint8 `json:"pubkey"`
	IsSigner   bool  `json:"is_signer"`
	IsWritable bool  `json:"is_writable"`
}

// RequestedInstruction is a compiled instruction in relayer form.
type RequestedInstruction struct {
	ProgramIndex uint8                  `json:"program_id"`
	Accounts     []RequestedAccountMeta `json:"accounts"`
	Data         []int                  `json:"data"`
}

// RelayTransactionParams is the request body for POST /relay_transaction. The
// relayer reassembles the transaction, co-signs as fee payer, and submits it.
type RelayTransactionParams struct {
	Instructions []RequestedInstruction `json:"instructions"`
	Signatures   map[string]string      `json:"signatures"`
	Pubkeys      []string               `json:"pubkeys"`
	Blockhash    string                 `json:"blockhash"`
}

// NewRelayTransactionParams converts a compiled, signed transaction into
// relayer form.
func NewRelayTransactionParams(txn solana.Transaction) RelayTransactionParams {
	m := txn.Message

	params := RelayTransactionParams{
		Signatures: make(map[string]string),
		Blockhash:  base58.Encode(m.RecentBlockhash[:]),
	}

	for _, account := range m.Accounts {
		params.Pubkeys = append(params.Pubkeys, base58.Encode(account))
	}

	for _, compiled := range m.Instructions {
		instruction := RequestedInstruction{
			ProgramIndex: compiled.ProgramIndex,
		}
		for _, b := range compiled.Data {
			instruction.Data = append(instruction.Data, int(b))
		}
		for _, index := range compiled.Accounts {
			instruction.Accounts = append(instruction.Accounts, RequestedAccountMeta{
				Pubkey:     index,
				IsSigner:   isSigner(m.Header, index),
				IsWritable: isWritable(m.Header, index, len(m.Accounts)),
			})
		}
		params.Instructions = append(params.Instructions, instruction)
	}

	var empty solana.Signature
	for i, sig := range txn.Signatures {
		if sig == empty {
			continue
		}
		params.Signatures[strconv.Itoa(i)] = base58.Encode(sig[:])
	}

	return params
}

func isSigner(h solana.Header, index uint8) bool {
	return index < h.NumSignatures
}

func isWritable(h solana.Header, index uint8, numAccounts int) bool {
	if isSigner(h, index) {
		return index < h.NumSignatures-h.NumReadonlySigned
	}
	return int(index) < numAccounts-int(h.NumReadOnly)
}

// FreeFeeLimitsResponse is the body of GET /free_fee_limits/{pubkey}.
type FreeFeeLimitsResponse struct {
	Authority []int `json:"authority"`
	Limits    struct {
		UseFreeFee bool   `json:"use_free_fee"`
		MaxCount   uint64 `json:"max_count"`
		MaxAmount  uint64 `json:"max_amount"`
	} `json:"limits"`
	ProcessedFee struct {
		Count       uint64 `json:"count"`
		TotalAmount uint64 `json:"total_amount"`
	} `json:"processed_fee"`
}

func encodeKey(key ed25519.PublicKey) string {
	return base58.Encode(key)
}
