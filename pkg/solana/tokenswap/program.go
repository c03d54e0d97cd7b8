package tokenswap

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/p2p-wallet/fee-relayer-go/pkg/solana"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/token"
)

// ProgramKey is the address of the SPL token swap program used by Orca pools.
//
// Current key: 9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP
var ProgramKey = solana.MustPublicKeyFromBase58("9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP")

// DeprecatedProgramKey is the address of the legacy token swap deployment some
// older pools still live on.
//
// Current key: DjVE6JNiYqPL2QXyCUUh8rNjHrbz9hXHNYt99MQ59qw1
var DeprecatedProgramKey = solana.MustPublicKeyFromBase58("DjVE6JNiYqPL2QXyCUUh8rNjHrbz9hXHNYt99MQ59qw1")

type Command byte

const (
	// nolint:varcheck,deadcode,unused
	CommandInitialize Command = iota
	CommandSwap
)

// Reference: https://github.com/solana-labs/solana-program-library/blob/master/token-swap/program/src/instruction.rs
func Swap(
	program ed25519.PublicKey,
	swap, authority, transferAuthority ed25519.PublicKey,
	source, poolSource, poolDestination, destination ed25519.PublicKey,
	poolMint, feeAccount ed25519.PublicKey,
	amountIn, minimumAmountOut uint64,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[]` Token-swap
	//   1. `[]` swap authority
	//   2. `[signer]` user transfer authority
	//   3. `[writable]` token_(A|B) SOURCE account, amount is transferable by user transfer authority
	//   4. `[writable]` token_(A|B) Base account to swap INTO. Must be the SOURCE token.
	//   5. `[writable]` token_(A|B) Base account to swap FROM. Must be the DESTINATION token.
	//   6. `[writable]` token_(A|B) DESTINATION account assigned to USER as the owner.
	//   7. `[writable]` Pool token mint, to generate trading fees
	//   8. `[writable]` Fee account, to receive trading fees
	//   9. `[]` Token program id
	data := make([]byte, 1+2*8)
	data[0] = byte(CommandSwap)
	binary.LittleEndian.PutUint64(data[1:], amountIn)
	binary.LittleEndian.PutUint64(data[1+8:], minimumAmountOut)

	return solana.NewInstruction(
		program,
		data,
		solana.NewReadonlyAccountMeta(swap, false),
		solana.NewReadonlyAccountMeta(authority, false),
		solana.NewReadonlyAccountMeta(transferAuthority, true),
		solana.NewAccountMeta(source, false),
		solana.NewAccountMeta(poolSource, false),
		solana.NewAccountMeta(poolDestination, false),
		solana.NewAccountMeta(destination, false),
		solana.NewAccountMeta(poolMint, false),
		solana.NewAccountMeta(feeAccount, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
	)
}
