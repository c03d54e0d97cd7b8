// Package relayprogram builds instructions for the on-chain fee relay program,
// which holds per-user relay accounts and performs sponsored swaps and SOL
// transfers on their behalf.
package relayprogram

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/p2p-wallet/fee-relayer-go/pkg/solana"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/system"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/token"
)

// ProgramKey is the mainnet deployment of the relay program.
//
// Current key: 12YKFL4mnZz6CBEGePrf293mEzueQM3h8VLPUJsKpGs9
var ProgramKey = solana.MustPublicKeyFromBase58("12YKFL4mnZz6CBEGePrf293mEzueQM3h8VLPUJsKpGs9")

type Command byte

const (
	CommandTopUpWithSPLSwapDirect Command = iota
	CommandTopUpWithSPLSwapTransitive
	CommandTransferSOL
	CommandCreateTransitTokenAccount
	CommandSPLSwapTransitive
)

// GetUserRelayAddress derives the relay account that holds a user's deposited
// SOL within the relay program.
func GetUserRelayAddress(program, owner ed25519.PublicKey) (ed25519.PublicKey, error) {
	return solana.FindProgramAddress(program, owner, []byte("relay"))
}

// GetUserTemporaryWSOLAddress derives the account the relay program uses to
// hold wrapped SOL for the duration of a top up swap.
func GetUserTemporaryWSOLAddress(program, owner ed25519.PublicKey) (ed25519.PublicKey, error) {
	return solana.FindProgramAddress(program, owner, []byte("temporary_wsol"))
}

// GetTransitTokenAccountAddress derives the intermediate token account used by
// transitive swaps.
func GetTransitTokenAccountAddress(program, owner, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	return solana.FindProgramAddress(program, owner, mint, []byte("transit"))
}

// SwapAccounts identifies one token swap pool leg.
type SwapAccounts struct {
	Program           ed25519.PublicKey
	Account           ed25519.PublicKey
	Authority         ed25519.PublicKey
	TransferAuthority ed25519.PublicKey
	Source            ed25519.PublicKey
	Destination       ed25519.PublicKey
	PoolTokenMint     ed25519.PublicKey
	PoolFeeAccount    ed25519.PublicKey
}

// TopUpWithSPLSwapDirect builds the instruction that swaps a user's SPL token
// into SOL through a single pool and deposits the proceeds into the user's
// relay account.
func TopUpWithSPLSwapDirect(
	program, feePayer, userAuthority, userRelayAccount ed25519.PublicKey,
	userSourceTokenAccount, userTemporaryWSOLAccount ed25519.PublicKey,
	swap SwapAccounts,
	amountIn, minimumAmountOut uint64,
) solana.Instruction {
	// # Account references
	//   0.  [WRITE, SIGNER] Fee payer
	//   1.  [SIGNER] User authority
	//   2.  [WRITE] User relay account
	//   3.  [] Token program
	//   4.  [] Swap program
	//   5.  [] Swap account
	//   6.  [] Swap authority
	//   7.  [SIGNER] Transfer authority
	//   8.  [WRITE] User source token account
	//   9.  [WRITE] User temporary wrapped SOL account
	//   10. [WRITE] Pool source token account
	//   11. [WRITE] Pool destination token account
	//   12. [WRITE] Pool token mint
	//   13. [WRITE] Pool fee account
	//   14. [] Rent sysvar
	//   15. [] System program
	data := make([]byte, 1+2*8)
	data[0] = byte(CommandTopUpWithSPLSwapDirect)
	binary.LittleEndian.PutUint64(data[1:], amountIn)
	binary.LittleEndian.PutUint64(data[1+8:], minimumAmountOut)

	return solana.NewInstruction(
		program,
		data,
		solana.NewAccountMeta(feePayer, true),
		solana.NewReadonlyAccountMeta(userAuthority, true),
		solana.NewAccountMeta(userRelayAccount, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
		solana.NewReadonlyAccountMeta(swap.Program, false),
		solana.NewReadonlyAccountMeta(swap.Account, false),
		solana.NewReadonlyAccountMeta(swap.Authority, false),
		solana.NewReadonlyAccountMeta(swap.TransferAuthority, true),
		solana.NewAccountMeta(userSourceTokenAccount, false),
		solana.NewAccountMeta(userTemporaryWSOLAccount, false),
		solana.NewAccountMeta(swap.Source, false),
		solana.NewAccountMeta(swap.Destination, false),
		solana.NewAccountMeta(swap.PoolTokenMint, false),
		solana.NewAccountMeta(swap.PoolFeeAccount, false),
		solana.NewReadonlyAccountMeta(system.RentSysVar, false),
		solana.NewReadonlyAccountMeta(system.SystemAccount, false),
	)
}

// TopUpWithSPLSwapTransitive builds the instruction that swaps a user's SPL
// token into SOL through two pools, bridged by a transit token account, and
// deposits the proceeds into the user's relay account.
func TopUpWithSPLSwapTransitive(
	program, feePayer, userAuthority, userRelayAccount ed25519.PublicKey,
	userSourceTokenAccount, userTemporaryWSOLAccount, transitTokenAccount ed25519.PublicKey,
	from, to SwapAccounts,
	amountIn, transitMinimumAmount, minimumAmountOut uint64,
) solana.Instruction {
	// # Account references
	//   0.  [WRITE, SIGNER] Fee payer
	//   1.  [SIGNER] User authority
	//   2.  [WRITE] User relay account
	//   3.  [] Token program
	//   4.  [SIGNER] Transfer authority
	//   5.  [WRITE] User source token account
	//   6.  [WRITE] Transit token account
	//   7.  [WRITE] User temporary wrapped SOL account
	//   8..14.  First swap leg (program, account, authority, source, destination, pool mint, fee account)
	//   15..21. Second swap leg
	//   22. [] Rent sysvar
	//   23. [] System program
	data := make([]byte, 1+3*8)
	data[0] = byte(CommandTopUpWithSPLSwapTransitive)
	binary.LittleEndian.PutUint64(data[1:], amountIn)
	binary.LittleEndian.PutUint64(data[1+8:], transitMinimumAmount)
	binary.LittleEndian.PutUint64(data[1+2*8:], minimumAmountOut)

	accounts := []solana.AccountMeta{
		solana.NewAccountMeta(feePayer, true),
		solana.NewReadonlyAccountMeta(userAuthority, true),
		solana.NewAccountMeta(userRelayAccount, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
		solana.NewReadonlyAccountMeta(from.TransferAuthority, true),
		solana.NewAccountMeta(userSourceTokenAccount, false),
		solana.NewAccountMeta(transitTokenAccount, false),
		solana.NewAccountMeta(userTemporaryWSOLAccount, false),
	}
	accounts = append(accounts, swapLegMetas(from)...)
	accounts = append(accounts, swapLegMetas(to)...)
	accounts = append(accounts,
		solana.NewReadonlyAccountMeta(system.RentSysVar, false),
		solana.NewReadonlyAccountMeta(system.SystemAccount, false),
	)

	return solana.NewInstruction(program, data, accounts...)
}

// TransferSOL builds the instruction that moves SOL out of the user's relay
// account, signed by the user's authority.
func TransferSOL(program, userAuthority, userRelayAccount, recipient ed25519.PublicKey, lamports uint64) solana.Instruction {
	// # Account references
	//   0. [SIGNER] User authority
	//   1. [WRITE] User relay account
	//   2. [WRITE] Recipient
	//   3. [] System program
	data := make([]byte, 1+8)
	data[0] = byte(CommandTransferSOL)
	binary.LittleEndian.PutUint64(data[1:], lamports)

	return solana.NewInstruction(
		program,
		data,
		solana.NewReadonlyAccountMeta(userAuthority, true),
		solana.NewAccountMeta(userRelayAccount, false),
		solana.NewAccountMeta(recipient, false),
		solana.NewReadonlyAccountMeta(system.SystemAccount, false),
	)
}

// CreateTransitTokenAccount builds the instruction that initializes the
// program-derived transit token account used to bridge a transitive swap.
func CreateTransitTokenAccount(program, feePayer, userAuthority, transitTokenAccount, transitTokenMint ed25519.PublicKey) solana.Instruction {
	// # Account references
	//   0. [WRITE] Transit token account
	//   1. [] Transit token mint
	//   2. [WRITE, SIGNER] User authority
	//   3. [SIGNER] Fee payer
	//   4. [] Token program
	//   5. [] Rent sysvar
	//   6. [] System program
	return solana.NewInstruction(
		program,
		[]byte{byte(CommandCreateTransitTokenAccount)},
		solana.NewAccountMeta(transitTokenAccount, false),
		solana.NewReadonlyAccountMeta(transitTokenMint, false),
		solana.NewAccountMeta(userAuthority, true),
		solana.NewReadonlyAccountMeta(feePayer, true),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
		solana.NewReadonlyAccountMeta(system.RentSysVar, false),
		solana.NewReadonlyAccountMeta(system.SystemAccount, false),
	)
}

// SPLSwapTransitive builds the single combined instruction that performs a
// two-pool swap through the transit token account.
func SPLSwapTransitive(
	program, feePayer, userAuthority ed25519.PublicKey,
	userSource, transitTokenAccount, userDestination ed25519.PublicKey,
	from, to SwapAccounts,
	amountIn, transitMinimumAmount, minimumAmountOut uint64,
) solana.Instruction {
	// # Account references
	//   0. [WRITE, SIGNER] Fee payer
	//   1. [SIGNER] User authority
	//   2. [SIGNER] Transfer authority
	//   3. [WRITE] User source token account
	//   4. [WRITE] Transit token account
	//   5. [WRITE] User destination token account
	//   6..12.  First swap leg (program, account, authority, source, destination, pool mint, fee account)
	//   13..19. Second swap leg
	//   20. [] Token program
	data := make([]byte, 1+3*8)
	data[0] = byte(CommandSPLSwapTransitive)
	binary.LittleEndian.PutUint64(data[1:], amountIn)
	binary.LittleEndian.PutUint64(data[1+8:], transitMinimumAmount)
	binary.LittleEndian.PutUint64(data[1+2*8:], minimumAmountOut)

	accounts := []solana.AccountMeta{
		solana.NewAccountMeta(feePayer, true),
		solana.NewReadonlyAccountMeta(userAuthority, true),
		solana.NewReadonlyAccountMeta(from.TransferAuthority, true),
		solana.NewAccountMeta(userSource, false),
		solana.NewAccountMeta(transitTokenAccount, false),
		solana.NewAccountMeta(userDestination, false),
	}
	accounts = append(accounts, swapLegMetas(from)...)
	accounts = append(accounts, swapLegMetas(to)...)
	accounts = append(accounts, solana.NewReadonlyAccountMeta(token.ProgramKey, false))

	return solana.NewInstruction(program, data, accounts...)
}

func swapLegMetas(leg SwapAccounts) []solana.AccountMeta {
	return []solana.AccountMeta{
		solana.NewReadonlyAccountMeta(leg.Program, false),
		solana.NewReadonlyAccountMeta(leg.Account, false),
		solana.NewReadonlyAccountMeta(leg.Authority, false),
		solana.NewAccountMeta(leg.Source, false),
		solana.NewAccountMeta(leg.Destination, false),
		solana.NewAccountMeta(leg.PoolTokenMint, false),
		solana.NewAccountMeta(leg.PoolFeeAccount, false),
	}
}
