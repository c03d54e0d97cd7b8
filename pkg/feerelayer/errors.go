package feerelayer

import "github.com/pkg/errors"

var (
	// ErrUnauthorized indicates the owner key is missing or cannot sign.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRelayInfoMissing indicates Load has not been called or has not
	// completed, so network constants are unknown.
	ErrRelayInfoMissing = errors.New("relay info missing")

	// ErrSwapPoolsNotFound indicates no tradable route exists between the
	// paying token and SOL.
	ErrSwapPoolsNotFound = errors.New("swap pools not found")

	// ErrFeePayingTokenMissing indicates a top up is required but no paying
	// token was provided.
	ErrFeePayingTokenMissing = errors.New("fee paying token missing")

	// ErrWrongAddress indicates a user token account that must not be used,
	// e.g. the fee payer's own associated token account.
	ErrWrongAddress = errors.New("wrong address")

	// ErrInvalidFeePayer indicates a prepared transaction whose fee payer is
	// not the relayer's fee payer account.
	ErrInvalidFeePayer = errors.New("invalid fee payer")
)
