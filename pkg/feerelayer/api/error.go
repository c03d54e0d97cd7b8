package api

import (
	"fmt"
	"strings"
)

// Relayer error codes.
const (
	ErrCodeClientError = 6
)

// Simulation log lines the relayer surfaces for known on-chain failures.
const (
	logInstructionBudgetExceeded = "exceeded maximum number of instructions allowed"
	logInsufficientFunds         = "Error: insufficient funds"
	logInvalidAccountData        = "invalid account data for instruction"
)

// Error is the structured error body returned by the relayer.
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// ErrorData carries the simulation log dump for on-chain failures.
type ErrorData struct {
	ClientError []string `json:"ClientError,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("fee relayer error (code %d): %s", e.Code, e.Message)
}

func (e *Error) logs() string {
	if e.Data == nil {
		return ""
	}
	return strings.Join(e.Data.ClientError, "\n")
}

// IsInstructionBudgetExceeded reports whether the relayer rejected a
// transaction because simulation blew the per-transaction instruction budget.
// The error code alone is not specific enough, so the log dump must carry the
// budget line as well.
func (e *Error) IsInstructionBudgetExceeded() bool {
	return e.Code == ErrCodeClientError && strings.Contains(e.logs(), logInstructionBudgetExceeded)
}

// IsInsufficientFunds reports whether the simulation failed because an account
// lacked the lamports or tokens the transaction moves.
func (e *Error) IsInsufficientFunds() bool {
	return e.Code == ErrCodeClientError && strings.Contains(e.logs(), logInsufficientFunds)
}

// IsInvalidAccountData reports whether an instruction was fed an account whose
// data it could not parse, e.g. the second leg of a transitive swap reading a
// transit account that was never initialized.
func (e *Error) IsInvalidAccountData() bool {
	return e.Code == ErrCodeClientError && strings.Contains(e.logs(), logInvalidAccountData)
}
