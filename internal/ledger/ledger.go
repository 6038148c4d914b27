package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds occurs when the source account lacks available balance
	// to cover a requested posting.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransaction indicates the provided client transaction identifier
	// already exists and therefore the operation should be treated as idempotent.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrAccountNotFound is returned when a posting names an unknown account.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidAmount is returned for zero or negative postings.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// TransactionResult captures the outcome of a ledger posting.
type TransactionResult struct {
	TransactionID int64
	FromBalance   decimal.Decimal
	ToBalance     decimal.Decimal
}

// Ledger defines the contract implemented by ledger backends.
type Ledger interface {
	// Open creates the account with an opening balance. Opening an existing
	// account leaves its balance untouched.
	Open(ctx context.Context, code string, opening decimal.Decimal) error
	Balance(ctx context.Context, code string) (decimal.Decimal, error)
	Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount decimal.Decimal) (TransactionResult, error)
}
