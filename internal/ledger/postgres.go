package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresLedger persists balances and postings in PostgreSQL.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureSchema creates the ledger tables when missing.
func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	_, err := l.db.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS ledger_accounts (
            code       TEXT PRIMARY KEY,
            balance    NUMERIC(18,2) NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );
        CREATE TABLE IF NOT EXISTS ledger_transactions (
            id           BIGSERIAL PRIMARY KEY,
            kind         TEXT NOT NULL,
            client_tx_id TEXT NOT NULL,
            from_code    TEXT NOT NULL REFERENCES ledger_accounts(code),
            to_code      TEXT NOT NULL REFERENCES ledger_accounts(code),
            amount       NUMERIC(18,2) NOT NULL,
            created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
            UNIQUE (kind, client_tx_id)
        )`)
	if err != nil {
		return fmt.Errorf("create ledger tables: %w", err)
	}
	return nil
}

// Open inserts the account unless it already exists.
func (l *PostgresLedger) Open(ctx context.Context, code string, opening decimal.Decimal) error {
	_, err := l.db.Exec(ctx, `INSERT INTO ledger_accounts (code, balance) VALUES ($1, $2::numeric)
        ON CONFLICT (code) DO NOTHING`, code, opening.String())
	return err
}

// Balance returns the current balance for the account.
func (l *PostgresLedger) Balance(ctx context.Context, code string) (decimal.Decimal, error) {
	return balanceFor(ctx, l.db, code, false)
}

// Transfer moves amount between two accounts in one database transaction.
func (l *PostgresLedger) Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount decimal.Decimal) (TransactionResult, error) {
	if !amount.IsPositive() {
		return TransactionResult{}, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransactionResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	fromBalance, err := balanceFor(ctx, tx, fromCode, true)
	if err != nil {
		return TransactionResult{}, err
	}
	toBalance, err := balanceFor(ctx, tx, toCode, true)
	if err != nil {
		return TransactionResult{}, err
	}

	var existingID int64
	err = tx.QueryRow(ctx, `SELECT id FROM ledger_transactions WHERE kind = $1 AND client_tx_id = $2`, kind, clientTxID).Scan(&existingID)
	switch {
	case err == nil:
		return TransactionResult{TransactionID: existingID, FromBalance: fromBalance, ToBalance: toBalance}, ErrDuplicateTransaction
	case !errors.Is(err, pgx.ErrNoRows):
		return TransactionResult{}, err
	}

	if fromBalance.LessThan(amount) {
		return TransactionResult{}, ErrInsufficientFunds
	}

	var txID int64
	if err := tx.QueryRow(ctx, `INSERT INTO ledger_transactions (kind, client_tx_id, from_code, to_code, amount)
        VALUES ($1, $2, $3, $4, $5::numeric) RETURNING id`, kind, clientTxID, fromCode, toCode, amount.String()).Scan(&txID); err != nil {
		return TransactionResult{}, err
	}

	if fromCode != toCode {
		if _, err := tx.Exec(ctx, `UPDATE ledger_accounts SET balance = balance - $2::numeric WHERE code = $1`, fromCode, amount.String()); err != nil {
			return TransactionResult{}, err
		}
		if _, err := tx.Exec(ctx, `UPDATE ledger_accounts SET balance = balance + $2::numeric WHERE code = $1`, toCode, amount.String()); err != nil {
			return TransactionResult{}, err
		}
		fromBalance = fromBalance.Sub(amount)
		toBalance = toBalance.Add(amount)
	}

	if err := tx.Commit(ctx); err != nil {
		return TransactionResult{}, err
	}

	return TransactionResult{TransactionID: txID, FromBalance: fromBalance, ToBalance: toBalance}, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func balanceFor(ctx context.Context, q querier, code string, lock bool) (decimal.Decimal, error) {
	query := `SELECT balance::text FROM ledger_accounts WHERE code = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var raw string
	if err := q.QueryRow(ctx, query, code).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrAccountNotFound, code)
		}
		return decimal.Zero, err
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance for %s: %w", code, err)
	}
	return balance, nil
}
