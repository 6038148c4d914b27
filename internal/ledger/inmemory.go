package ledger

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

type inMemoryLedger struct {
	mu           sync.RWMutex
	balances     map[string]decimal.Decimal
	transactions map[string]TransactionResult
	nextID       int64
}

// NewInMemory creates a concurrency-safe in-memory ledger.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		balances:     make(map[string]decimal.Decimal),
		transactions: make(map[string]TransactionResult),
	}
}

func (l *inMemoryLedger) Open(_ context.Context, code string, opening decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[code]; !exists {
		l.balances[code] = opening
	}
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, code string) (decimal.Decimal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	balance, exists := l.balances[code]
	if !exists {
		return decimal.Zero, ErrAccountNotFound
	}
	return balance, nil
}

func (l *inMemoryLedger) Transfer(_ context.Context, fromCode, toCode, kind, clientTxID string, amount decimal.Decimal) (TransactionResult, error) {
	if !amount.IsPositive() {
		return TransactionResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := kind + ":" + clientTxID
	if res, exists := l.transactions[key]; exists {
		return res, ErrDuplicateTransaction
	}

	fromBalance, ok := l.balances[fromCode]
	if !ok {
		return TransactionResult{}, ErrAccountNotFound
	}
	toBalance, ok := l.balances[toCode]
	if !ok {
		return TransactionResult{}, ErrAccountNotFound
	}

	if fromBalance.LessThan(amount) {
		return TransactionResult{}, ErrInsufficientFunds
	}

	if fromCode != toCode {
		fromBalance = fromBalance.Sub(amount)
		toBalance = toBalance.Add(amount)
		l.balances[fromCode] = fromBalance
		l.balances[toCode] = toBalance
	}

	l.nextID++
	res := TransactionResult{
		TransactionID: l.nextID,
		FromBalance:   fromBalance,
		ToBalance:     toBalance,
	}
	l.transactions[key] = res
	return res, nil
}
