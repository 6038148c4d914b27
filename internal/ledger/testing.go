package ledger

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that overwrites the balance for an account when using the in-memory ledger.
func SeedBalance(l Ledger, code string, amount decimal.Decimal) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[code] = amount
	}
}
