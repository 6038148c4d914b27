// Package dashboard holds the front-end side of a transaction submission:
// the in-flight guard, the input form and the result rendering.
package dashboard

import (
	"errors"
	"sync/atomic"
)

// ErrBusy is returned when a call is already in flight.
var ErrBusy = errors.New("a request is already in progress")

// Gate admits one call at a time and rejects the rest.
type Gate struct {
	busy atomic.Bool
}

// Run calls fn unless another Run is outstanding.
func (g *Gate) Run(fn func() error) error {
	if !g.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer g.busy.Store(false)
	return fn()
}

// Busy reports whether a call is in flight.
func (g *Gate) Busy() bool {
	return g.busy.Load()
}
