package dashboard

import (
	"context"
	"sync"

	"github.com/congo-pay/fraudguard/internal/failure"
	"github.com/congo-pay/fraudguard/internal/transaction"
)

// Submitter sends a transaction for scoring.
type Submitter interface {
	Submit(ctx context.Context, fields transaction.Fields, token string) (transaction.Result, error)
}

// TokenSource yields the current bearer token.
type TokenSource interface {
	Token() string
}

// Form is the transaction entry form. Fields are cleared after a success
// that was not flagged for fraud, so a flagged submission can be reviewed
// and resent.
type Form struct {
	submitter Submitter
	session   TokenSource
	gate      *Gate

	mu      sync.Mutex
	fields  transaction.Fields
	lastErr string
	result  *transaction.Result
}

// NewForm builds an empty form.
func NewForm(submitter Submitter, session TokenSource, gate *Gate) *Form {
	if gate == nil {
		gate = &Gate{}
	}
	return &Form{
		submitter: submitter,
		session:   session,
		gate:      gate,
		fields:    blankFields(),
	}
}

func blankFields() transaction.Fields {
	return transaction.Fields{Type: string(transaction.TypeTransfer)}
}

// Fields returns the current input.
func (f *Form) Fields() transaction.Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

// SetFields replaces the current input.
func (f *Form) SetFields(fields transaction.Fields) {
	f.mu.Lock()
	f.fields = fields
	f.mu.Unlock()
}

// LastError is the message of the most recent failed submission.
func (f *Form) LastError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Result is the most recent successful result, if it has not been dismissed.
func (f *Form) Result() (transaction.Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.result == nil {
		return transaction.Result{}, false
	}
	return *f.result, true
}

// Dismiss drops the displayed result.
func (f *Form) Dismiss() {
	f.mu.Lock()
	f.result = nil
	f.mu.Unlock()
}

// Submit sends the current fields with the session token. A second Submit
// while one is outstanding returns ErrBusy without touching the form.
func (f *Form) Submit(ctx context.Context) (transaction.Result, error) {
	var result transaction.Result
	err := f.gate.Run(func() error {
		f.mu.Lock()
		fields := f.fields
		f.lastErr = ""
		f.mu.Unlock()

		r, err := f.submitter.Submit(ctx, fields, f.session.Token())

		f.mu.Lock()
		defer f.mu.Unlock()
		if err != nil {
			f.lastErr = failure.Message(err)
			return err
		}
		result = r
		f.result = &r
		if !r.IsFraudSuspected {
			f.fields = blankFields()
		}
		return nil
	})
	return result, err
}
