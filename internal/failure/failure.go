// Package failure defines the error values returned across the session and
// transaction boundaries. Every error carries a display-safe message so
// callers can show it without interpreting the failure kind.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies where a failure originated.
type Kind string

const (
	// KindNetwork means the remote call did not complete.
	KindNetwork Kind = "network"
	// KindHTTP means the remote service answered with a non-success status.
	KindHTTP Kind = "http"
	// KindDecode means a token or response body could not be decoded.
	KindDecode Kind = "decode"
	// KindValidation means a local precondition was not met.
	KindValidation Kind = "validation"
	// KindStorage means the persisted token slot could not be written.
	KindStorage Kind = "storage"
)

// Sentinels usable with errors.Is to test the kind of an *Error.
var (
	ErrNetwork    = &Error{Kind: KindNetwork}
	ErrHTTP       = &Error{Kind: KindHTTP}
	ErrDecode     = &Error{Kind: KindDecode}
	ErrValidation = &Error{Kind: KindValidation}
	ErrStorage    = &Error{Kind: KindStorage}
)

// Error is a classified failure with a user-facing message.
type Error struct {
	Kind    Kind
	Status  int // HTTP status for KindHTTP, zero otherwise
	Message string
	Cause   error
}

// Error returns the display message.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return string(e.Kind) + " failure"
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates a failure with a kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a failure that wraps an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// HTTP creates a failure for a non-success response.
func HTTP(status int, message string) *Error {
	return &Error{
		Kind:    KindHTTP,
		Status:  status,
		Message: message,
		Cause:   fmt.Errorf("unexpected status %d", status),
	}
}

// KindOf returns the kind of err, or the empty Kind when err is not a failure.
func KindOf(err error) Kind {
	var f *Error
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// Message returns the text a front end should display for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var f *Error
	if errors.As(err, &f) {
		return f.Error()
	}
	return err.Error()
}
