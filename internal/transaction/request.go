// Package transaction builds transaction requests and submits them to the
// remote scoring endpoint.
package transaction

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/fraudguard/internal/failure"
)

// Type is the kind of money movement being scored.
type Type string

const (
	TypeTransfer Type = "TRANSFER"
	TypePayment  Type = "PAYMENT"
	TypeDebit    Type = "DEBIT"
	TypeCashOut  Type = "CASH_OUT"
	TypeCashIn   Type = "CASH_IN"
)

// Types lists every accepted transaction type.
var Types = []Type{TypeTransfer, TypePayment, TypeDebit, TypeCashOut, TypeCashIn}

// ParseType resolves s case-insensitively. An empty value means TRANSFER.
func ParseType(s string) (Type, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return TypeTransfer, nil
	}
	s = strings.ReplaceAll(s, "-", "_")
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// TimestampLayout is the wire format of request timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Fields is the raw user input for one submission.
type Fields struct {
	SenderEmail   string
	ReceiverEmail string
	Amount        string
	Description   string
	Type          string
}

// Request is a validated transaction ready to send.
type Request struct {
	SenderEmail   string
	ReceiverEmail string
	Amount        decimal.Decimal
	Description   string
	Type          Type
	Timestamp     time.Time
}

// BuildRequest validates fields and stamps them with now. It performs no I/O.
func BuildRequest(fields Fields, now time.Time) (Request, error) {
	sender := strings.TrimSpace(fields.SenderEmail)
	receiver := strings.TrimSpace(fields.ReceiverEmail)
	if sender == "" {
		return Request{}, failure.New(failure.KindValidation, "Sender email is required")
	}
	if receiver == "" {
		return Request{}, failure.New(failure.KindValidation, "Receiver email is required")
	}

	amount, err := ParseAmount(fields.Amount)
	if err != nil {
		return Request{}, err
	}

	typ, err := ParseType(fields.Type)
	if err != nil {
		return Request{}, failure.Wrap(failure.KindValidation, "Unsupported transaction type", err)
	}

	return Request{
		SenderEmail:   sender,
		ReceiverEmail: receiver,
		Amount:        amount,
		Description:   strings.TrimSpace(fields.Description),
		Type:          typ,
		Timestamp:     now.UTC().Truncate(time.Millisecond),
	}, nil
}

// ParseAmount parses a decimal amount, rounds it half-to-even to cents and
// requires the result to be positive.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, failure.New(failure.KindValidation, "Amount is required")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, failure.Wrap(failure.KindValidation, "Amount must be a number", err)
	}
	amount = amount.RoundBank(2)
	if !amount.IsPositive() {
		return decimal.Zero, failure.New(failure.KindValidation, "Amount must be greater than zero")
	}
	return amount, nil
}

type wireRequest struct {
	SenderEmail   string      `json:"senderEmail"`
	ReceiverEmail string      `json:"receiverEmail"`
	Amount        json.Number `json:"amount"`
	Description   string      `json:"description,omitempty"`
	Type          Type        `json:"type"`
	Timestamp     string      `json:"timestamp"`
}

func (r Request) wire() wireRequest {
	return wireRequest{
		SenderEmail:   r.SenderEmail,
		ReceiverEmail: r.ReceiverEmail,
		Amount:        json.Number(r.Amount.StringFixed(2)),
		Description:   r.Description,
		Type:          r.Type,
		Timestamp:     r.Timestamp.Format(TimestampLayout),
	}
}
