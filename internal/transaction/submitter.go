package transaction

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/fraudguard/internal/apiclient"
	"github.com/congo-pay/fraudguard/internal/failure"
	"github.com/congo-pay/fraudguard/internal/logging"
	"github.com/congo-pay/fraudguard/internal/risk"
)

const submitPath = "/api/v1/transaction"

const (
	MsgAuthRequired = "Authentication required. Please log in."
	MsgFailed       = "Transaction failed"
)

// Result is the scored transaction returned by the remote service.
type Result struct {
	ID                   int64
	SenderEmail          string
	ReceiverEmail        string
	Amount               decimal.Decimal
	Description          string
	Type                 Type
	Timestamp            time.Time
	FraudProbability     *float64
	IsFraudSuspected     bool
	RequiresManualReview bool
	FraudDetectionError  string
	// Risk is set only when FraudProbability is present.
	Risk risk.Level
}

// HasRisk reports whether the service returned a probability to classify.
func (r Result) HasRisk() bool {
	return r.FraudProbability != nil
}

type wireResult struct {
	ID                   int64           `json:"id"`
	SenderEmail          string          `json:"senderEmail"`
	ReceiverEmail        string          `json:"receiverEmail"`
	Amount               decimal.Decimal `json:"amount"`
	Description          string          `json:"description"`
	Type                 Type            `json:"type"`
	FraudProbability     *float64        `json:"fraudProbability"`
	IsFraudSuspected     bool            `json:"isFraudSuspected"`
	RequiresManualReview bool            `json:"requiresManualReview"`
	FraudDetectionError  string          `json:"fraudDetectionError"`
}

// Caller is the transport used to reach the scoring endpoint.
type Caller interface {
	Do(ctx context.Context, call apiclient.Call, out any) error
}

// Submitter sends transactions for scoring.
type Submitter struct {
	api    Caller
	now    func() time.Time
	newKey func() string
	logger *slog.Logger
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Submitter) { s.now = now }
}

// WithLogger sets the submitter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Submitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSubmitter builds a submitter on top of api.
func NewSubmitter(api Caller, opts ...Option) *Submitter {
	s := &Submitter{
		api:    api,
		now:    time.Now,
		newKey: uuid.NewString,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates fields, posts them with bearer token and returns the
// scored result. Without a token nothing is sent.
func (s *Submitter) Submit(ctx context.Context, fields Fields, token string) (Result, error) {
	if token == "" {
		return Result{}, failure.New(failure.KindValidation, MsgAuthRequired)
	}

	req, err := BuildRequest(fields, s.now())
	if err != nil {
		return Result{}, err
	}

	key := s.newKey()
	var resp wireResult
	err = s.api.Do(ctx, apiclient.Call{
		Method:         http.MethodPost,
		Path:           submitPath,
		Body:           req.wire(),
		BearerToken:    token,
		IdempotencyKey: key,
	}, &resp)
	if err != nil {
		return Result{}, s.callFailure(err)
	}

	result := Result{
		ID:                   resp.ID,
		SenderEmail:          orDefault(resp.SenderEmail, req.SenderEmail),
		ReceiverEmail:        orDefault(resp.ReceiverEmail, req.ReceiverEmail),
		Amount:               resp.Amount,
		Description:          orDefault(resp.Description, req.Description),
		Type:                 Type(orDefault(string(resp.Type), string(req.Type))),
		Timestamp:            req.Timestamp,
		FraudProbability:     resp.FraudProbability,
		IsFraudSuspected:     resp.IsFraudSuspected,
		RequiresManualReview: resp.RequiresManualReview,
		FraudDetectionError:  resp.FraudDetectionError,
	}
	if result.Amount.IsZero() {
		result.Amount = req.Amount
	}
	if result.FraudProbability != nil {
		result.Risk = risk.Classify(*result.FraudProbability)
	}

	s.logger.Info("transaction scored",
		slog.Int64("id", result.ID),
		slog.String("type", string(result.Type)),
		slog.Bool("fraud_suspected", result.IsFraudSuspected),
		slog.Bool("manual_review", result.RequiresManualReview),
		slog.String("idempotency_key", key),
	)
	return result, nil
}

func (s *Submitter) callFailure(err error) error {
	var f *failure.Error
	if !errors.As(err, &f) {
		return failure.Wrap(failure.KindNetwork, apiclient.MsgUnreachable, err)
	}
	if f.Kind == failure.KindHTTP {
		msg := f.Message
		if msg == "" {
			msg = MsgFailed
		}
		s.logger.Warn("transaction rejected", slog.Int("status", f.Status))
		return &failure.Error{Kind: failure.KindHTTP, Status: f.Status, Message: msg, Cause: f}
	}
	s.logger.Warn("transaction call failed", slog.String("kind", string(f.Kind)))
	return f
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
