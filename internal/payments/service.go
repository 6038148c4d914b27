package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/fraudguard/internal/identity"
	"github.com/congo-pay/fraudguard/internal/ledger"
	"github.com/congo-pay/fraudguard/internal/logging"
	"github.com/congo-pay/fraudguard/internal/notification"
	"github.com/congo-pay/fraudguard/internal/transaction"
)

// Decision thresholds on the fraud probability.
const (
	FraudThreshold  = 0.8
	BlockThreshold  = 0.9
	ReviewThreshold = 0.7
)

// ReviewQueue is the notification destination for flagged transactions.
const ReviewQueue = "fraud-review"

const msgScorerUnavailable = "Fraud detection service is not available"

var (
	ErrSenderNotFound   = errors.New("sender not found")
	ErrReceiverNotFound = errors.New("receiver not found")
	ErrSameParty        = errors.New("sender and receiver must differ")
	// ErrNotOwner indicates the caller may not spend from the sender account.
	ErrNotOwner = errors.New("not owner of sender account")
	// ErrBlocked is returned when the scorer is confident enough to refuse.
	ErrBlocked = errors.New("transaction blocked due to fraud detection")
)

// Users resolves account holders by email.
type Users interface {
	Lookup(ctx context.Context, email string) (identity.User, error)
}

// Service scores and posts transactions.
type Service struct {
	users    Users
	ledger   ledger.Ledger
	scorer   Scorer
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a transaction service. notifier may be nil.
func NewService(users Users, ledger ledger.Ledger, scorer Scorer, notifier notification.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{users: users, ledger: ledger, scorer: scorer, notifier: notifier, logger: logger}
}

// Input is a transaction submitted by an authenticated caller.
type Input struct {
	RequesterEmail string
	RequesterRole  string
	SenderEmail    string
	ReceiverEmail  string
	Amount         decimal.Decimal
	Description    string
	Type           transaction.Type
	Timestamp      time.Time
	ClientTxID     string
}

// Outcome is the scored, posted transaction.
type Outcome struct {
	ID                   int64
	SenderEmail          string
	ReceiverEmail        string
	Amount               decimal.Decimal
	Description          string
	Type                 transaction.Type
	Timestamp            time.Time
	FraudProbability     *float64
	IsFraudSuspected     bool
	RequiresManualReview bool
	FraudDetectionError  string
}

// Submit validates the parties and balance, scores the transfer, then posts
// it unless it is blocked.
func (s *Service) Submit(ctx context.Context, in Input) (Outcome, error) {
	amount := in.Amount.RoundBank(2)
	if !amount.IsPositive() {
		return Outcome{}, ledger.ErrInvalidAmount
	}
	if in.Type == "" {
		in.Type = transaction.TypeTransfer
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}
	if in.ClientTxID == "" {
		in.ClientTxID = uuid.NewString()
	}

	sender, err := s.lookup(ctx, in.SenderEmail, ErrSenderNotFound)
	if err != nil {
		return Outcome{}, err
	}
	receiver, err := s.lookup(ctx, in.ReceiverEmail, ErrReceiverNotFound)
	if err != nil {
		return Outcome{}, err
	}
	if sender.Email == receiver.Email {
		return Outcome{}, ErrSameParty
	}
	if in.RequesterRole != identity.RoleAdmin && identity.NormalizeEmail(in.RequesterEmail) != sender.Email {
		return Outcome{}, ErrNotOwner
	}

	oldOrig, err := s.ledger.Balance(ctx, sender.Email)
	if err != nil {
		return Outcome{}, err
	}
	oldDest, err := s.ledger.Balance(ctx, receiver.Email)
	if err != nil {
		return Outcome{}, err
	}
	if oldOrig.LessThan(amount) {
		return Outcome{}, ledger.ErrInsufficientFunds
	}

	features := Features{
		Type:           in.Type,
		Amount:         amount,
		OldBalanceOrig: oldOrig,
		NewBalanceOrig: oldOrig.Sub(amount),
		OldBalanceDest: oldDest,
		NewBalanceDest: oldDest.Add(amount),
	}

	out := Outcome{
		SenderEmail:   sender.Email,
		ReceiverEmail: receiver.Email,
		Amount:        amount,
		Description:   in.Description,
		Type:          in.Type,
		Timestamp:     in.Timestamp,
	}

	prediction, err := s.scorer.Score(ctx, features)
	if err != nil {
		s.logger.Warn("fraud scoring failed", slog.Any("error", err))
		out.FraudDetectionError = scoringMessage(err)
	} else {
		p := prediction.Probability
		out.FraudProbability = &p
		out.IsFraudSuspected = prediction.IsFraud
		out.RequiresManualReview = prediction.IsFraud || p > ReviewThreshold

		s.logger.Info("fraud detection result",
			slog.Bool("is_fraud", prediction.IsFraud),
			slog.Float64("probability", p),
			slog.String("confidence", prediction.Confidence),
			slog.Float64("frac_sent", features.FracSent()),
			slog.Float64("frac_received", features.FracReceived()),
		)

		if prediction.IsFraud && p > BlockThreshold {
			s.notify(ctx, notification.KindFraudReview, ReviewQueue,
				fmt.Sprintf("blocked %s %s from %s to %s (p=%.4f)", in.Type, amount.StringFixed(2), sender.Email, receiver.Email, p))
			return Outcome{}, ErrBlocked
		}
	}

	res, err := s.ledger.Transfer(ctx, sender.Email, receiver.Email, string(in.Type), in.ClientTxID, amount)
	if err != nil {
		return Outcome{}, err
	}
	out.ID = res.TransactionID

	if out.RequiresManualReview {
		s.notify(ctx, notification.KindFraudReview, ReviewQueue,
			fmt.Sprintf("transaction %d requires manual review (p=%.4f)", out.ID, *out.FraudProbability))
	}
	s.notify(ctx, notification.KindTransferReceived, receiver.Email,
		fmt.Sprintf("You received %s from %s", amount.StringFixed(2), sender.Email))

	return out, nil
}

func (s *Service) lookup(ctx context.Context, email string, notFound error) (identity.User, error) {
	user, err := s.users.Lookup(ctx, email)
	if errors.Is(err, identity.ErrUserNotFound) {
		return identity.User{}, notFound
	}
	return user, err
}

func (s *Service) notify(ctx context.Context, kind, destination, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, notification.Message{Kind: kind, Destination: destination, Body: body}); err != nil {
		s.logger.Warn("notification failed", slog.String("kind", kind), slog.Any("error", err))
	}
}

func scoringMessage(err error) string {
	var se *ScoringError
	if errors.As(err, &se) {
		return "Error during fraud detection: " + se.Message
	}
	return msgScorerUnavailable
}
