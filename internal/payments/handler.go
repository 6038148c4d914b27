package payments

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/fraudguard/internal/ledger"
	"github.com/congo-pay/fraudguard/internal/middleware"
	"github.com/congo-pay/fraudguard/internal/transaction"
)

// Handler exposes the transaction endpoint.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a transaction handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type transactionRequest struct {
	SenderEmail   string          `json:"senderEmail"`
	ReceiverEmail string          `json:"receiverEmail"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	Type          string          `json:"type"`
	Timestamp     string          `json:"timestamp"`
}

type transactionResponse struct {
	ID                   int64       `json:"id"`
	SenderEmail          string      `json:"senderEmail"`
	ReceiverEmail        string      `json:"receiverEmail"`
	Amount               json.Number `json:"amount"`
	Description          string      `json:"description,omitempty"`
	Type                 string      `json:"type"`
	Timestamp            string      `json:"timestamp"`
	FraudProbability     *float64    `json:"fraudProbability,omitempty"`
	IsFraudSuspected     bool        `json:"isFraudSuspected"`
	RequiresManualReview bool        `json:"requiresManualReview"`
	FraudDetectionError  string      `json:"fraudDetectionError,omitempty"`
}

// Create scores and posts a transaction for the authenticated caller.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req transactionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Invalid request body")
	}

	typ, err := transaction.ParseType(req.Type)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "Unsupported transaction type")
	}

	var ts time.Time
	if strings.TrimSpace(req.Timestamp) != "" {
		ts, err = time.Parse(time.RFC3339Nano, req.Timestamp)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "Invalid timestamp")
		}
	}

	subject, role := middleware.Identity(c)
	out, err := h.service.Submit(c.UserContext(), Input{
		RequesterEmail: subject,
		RequesterRole:  role,
		SenderEmail:    req.SenderEmail,
		ReceiverEmail:  req.ReceiverEmail,
		Amount:         req.Amount,
		Description:    strings.TrimSpace(req.Description),
		Type:           typ,
		Timestamp:      ts.UTC(),
		ClientTxID:     c.Get(middleware.IdempotencyKeyHeader),
	})
	if err != nil {
		return h.mapError(err)
	}

	return c.Status(http.StatusOK).JSON(transactionResponse{
		ID:                   out.ID,
		SenderEmail:          out.SenderEmail,
		ReceiverEmail:        out.ReceiverEmail,
		Amount:               json.Number(out.Amount.StringFixed(2)),
		Description:          out.Description,
		Type:                 string(out.Type),
		Timestamp:            out.Timestamp.Format(transaction.TimestampLayout),
		FraudProbability:     out.FraudProbability,
		IsFraudSuspected:     out.IsFraudSuspected,
		RequiresManualReview: out.RequiresManualReview,
		FraudDetectionError:  out.FraudDetectionError,
	})
}

func (h *Handler) mapError(err error) error {
	switch {
	case errors.Is(err, ErrSenderNotFound):
		return fiber.NewError(http.StatusBadRequest, "Sender not found")
	case errors.Is(err, ErrReceiverNotFound):
		return fiber.NewError(http.StatusBadRequest, "Receiver not found")
	case errors.Is(err, ErrSameParty):
		return fiber.NewError(http.StatusBadRequest, "Sender and receiver must differ")
	case errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, "Amount must be greater than zero")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "Insufficient balance")
	case errors.Is(err, ErrNotOwner):
		return fiber.NewError(http.StatusForbidden, "Sender does not match the signed-in user")
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return fiber.NewError(http.StatusConflict, "Duplicate transaction")
	case errors.Is(err, ErrBlocked):
		return fiber.NewError(http.StatusUnprocessableEntity, "Transaction blocked due to fraud detection")
	default:
		h.logger.Error("transaction failed", slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "Transaction failed")
	}
}
