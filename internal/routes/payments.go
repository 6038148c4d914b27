package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/fraudguard/internal/payments"
)

const scorerTimeout = 5 * time.Second

// RegisterPaymentRoutes wires the transaction endpoint. idempotency may be nil.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler, idempotency fiber.Handler) {
	if idempotency != nil {
		r.Post("/transaction", idempotency, h.Create)
		return
	}
	r.Post("/transaction", h.Create)
}
