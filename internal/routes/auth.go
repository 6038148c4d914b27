package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/fraudguard/internal/identity"
)

// RegisterAuthRoutes wires authentication endpoints.
func RegisterAuthRoutes(r fiber.Router, h *identity.Handler, rateLimiter fiber.Handler) {
	if rateLimiter != nil {
		r.Post("/login", rateLimiter, h.Login)
	} else {
		r.Post("/login", h.Login)
	}
	r.Post("/register", h.Register)
}
