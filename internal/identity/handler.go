package identity

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the sign-up and sign-in endpoints.
type Handler struct {
	service *Service
	tokens  *Tokens
	logger  *slog.Logger
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service, tokens *Tokens, logger *slog.Logger) *Handler {
	return &Handler{service: service, tokens: tokens, logger: logger}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Register handles account creation and returns a bearer token.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Invalid request body")
	}
	user, err := h.service.Register(c.UserContext(), Registration{Name: req.Name, Email: req.Email, Password: req.Password})
	switch {
	case errors.Is(err, ErrUserExists):
		return fiber.NewError(http.StatusBadRequest, "Email already in use")
	case errors.Is(err, ErrInvalidRegistration):
		return fiber.NewError(http.StatusBadRequest, registrationMessage(err))
	case err != nil:
		h.logger.Error("register failed", slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "Registration failed")
	}
	return h.respondWithToken(c, user)
}

// Login verifies credentials and returns a bearer token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Invalid request body")
	}
	user, err := h.service.Authenticate(c.UserContext(), Credentials{Email: req.Email, Password: req.Password})
	if errors.Is(err, ErrInvalidCredentials) {
		return fiber.NewError(http.StatusUnauthorized, "Invalid credentials")
	}
	if err != nil {
		h.logger.Error("login failed", slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "Login failed")
	}
	return h.respondWithToken(c, user)
}

func (h *Handler) respondWithToken(c *fiber.Ctx, user User) error {
	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error("issue token", slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "Unable to issue token")
	}
	return c.Status(http.StatusOK).JSON(tokenResponse{Token: token})
}

func registrationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), ErrInvalidRegistration.Error()+": ")
	if msg == "" {
		return "Registration failed"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
