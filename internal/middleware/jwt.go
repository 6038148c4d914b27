package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/fraudguard/internal/identity"
)

const (
	localSubject = "subject"
	localRole    = "role"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(raw string) (identity.Claims, error)
}

// JWTAuth returns a middleware that validates bearer tokens and stores the
// caller identity in the request locals.
func JWTAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "Missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := verifier.Verify(tokenStr)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "Invalid token")
		}

		c.Locals(localSubject, claims.Subject)
		c.Locals(localRole, claims.Role)
		return c.Next()
	}
}

// Identity returns the subject and role stored by JWTAuth.
func Identity(c *fiber.Ctx) (subject, role string) {
	subject, _ = c.Locals(localSubject).(string)
	role, _ = c.Locals(localRole).(string)
	return subject, role
}
