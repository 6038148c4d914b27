package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the role claim value that grants administrative views.
const RoleAdmin = "ADMIN"

var (
	// ErrMalformed is returned for tokens that cannot be parsed into claims.
	ErrMalformed = errors.New("malformed token")
	// ErrExpired is returned when the token carries an exp claim in the past.
	ErrExpired = errors.New("token expired")
)

// Claims is the identity carried by a credential token.
type Claims struct {
	Subject string
	Role    string
}

// IsAdmin reports whether the claims carry the administrative role.
func (c Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

type identityClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Codec decodes credential tokens offline. Signatures are not verified; the
// issuing service stays the authority on validity.
type Codec struct {
	parser *jwt.Parser
	now    func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec builds a token codec.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		parser: jwt.NewParser(jwt.WithoutClaimsValidation()),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decode extracts identity claims from raw. It never panics; any failure is
// reported as an error wrapping ErrMalformed or ErrExpired.
func (c *Codec) Decode(raw string) (claims Claims, err error) {
	defer func() {
		if r := recover(); r != nil {
			claims, err = Claims{}, fmt.Errorf("%w: %v", ErrMalformed, r)
		}
	}()

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, fmt.Errorf("%w: empty token", ErrMalformed)
	}

	var parsed identityClaims
	if _, _, err := c.parser.ParseUnverified(raw, &parsed); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrMalformed)
	}
	if parsed.ExpiresAt != nil && !c.now().Before(parsed.ExpiresAt.Time) {
		return Claims{}, ErrExpired
	}

	return Claims{Subject: parsed.Subject, Role: parsed.Role}, nil
}
