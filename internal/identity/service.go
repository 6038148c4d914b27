package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// OpeningBalance is credited to every new account.
var OpeningBalance = decimal.RequireFromString("1000.00")

var (
	// ErrInvalidCredentials hides whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRegistration wraps sign-up validation failures.
	ErrInvalidRegistration = errors.New("invalid registration")
)

// AccountOpener creates the money account backing a new user.
type AccountOpener interface {
	Open(ctx context.Context, code string, opening decimal.Decimal) error
}

// Service manages identity lifecycle.
type Service struct {
	repo     Repository
	accounts AccountOpener
}

// NewService creates a new identity service. accounts may be nil.
func NewService(repo Repository, accounts AccountOpener) *Service {
	return &Service{repo: repo, accounts: accounts}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a USER account with a hashed password and opening balance.
func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	return s.create(ctx, reg, RoleUser)
}

// SeedAdmin creates the administrator account unless the email is taken.
func (s *Service) SeedAdmin(ctx context.Context, email, password string) (User, error) {
	user, err := s.create(ctx, Registration{Name: "Administrator", Email: email, Password: password}, RoleAdmin)
	if errors.Is(err, ErrUserExists) {
		return s.repo.FindByEmail(ctx, NormalizeEmail(email))
	}
	return user, err
}

func (s *Service) create(ctx context.Context, reg Registration, role string) (User, error) {
	email := NormalizeEmail(reg.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, fmt.Errorf("%w: email address is invalid", ErrInvalidRegistration)
	}
	if len(reg.Password) < minPasswordLength {
		return User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidRegistration, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(reg.Name),
		Email:        email,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	if s.accounts != nil {
		if err := s.accounts.Open(ctx, user.Email, OpeningBalance); err != nil {
			return User{}, fmt.Errorf("open account: %w", err)
		}
	}

	return user, nil
}

// Authenticate verifies credentials.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(creds.Email))
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return user, nil
}

// Lookup returns the user registered under email.
func (s *Service) Lookup(ctx context.Context, email string) (User, error) {
	return s.repo.FindByEmail(ctx, NormalizeEmail(email))
}
