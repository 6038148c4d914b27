// Package session owns the process-wide authentication state. Manager is the
// only writer of both the in-memory session and the persisted token slot;
// every other component reads a View snapshot.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/congo-pay/fraudguard/internal/apiclient"
	"github.com/congo-pay/fraudguard/internal/failure"
	"github.com/congo-pay/fraudguard/internal/logging"
	"github.com/congo-pay/fraudguard/internal/token"
	"github.com/congo-pay/fraudguard/internal/tokenstore"
)

// Display messages for failed session operations.
const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgRegistrationFailed = "Registration failed"
	MsgInvalidToken       = "Invalid token"
	MsgSaveFailed         = "Unable to save session"
)

// Gateway is the remote authentication service.
type Gateway interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, name, email, password string) (string, error)
}

// Decoder turns a credential token into identity claims.
type Decoder interface {
	Decode(raw string) (token.Claims, error)
}

// View is a read-only snapshot of the session.
type View struct {
	Identity            *token.Claims
	Token               string
	Authenticated       bool
	Admin               bool
	RestorationComplete bool
}

// Manager holds the session state machine.
type Manager struct {
	store   tokenstore.Store
	gateway Gateway
	codec   Decoder
	logger  *slog.Logger

	mu       sync.RWMutex
	token    string
	identity *token.Claims
	restored bool

	restoreOnce sync.Once
	ready       chan struct{}
}

// NewManager builds a manager in the initial, not yet restored, state.
func NewManager(store tokenstore.Store, gateway Gateway, codec Decoder, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		store:   store,
		gateway: gateway,
		codec:   codec,
		logger:  logger,
		ready:   make(chan struct{}),
	}
}

// Restore rebuilds the session from the persisted token. Only the first call
// has any effect. It never fails: a missing, unreadable or undecodable token
// leaves the session unauthenticated, and an undecodable one is discarded.
func (m *Manager) Restore(ctx context.Context) {
	m.restoreOnce.Do(func() {
		defer close(m.ready)
		m.restore(ctx)
	})
}

func (m *Manager) restore(ctx context.Context) {
	var (
		raw    string
		claims token.Claims
		ok     bool
	)
	defer func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if ok && m.token == "" {
			m.token = raw
			m.identity = &claims
		}
		m.restored = true
	}()

	raw, err := m.store.Get(ctx)
	if errors.Is(err, tokenstore.ErrNotFound) {
		m.logger.Debug("no persisted session")
		return
	}
	if err != nil {
		m.logger.Warn("read persisted session", slog.Any("error", err))
		return
	}

	claims, err = m.codec.Decode(raw)
	if err != nil {
		m.logger.Warn("discarding persisted session", slog.Any("error", err))
		if err := m.store.Clear(ctx); err != nil {
			m.logger.Warn("clear persisted session", slog.Any("error", err))
		}
		return
	}

	ok = true
	m.logger.Debug("session restored", slog.String("subject", claims.Subject))
}

// Ready is closed once restoration has completed.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// WaitReady blocks until restoration completes or ctx is done.
func (m *Manager) WaitReady(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View returns a snapshot of the session.
func (m *Manager) View() View {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v := View{
		Token:               m.token,
		Authenticated:       m.token != "",
		RestorationComplete: m.restored,
	}
	if m.identity != nil {
		id := *m.identity
		v.Identity = &id
		v.Admin = id.IsAdmin()
	}
	return v
}

// Token returns the current bearer token, or "" when unauthenticated.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Login authenticates with the remote service. The session and the persisted
// slot change only when the call succeeds and the token decodes.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	raw, err := m.gateway.Login(ctx, email, password)
	if err != nil {
		return m.gatewayFailure("login", err, func(*failure.Error) string {
			return MsgInvalidCredentials
		})
	}
	return m.establish(ctx, "login", raw)
}

// Register creates an account and signs in with the returned token. On a
// non-success status the server's body text is the message when present.
func (m *Manager) Register(ctx context.Context, name, email, password string) error {
	raw, err := m.gateway.Register(ctx, name, email, password)
	if err != nil {
		return m.gatewayFailure("register", err, func(f *failure.Error) string {
			if f.Message != "" {
				return f.Message
			}
			return MsgRegistrationFailed
		})
	}
	return m.establish(ctx, "register", raw)
}

// Logout clears the persisted token and the session. It always succeeds; a
// store failure is logged.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("clear persisted session", slog.Any("error", err))
	}

	m.mu.Lock()
	m.token = ""
	m.identity = nil
	m.mu.Unlock()

	m.logger.Debug("session cleared")
}

func (m *Manager) establish(ctx context.Context, op, raw string) error {
	claims, err := m.codec.Decode(raw)
	if err != nil {
		m.logger.Warn(op+" returned undecodable token", slog.Any("error", err))
		return failure.Wrap(failure.KindDecode, MsgInvalidToken, err)
	}

	if err := m.store.Set(ctx, raw); err != nil {
		m.logger.Error(op+" could not persist token", slog.Any("error", err))
		return failure.Wrap(failure.KindStorage, MsgSaveFailed, err)
	}

	m.mu.Lock()
	m.token = raw
	m.identity = &claims
	m.mu.Unlock()

	m.logger.Info(op+" succeeded", slog.String("subject", claims.Subject), slog.String("role", claims.Role))
	return nil
}

func (m *Manager) gatewayFailure(op string, err error, message func(*failure.Error) string) error {
	var f *failure.Error
	if !errors.As(err, &f) {
		f = failure.Wrap(failure.KindNetwork, apiclient.MsgUnreachable, err)
	}
	if f.Kind == failure.KindHTTP {
		f = &failure.Error{Kind: failure.KindHTTP, Status: f.Status, Message: message(f), Cause: f}
	}
	m.logger.Warn(op+" failed", slog.String("kind", string(f.Kind)), slog.Int("status", f.Status))
	return f
}
