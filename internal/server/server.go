package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/fraudguard/internal/config"
	"github.com/congo-pay/fraudguard/internal/payments"
	"github.com/congo-pay/fraudguard/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app   *fiber.App
	cfg   config.ServerConfig
	db    *pgxpool.Pool
	cache *redis.Client
}

// Option adjusts route wiring.
type Option func(*routes.Deps)

// WithScorer replaces the fraud scorer selected from configuration.
func WithScorer(s payments.Scorer) Option {
	return func(d *routes.Deps) { d.Scorer = s }
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
// db and cache are optional; in-memory storage is used without them.
func New(ctx context.Context, cfg config.ServerConfig, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger, opts ...Option) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		DisableStartupMessage: true,
	})

	deps := routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger}
	for _, opt := range opts {
		opt(&deps)
	}
	if err := routes.Setup(ctx, app, deps); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, db: db, cache: cache}, nil
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// Transport returns a RoundTripper that serves requests in-process, without
// opening a listener.
func (s *Server) Transport() http.RoundTripper {
	return roundTripper{app: s.app}
}

type roundTripper struct {
	app *fiber.App
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := rt.app.Test(req, -1)
	if err != nil {
		return nil, err
	}
	resp.Request = req
	return resp, nil
}
