package routes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/fraudguard/internal/apiclient"
	"github.com/congo-pay/fraudguard/internal/config"
	"github.com/congo-pay/fraudguard/internal/identity"
	"github.com/congo-pay/fraudguard/internal/ledger"
	"github.com/congo-pay/fraudguard/internal/middleware"
	"github.com/congo-pay/fraudguard/internal/notification"
	"github.com/congo-pay/fraudguard/internal/payments"
)

const notificationQueueLimit = 1000

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.ServerConfig
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Scorer overrides the scorer selected from Cfg.
	Scorer payments.Scorer
}

// Setup configures middlewares and all application routes.
func Setup(ctx context.Context, app *fiber.App, d Deps) error {
	if !config.IsDev(d.Cfg.AppEnv) && d.Cache == nil {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Tracing(d.Cfg.AppName))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	// Storage
	var (
		ledgerBackend ledger.Ledger
		identityRepo  identity.Repository
	)
	if d.DB != nil {
		pgLedger := ledger.NewPostgresLedger(d.DB)
		if err := pgLedger.EnsureSchema(ctx); err != nil {
			return err
		}
		pgUsers := identity.NewPostgresRepository(d.DB)
		if err := pgUsers.EnsureSchema(ctx); err != nil {
			return err
		}
		ledgerBackend, identityRepo = pgLedger, pgUsers
	} else {
		ledgerBackend = ledger.NewInMemory()
		identityRepo = identity.NewMemoryRepository()
	}

	// Services and handlers
	identitySvc := identity.NewService(identityRepo, ledgerBackend)
	if d.Cfg.AdminEmail != "" {
		admin, err := identitySvc.SeedAdmin(ctx, d.Cfg.AdminEmail, d.Cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		d.Logger.Info("admin account ready", slog.String("email", admin.Email))
	}
	tokens := identity.NewTokens(d.Cfg.JWTSecret, d.Cfg.TokenTTL)

	scorer, err := selectScorer(d)
	if err != nil {
		return err
	}
	var notifier notification.Notifier = notification.NewLoggerNotifier(d.Logger)
	if d.Cache != nil {
		notifier = notification.Multi{notifier, notification.NewQueueNotifier(d.Cache, notificationQueueLimit)}
	}
	paymentSvc := payments.NewService(identitySvc, ledgerBackend, scorer, notifier, d.Logger)

	identityHandler := identity.NewHandler(identitySvc, tokens, d.Logger)
	paymentHandler := payments.NewHandler(paymentSvc, d.Logger)

	// Public routes
	rateLimiter := middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit)
	RegisterAuthRoutes(app.Group("/api/auth"), identityHandler, rateLimiter)

	// Protected routes
	protected := app.Group("/api/v1", middleware.JWTAuth(tokens))
	var idem fiber.Handler
	if d.Cache != nil {
		idem = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}
	RegisterPaymentRoutes(protected, paymentHandler, idem)

	return nil
}

func selectScorer(d Deps) (payments.Scorer, error) {
	if d.Scorer != nil {
		return d.Scorer, nil
	}
	if d.Cfg.ScorerURL == "" {
		return payments.HeuristicScorer{}, nil
	}
	api, err := apiclient.New(d.Cfg.ScorerURL,
		apiclient.WithTimeout(scorerTimeout),
		apiclient.WithLogger(d.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("scorer client: %w", err)
	}
	return payments.NewRemoteScorer(api), nil
}
