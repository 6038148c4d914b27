package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Token store backends accepted by TOKEN_STORE.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

const defaultStoreFile = "session.db"

// Config captures client runtime configuration loaded from environment variables.
type Config struct {
	AppName        string        `env:"APP_NAME" envDefault:"FraudGuard"`
	AppEnv         string        `env:"APP_ENV" envDefault:"development"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"warn"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"text"`
	APIBaseURL     string        `env:"API_BASE_URL" envDefault:"http://localhost:8346"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	TokenStore     string        `env:"TOKEN_STORE" envDefault:"file"`
	TokenStorePath string        `env:"TOKEN_STORE_PATH"`
	TokenScope     string        `env:"TOKEN_SCOPE" envDefault:"default"`
	RedisURL       string        `env:"REDIS_URL"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	OTelEndpoint   string        `env:"OTEL_ENDPOINT"`
}

// ServerConfig captures configuration for the local mock API server.
type ServerConfig struct {
	AppName        string        `env:"APP_NAME" envDefault:"FraudGuard Mock API"`
	AppEnv         string        `env:"APP_ENV" envDefault:"development"`
	Port           string        `env:"PORT" envDefault:"8346"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"json"`
	JWTSecret      string        `env:"JWT_SECRET"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	ShutdownPeriod time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	RedisURL       string        `env:"REDIS_URL"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	ScorerURL      string        `env:"SCORER_URL"`
	LoginRateLimit int           `env:"LOGIN_RATE_LIMIT" envDefault:"5"`
	AdminEmail     string        `env:"ADMIN_EMAIL"`
	AdminPassword  string        `env:"ADMIN_PASSWORD"`
	OTelEndpoint   string        `env:"OTEL_ENDPOINT"`
}

// Load reads client configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.TokenStore = strings.ToLower(strings.TrimSpace(cfg.TokenStore))

	if _, err := url.ParseRequestURI(cfg.APIBaseURL); err != nil {
		return Config{}, fmt.Errorf("invalid API_BASE_URL: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		return Config{}, fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if strings.TrimSpace(cfg.TokenScope) == "" {
		return Config{}, fmt.Errorf("TOKEN_SCOPE must not be empty")
	}

	switch cfg.TokenStore {
	case StoreMemory:
	case StoreFile:
		if cfg.TokenStorePath == "" {
			path, err := defaultStorePath()
			if err != nil {
				return Config{}, err
			}
			cfg.TokenStorePath = path
		}
	case StoreRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when TOKEN_STORE=redis")
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when TOKEN_STORE=postgres")
		}
	default:
		return Config{}, fmt.Errorf("unsupported TOKEN_STORE %q", cfg.TokenStore)
	}

	return cfg, nil
}

// LoadServer reads mock API configuration from the environment and validates it.
func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if cfg.JWTSecret == "" {
		if !IsDev(cfg.AppEnv) {
			return ServerConfig{}, fmt.Errorf("JWT_SECRET must be set when APP_ENV=%s", cfg.AppEnv)
		}
		cfg.JWTSecret = "development-secret"
	}
	if cfg.TokenTTL <= 0 {
		return ServerConfig{}, fmt.Errorf("TOKEN_TTL must be positive")
	}
	if cfg.ScorerURL != "" {
		if _, err := url.ParseRequestURI(cfg.ScorerURL); err != nil {
			return ServerConfig{}, fmt.Errorf("invalid SCORER_URL: %w", err)
		}
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		return ServerConfig{}, fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c ServerConfig) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether env names a development environment.
func IsDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func defaultStorePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "fraudguard", defaultStoreFile), nil
}
