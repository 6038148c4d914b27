package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/fraudguard/internal/config"
	"github.com/congo-pay/fraudguard/internal/logging"
	"github.com/congo-pay/fraudguard/internal/middleware"
	"github.com/congo-pay/fraudguard/internal/notification"
	"github.com/congo-pay/fraudguard/internal/payments"
)

func testConfig() config.ServerConfig {
	return config.ServerConfig{
		AppName:        "test",
		AppEnv:         "test",
		JWTSecret:      "test-secret",
		TokenTTL:       time.Hour,
		IdempotencyTTL: time.Hour,
		LoginRateLimit: 100,
		AdminEmail:     "admin@example.com",
		AdminPassword:  "admin-secret",
	}
}

func newApp(t *testing.T, cache *redis.Client) *fiber.App {
	t.Helper()
	app := fiber.New()
	err := Setup(context.Background(), app, Deps{
		Cfg:    testConfig(),
		Cache:  cache,
		Logger: logging.Discard(),
		Scorer: payments.HeuristicScorer{},
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	return app
}

func newCache(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func do(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(raw)
}

func tokenFrom(t *testing.T, body string) string {
	t.Helper()
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil || out.Token == "" {
		t.Fatalf("expected token in %q: %v", body, err)
	}
	return out.Token
}

func TestAuthRoutes(t *testing.T) {
	app := newApp(t, nil)

	status, body := do(t, app, http.MethodPost, "/api/auth/register",
		`{"name":"Alice","email":"alice@example.com","password":"secret1"}`, nil)
	if status != http.StatusOK {
		t.Fatalf("register: %d %s", status, body)
	}
	tokenFrom(t, body)

	status, body = do(t, app, http.MethodPost, "/api/auth/register",
		`{"name":"Alice","email":"alice@example.com","password":"secret1"}`, nil)
	if status != http.StatusBadRequest || body != "Email already in use" {
		t.Fatalf("duplicate register: %d %q", status, body)
	}

	status, body = do(t, app, http.MethodPost, "/api/auth/login",
		`{"email":"alice@example.com","password":"wrong"}`, nil)
	if status != http.StatusUnauthorized || body != "Invalid credentials" {
		t.Fatalf("bad login: %d %q", status, body)
	}

	status, body = do(t, app, http.MethodPost, "/api/auth/login",
		`{"email":"admin@example.com","password":"admin-secret"}`, nil)
	if status != http.StatusOK {
		t.Fatalf("admin login: %d %s", status, body)
	}
	tokenFrom(t, body)
}

func TestTransactionRoute(t *testing.T) {
	cache := newCache(t)
	app := newApp(t, cache)

	_, body := do(t, app, http.MethodPost, "/api/auth/register",
		`{"name":"Alice","email":"alice@example.com","password":"secret1"}`, nil)
	token := tokenFrom(t, body)
	do(t, app, http.MethodPost, "/api/auth/register",
		`{"name":"Bob","email":"bob@example.com","password":"secret1"}`, nil)

	payload := `{"senderEmail":"alice@example.com","receiverEmail":"bob@example.com","amount":100.00,"type":"TRANSFER","timestamp":"2024-05-01T12:00:00.000Z"}`

	status, body := do(t, app, http.MethodPost, "/api/v1/transaction", payload, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d %s", status, body)
	}

	headers := map[string]string{
		fiber.HeaderAuthorization:       "Bearer " + token,
		middleware.IdempotencyKeyHeader: "key-1",
	}
	status, body = do(t, app, http.MethodPost, "/api/v1/transaction", payload, headers)
	if status != http.StatusOK {
		t.Fatalf("transaction: %d %s", status, body)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["amount"] != 100.0 || out["timestamp"] != "2024-05-01T12:00:00.000Z" || out["fraudProbability"] != 0.32 {
		t.Fatalf("unexpected body %s", body)
	}

	status, replay := do(t, app, http.MethodPost, "/api/v1/transaction", payload, headers)
	if status != http.StatusOK || replay != body {
		t.Fatalf("expected cached replay, got %d %s", status, replay)
	}

	queued, err := notification.NewQueueNotifier(cache, 0).Pending(context.Background(), "bob@example.com", 10)
	if err != nil || len(queued) != 1 || queued[0].Kind != notification.KindTransferReceived {
		t.Fatalf("expected one queued receipt for bob, got %+v (%v)", queued, err)
	}

	headers[middleware.IdempotencyKeyHeader] = "key-2"
	status, body = do(t, app, http.MethodPost, "/api/v1/transaction",
		`{"senderEmail":"bob@example.com","receiverEmail":"alice@example.com","amount":1}`, headers)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign sender, got %d %s", status, body)
	}
}

func TestHealthz(t *testing.T) {
	app := newApp(t, newCache(t))

	status, body := do(t, app, http.MethodGet, "/healthz", "", nil)
	if status != http.StatusOK {
		t.Fatalf("healthz: %d %s", status, body)
	}
	if !strings.Contains(body, `"redis":"ok"`) || !strings.Contains(body, `"postgres":"disabled"`) {
		t.Fatalf("unexpected health body %s", body)
	}
}

func TestSetupRequiresRedisOutsideDev(t *testing.T) {
	cfg := testConfig()
	cfg.AppEnv = "production"
	err := Setup(context.Background(), fiber.New(), Deps{Cfg: cfg, Logger: logging.Discard()})
	if err == nil {
		t.Fatal("expected error without redis in production")
	}
}
