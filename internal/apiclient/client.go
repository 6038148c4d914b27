package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/congo-pay/fraudguard/internal/failure"
	"github.com/congo-pay/fraudguard/internal/logging"
)

const (
	HeaderRequestID      = "X-Request-ID"
	HeaderIdempotencyKey = "Idempotency-Key"

	// DefaultTimeout bounds a remote call when no timeout option is given.
	DefaultTimeout = 15 * time.Second

	maxBodyBytes = 1 << 20
)

// Messages shown when a call never produced a response.
const (
	MsgUnreachable = "Unable to reach the server. Please try again."
	MsgTimeout     = "The server took too long to respond. Please try again."
	MsgBadResponse = "Unexpected response from server"
)

// Client performs JSON request/response calls against the remote services.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is kept
// unless WithTimeout is also applied afterwards.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			clone := *hc
			c.http = &clone
		}
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger used for per-call diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  logging.Discard(),
		tracer:  otel.Tracer("github.com/congo-pay/fraudguard/internal/apiclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Call describes one request to a remote endpoint.
type Call struct {
	Method         string
	Path           string
	Body           any
	BearerToken    string
	IdempotencyKey string
}

// NewRequest builds the HTTP request for call without sending it.
func (c *Client) NewRequest(ctx context.Context, call Call) (*http.Request, error) {
	method := call.Method
	if method == "" {
		method = http.MethodGet
	}

	endpoint := c.baseURL.JoinPath(call.Path)

	var body io.Reader
	if call.Body != nil {
		payload, err := json.Marshal(call.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if call.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if call.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+call.BearerToken)
	}
	if call.IdempotencyKey != "" {
		req.Header.Set(HeaderIdempotencyKey, call.IdempotencyKey)
	}
	req.Header.Set(HeaderRequestID, uuid.NewString())

	return req, nil
}

// Do sends call and decodes a 2xx JSON body into out (when non-nil).
// Every returned error is a *failure.Error: network when no response
// arrived, http for non-2xx (Message holds the trimmed body text), and
// decode when a success body could not be parsed.
func (c *Client) Do(ctx context.Context, call Call, out any) error {
	ctx, span := c.tracer.Start(ctx, call.Method+" "+call.Path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req, err := c.NewRequest(ctx, call)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return failure.Wrap(failure.KindValidation, "Unable to prepare the request", err)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	requestID := req.Header.Get(HeaderRequestID)
	span.SetAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.path", req.URL.Path),
		attribute.String("request.id", requestID),
	)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		c.logger.Warn("api call failed",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.String("request_id", requestID),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err),
		)
		if isTimeout(err) {
			return failure.Wrap(failure.KindNetwork, MsgTimeout, err)
		}
		return failure.Wrap(failure.KindNetwork, MsgUnreachable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		return failure.Wrap(failure.KindNetwork, MsgUnreachable, err)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.logger.Debug("api call completed",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		return failure.HTTP(resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode body")
		return failure.Wrap(failure.KindDecode, MsgBadResponse, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
