package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// KindFraudReview indicates a transaction queued for manual fraud review.
	KindFraudReview = "fraud_review"
	// KindTransferReceived tells a receiver that funds arrived.
	KindTransferReceived = "transfer_received"
)

const queuePrefix = "fraudguard:notifications:"

// Message describes a notification payload.
type Message struct {
	Kind        string    `json:"kind"`
	Destination string    `json:"destination"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send implements Notifier.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		slog.String("kind", message.Kind),
		slog.String("destination", message.Destination),
		slog.String("body", message.Body),
	)
	return nil
}

// QueueNotifier appends notifications to a Redis list per destination, so a
// reviewer can drain the fraud-review queue with LRANGE or BRPOP.
type QueueNotifier struct {
	cache *redis.Client
	limit int64
}

// NewQueueNotifier builds a queue notifier keeping at most limit entries per
// destination. A limit of zero keeps everything.
func NewQueueNotifier(cache *redis.Client, limit int64) *QueueNotifier {
	return &QueueNotifier{cache: cache, limit: limit}
}

// QueueKey is the Redis list holding notifications for destination.
func QueueKey(destination string) string {
	return queuePrefix + destination
}

// Send implements Notifier.
func (n *QueueNotifier) Send(ctx context.Context, message Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	key := QueueKey(message.Destination)
	pipe := n.cache.TxPipeline()
	pipe.LPush(ctx, key, payload)
	if n.limit > 0 {
		pipe.LTrim(ctx, key, 0, n.limit-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// Pending returns up to count queued notifications for destination, newest first.
func (n *QueueNotifier) Pending(ctx context.Context, destination string, count int64) ([]Message, error) {
	raw, err := n.cache.LRange(ctx, QueueKey(destination), 0, count-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read notifications: %w", err)
	}
	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var m Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// Multi delivers each message to every notifier and joins their errors.
type Multi []Notifier

// Send implements Notifier.
func (m Multi) Send(ctx context.Context, message Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
