package notification

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "notify:v1:"

const (
	// KindTransactionExecuted follows every successful ledger execution.
	KindTransactionExecuted = "transaction_executed"
	// KindSwapPending tells a responder a swap waits for their signature.
	KindSwapPending = "swap_pending"
)

// Message describes a notification payload.
type Message struct {
	Kind          string `json:"kind"`
	Origin        string `json:"origin"`
	Title         string `json:"title"`
	Body          string `json:"body"`
	TransactionID string `json:"transactionId,omitempty"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger.
type LoggerNotifier struct {
	logger *zap.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *zap.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		zap.String("kind", message.Kind),
		zap.String("origin", message.Origin),
		zap.String("title", message.Title),
		zap.String("transaction_id", message.TransactionID))
	return nil
}

// RedisNotifier publishes notifications on a per-origin channel the host
// subscribes to.
type RedisNotifier struct {
	cache *redis.Client
}

func NewRedisNotifier(cache *redis.Client) *RedisNotifier {
	return &RedisNotifier{cache: cache}
}

// Channel returns the pub/sub channel for origin.
func Channel(origin string) string {
	return channelPrefix + origin
}

func (n *RedisNotifier) Send(ctx context.Context, message Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return n.cache.Publish(ctx, Channel(message.Origin), payload).Err()
}

// Multi fans a message out to every notifier, returning the first error
// after all were tried.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, message Message) error {
	var first error
	for _, n := range m {
		if err := n.Send(ctx, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}
