package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// StreamName is the Redis stream analytics events land on.
const StreamName = "curiocity:events"

// streamMaxLen bounds the stream; old events are trimmed approximately.
const streamMaxLen = 100_000

// RedisEmitter appends events to a Redis stream for the analytics
// pipeline to drain.
type RedisEmitter struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisEmitter connects to Redis and verifies the connection.
func NewRedisEmitter(ctx context.Context, redisURL string, logger *slog.Logger) (*RedisEmitter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisEmitter{client: client, logger: logger}, nil
}

// Emit appends the event. Errors are logged and swallowed: analytics must
// never fail a request.
func (e *RedisEmitter) Emit(ctx context.Context, event, distinctID string, props map[string]any) {
	payload, err := json.Marshal(props)
	if err != nil {
		e.logger.Warn("analytics props not serializable", "event", event, "error", err)
		payload = []byte("{}")
	}

	err = e.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamName,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"event":       event,
			"distinct_id": distinctID,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"properties":  string(payload),
		},
	}).Err()
	if err != nil {
		e.logger.Warn("analytics emit failed", "event", event, "error", err)
	}
}

// Close releases the Redis client.
func (e *RedisEmitter) Close() error {
	return e.client.Close()
}
