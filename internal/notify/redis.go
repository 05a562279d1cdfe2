package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier publishes progress events on per-user pub/sub channels
// so other processes (chat frontends) can follow crawls they submitted.
type RedisNotifier struct {
	client *redis.Client
	log    *slog.Logger
}

// RedisOptions selects the Redis instance to publish on.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisNotifier connects to Redis and verifies the connection.
func NewRedisNotifier(ctx context.Context, opts RedisOptions, log *slog.Logger) (*RedisNotifier, error) {
	if log == nil {
		log = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisNotifier{client: client, log: log}, nil
}

// Channel returns the pub/sub channel for a user. Events without a user
// go to the shared channel.
func Channel(userID string) string {
	if userID == "" {
		return "crawl-events"
	}
	return "crawl-" + userID
}

func (n *RedisNotifier) Publish(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		n.log.Warn("failed to marshal progress event", "error", err)
		return
	}
	if err := n.client.Publish(ctx, Channel(ev.UserID), payload).Err(); err != nil {
		n.log.Warn("failed to publish progress event", "channel", Channel(ev.UserID), "error", err)
	}
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
