package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cuongbtq/iot-notifier/internal/config"
	"github.com/cuongbtq/iot-notifier/internal/worker/domain"
)

// RedisPublisher publishes alerts on a Redis pub/sub channel named by the topic
type RedisPublisher struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisPublisher connects and pings the server. Commands are never retried.
func NewRedisPublisher(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   -1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis", slog.String("addr", cfg.Addr))

	return &RedisPublisher{client: client, logger: logger}, nil
}

// Name identifies the sink in logs and metrics
func (p *RedisPublisher) Name() string {
	return "redis"
}

// Publish sends the notification as JSON on channel n.Target
func (p *RedisPublisher) Publish(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	receivers, err := p.client.Publish(ctx, n.Target, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", n.Target, err)
	}

	p.logger.Debug("Published notification to Redis",
		slog.String("channel", n.Target),
		slog.String("subject", n.Subject),
		slog.Int64("receivers", receivers),
	)
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
