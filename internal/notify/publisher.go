// Package notify delivers alerts to the pub/sub topic and the hub.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/iot-notifier/internal/config"
	"github.com/cuongbtq/iot-notifier/internal/worker/domain"
)

// Publisher sends a notification to the alert topic
type Publisher interface {
	Publish(ctx context.Context, n domain.Notification) error
	Name() string
}

// NewPublisher builds the publisher selected by cfg.Backend
func NewPublisher(ctx context.Context, cfg config.PubSubConfig, region string, logger *slog.Logger) (Publisher, error) {
	switch cfg.Backend {
	case config.PubSubBackendSNS, "":
		return NewSNSPublisher(ctx, cfg, region, logger)
	case config.PubSubBackendRedis:
		return NewRedisPublisher(ctx, cfg.Redis, logger)
	default:
		return nil, fmt.Errorf("unsupported pubsub backend: %q", cfg.Backend)
	}
}
