// Package objectstore persists evidence artifacts and signs time-limited
// retrieval links for them.
package objectstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/iot-notifier/internal/config"
)

// Store puts objects into a single bucket and presigns GET links for them
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// New builds the store selected by cfg.Backend
func New(ctx context.Context, cfg config.StorageConfig, region string, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case config.StorageBackendS3, "":
		return NewS3Store(ctx, cfg, region, logger)
	case config.StorageBackendMinio:
		return NewMinioStore(ctx, cfg, region, logger)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %q", cfg.Backend)
	}
}
