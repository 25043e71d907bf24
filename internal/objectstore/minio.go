package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/cuongbtq/iot-notifier/internal/config"
)

// MinioStore stores objects in a MinIO bucket
type MinioStore struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewMinioStore connects lazily; with EnsureBucket set it creates the bucket up front
func NewMinioStore(ctx context.Context, cfg config.StorageConfig, region string, logger *slog.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	store := &MinioStore{client: client, bucket: cfg.Bucket, logger: logger}

	if cfg.EnsureBucket {
		if err := store.ensureBucket(ctx, region); err != nil {
			return nil, err
		}
	}

	logger.Info("MinIO store configured",
		slog.String("bucket", cfg.Bucket),
		slog.String("endpoint", cfg.Endpoint),
	)

	return store, nil
}

func (s *MinioStore) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}

	s.logger.Info("Created bucket", slog.String("bucket", s.bucket))
	return nil
}

// Put uploads body under key
func (s *MinioStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	info, err := s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(body),
		int64(len(body)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return fmt.Errorf("failed to put object %s/%s: %w", s.bucket, key, err)
	}

	s.logger.Debug("Uploaded object to MinIO",
		slog.String("bucket", s.bucket),
		slog.String("key", key),
		slog.Int64("size", info.Size),
	)
	return nil
}

// PresignGet signs a GET for key that expires after ttl
func (s *MinioStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s/%s: %w", s.bucket, key, err)
	}
	return u.String(), nil
}
