package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/cuongbtq/iot-notifier/internal/telemetry"
	"github.com/cuongbtq/iot-notifier/internal/worker/domain"
)

// ObjectStore is the bucket the evidence goes to
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Uploader copies a job's evidence file into the object store and signs a
// time-limited reference to it
type Uploader struct {
	store  ObjectStore
	ttl    time.Duration
	logger *slog.Logger
}

// NewUploader creates an uploader. A non-positive ttl falls back to 24h.
func NewUploader(store ObjectStore, ttl time.Duration, logger *slog.Logger) *Uploader {
	if ttl <= 0 {
		ttl = domain.DefaultPresignTTL
	}
	return &Uploader{
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// ObjectKey is <job_type>/<basename of file>
func ObjectKey(job domain.Job) string {
	return path.Join(job.JobType, filepath.Base(job.File))
}

// Upload stores job.File and returns the outcome. An artifact that cannot be
// opened is reported with ErrArtifactUnavailable; every other failure still
// lets the caller notify without a reference.
func (u *Uploader) Upload(ctx context.Context, job domain.Job) domain.UploadOutcome {
	f, err := os.Open(job.File)
	if err != nil {
		u.logger.Error("Failed to open artifact",
			slog.String("file", job.File),
			slog.Any("error", err),
		)
		telemetry.UploadsTotal.WithLabelValues(telemetry.ResultError).Inc()
		return domain.UploadFailed(fmt.Errorf("%w: %v", domain.ErrArtifactUnavailable, err))
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		u.logger.Error("Failed to read artifact",
			slog.String("file", job.File),
			slog.Any("error", err),
		)
		telemetry.UploadsTotal.WithLabelValues(telemetry.ResultError).Inc()
		return domain.UploadFailed(fmt.Errorf("%w: %v", domain.ErrArtifactRead, err))
	}

	key := ObjectKey(job)
	contentType := mimetype.Detect(body).String()

	if err := u.store.Put(ctx, key, body, contentType); err != nil {
		u.logger.Error("Failed to upload artifact",
			slog.String("key", key),
			slog.Any("error", err),
		)
		telemetry.UploadsTotal.WithLabelValues(telemetry.ResultError).Inc()
		return domain.UploadFailed(fmt.Errorf("%w: %v", domain.ErrUpload, err))
	}

	u.logger.Info("Artifact uploaded",
		slog.String("key", key),
		slog.String("content_type", contentType),
		slog.Int("size", len(body)),
	)

	ref, err := u.store.PresignGet(ctx, key, u.ttl)
	if err != nil {
		u.logger.Error("Failed to sign artifact reference",
			slog.String("key", key),
			slog.Any("error", err),
		)
		telemetry.UploadsTotal.WithLabelValues(telemetry.ResultUnsigned).Inc()
		return domain.UploadUnsigned(fmt.Errorf("%w: %v", domain.ErrPresign, err))
	}

	telemetry.UploadsTotal.WithLabelValues(telemetry.ResultOK).Inc()
	return domain.UploadOK(ref)
}
