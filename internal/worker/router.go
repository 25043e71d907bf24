package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cuongbtq/iot-notifier/internal/telemetry"
	"github.com/cuongbtq/iot-notifier/internal/worker/domain"
)

// Router classifies a job and drives it through upload and notification
type Router struct {
	uploader   *Uploader
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewRouter creates a router
func NewRouter(uploader *Uploader, dispatcher *Dispatcher, logger *slog.Logger) *Router {
	return &Router{
		uploader:   uploader,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Route handles one decoded job. Heartbeats are dropped before validation.
func (r *Router) Route(ctx context.Context, job domain.Job) domain.Result {
	logger := r.logger.With(
		slog.String("job_type", job.JobType),
		slog.Bool("has_file", job.HasArtifact()),
	)
	enter(logger, domain.StageReceived)

	if job.IsHeartbeat() {
		logger.Debug("Heartbeat job ignored")
		telemetry.JobsTotal.WithLabelValues(telemetry.OutcomeIgnored).Inc()
		return domain.Result{Stage: domain.StageIgnored}
	}

	if err := job.Validate(); err != nil {
		logger.Error("Malformed job dropped",
			slog.String("message", job.Message),
			slog.Any("error", err),
		)
		telemetry.JobsTotal.WithLabelValues(telemetry.OutcomeMalformed).Inc()
		return domain.Result{Stage: domain.StageMalformed}
	}
	enter(logger, domain.StageClassified)

	var (
		reference string
		outcome   *domain.UploadOutcome
	)

	if job.HasArtifact() {
		enter(logger, domain.StageUploading)
		uploaded := r.uploader.Upload(ctx, job)
		outcome = &uploaded

		if errors.Is(uploaded.Err, domain.ErrArtifactUnavailable) {
			logger.Warn("Artifact unavailable, notification suppressed",
				slog.String("file", job.File),
			)
			telemetry.JobsTotal.WithLabelValues(telemetry.OutcomeSuppressed).Inc()
			return domain.Result{Stage: domain.StageSuppressed, Upload: outcome}
		}
		reference = uploaded.Reference
	}

	enter(logger, domain.StageNotifying)
	report := r.dispatcher.Dispatch(ctx, job, reference)
	if err := report.Err(); err != nil {
		logger.Warn("Job notified with delivery errors", slog.Any("error", err))
	} else {
		logger.Info("Job notified")
	}

	telemetry.JobsTotal.WithLabelValues(telemetry.OutcomeNotified).Inc()
	return domain.Result{Stage: domain.StageDone, Dispatched: true, Upload: outcome}
}

func enter(logger *slog.Logger, stage domain.Stage) {
	logger.Debug("Job stage", slog.String("stage", string(stage)))
}
