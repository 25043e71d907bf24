package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/iot-notifier/internal/hub/dto"
	"github.com/cuongbtq/iot-notifier/internal/worker/domain"
)

// EnqueueJob handles POST /api/v1/jobs
// Publishes the job onto the notifier queue
func (h *JobHandler) EnqueueJob(c *gin.Context) {
	var req dto.EnqueueJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	job := domain.Job{
		JobType: req.JobType,
		Message: req.Message,
		File:    req.File,
	}

	body, err := json.Marshal(job)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to encode job",
		})
		return
	}

	if err := h.publisher.PublishWithRetry(c.Request.Context(), body, "application/json"); err != nil {
		h.logger.Error("Failed to enqueue job",
			slog.String("job_type", job.JobType),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Failed to enqueue job",
		})
		return
	}

	h.logger.Info("Job enqueued",
		slog.String("job_type", job.JobType),
		slog.Bool("has_file", job.HasArtifact()),
	)

	c.JSON(http.StatusAccepted, gin.H{
		"job_type": job.JobType,
		"status":   "queued",
	})
}
