package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuongbtq/iot-notifier/internal/hub/dto"
	"github.com/cuongbtq/iot-notifier/internal/hub/model"
	"github.com/cuongbtq/iot-notifier/internal/hub/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func toDTO(n model.Notification) dto.NotificationDTO {
	return dto.NotificationDTO{
		NotificationID: n.NotificationID,
		Subject:        n.Subject,
		Message:        n.Message,
		ARN:            n.ARN,
		CreatedAt:      n.CreatedAt.Format(time.RFC3339),
	}
}

// ReceiveNotification handles POST /notification
func (h *NotificationHandler) ReceiveNotification(c *gin.Context) {
	var req dto.ReceiveNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid notification body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	n := model.Notification{
		NotificationID: uuid.New().String(),
		Subject:        req.Subject,
		Message:        req.Message,
		ARN:            req.ARN,
		CreatedAt:      time.Now().UTC(),
	}

	if err := h.store.CreateNotification(c.Request.Context(), &n); err != nil {
		h.logger.Error("Failed to store notification", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store notification",
		})
		return
	}

	h.logger.Info("Notification received",
		slog.String("notification_id", n.NotificationID),
		slog.String("subject", n.Subject),
	)

	c.JSON(http.StatusCreated, toDTO(n))
}

// GetNotification handles GET /api/v1/notifications/:notification_id
func (h *NotificationHandler) GetNotification(c *gin.Context) {
	id := c.Param("notification_id")

	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "notification_id must be a valid UUID",
		})
		return
	}

	n, err := h.store.GetNotificationByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotificationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Notification not found",
			})
			return
		}
		h.logger.Error("Failed to get notification", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get notification",
		})
		return
	}

	c.JSON(http.StatusOK, toDTO(*n))
}

// ListNotifications handles GET /api/v1/notifications, newest first
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	var req dto.ListNotificationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	cursor, err := DecodeNotificationCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	notifications, err := h.store.ListNotifications(c.Request.Context(), storage.NotificationFilter{
		Subject:  req.Subject,
		PageSize: req.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list notifications", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list notifications",
		})
		return
	}

	hasMore := len(notifications) > req.PageSize
	if hasMore {
		notifications = notifications[:req.PageSize]
	}

	resp := dto.ListNotificationsResponse{
		Notifications: make([]dto.NotificationDTO, len(notifications)),
	}
	for i, n := range notifications {
		resp.Notifications[i] = toDTO(n)
	}

	if hasMore {
		last := notifications[len(notifications)-1]
		resp.NextCursor = EncodeNotificationCursor(&storage.NotificationCursor{
			CreatedAt:      last.CreatedAt,
			NotificationID: last.NotificationID,
		})
	}

	c.JSON(http.StatusOK, resp)
}
