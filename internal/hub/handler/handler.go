package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/iot-notifier/internal/hub/model"
	"github.com/cuongbtq/iot-notifier/internal/hub/storage"
)

// NotificationStore persists received notifications
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	GetNotificationByID(ctx context.Context, id string) (*model.Notification, error)
	ListNotifications(ctx context.Context, filter storage.NotificationFilter) ([]model.Notification, error)
}

// JobPublisher puts a job on the notifier queue
type JobPublisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger    *slog.Logger
	Store     NotificationStore
	Publisher JobPublisher
	Health    HealthChecker
}

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	logger *slog.Logger
	store  NotificationStore
}

// NewNotificationHandler creates a new NotificationHandler instance
func NewNotificationHandler(deps *Dependencies) *NotificationHandler {
	return &NotificationHandler{
		logger: deps.Logger,
		store:  deps.Store,
	}
}

// JobHandler accepts jobs for the notifier
type JobHandler struct {
	logger    *slog.Logger
	publisher JobPublisher
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:    deps.Logger,
		publisher: deps.Publisher,
	}
}
