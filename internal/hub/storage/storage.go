package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/iot-notifier/internal/hub/model"
)

// ErrNotificationNotFound is returned when no row matches the id
var ErrNotificationNotFound = errors.New("notification not found")

// Schema is the DDL for the notifications table, applied in order at startup
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS notifications (
		notification_id UUID PRIMARY KEY,
		subject         TEXT NOT NULL,
		message         TEXT NOT NULL,
		arn             TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_created_at
		ON notifications (created_at DESC, notification_id DESC)`,
}

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		db: db,
	}
}

func (s *Storage) CreateNotification(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (
			notification_id, subject, message, arn, created_at
		) VALUES (
			:notification_id, :subject, :message, :arn, :created_at
		)
	`

	if _, err := s.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

func (s *Storage) GetNotificationByID(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	query := `
		SELECT notification_id, subject, message, arn, created_at
		FROM notifications
		WHERE notification_id = $1
	`

	err := s.db.GetContext(ctx, &n, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return &n, nil
}

type NotificationFilter struct {
	Subject  string
	PageSize int
	Cursor   *NotificationCursor
}

type NotificationCursor struct {
	CreatedAt      time.Time
	NotificationID string
}

// buildListQuery fetches PageSize+1 rows so the caller can tell whether
// another page exists
func buildListQuery(filter NotificationFilter) (string, []interface{}) {
	query := `
        SELECT notification_id, subject, message, arn, created_at
        FROM notifications
        WHERE 1=1
    `
	args := []interface{}{}
	argIdx := 1

	if filter.Subject != "" {
		query += fmt.Sprintf(" AND subject = $%d", argIdx)
		args = append(args, filter.Subject)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, notification_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.NotificationID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, notification_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	return query, args
}

func (s *Storage) ListNotifications(ctx context.Context, filter NotificationFilter) ([]model.Notification, error) {
	query, args := buildListQuery(filter)

	var notifications []model.Notification
	if err := s.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}
