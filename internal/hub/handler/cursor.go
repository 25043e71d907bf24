package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/cuongbtq/iot-notifier/internal/hub/storage"
)

// DecodeNotificationCursor parses a page cursor; an empty string means the first page
func DecodeNotificationCursor(cursorStr string) (*storage.NotificationCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(string(decoded), "|")
	if len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var createdAt int64
	if _, err := fmt.Sscanf(parts[0], "%d", &createdAt); err != nil {
		return nil, fmt.Errorf("invalid createdAt in cursor: %w", err)
	}

	return &storage.NotificationCursor{
		CreatedAt:      time.Unix(0, createdAt).UTC(),
		NotificationID: parts[1],
	}, nil
}

func EncodeNotificationCursor(cursor *storage.NotificationCursor) string {
	cs := fmt.Sprintf("%d|%s", cursor.CreatedAt.UnixNano(), cursor.NotificationID)
	return base64.RawURLEncoding.EncodeToString([]byte(cs))
}
