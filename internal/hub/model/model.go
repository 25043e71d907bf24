package model

import "time"

// Notification is one alert received on the hub callback
type Notification struct {
	NotificationID string    `db:"notification_id"`
	Subject        string    `db:"subject"`
	Message        string    `db:"message"`
	ARN            string    `db:"arn"`
	CreatedAt      time.Time `db:"created_at"`
}
