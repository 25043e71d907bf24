package dto

// ReceiveNotificationRequest is the body the notifier posts to /notification
type ReceiveNotificationRequest struct {
	Message string `json:"message" binding:"required"`
	Subject string `json:"subject" binding:"required"`
	ARN     string `json:"arn"`
}

type ListNotificationsRequest struct {
	Subject  string `form:"subject"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListNotificationsResponse struct {
	Notifications []NotificationDTO `json:"notifications"`
	NextCursor    string            `json:"next_cursor,omitempty"`
}

type NotificationDTO struct {
	NotificationID string `json:"notification_id"`
	Subject        string `json:"subject"`
	Message        string `json:"message"`
	ARN            string `json:"arn,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// EnqueueJobRequest is a job submitted for the notifier queue
type EnqueueJobRequest struct {
	JobType string `json:"job_type" binding:"required"`
	Message string `json:"message" binding:"required"`
	File    string `json:"file"`
}
