package domain

import "time"

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationInfo       NotificationType = "INFO"
	NotificationSuccess    NotificationType = "SUCCESS"
	NotificationWarning    NotificationType = "WARNING"
	NotificationTicket     NotificationType = "TICKET"
	NotificationAssignment NotificationType = "ASSIGNMENT"
	NotificationRepair     NotificationType = "REPAIR"
	NotificationSystem     NotificationType = "SYSTEM"
)

// Notification is a message addressed to a single user.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
