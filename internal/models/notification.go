package models

import "time"

// NotificationType colors the notification in clients.
type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

// NotificationPriority orders notifications for display.
type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityMedium NotificationPriority = "medium"
	NotificationPriorityHigh   NotificationPriority = "high"
)

// NotificationStatus tracks whether a draft has been sent.
type NotificationStatus string

const (
	NotificationStatusDraft NotificationStatus = "draft"
	NotificationStatusSent  NotificationStatus = "sent"
)

// Notification is a broadcast message targeted at a role. Read state is a
// single flag on the broadcast, not tracked per recipient.
type Notification struct {
	ID         string               `db:"id" json:"id"`
	Title      string               `db:"title" json:"title"`
	Message    string               `db:"message" json:"message"`
	Type       NotificationType     `db:"notif_type" json:"type"`
	TargetRole string               `db:"target_role" json:"target_role"`
	Priority   NotificationPriority `db:"priority" json:"priority"`
	Status     NotificationStatus   `db:"status" json:"status"`
	IsRead     bool                 `db:"is_read" json:"is_read"`
	CreatedAt  time.Time            `db:"created_at" json:"created_at"`
	SentAt     *time.Time           `db:"sent_at" json:"sent_at,omitempty"`
}

// NotificationFilter encapsulates search parameters for notifications.
type NotificationFilter struct {
	TargetRole string
	Status     string
	Page       int
	PageSize   int
}
