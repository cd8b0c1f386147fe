package models

import "time"

// Notification is a pending unread signal for one recipient. Existence in the
// table is the unread flag: acknowledgment deletes the row, there is no
// persisted read history.
type Notification struct {
	ID          string    `db:"id" json:"id"`
	RecipientID string    `db:"recipient_id" json:"recipient_id"`
	RequestID   string    `db:"request_id" json:"request_id"`
	Message     string    `db:"message" json:"message"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// NotificationEventKind identifies what triggered a notification.
type NotificationEventKind string

const (
	EventStatusChanged NotificationEventKind = "status_changed"
	EventCommentAdded  NotificationEventKind = "comment_added"
)

// NotificationEvent is the fan-out unit handed to the dispatcher after a
// triggering write has committed.
type NotificationEvent struct {
	Kind        NotificationEventKind
	RecipientID string
	RequestID   string
	Message     string
}
