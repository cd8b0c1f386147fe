package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusdesk/request-portal-api/internal/models"
)

// NotificationRepository stores pending notifications. A row's existence is
// the unread flag; acknowledgment deletes rows.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create enqueues a pending notification for a recipient.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO notifications (id, recipient_id, request_id, message, created_at)
VALUES (:id, :recipient_id, :request_id, :message, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListByRecipient returns the recipient's pending notifications oldest first.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string) ([]models.Notification, error) {
	const query = `SELECT id, recipient_id, request_id, message, created_at
FROM notifications WHERE recipient_id = $1 ORDER BY created_at ASC, id ASC`
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, recipientID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// CountByRecipient returns the number of pending notifications.
func (r *NotificationRepository) CountByRecipient(ctx context.Context, recipientID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM notifications WHERE recipient_id = $1", recipientID); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}

// DeleteByRecipient removes every pending notification for the recipient.
func (r *NotificationRepository) DeleteByRecipient(ctx context.Context, recipientID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM notifications WHERE recipient_id = $1", recipientID)
	if err != nil {
		return 0, fmt.Errorf("delete notifications: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete notifications: %w", err)
	}
	return affected, nil
}

// DeleteOne removes exactly one notification, scoped to its recipient so a
// user can never dismiss someone else's entry.
func (r *NotificationRepository) DeleteOne(ctx context.Context, recipientID, notificationID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM notifications WHERE recipient_id = $1 AND id = $2", recipientID, notificationID)
	if err != nil {
		return 0, fmt.Errorf("delete notification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete notification: %w", err)
	}
	return affected, nil
}
