package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campusdesk/request-portal-api/internal/models"
	"github.com/campusdesk/request-portal-api/pkg/config"
	appErrors "github.com/campusdesk/request-portal-api/pkg/errors"
	"github.com/campusdesk/request-portal-api/pkg/jobs"
)

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID string) ([]models.Notification, error)
	CountByRecipient(ctx context.Context, recipientID string) (int, error)
	DeleteByRecipient(ctx context.Context, recipientID string) (int64, error)
	DeleteOne(ctx context.Context, recipientID, notificationID string) (int64, error)
}

// NotificationService queues and acknowledges per-recipient unread
// notifications. Delivery is fire-and-forget: Dispatch never blocks or fails
// the triggering operation, and persistence happens on a background worker
// only after the caller's write has already committed.
type NotificationService struct {
	repo    notificationRepository
	cache   *redis.Client
	logger  *zap.Logger
	queue   *jobs.Queue
	cfg     config.NotificationsConfig
	metrics *MetricsService
}

// NewNotificationService constructs the dispatcher and its worker queue. The
// redis client and metrics service may be nil.
func NewNotificationService(repo notificationRepository, cache *redis.Client, logger *zap.Logger, cfg config.NotificationsConfig, metrics *MetricsService) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{repo: repo, cache: cache, logger: logger, cfg: cfg, metrics: metrics}
	svc.queue = jobs.NewQueue("notifications", svc.handle, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		BufferSize: cfg.QueueBufferSize,
		Logger:     logger,
	})
	return svc
}

// Start launches the fan-out workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Dispatch enqueues a notification event without ever blocking the caller.
// A saturated queue drops the event; failures are logged and swallowed, the
// producer never observes them.
func (s *NotificationService) Dispatch(event models.NotificationEvent) {
	if event.RecipientID == "" {
		s.logger.Debug("notification event without recipient dropped",
			zap.String("kind", string(event.Kind)), zap.String("request_id", event.RequestID))
		return
	}
	err := s.queue.TryEnqueue(jobs.Job{Type: string(event.Kind), Payload: event})
	if err != nil {
		s.logger.Warn("notification dropped",
			zap.String("kind", string(event.Kind)),
			zap.String("recipient_id", event.RecipientID),
			zap.Error(err))
		s.metrics.ObserveNotification(string(event.Kind), false)
		return
	}
	s.metrics.ObserveNotification(string(event.Kind), true)
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.NotificationEvent)
	if !ok {
		s.logger.Error("notification job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	notification := &models.Notification{
		RecipientID: event.RecipientID,
		RequestID:   event.RequestID,
		Message:     event.Message,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}
	s.invalidateUnreadCount(ctx, event.RecipientID)
	return nil
}

// ListUnread returns the recipient's pending notifications oldest first.
func (s *NotificationService) ListUnread(ctx context.Context, recipientID string) ([]models.Notification, error) {
	notifications, err := s.repo.ListByRecipient(ctx, recipientID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// UnreadCount returns the number of pending notifications, served from the
// redis cache when warm.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, s.unreadCountKey(recipientID)).Result()
		if err == nil {
			if count, convErr := strconv.Atoi(raw); convErr == nil {
				s.metrics.ObserveCacheLookup(true)
				return count, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("unread count cache read failed", zap.Error(err))
		}
		s.metrics.ObserveCacheLookup(false)
	}
	count, err := s.repo.CountByRecipient(ctx, recipientID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, s.unreadCountKey(recipientID), strconv.Itoa(count), s.cfg.UnreadCacheTTL).Err(); err != nil {
			s.logger.Warn("unread count cache write failed", zap.Error(err))
		}
	}
	return count, nil
}

// MarkAllRead removes every pending entry for the recipient. This is a
// destructive acknowledgment, not a flag flip.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) error {
	if _, err := s.repo.DeleteByRecipient(ctx, recipientID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acknowledge notifications")
	}
	s.invalidateUnreadCount(ctx, recipientID)
	return nil
}

// MarkOne removes exactly the identified entry for the recipient, leaving all
// other pending entries untouched.
func (s *NotificationService) MarkOne(ctx context.Context, recipientID, notificationID string) error {
	affected, err := s.repo.DeleteOne(ctx, recipientID, notificationID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acknowledge notification")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	s.invalidateUnreadCount(ctx, recipientID)
	return nil
}

func (s *NotificationService) unreadCountKey(recipientID string) string {
	return "notifications:unread:" + recipientID
}

func (s *NotificationService) invalidateUnreadCount(ctx context.Context, recipientID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.unreadCountKey(recipientID)).Err(); err != nil {
		s.logger.Warn("unread count cache invalidation failed", zap.Error(err))
	}
}
