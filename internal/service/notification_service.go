package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/jobs"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, int, error)
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	Delete(ctx context.Context, id string) error
}

type notificationRetryQueue interface {
	Enqueue(job jobs.Job[models.Notification]) error
}

// Notifier is the side-effect sink used by the booking flows.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// NotificationList is a page of a recipient's notifications.
type NotificationList struct {
	Items      []models.Notification
	Pagination *models.Pagination
	Unread     int
}

// NotificationService persists notifications and serves the recipient's inbox.
type NotificationService struct {
	repo    notificationRepository
	retry   notificationRetryQueue
	metrics *MetricsService
	clock   Clock
	logger  *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(repo notificationRepository, metrics *MetricsService, clock Clock, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, metrics: metrics, clock: clock, logger: logger}
}

// UseRetryQueue wires the queue that re-attempts failed writes.
func (s *NotificationService) UseRetryQueue(q notificationRetryQueue) {
	s.retry = q
}

// Notify writes n on a best-effort basis. Failures are logged and handed to
// the retry queue; they never surface to the caller.
// TODO: replace the in-memory retry queue with a persistent outbox so pending retries survive restarts.
func (s *NotificationService) Notify(ctx context.Context, n models.Notification) {
	if n.RecipientID == "" {
		return
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.clock.now()
	}

	err := s.repo.Create(ctx, &n)
	if err == nil {
		return
	}
	s.metrics.RecordNotificationFailure("initial")
	s.logger.Warn("notification write failed",
		zap.String("notification_id", n.ID),
		zap.String("recipient_id", n.RecipientID),
		zap.String("type", string(n.Type)),
		zap.Error(err),
	)

	if s.retry == nil {
		return
	}
	if err := s.retry.Enqueue(jobs.Job[models.Notification]{ID: n.ID, Payload: n, Attempt: 1}); err != nil {
		s.metrics.RecordNotificationFailure("enqueue")
		s.logger.Error("notification retry not scheduled", zap.String("notification_id", n.ID), zap.Error(err))
	}
}

// HandleRetry is the retry queue handler; the fixed id keeps repeated writes idempotent.
func (s *NotificationService) HandleRetry(ctx context.Context, job jobs.Job[models.Notification]) error {
	n := job.Payload
	if err := s.repo.Create(ctx, &n); err != nil {
		s.metrics.RecordNotificationFailure("retry")
		return err
	}
	s.logger.Info("notification delivered on retry", zap.String("notification_id", n.ID), zap.Int("attempt", job.Attempt))
	return nil
}

// Abandon records a notification the retry queue gave up on.
func (s *NotificationService) Abandon(job jobs.Job[models.Notification], err error) {
	s.metrics.RecordNotificationFailure("abandoned")
	s.logger.Error("notification abandoned",
		zap.String("notification_id", job.ID),
		zap.String("recipient_id", job.Payload.RecipientID),
		zap.Int("attempt", job.Attempt),
		zap.Error(err),
	)
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, actor models.Actor, filter models.NotificationFilter) (*NotificationList, error) {
	filter.RecipientID = actor.UserID
	filter.Page, filter.PageSize = models.NormalizePaging(filter.Page, filter.PageSize)

	items, total, unread, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return &NotificationList{
		Items:      items,
		Pagination: &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total},
		Unread:     unread,
	}, nil
}

// MarkRead flags one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, actor models.Actor, id string) (*models.Notification, error) {
	n, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if n.Read {
		return n, nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return nil, appErrors.Internal(err, "failed to update notification")
	}
	n.Read = true
	return n, nil
}

// MarkAllRead flags every unread notification of the caller.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor models.Actor) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, actor.UserID)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to update notifications")
	}
	return updated, nil
}

// Delete removes one of the caller's notifications.
func (s *NotificationService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Internal(err, "failed to delete notification")
	}
	return nil
}

func (s *NotificationService) owned(ctx context.Context, actor models.Actor, id string) (*models.Notification, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, appErrors.Internal(err, "failed to load notification")
	}
	if n.RecipientID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized to access this notification")
	}
	return n, nil
}
