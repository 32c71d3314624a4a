package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/booking"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/internal/repository"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type sessionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error)
	UpdateStatus(ctx context.Context, id string, from, to models.SessionStatus) (*models.Session, error)
}

// SessionServiceParams groups constructor dependencies.
type SessionServiceParams struct {
	Sessions  sessionRepository
	Notifier  Notifier
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// SessionService reads sessions and drives their status lifecycle.
type SessionService struct {
	sessions  sessionRepository
	notifier  Notifier
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(params SessionServiceParams) *SessionService {
	validate := params.Validator
	if validate == nil {
		validate = NewValidator()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessions:  params.Sessions,
		notifier:  params.Notifier,
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
	}
}

// Get returns a session visible to actor.
func (s *SessionService) Get(ctx context.Context, actor models.Actor, id string) (*models.Session, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && !session.IsParty(actor.UserID) {
		return nil, appErrors.Clone(appErrors.ErrNotAuthorized, "not authorized to view this session")
	}
	return session, nil
}

// List returns the caller's sessions; admins see every session.
func (s *SessionService) List(ctx context.Context, actor models.Actor, filter models.SessionFilter) ([]models.Session, *models.Pagination, error) {
	switch actor.Role {
	case models.RoleStudent:
		filter.StudentID = actor.UserID
		filter.TutorUserID = ""
	case models.RoleTutor:
		filter.TutorUserID = actor.UserID
		filter.StudentID = ""
	case models.RoleAdmin:
	default:
		return nil, nil, appErrors.ErrForbidden
	}
	filter.Page, filter.PageSize = models.NormalizePaging(filter.Page, filter.PageSize)

	sessions, total, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list sessions")
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return sessions, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// UpdateStatus applies a lifecycle transition on behalf of actor and
// notifies the counter-party. Notification failures never undo the change.
func (s *SessionService) UpdateStatus(ctx context.Context, actor models.Actor, id string, req models.UpdateSessionStatusRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid status payload")
	}
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	transition, err := booking.Authorize(session, actor, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrInvalidTransition):
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidTransition.Code, appErrors.ErrInvalidTransition.Status,
				"cannot change session status from "+string(session.Status)+" to "+string(req.Status))
		case errors.Is(err, booking.ErrNotAuthorized):
			return nil, appErrors.Wrap(err, appErrors.ErrNotAuthorized.Code, appErrors.ErrNotAuthorized.Status, appErrors.ErrNotAuthorized.Message)
		default:
			return nil, appErrors.Internal(err, "failed to authorize transition")
		}
	}

	updated, err := s.sessions.UpdateStatus(ctx, session.ID, transition.From, transition.To)
	if err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidTransition.Code, appErrors.ErrInvalidTransition.Status, "session status changed, reload and try again")
		}
		return nil, appErrors.Internal(err, "failed to update session status")
	}

	s.metrics.RecordTransition(transition.From, transition.To, transition.By.String())
	s.logger.Info("session status updated",
		zap.String("session_id", updated.ID),
		zap.String("from", string(transition.From)),
		zap.String("to", string(transition.To)),
		zap.String("by", transition.By.String()),
		zap.String("actor_id", actor.UserID),
	)

	if s.notifier != nil {
		related := models.RelatedSession
		for _, recipient := range transition.Recipients {
			s.notifier.Notify(ctx, models.Notification{
				RecipientID:  recipient,
				SenderID:     &actor.UserID,
				Type:         models.NotificationSessionUpdate,
				Message:      transition.Message(updated, recipient),
				RelatedID:    &updated.ID,
				RelatedModel: &related,
			})
		}
	}
	s.cache.invalidateSessionViews(ctx, updated.TutorID)
	return updated, nil
}

func (s *SessionService) load(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Internal(err, "failed to load session")
	}
	return session, nil
}
