package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/internal/repository"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type reviewRepository interface {
	Create(ctx context.Context, review *models.Review) (*models.RatingSummary, error)
	ListByTutor(ctx context.Context, tutorID string) ([]models.Review, error)
}

type reviewSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	ListPendingReview(ctx context.Context, studentID string) ([]models.Session, error)
}

// ReviewService lets students rate completed sessions.
type ReviewService struct {
	reviews   reviewRepository
	sessions  reviewSessionReader
	notifier  Notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReviewService constructs a ReviewService.
func NewReviewService(reviews reviewRepository, sessions reviewSessionReader, notifier Notifier, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{reviews: reviews, sessions: sessions, notifier: notifier, validator: validate, logger: logger}
}

// Create records a review for one of the caller's completed sessions and refreshes the tutor rating.
func (s *ReviewService) Create(ctx context.Context, actor models.Actor, req models.CreateReviewRequest) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid review payload")
	}
	session, err := s.sessions.FindByID(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Internal(err, "failed to load session")
	}
	if session.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the student who attended can review this session")
	}
	if session.Status != models.SessionCompleted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only completed sessions can be reviewed")
	}
	if session.Reviewed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "session already reviewed")
	}

	review := &models.Review{
		SessionID: session.ID,
		TutorID:   session.TutorID,
		StudentID: actor.UserID,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	}
	summary, err := s.reviews.Create(ctx, review)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyReviewed) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "session already reviewed")
		}
		return nil, appErrors.Internal(err, "failed to create review")
	}
	s.logger.Info("review recorded",
		zap.String("review_id", review.ID),
		zap.String("tutor_id", review.TutorID),
		zap.Float64("rating", summary.Average),
		zap.Int("review_count", summary.Count),
	)

	if s.notifier != nil {
		related := models.RelatedReview
		s.notifier.Notify(ctx, models.Notification{
			RecipientID:  session.TutorUserID,
			SenderID:     &actor.UserID,
			Type:         models.NotificationReview,
			Message:      fmt.Sprintf("You received a %d-star review", review.Rating),
			RelatedID:    &review.ID,
			RelatedModel: &related,
		})
	}
	return review, nil
}

// ListByTutor returns a tutor's reviews.
func (s *ReviewService) ListByTutor(ctx context.Context, tutorID string) ([]models.Review, error) {
	reviews, err := s.reviews.ListByTutor(ctx, tutorID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list reviews")
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}

// Pending lists the caller's completed sessions still awaiting a review.
func (s *ReviewService) Pending(ctx context.Context, actor models.Actor) ([]models.Session, error) {
	sessions, err := s.sessions.ListPendingReview(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list pending reviews")
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return sessions, nil
}
