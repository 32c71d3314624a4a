package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type tutorRepository interface {
	List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, int, error)
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
	FindByUserID(ctx context.Context, userID string) (*models.Tutor, error)
	Create(ctx context.Context, tutor *models.Tutor) error
	UpdateProfile(ctx context.Context, tutor *models.Tutor) error
	UpdateAvailability(ctx context.Context, id string, availability models.Availability) error
	UpdateVerification(ctx context.Context, id string, status models.VerificationStatus, comment *string) error
	VerificationStats(ctx context.Context) (*models.VerificationStats, error)
}

type bookedSlotLister interface {
	BookedSlots(ctx context.Context, tutorID string, from models.Date) ([]models.BookedSlot, error)
}

type wishlistFollowers interface {
	StudentsForTutor(ctx context.Context, tutorID string) ([]string, error)
}

// TutorServiceParams groups constructor dependencies.
type TutorServiceParams struct {
	Tutors    tutorRepository
	Sessions  bookedSlotLister
	Wishlists wishlistFollowers
	Notifier  Notifier
	Cache     *CacheService
	Validator *validator.Validate
	Logger    *zap.Logger
	Clock     Clock
	Location  *time.Location
}

// TutorService manages tutor profiles, the public directory and credential verification.
type TutorService struct {
	tutors    tutorRepository
	sessions  bookedSlotLister
	wishlists wishlistFollowers
	notifier  Notifier
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	clock     Clock
	loc       *time.Location
}

// NewTutorService constructs a TutorService.
func NewTutorService(params TutorServiceParams) *TutorService {
	validate := params.Validator
	if validate == nil {
		validate = NewValidator()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &TutorService{
		tutors:    params.Tutors,
		sessions:  params.Sessions,
		wishlists: params.Wishlists,
		notifier:  params.Notifier,
		cache:     params.Cache,
		validator: validate,
		logger:    logger,
		clock:     params.Clock,
		loc:       loc,
	}
}

// Directory lists verified tutors matching filter.
func (s *TutorService) Directory(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, *models.Pagination, error) {
	verified := models.VerificationVerified
	filter.Status = &verified
	return s.list(ctx, filter)
}

// ListPending lists tutors awaiting verification.
func (s *TutorService) ListPending(ctx context.Context, page, pageSize int) ([]models.Tutor, *models.Pagination, error) {
	pending := models.VerificationPending
	return s.list(ctx, models.TutorFilter{Status: &pending, Page: page, PageSize: pageSize})
}

func (s *TutorService) list(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, *models.Pagination, error) {
	filter.Page, filter.PageSize = models.NormalizePaging(filter.Page, filter.PageSize)
	tutors, total, err := s.tutors.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list tutors")
	}
	if tutors == nil {
		tutors = []models.Tutor{}
	}
	return tutors, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get fetches a tutor profile by id.
func (s *TutorService) Get(ctx context.Context, id string) (*models.Tutor, error) {
	tutor, err := s.tutors.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Internal(err, "failed to load tutor")
	}
	return tutor, nil
}

// Availability returns the tutor's weekly windows.
func (s *TutorService) Availability(ctx context.Context, id string) (models.Availability, error) {
	tutor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tutor.Availability == nil {
		return models.Availability{}, nil
	}
	return tutor.Availability, nil
}

// BookedSlots lists the tutor's active sessions from today onwards.
func (s *TutorService) BookedSlots(ctx context.Context, id string) ([]models.BookedSlot, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	today := models.DateOf(s.clock.now().In(s.loc))
	slots, err := s.sessions.BookedSlots(ctx, id, today)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load booked sessions")
	}
	if slots == nil {
		slots = []models.BookedSlot{}
	}
	return slots, nil
}

// Profile returns the caller's own tutor profile.
func (s *TutorService) Profile(ctx context.Context, actor models.Actor) (*models.Tutor, error) {
	tutor, err := s.tutors.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor profile not found")
		}
		return nil, appErrors.Internal(err, "failed to load tutor profile")
	}
	return tutor, nil
}

// UpsertProfile creates or replaces the caller's profile. A changed hourly
// rate notifies every student who saved the tutor.
func (s *TutorService) UpsertProfile(ctx context.Context, actor models.Actor, req models.UpsertTutorProfileRequest) (*models.Tutor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid tutor profile payload")
	}
	if err := req.Availability.Validate(); err != nil {
		return nil, appErrors.Validation(err, "")
	}

	existing, err := s.tutors.FindByUserID(ctx, actor.UserID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to load tutor profile")
	}

	if existing == nil {
		tutor := &models.Tutor{UserID: actor.UserID, VerificationStatus: models.VerificationPending}
		applyProfile(tutor, req)
		if err := s.tutors.Create(ctx, tutor); err != nil {
			return nil, appErrors.Internal(err, "failed to create tutor profile")
		}
		s.logger.Info("tutor profile created", zap.String("tutor_id", tutor.ID), zap.String("user_id", actor.UserID))
		return tutor, nil
	}

	previousRate := existing.HourlyRate
	applyProfile(existing, req)
	if err := s.tutors.UpdateProfile(ctx, existing); err != nil {
		return nil, appErrors.Internal(err, "failed to update tutor profile")
	}
	if previousRate != existing.HourlyRate {
		s.notifyRateChange(ctx, existing, previousRate)
	}
	return existing, nil
}

// UpdateAvailability replaces the caller's weekly schedule.
func (s *TutorService) UpdateAvailability(ctx context.Context, actor models.Actor, req models.UpdateAvailabilityRequest) (models.Availability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid availability payload")
	}
	if err := req.Availability.Validate(); err != nil {
		return nil, appErrors.Validation(err, "")
	}
	tutor, err := s.Profile(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := s.tutors.UpdateAvailability(ctx, tutor.ID, req.Availability); err != nil {
		return nil, appErrors.Internal(err, "failed to update availability")
	}
	return req.Availability, nil
}

// Verify records an admin decision on a tutor and notifies the tutor.
func (s *TutorService) Verify(ctx context.Context, actor models.Actor, tutorID string, req models.VerifyTutorRequest) (*models.Tutor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid verification payload")
	}
	comment := strings.TrimSpace(req.Comment)
	if req.Status == models.VerificationRejected && comment == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a comment is required when rejecting a tutor")
	}

	tutor, err := s.Get(ctx, tutorID)
	if err != nil {
		return nil, err
	}
	var commentPtr *string
	if comment != "" {
		commentPtr = &comment
	}
	if err := s.tutors.UpdateVerification(ctx, tutor.ID, req.Status, commentPtr); err != nil {
		return nil, appErrors.Internal(err, "failed to update verification")
	}
	tutor.VerificationStatus = req.Status
	tutor.VerificationComment = commentPtr

	message := "Your tutor profile has been verified! You can now receive session bookings."
	if req.Status == models.VerificationRejected {
		message = fmt.Sprintf("Your tutor profile verification was rejected. Reason: %s", comment)
	}
	related := models.RelatedTutor
	s.notify(ctx, models.Notification{
		RecipientID:  tutor.UserID,
		SenderID:     &actor.UserID,
		Type:         models.NotificationVerification,
		Message:      message,
		RelatedID:    &tutor.ID,
		RelatedModel: &related,
	})
	s.cache.forgetAdminStats(ctx)

	s.logger.Info("tutor verification updated",
		zap.String("tutor_id", tutor.ID),
		zap.String("status", string(req.Status)),
		zap.String("admin_id", actor.UserID),
	)
	return tutor, nil
}

// VerificationStats counts tutors per verification status.
func (s *TutorService) VerificationStats(ctx context.Context) (*models.VerificationStats, error) {
	stats, err := s.tutors.VerificationStats(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load verification stats")
	}
	return stats, nil
}

func (s *TutorService) notifyRateChange(ctx context.Context, tutor *models.Tutor, previous float64) {
	if s.wishlists == nil {
		return
	}
	students, err := s.wishlists.StudentsForTutor(ctx, tutor.ID)
	if err != nil {
		s.logger.Warn("rate change followers lookup failed", zap.String("tutor_id", tutor.ID), zap.Error(err))
		return
	}
	name := tutor.FullName
	if name == "" {
		name = "A tutor on your wishlist"
	}
	related := models.RelatedTutor
	for _, studentID := range students {
		s.notify(ctx, models.Notification{
			RecipientID:  studentID,
			SenderID:     &tutor.UserID,
			Type:         models.NotificationRateChange,
			Message:      fmt.Sprintf("%s changed their hourly rate from %.2f to %.2f", name, previous, tutor.HourlyRate),
			RelatedID:    &tutor.ID,
			RelatedModel: &related,
		})
	}
}

func (s *TutorService) notify(ctx context.Context, n models.Notification) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, n)
}

func applyProfile(tutor *models.Tutor, req models.UpsertTutorProfileRequest) {
	tutor.Subjects = req.Subjects
	tutor.Qualifications = req.Qualifications
	tutor.HourlyRate = req.HourlyRate
	tutor.City = strings.TrimSpace(req.City)
	tutor.Bio = strings.TrimSpace(req.Bio)
	tutor.TeachingMode = req.TeachingMode
	tutor.Availability = req.Availability
	if tutor.Qualifications == nil {
		tutor.Qualifications = models.Qualifications{}
	}
	if tutor.Availability == nil {
		tutor.Availability = models.Availability{}
	}
}
