package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/booking"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/internal/repository"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type tutorFinder interface {
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
}

type bookingSessionRepository interface {
	ListActiveByTutorAndDate(ctx context.Context, tutorID string, date models.Date) ([]models.Session, error)
	CreateGuarded(ctx context.Context, session *models.Session, guard repository.GuardFunc) error
}

// BookingServiceParams groups constructor dependencies.
type BookingServiceParams struct {
	Tutors      tutorFinder
	Sessions    bookingSessionRepository
	Notifier    Notifier
	Cache       *CacheService
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	Clock       Clock
	Location    *time.Location
	Granularity time.Duration
}

// BookingService turns tutor availability into bookable slots and books sessions.
type BookingService struct {
	tutors      tutorFinder
	sessions    bookingSessionRepository
	notifier    Notifier
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	clock       Clock
	loc         *time.Location
	granularity time.Duration
}

// NewBookingService constructs a BookingService.
func NewBookingService(params BookingServiceParams) *BookingService {
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
	granularity := params.Granularity
	if granularity <= 0 {
		granularity = booking.DefaultGranularity
	}
	return &BookingService{
		tutors:      params.Tutors,
		sessions:    params.Sessions,
		notifier:    params.Notifier,
		cache:       params.Cache,
		metrics:     params.Metrics,
		validator:   validate,
		logger:      logger,
		clock:       params.Clock,
		loc:         loc,
		granularity: granularity,
	}
}

// AvailableSlots lists slot start times on rawDate that are free and not yet in the past.
func (s *BookingService) AvailableSlots(ctx context.Context, tutorID, rawDate string) ([]models.TimeOfDay, error) {
	date, err := models.ParseDate(rawDate)
	if err != nil {
		return nil, appErrors.Validation(err, "")
	}
	tutor, err := s.bookableTutor(ctx, tutorID)
	if err != nil {
		return nil, err
	}

	slots := []models.TimeOfDay{}
	window, ok := tutor.Availability.ForDay(date.Weekday())
	if !ok {
		return slots, nil
	}

	now := s.clock.now().In(s.loc)
	today := models.DateOf(now)
	if date.Before(today.Time) {
		return slots, nil
	}
	var cutoff models.TimeOfDay = -1
	if date.Equal(today.Time) {
		cutoff = models.TimeOfDay(now.Hour()*60 + now.Minute())
	}

	active, err := s.sessions.ListActiveByTutorAndDate(ctx, tutor.ID, date)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load booked sessions")
	}
	booked := booking.ActiveIntervals(active)

	step := int(s.granularity / time.Minute)
	for slot := range booking.GenerateSlots(&window, s.granularity) {
		if slot <= cutoff {
			continue
		}
		if booking.HasConflict(booking.IntervalOf(slot, step), booked) {
			continue
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// Book validates the request against the tutor's availability and existing
// sessions, then creates a pending session and notifies the tutor.
func (s *BookingService) Book(ctx context.Context, actor models.Actor, req models.BookSessionRequest) (*models.Session, error) {
	session, err := s.book(ctx, actor, req)
	if err != nil {
		s.metrics.RecordBooking(appErrors.FromError(err).Code)
		return nil, err
	}
	s.metrics.RecordBooking("created")
	return session, nil
}

func (s *BookingService) book(ctx context.Context, actor models.Actor, req models.BookSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid booking payload")
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Validation(err, "")
	}
	start, err := models.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, appErrors.Validation(err, "")
	}
	if start.On(date, s.loc).Before(s.clock.now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot book a session in the past")
	}

	tutor, err := s.bookableTutor(ctx, req.TutorID)
	if err != nil {
		return nil, err
	}
	if tutor.UserID == actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tutors cannot book their own sessions")
	}

	window, ok := tutor.Availability.ForDay(date.Weekday())
	if !ok {
		return nil, appErrors.ErrNoAvailability
	}
	requested := booking.IntervalOf(start, req.Duration)
	if !booking.Within(requested, window) {
		return nil, appErrors.Clone(appErrors.ErrOutsideAvailability,
			fmt.Sprintf("requested time is outside the tutor's availability (%s-%s)", window.StartTime, window.EndTime))
	}

	session := &models.Session{
		TutorID:     tutor.ID,
		TutorUserID: tutor.UserID,
		StudentID:   actor.UserID,
		Date:        date,
		StartTime:   start,
		Duration:    req.Duration,
		Status:      models.SessionPending,
		Subject:     req.Subject,
		Type:        req.Type,
		Location:    optionalString(req.Location),
		Notes:       optionalString(req.Notes),
		Price:       models.SessionPrice(tutor.HourlyRate, req.Duration),
	}

	began := time.Now()
	err = s.sessions.CreateGuarded(ctx, session, func(active []models.Session) error {
		if booking.HasConflict(requested, booking.ActiveIntervals(active)) {
			return appErrors.ErrSlotUnavailable
		}
		return nil
	})
	s.metrics.ObserveDBQuery("create_session", time.Since(began))
	if err != nil {
		var appErr *appErrors.Error
		switch {
		case errors.As(err, &appErr):
			return nil, appErr
		case errors.Is(err, repository.ErrSlotTaken):
			return nil, appErrors.ErrSlotUnavailable
		default:
			return nil, appErrors.Internal(err, "failed to create session")
		}
	}

	s.logger.Info("session booked",
		zap.String("session_id", session.ID),
		zap.String("tutor_id", session.TutorID),
		zap.String("student_id", session.StudentID),
		zap.String("date", session.Date.String()),
		zap.String("start_time", session.StartTime.String()),
	)

	if s.notifier != nil {
		related := models.RelatedSession
		s.notifier.Notify(ctx, models.Notification{
			RecipientID:  tutor.UserID,
			SenderID:     &actor.UserID,
			Type:         models.NotificationSessionRequest,
			Message:      fmt.Sprintf("You have a new session request for %s on %s at %s", session.Subject, session.Date, session.StartTime),
			RelatedID:    &session.ID,
			RelatedModel: &related,
		})
	}
	s.cache.invalidateSessionViews(ctx, tutor.ID)
	return session, nil
}

func (s *BookingService) bookableTutor(ctx context.Context, tutorID string) (*models.Tutor, error) {
	tutor, err := s.tutors.FindByID(ctx, tutorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFoundOrUnverified
		}
		return nil, appErrors.Internal(err, "failed to load tutor")
	}
	if !tutor.Verified() {
		return nil, appErrors.ErrNotFoundOrUnverified
	}
	return tutor, nil
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
