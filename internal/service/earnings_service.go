package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/booking"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type tutorProfileFinder interface {
	FindByUserID(ctx context.Context, userID string) (*models.Tutor, error)
}

type tutorSessionLister interface {
	ListByTutor(ctx context.Context, tutorID string) ([]models.Session, error)
}

// EarningsService reports a tutor's income, caching the summary briefly.
type EarningsService struct {
	tutors   tutorProfileFinder
	sessions tutorSessionLister
	cache    *CacheService
	ttl      time.Duration
	clock    Clock
	loc      *time.Location
	logger   *zap.Logger
}

// NewEarningsService constructs an EarningsService.
// Weekly and monthly windows are measured in loc, the zone session dates are booked in.
func NewEarningsService(tutors tutorProfileFinder, sessions tutorSessionLister, cache *CacheService, ttl time.Duration, clock Clock, loc *time.Location, logger *zap.Logger) *EarningsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &EarningsService{tutors: tutors, sessions: sessions, cache: cache, ttl: ttl, clock: clock, loc: loc, logger: logger}
}

// Summary aggregates the calling tutor's sessions. The boolean reports a cache hit.
func (s *EarningsService) Summary(ctx context.Context, actor models.Actor) (*models.EarningsSummary, bool, error) {
	tutor, err := s.tutors.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "tutor profile not found")
		}
		return nil, false, appErrors.Internal(err, "failed to load tutor profile")
	}

	summary, hit, err := cached(ctx, s.cache, EarningsCacheKey(tutor.ID), s.ttl, func(ctx context.Context) (models.EarningsSummary, error) {
		sessions, err := s.sessions.ListByTutor(ctx, tutor.ID)
		if err != nil {
			return models.EarningsSummary{}, appErrors.Internal(err, "failed to load sessions")
		}
		return booking.Aggregate(sessions, s.clock.now().In(s.loc)), nil
	})
	if err != nil {
		return nil, false, err
	}
	if !hit {
		s.logger.Debug("earnings computed", zap.String("tutor_id", tutor.ID), zap.Int("completed", summary.CompletedSessions))
	}
	return &summary, hit, nil
}
