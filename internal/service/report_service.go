package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type reportRepository interface {
	SessionsByStatus(ctx context.Context) ([]models.CountByKey, error)
	UsersByRole(ctx context.Context) ([]models.CountByKey, error)
	TutorsByVerification(ctx context.Context) ([]models.CountByKey, error)
	TopSubjects(ctx context.Context, limit int) ([]models.CountByKey, error)
	SessionsByMonth(ctx context.Context) ([]models.MonthlySessions, error)
	TotalRevenue(ctx context.Context) (float64, error)
}

const topSubjectsLimit = 10

// ReportService builds the admin reports, caching each briefly.
type ReportService struct {
	repo   reportRepository
	cache  *CacheService
	ttl    time.Duration
	clock  Clock
	logger *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(repo reportRepository, cache *CacheService, ttl time.Duration, clock Clock, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{repo: repo, cache: cache, ttl: ttl, clock: clock, logger: logger}
}

// SessionStats reports sessions by status, subject and month. The boolean reports a cache hit.
func (s *ReportService) SessionStats(ctx context.Context) (*models.SessionStats, bool, error) {
	stats, hit, err := cached(ctx, s.cache, sessionStatsKey, s.ttl, s.buildSessionStats)
	if err != nil {
		return nil, false, err
	}
	if !hit {
		s.logger.Debug("session stats rebuilt", zap.Int("total", stats.Total))
	}
	return &stats, hit, nil
}

func (s *ReportService) buildSessionStats(ctx context.Context) (models.SessionStats, error) {
	byStatus, err := s.repo.SessionsByStatus(ctx)
	if err != nil {
		return models.SessionStats{}, appErrors.Internal(err, "failed to load session stats")
	}
	top, err := s.repo.TopSubjects(ctx, topSubjectsLimit)
	if err != nil {
		return models.SessionStats{}, appErrors.Internal(err, "failed to load session stats")
	}
	months, err := s.repo.SessionsByMonth(ctx)
	if err != nil {
		return models.SessionStats{}, appErrors.Internal(err, "failed to load session stats")
	}

	stats := models.SessionStats{
		ByStatus:    make(map[models.SessionStatus]int, 4),
		TopSubjects: nonNil(top),
		ByMonth:     nonNil(months),
		GeneratedAt: s.clock.now(),
	}
	for _, status := range []models.SessionStatus{models.SessionPending, models.SessionConfirmed, models.SessionCompleted, models.SessionCancelled} {
		stats.ByStatus[status] = 0
	}
	for _, row := range byStatus {
		stats.ByStatus[models.SessionStatus(row.Key)] = row.Count
		stats.Total += row.Count
	}
	if stats.Total > 0 {
		stats.CompletionRate = roundTo(float64(stats.ByStatus[models.SessionCompleted])/float64(stats.Total)*100, 2)
	}
	return stats, nil
}

// PlatformStats reports users, tutors, sessions and revenue. The boolean reports a cache hit.
func (s *ReportService) PlatformStats(ctx context.Context) (*models.PlatformStats, bool, error) {
	stats, hit, err := cached(ctx, s.cache, platformStatsKey, s.ttl, s.buildPlatformStats)
	if err != nil {
		return nil, false, err
	}
	return &stats, hit, nil
}

func (s *ReportService) buildPlatformStats(ctx context.Context) (models.PlatformStats, error) {
	users, err := s.repo.UsersByRole(ctx)
	if err != nil {
		return models.PlatformStats{}, appErrors.Internal(err, "failed to load platform stats")
	}
	tutors, err := s.repo.TutorsByVerification(ctx)
	if err != nil {
		return models.PlatformStats{}, appErrors.Internal(err, "failed to load platform stats")
	}
	sessions, err := s.repo.SessionsByStatus(ctx)
	if err != nil {
		return models.PlatformStats{}, appErrors.Internal(err, "failed to load platform stats")
	}
	revenue, err := s.repo.TotalRevenue(ctx)
	if err != nil {
		return models.PlatformStats{}, appErrors.Internal(err, "failed to load platform stats")
	}

	stats := models.PlatformStats{
		UsersByRole:          make(map[models.UserRole]int),
		TutorsByVerification: make(map[models.VerificationStatus]int),
		SessionsByStatus:     make(map[models.SessionStatus]int),
		TotalRevenue:         roundTo(revenue, 2),
		GeneratedAt:          s.clock.now(),
	}
	for _, row := range users {
		stats.UsersByRole[models.UserRole(row.Key)] = row.Count
	}
	for _, row := range tutors {
		stats.TutorsByVerification[models.VerificationStatus(row.Key)] = row.Count
	}
	for _, row := range sessions {
		stats.SessionsByStatus[models.SessionStatus(row.Key)] = row.Count
	}
	return stats, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func roundTo(v float64, places int) float64 {
	p := 1.0
	for i := 0; i < places; i++ {
		p *= 10
	}
	return float64(int64(v*p+0.5)) / p
}
