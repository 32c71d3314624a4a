package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

const (
	cachePrefix        = "tutor-booking"
	sessionStatsKey    = cachePrefix + ":admin:session-stats"
	platformStatsKey   = cachePrefix + ":admin:platform-stats"
	adminStatsPattern  = cachePrefix + ":admin:*"
	earningsKeyPattern = cachePrefix + ":earnings:%s"
)

// EarningsCacheKey is the cache key for a tutor profile's earnings summary.
func EarningsCacheKey(tutorID string) string {
	return fmt.Sprintf(earningsKeyPattern, tutorID)
}

// CacheRepository stores JSON-encoded views.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService holds derived read views (earnings, admin stats). Every
// failure degrades to a miss; a nil or disabled service never hits.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a CacheService.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger.With(zap.String("component", "cache")), enabled: enabled}
}

// Enabled reports whether reads can hit.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get decodes the entry under key into dest and reports a hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	began := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(began))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set stores value under key; ttl <= 0 uses the default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	began := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(began))
	if err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Delete evicts keys.
func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.Delete(ctx, keys...); err != nil {
		s.logger.Warn("cache evict failed", zap.Strings("keys", keys), zap.Error(err))
		return err
	}
	return nil
}

// Invalidate evicts every key matching pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache evict failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// forgetAdminStats drops the cached admin reports.
func (s *CacheService) forgetAdminStats(ctx context.Context) {
	_ = s.Invalidate(ctx, adminStatsPattern)
}

// invalidateSessionViews drops every cached view derived from a tutor's sessions.
func (s *CacheService) invalidateSessionViews(ctx context.Context, tutorID string) {
	_ = s.Delete(ctx, EarningsCacheKey(tutorID))
	s.forgetAdminStats(ctx)
}

// cached serves key from cache when present, otherwise builds the value with
// load and stores it. Load errors are returned untouched; cache errors are not.
func cached[T any](ctx context.Context, s *CacheService, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, bool, error) {
	var hit T
	if ok, err := s.Get(ctx, key, &hit); err == nil && ok {
		return hit, true, nil
	}
	value, err := load(ctx)
	if err != nil {
		return value, false, err
	}
	_ = s.Set(ctx, key, value, ttl)
	return value, false, nil
}
