package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

const minIdleTTL = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client key. Buckets unused for
// idleTTL are evicted by a sweep that runs at most once per idleTTL.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
	logger    *zap.Logger
}

// NewRateLimiter allows perMinute requests per client with the given burst.
func NewRateLimiter(perMinute, burst int, logger *zap.Logger) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	if burst <= 0 {
		burst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := time.Minute / time.Duration(perMinute)
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Every(interval),
		burst:   burst,
		idleTTL: max(minIdleTTL, interval*time.Duration(burst)),
		now:     time.Now,
		logger:  logger,
	}
}

func (r *RateLimiter) limiter(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if now.Sub(r.lastSweep) >= r.idleTTL {
		r.sweep(now)
	}
	b, exists := r.buckets[key]
	if !exists {
		b = &bucket{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// sweep drops buckets unused for idleTTL. Callers hold mu.
func (r *RateLimiter) sweep(now time.Time) {
	evicted := 0
	for key, b := range r.buckets {
		if now.Sub(b.lastSeen) >= r.idleTTL {
			delete(r.buckets, key)
			evicted++
		}
	}
	r.lastSweep = now
	if evicted > 0 {
		r.logger.Debug("rate limit buckets evicted", zap.Int("count", evicted), zap.Int("remaining", len(r.buckets)))
	}
}

func (r *RateLimiter) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buckets)
}

// Middleware limits requests per authenticated user, falling back to the client IP.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if claims, ok := ClaimsFromContext(c); ok {
			key = claims.UserID
		}
		reservation := r.limiter(key).Reserve()
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			r.logger.Warn("rate limit exceeded", zap.String("key", key), zap.String("path", c.FullPath()), zap.Duration("retry_after", delay))
			abortWith(c, appErrors.ErrRateLimited)
			return
		}
		c.Next()
	}
}
