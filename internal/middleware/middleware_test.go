package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/internal/service"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/response"
)

type stubValidator map[string]*models.JWTClaims

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

var tokens = stubValidator{
	"student-token": {UserID: "student-1", Role: models.RoleStudent},
	"admin-token":   {UserID: "admin-1", Role: models.RoleAdmin},
}

func serve(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestJWTAndRBAC(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/admin", JWT(tokens), RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.UserID)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/admin", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/admin", "bogus").Code)
	forbidden := serve(router, http.MethodGet, "/admin", "student-token")
	assert.Equal(t, http.StatusForbidden, forbidden.Code)
	assert.Contains(t, forbidden.Body.String(), "requires role admin")

	rec := serve(router, http.MethodGet, "/admin", "admin-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin-1", rec.Body.String())
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", JWT(tokens), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token student-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid authorization header")
}

func TestOptionalJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", OptionalJWT(tokens), func(c *gin.Context) {
		if claims, ok := ClaimsFromContext(c); ok {
			c.String(http.StatusOK, claims.UserID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	assert.Equal(t, "anonymous", serve(router, http.MethodGet, "/", "").Body.String())
	assert.Equal(t, "anonymous", serve(router, http.MethodGet, "/", "bogus").Body.String())
	assert.Equal(t, "student-1", serve(router, http.MethodGet, "/", "student-token").Body.String())
}

func TestRateLimiterPerUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(1, 2, nil)
	router := gin.New()
	router.POST("/sessions", JWT(tokens), limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	assert.Equal(t, http.StatusCreated, serve(router, http.MethodPost, "/sessions", "student-token").Code)
	assert.Equal(t, http.StatusCreated, serve(router, http.MethodPost, "/sessions", "student-token").Code)
	rec := serve(router, http.MethodPost, "/sessions", "student-token")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), appErrors.ErrRateLimited.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusCreated, serve(router, http.MethodPost, "/sessions", "admin-token").Code)
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	limiter := NewRateLimiter(60, 5, nil)
	clock := time.Date(2024, time.June, 12, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }

	for _, key := range []string{"student-1", "student-2", "10.0.0.7"} {
		limiter.limiter(key)
	}
	require.Equal(t, 3, limiter.size())

	clock = clock.Add(5 * time.Minute)
	limiter.limiter("student-1")
	assert.Equal(t, 3, limiter.size())

	clock = clock.Add(minIdleTTL)
	limiter.limiter("student-3")
	assert.Equal(t, 1, limiter.size())
}

type recordingAudit struct {
	logs []*models.AuditLog
	err  error
}

func (r *recordingAudit) Create(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return r.err
}

func TestAuditRecordsSuccessfulMutations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	audit := &recordingAudit{}
	router := gin.New()
	router.PATCH("/tutors/:id/verify", JWT(tokens), Audit(audit, nil, models.AuditActionTutorVerify, "tutor"), func(c *gin.Context) {
		if c.Query("fail") != "" {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	serve(router, http.MethodPatch, "/tutors/tutor-1/verify", "admin-token")
	serve(router, http.MethodPatch, "/tutors/tutor-1/verify?fail=1", "admin-token")

	require.Len(t, audit.logs, 1)
	entry := audit.logs[0]
	assert.Equal(t, models.AuditActionTutorVerify, entry.Action)
	assert.Equal(t, "admin-1", *entry.UserID)
	assert.Equal(t, "tutor-1", *entry.ResourceID)
	assert.Contains(t, string(entry.NewValues), "/tutors/:id/verify")

	audit.err = errors.New("insert failed")
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPatch, "/tutors/tutor-2/verify", "admin-token").Code)
}

func TestResponseMetaCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	SetCacheHit(c, true)
	meta := response.Meta(c)
	require.NotNil(t, meta)
	assert.Equal(t, true, meta[MetaCacheHit])
}

func TestWithResponseMetaStampsTimezone(t *testing.T) {
	gin.SetMode(gin.TestMode)
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	var captured map[string]interface{}
	router := gin.New()
	router.Use(WithResponseMeta(loc))
	router.GET("/slots", func(c *gin.Context) {
		response.SetMeta(c, MetaUnread, 3)
		captured = response.Meta(c)
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slots", nil))

	require.NotNil(t, captured)
	assert.Equal(t, "Europe/Berlin", captured[MetaTimezone])
	assert.Equal(t, 3, captured[MetaUnread])
}

func TestMetricsSkipsProbes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metricsSvc := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metricsSvc))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/tutors/:id/slots", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/health", "/tutors/t1/slots", "/nowhere"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, uint64(2), metricsSvc.Snapshot().RequestsTotal)
}
