package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/tutor-booking-api/internal/middleware"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/internal/service"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type fakeEarnings struct{}

func (fakeEarnings) Summary(context.Context, models.Actor) (*models.EarningsSummary, bool, error) {
	return &models.EarningsSummary{TotalEarnings: 70}, false, nil
}

type fakeInbox struct{}

func (fakeInbox) List(context.Context, models.Actor, models.NotificationFilter) (*service.NotificationList, error) {
	return &service.NotificationList{Items: []models.Notification{}, Pagination: &models.Pagination{Page: 1, PageSize: 20}}, nil
}

func (fakeInbox) MarkRead(_ context.Context, _ models.Actor, id string) (*models.Notification, error) {
	return &models.Notification{ID: id, Read: true}, nil
}

func (fakeInbox) MarkAllRead(context.Context, models.Actor) (int64, error) { return 3, nil }

func (fakeInbox) Delete(context.Context, models.Actor, string) error { return nil }

type fakeReviews struct{}

func (fakeReviews) Create(_ context.Context, _ models.Actor, req models.CreateReviewRequest) (*models.Review, error) {
	return &models.Review{ID: "review-1", SessionID: req.SessionID, Rating: req.Rating}, nil
}

func (fakeReviews) Pending(context.Context, models.Actor) ([]models.Session, error) {
	return []models.Session{}, nil
}

func (fakeReviews) ListByTutor(context.Context, string) ([]models.Review, error) {
	return []models.Review{}, nil
}

type fakeWishlist struct{}

func (fakeWishlist) List(context.Context, models.Actor) ([]models.WishlistEntry, error) {
	return []models.WishlistEntry{}, nil
}

func (fakeWishlist) Add(context.Context, models.Actor, models.AddWishlistRequest) error { return nil }

func (fakeWishlist) Remove(context.Context, models.Actor, string) error {
	return appErrors.Clone(appErrors.ErrNotFound, "tutor is not in your wishlist")
}

type tokenTable map[string]*models.JWTClaims

func (t tokenTable) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := t[token]; ok {
		return claims, nil
	}
	return nil, appErrors.ErrUnauthorized
}

type auditSink struct{ actions []string }

func (a *auditSink) Create(_ context.Context, log *models.AuditLog) error {
	a.actions = append(a.actions, log.Action)
	return nil
}

func newTestEngine(audit *auditSink, ready map[string]Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	Router{
		Tutors:        NewTutorHandler(&fakeDirectory{}, &fakeSlots{}),
		Sessions:      NewSessionHandler(&fakeBooker{}, &fakeLifecycle{}),
		Earnings:      NewEarningsHandler(fakeEarnings{}),
		Notifications: NewNotificationHandler(fakeInbox{}),
		Reviews:       NewReviewHandler(fakeReviews{}),
		Wishlist:      NewWishlistHandler(fakeWishlist{}),
		Admin:         NewAdminHandler(&fakeVerifier{}, &fakeStats{}, &fakeUsers{}),
		Metrics:       NewMetricsHandler(service.NewMetricsService(), ready),
		Tokens: tokenTable{
			"student": {UserID: "student-1", Role: models.RoleStudent},
			"tutor":   {UserID: "tutor-user-1", Role: models.RoleTutor},
			"admin":   {UserID: "admin-1", Role: models.RoleAdmin},
		},
		Audit:          audit,
		BookingLimiter: middleware.NewRateLimiter(60, 10, nil),
	}.Register(engine, "/api/v1")
	return engine
}

func call(engine *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRouterAccessControl(t *testing.T) {
	engine := newTestEngine(&auditSink{}, nil)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		status int
	}{
		{"public slots", http.MethodGet, "/api/v1/tutors/tutor-1/slots?date=2024-06-17", "", "", http.StatusOK},
		{"public directory", http.MethodGet, "/api/v1/tutors", "", "", http.StatusOK},
		{"anonymous booking", http.MethodPost, "/api/v1/sessions", "", `{}`, http.StatusUnauthorized},
		{"tutor cannot book", http.MethodPost, "/api/v1/sessions", "tutor", `{}`, http.StatusForbidden},
		{"student books", http.MethodPost, "/api/v1/sessions", "student", `{"tutor_id":"tutor-1"}`, http.StatusCreated},
		{"student earnings", http.MethodGet, "/api/v1/earnings", "student", "", http.StatusForbidden},
		{"tutor earnings", http.MethodGet, "/api/v1/earnings", "tutor", "", http.StatusOK},
		{"status update", http.MethodPut, "/api/v1/sessions/s-1/status", "tutor", `{"status":"confirmed"}`, http.StatusOK},
		{"mark all read", http.MethodPatch, "/api/v1/notifications/read-all", "tutor", "", http.StatusOK},
		{"mark one read", http.MethodPatch, "/api/v1/notifications/n-1/read", "tutor", "", http.StatusOK},
		{"student wishlist remove", http.MethodDelete, "/api/v1/wishlist/tutor-1", "student", "", http.StatusNotFound},
		{"student admin users", http.MethodGet, "/api/v1/admin/users", "student", "", http.StatusForbidden},
		{"admin users", http.MethodGet, "/api/v1/admin/users", "admin", "", http.StatusOK},
		{"admin metrics", http.MethodGet, "/api/v1/admin/metrics", "admin", "", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := call(engine, tc.method, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestRouterAuditsAdminMutations(t *testing.T) {
	audit := &auditSink{}
	engine := newTestEngine(audit, nil)

	call(engine, http.MethodPatch, "/api/v1/admin/tutors/tutor-1/verify", "admin", `{"status":"verified"}`)
	call(engine, http.MethodPut, "/api/v1/sessions/s-1/status", "student", `{"status":"cancelled"}`)
	call(engine, http.MethodPut, "/api/v1/sessions/s-1/status", "admin", `{"status":"cancelled"}`)

	assert.Equal(t, []string{models.AuditActionTutorVerify, models.AuditActionSessionAdmin}, audit.actions)
}

func TestRouterProbes(t *testing.T) {
	engine := newTestEngine(&auditSink{}, map[string]Pinger{
		"postgres": PingFunc(func(context.Context) error { return nil }),
		"redis":    PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	assert.Equal(t, http.StatusOK, call(engine, http.MethodGet, "/health", "", "").Code)
	ready := call(engine, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, ready.Code)
	assert.Contains(t, ready.Body.String(), "connection refused")

	assert.Equal(t, http.StatusOK, call(engine, http.MethodGet, "/metrics", "", "").Code)
}
