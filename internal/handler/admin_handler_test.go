package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type fakeVerifier struct {
	req models.VerifyTutorRequest
}

func (f *fakeVerifier) ListPending(context.Context, int, int) ([]models.Tutor, *models.Pagination, error) {
	return []models.Tutor{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (f *fakeVerifier) VerificationStats(context.Context) (*models.VerificationStats, error) {
	return &models.VerificationStats{Pending: 2}, nil
}

func (f *fakeVerifier) Verify(_ context.Context, _ models.Actor, id string, req models.VerifyTutorRequest) (*models.Tutor, error) {
	f.req = req
	if req.Status == models.VerificationRejected && req.Comment == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a comment is required when rejecting a tutor")
	}
	return &models.Tutor{ID: id, VerificationStatus: req.Status}, nil
}

type fakeStats struct {
	hit bool
	err error
}

func (f *fakeStats) SessionStats(context.Context) (*models.SessionStats, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	return &models.SessionStats{Total: 4}, f.hit, nil
}

func (f *fakeStats) PlatformStats(context.Context) (*models.PlatformStats, bool, error) {
	return &models.PlatformStats{TotalRevenue: 10}, f.hit, nil
}

type fakeUsers struct {
	filter models.UserFilter
}

func (f *fakeUsers) List(_ context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	f.filter = filter
	return []models.User{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (f *fakeUsers) SetActive(_ context.Context, _ models.Actor, id string, req models.UpdateUserStatusRequest) (*models.User, error) {
	return &models.User{ID: id, Active: *req.Active}, nil
}

func TestAdminHandlerVerifyTutor(t *testing.T) {
	verifier := &fakeVerifier{}
	h := NewAdminHandler(verifier, &fakeStats{}, &fakeUsers{})

	c, rec := newTestContext(http.MethodPatch, "/admin/tutors/tutor-1/verify", map[string]string{"status": "rejected"})
	c.Params = gin.Params{{Key: "id", Value: "tutor-1"}}
	asActor(c, "admin-1", models.RoleAdmin)
	h.VerifyTutor(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newTestContext(http.MethodPatch, "/admin/tutors/tutor-1/verify", map[string]string{"status": "verified"})
	c.Params = gin.Params{{Key: "id", Value: "tutor-1"}}
	asActor(c, "admin-1", models.RoleAdmin)
	h.VerifyTutor(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.VerificationVerified, verifier.req.Status)
}

func TestAdminHandlerStatsReportsCacheHit(t *testing.T) {
	h := NewAdminHandler(&fakeVerifier{}, &fakeStats{hit: true}, &fakeUsers{})

	c, rec := newTestContext(http.MethodGet, "/admin/stats/sessions", nil)
	h.SessionStats(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeEnvelope(t, rec).Meta["cache_hit"])
}

func TestAdminHandlerStatsFailure(t *testing.T) {
	h := NewAdminHandler(&fakeVerifier{}, &fakeStats{err: appErrors.Internal(errors.New("timeout"), "failed to load session stats")}, &fakeUsers{})

	c, rec := newTestContext(http.MethodGet, "/admin/stats/sessions", nil)
	h.SessionStats(c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAdminHandlerListUsersFilters(t *testing.T) {
	users := &fakeUsers{}
	h := NewAdminHandler(&fakeVerifier{}, &fakeStats{}, users)

	c, rec := newTestContext(http.MethodGet, "/admin/users?role=tutor&active=false&search=ada", nil)
	h.ListUsers(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, users.filter.Role)
	assert.Equal(t, models.RoleTutor, *users.filter.Role)
	require.NotNil(t, users.filter.Active)
	assert.False(t, *users.filter.Active)
	assert.Equal(t, "ada", users.filter.Search)
}
