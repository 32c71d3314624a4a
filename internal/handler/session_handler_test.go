package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type fakeBooker struct {
	err     error
	lastReq models.BookSessionRequest
	actor   models.Actor
}

func (f *fakeBooker) Book(_ context.Context, actor models.Actor, req models.BookSessionRequest) (*models.Session, error) {
	f.actor, f.lastReq = actor, req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Session{ID: "session-1", TutorID: req.TutorID, StudentID: actor.UserID, Status: models.SessionPending}, nil
}

type fakeLifecycle struct {
	err    error
	lastID string
	status models.SessionStatus
	filter models.SessionFilter
}

func (f *fakeLifecycle) List(_ context.Context, _ models.Actor, filter models.SessionFilter) ([]models.Session, *models.Pagination, error) {
	f.filter = filter
	return []models.Session{{ID: "session-1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, f.err
}

func (f *fakeLifecycle) Get(_ context.Context, _ models.Actor, id string) (*models.Session, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return &models.Session{ID: id}, nil
}

func (f *fakeLifecycle) UpdateStatus(_ context.Context, _ models.Actor, id string, req models.UpdateSessionStatusRequest) (*models.Session, error) {
	f.lastID, f.status = id, req.Status
	if f.err != nil {
		return nil, f.err
	}
	return &models.Session{ID: id, Status: req.Status}, nil
}

func TestSessionHandlerBook(t *testing.T) {
	booker := &fakeBooker{}
	h := NewSessionHandler(booker, &fakeLifecycle{})

	c, rec := newTestContext(http.MethodPost, "/sessions", map[string]interface{}{
		"tutor_id":   "tutor-1",
		"date":       "2024-06-17",
		"start_time": "15:00",
		"duration":   60,
		"subject":    "Mathematics",
		"type":       "online",
	})
	asActor(c, "student-1", models.RoleStudent)
	h.Book(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "student-1", booker.actor.UserID)
	assert.Equal(t, 60, booker.lastReq.Duration)

	var session models.Session
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &session))
	assert.Equal(t, "session-1", session.ID)
}

func TestSessionHandlerBookErrors(t *testing.T) {
	tests := map[string]struct {
		err    error
		status int
		code   string
	}{
		"slot taken":     {appErrors.ErrSlotUnavailable, http.StatusConflict, "SLOT_UNAVAILABLE"},
		"unverified":     {appErrors.ErrNotFoundOrUnverified, http.StatusBadRequest, "NOT_FOUND_OR_UNVERIFIED"},
		"outside window": {appErrors.ErrOutsideAvailability, http.StatusBadRequest, "OUTSIDE_AVAILABILITY"},
		"no window":      {appErrors.ErrNoAvailability, http.StatusBadRequest, "NO_AVAILABILITY"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			h := NewSessionHandler(&fakeBooker{err: tc.err}, &fakeLifecycle{})
			c, rec := newTestContext(http.MethodPost, "/sessions", map[string]interface{}{"tutor_id": "tutor-1"})
			asActor(c, "student-1", models.RoleStudent)
			h.Book(c)

			assert.Equal(t, tc.status, rec.Code)
			envelope := decodeEnvelope(t, rec)
			require.NotNil(t, envelope.Error)
			assert.Equal(t, tc.code, envelope.Error.Code)
		})
	}
}

func TestSessionHandlerRejectsAnonymousAndBadJSON(t *testing.T) {
	h := NewSessionHandler(&fakeBooker{}, &fakeLifecycle{})

	c, rec := newTestContext(http.MethodPost, "/sessions", nil)
	h.Book(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/sessions", "{not json")
	asActor(c, "student-1", models.RoleStudent)
	h.Book(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHandlerUpdateStatus(t *testing.T) {
	lifecycle := &fakeLifecycle{}
	h := NewSessionHandler(&fakeBooker{}, lifecycle)

	c, rec := newTestContext(http.MethodPut, "/sessions/session-9/status", map[string]string{"status": "cancelled"})
	c.Params = gin.Params{{Key: "id", Value: "session-9"}}
	asActor(c, "student-1", models.RoleStudent)
	h.UpdateStatus(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "session-9", lifecycle.lastID)
	assert.Equal(t, models.SessionCancelled, lifecycle.status)

	lifecycle.err = appErrors.Clone(appErrors.ErrInvalidTransition, "cannot change session status from cancelled to cancelled")
	c, rec = newTestContext(http.MethodPut, "/sessions/session-9/status", map[string]string{"status": "cancelled"})
	c.Params = gin.Params{{Key: "id", Value: "session-9"}}
	asActor(c, "student-1", models.RoleStudent)
	h.UpdateStatus(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSessionHandlerListStatusFilter(t *testing.T) {
	lifecycle := &fakeLifecycle{}
	h := NewSessionHandler(&fakeBooker{}, lifecycle)

	c, rec := newTestContext(http.MethodGet, "/sessions?status=confirmed&page=2&page_size=5", nil)
	asActor(c, "admin-1", models.RoleAdmin)
	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, lifecycle.filter.Status)
	assert.Equal(t, models.SessionConfirmed, *lifecycle.filter.Status)
	assert.Equal(t, 2, lifecycle.filter.Page)
	assert.Equal(t, 5, lifecycle.filter.PageSize)
	assert.Equal(t, 1, decodeEnvelope(t, rec).Pagination.TotalCount)
}
