package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

var sessionRowColumns = []string{"id", "tutor_id", "tutor_user_id", "student_id", "session_date", "start_time", "duration", "status", "subject",
	"session_type", "location", "price", "notes", "reviewed", "created_at", "updated_at"}

func sessionRow(rows *sqlmock.Rows, id, start string, duration int, status string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, "tutor-1", "tutor-user-1", "student-1", time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), start+":00", duration, status,
		"Algebra", "online", nil, 50.0, nil, false, now, now)
}

func newSession() *models.Session {
	date, _ := models.ParseDate("2024-06-10")
	return &models.Session{
		TutorID:     "tutor-1",
		TutorUserID: "tutor-user-1",
		StudentID:   "student-2",
		Date:        date,
		StartTime:   models.MustTimeOfDay("15:00"),
		Duration:    60,
		Status:      models.SessionPending,
		Subject:     "Algebra",
		Type:        models.SessionOnline,
		Price:       50,
	}
}

func TestSessionRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE id = $1")).
		WithArgs("s-1").
		WillReturnRows(sessionRow(sqlmock.NewRows(sessionRowColumns), "s-1", "14:00", 60, "pending"))

	session, err := repo.FindByID(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "14:00", session.StartTime.String())
	assert.Equal(t, "2024-06-10", session.Date.String())
	assert.Equal(t, models.SessionPending, session.Status)
	assert.Equal(t, models.Monday, session.Date.Weekday())
}

func TestSessionRepositoryCreateGuarded(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("tutor-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE tutor_id = $1 AND session_date = $2 AND status IN ('pending', 'confirmed') ORDER BY start_time FOR UPDATE")).
		WithArgs("tutor-1", "2024-06-10").
		WillReturnRows(sessionRow(sqlmock.NewRows(sessionRowColumns), "s-1", "14:00", 60, "pending"))
	mock.ExpectExec("INSERT INTO sessions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	var seen []models.Session
	session := newSession()
	err := repo.CreateGuarded(context.Background(), session, func(active []models.Session) error {
		seen = active
		return nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	require.Len(t, seen, 1)
	assert.Equal(t, "s-1", seen[0].ID)
}

func TestSessionRepositoryCreateGuardedRejected(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM sessions WHERE tutor_id").
		WillReturnRows(sessionRow(sqlmock.NewRows(sessionRowColumns), "s-1", "14:00", 60, "confirmed"))
	mock.ExpectRollback()

	conflict := errors.New("conflict")
	err := repo.CreateGuarded(context.Background(), newSession(), func([]models.Session) error { return conflict })
	assert.ErrorIs(t, err, conflict)
}

func TestSessionRepositoryCreateGuardedUniqueViolation(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM sessions WHERE tutor_id").WillReturnRows(sqlmock.NewRows(sessionRowColumns))
	mock.ExpectExec("INSERT INTO sessions").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.CreateGuarded(context.Background(), newSession(), nil)
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestSessionRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE sessions SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2 RETURNING")).
		WithArgs("s-1", "pending", "confirmed", sqlmock.AnyArg()).
		WillReturnRows(sessionRow(sqlmock.NewRows(sessionRowColumns), "s-1", "14:00", 60, "confirmed"))

	updated, err := repo.UpdateStatus(context.Background(), "s-1", models.SessionPending, models.SessionConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.SessionConfirmed, updated.Status)
}

func TestSessionRepositoryUpdateStatusLostRace(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("UPDATE sessions SET status").
		WithArgs("s-1", "pending", "cancelled", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(sessionRowColumns))

	_, err := repo.UpdateStatus(context.Background(), "s-1", models.SessionPending, models.SessionCancelled)
	assert.ErrorIs(t, err, ErrStatusChanged)
}

func TestSessionRepositoryList(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	status := models.SessionPending
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE 1=1 AND student_id = $1 AND status = $2 ORDER BY session_date DESC, start_time DESC LIMIT 20 OFFSET 0")).
		WithArgs("student-1", "pending").
		WillReturnRows(sessionRow(sqlmock.NewRows(sessionRowColumns), "s-1", "14:00", 60, "pending"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sessions WHERE 1=1 AND student_id = $1 AND status = $2")).
		WithArgs("student-1", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	sessions, total, err := repo.List(context.Background(), models.SessionFilter{StudentID: "student-1", Status: &status})
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
	assert.Equal(t, 1, total)
}

func TestSessionRepositoryBookedSlots(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("SELECT session_date, start_time, duration FROM sessions").
		WithArgs("tutor-1", "2024-06-10").
		WillReturnRows(sqlmock.NewRows([]string{"session_date", "start_time", "duration"}).
			AddRow(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), "14:00:00", 60))

	from, _ := models.ParseDate("2024-06-10")
	slots, err := repo.BookedSlots(context.Background(), "tutor-1", from)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "14:00", slots[0].StartTime.String())
}
