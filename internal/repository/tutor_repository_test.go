package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

var tutorRowColumns = []string{"id", "user_id", "full_name", "subjects", "qualifications", "hourly_rate", "city", "bio",
	"teaching_mode", "availability", "rating", "review_count", "verification_status", "verification_comment", "created_at", "updated_at"}

func tutorRow(rows *sqlmock.Rows, id, status string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, "tutor-user-1", "Ada Lovelace",
		[]byte(`["Mathematics"]`),
		[]byte(`[{"degree":"BSc","institution":"UCL","year":2015}]`),
		40.0, "London", "bio", "online",
		[]byte(`[{"day":"monday","start_time":"14:00","end_time":"16:00"}]`),
		4.5, 2, status, nil, now, now)
}

func TestTutorRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewTutorRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tutors t LEFT JOIN users u ON u.id = t.user_id WHERE t.id = $1")).
		WithArgs("tutor-1").
		WillReturnRows(tutorRow(sqlmock.NewRows(tutorRowColumns), "tutor-1", "verified"))

	tutor, err := repo.FindByID(context.Background(), "tutor-1")
	require.NoError(t, err)
	assert.True(t, tutor.Verified())
	assert.Equal(t, models.Subjects{{Name: "Mathematics", ProficiencyLevel: models.DefaultProficiency}}, tutor.Subjects)
	window, ok := tutor.Availability.ForDay(models.Monday)
	require.True(t, ok)
	assert.Equal(t, "16:00", window.EndTime.String())
	assert.Equal(t, "UCL", tutor.Qualifications[0].Institution)
}

func TestTutorRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewTutorRepository(db)

	status := models.VerificationVerified
	maxRate := 50.0
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND t.verification_status = $1 AND EXISTS (SELECT 1 FROM jsonb_array_elements(t.subjects) s WHERE LOWER(s->>'name') LIKE $2) AND LOWER(t.city) = $3 AND t.hourly_rate <= $4 ORDER BY t.rating DESC, t.created_at DESC LIMIT 10 OFFSET 10")).
		WithArgs("verified", "%math%", "london", 50.0).
		WillReturnRows(tutorRow(sqlmock.NewRows(tutorRowColumns), "tutor-1", "verified"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tutors t")).
		WithArgs("verified", "%math%", "london", 50.0).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	tutors, total, err := repo.List(context.Background(), models.TutorFilter{
		Status: &status, Subject: "Math", City: "London", MaxRate: &maxRate, Page: 2, PageSize: 10,
	})
	require.NoError(t, err)
	assert.Len(t, tutors, 1)
	assert.Equal(t, 11, total)
}

func TestTutorRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewTutorRepository(db)

	mock.ExpectExec("INSERT INTO tutors").WillReturnResult(sqlmock.NewResult(1, 1))

	tutor := &models.Tutor{UserID: "tutor-user-1", HourlyRate: 30, City: "Paris", TeachingMode: models.TeachingOnline}
	require.NoError(t, repo.Create(context.Background(), tutor))
	assert.NotEmpty(t, tutor.ID)
	assert.Equal(t, models.VerificationPending, tutor.VerificationStatus)
}

func TestTutorRepositoryUpdateVerification(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewTutorRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tutors SET verification_status = $2, verification_comment = $3")).
		WithArgs("tutor-1", "rejected", "missing documents", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateVerification(context.Background(), "tutor-1", models.VerificationRejected, strPtr("missing documents")))
}

func TestTutorRepositoryVerificationStats(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewTutorRepository(db)

	mock.ExpectQuery("COUNT\\(\\*\\) FILTER").
		WillReturnRows(sqlmock.NewRows([]string{"pending", "verified", "rejected"}).AddRow(3, 10, 1))

	stats, err := repo.VerificationStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStats{Pending: 3, Verified: 10, Rejected: 1}, *stats)
}
