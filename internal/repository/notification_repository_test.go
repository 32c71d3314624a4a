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

func TestNotificationRepositoryCreateIsIdempotent(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO NOTHING")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO NOTHING")).WillReturnResult(sqlmock.NewResult(0, 0))

	n := &models.Notification{ID: "n-1", RecipientID: "tutor-user-1", Type: models.NotificationSessionRequest, Message: "hello"}
	require.NoError(t, repo.Create(context.Background(), n))
	require.NoError(t, repo.Create(context.Background(), n))
	assert.Equal(t, "n-1", n.ID)
}

func TestNotificationRepositoryList(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM notifications WHERE recipient_id = $1 AND read = FALSE ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "recipient_id", "sender_id", "type", "message", "read", "related_id", "related_model", "created_at"}).
			AddRow("n-1", "user-1", nil, "session-update", "Session confirmed", false, "s-1", "session", time.Now()))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) AS total").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "unread"}).AddRow(5, 1))

	items, total, unread, err := repo.List(context.Background(), models.NotificationFilter{RecipientID: "user-1", UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.RelatedSession, *items[0].RelatedModel)
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, unread)
}

func TestNotificationRepositoryMarkAllRead(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET read = TRUE WHERE recipient_id = $1 AND read = FALSE")).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.MarkAllRead(context.Background(), "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}
