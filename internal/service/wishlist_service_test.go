package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type memWishlistRepo struct {
	entries map[string][]string
}

func (m *memWishlistRepo) Add(ctx context.Context, studentID, tutorID string) error {
	for _, id := range m.entries[studentID] {
		if id == tutorID {
			return nil
		}
	}
	m.entries[studentID] = append(m.entries[studentID], tutorID)
	return nil
}

func (m *memWishlistRepo) Remove(ctx context.Context, studentID, tutorID string) (bool, error) {
	ids := m.entries[studentID]
	for i, id := range ids {
		if id == tutorID {
			m.entries[studentID] = append(ids[:i], ids[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memWishlistRepo) ListByStudent(ctx context.Context, studentID string) ([]models.WishlistEntry, error) {
	var out []models.WishlistEntry
	for _, id := range m.entries[studentID] {
		out = append(out, models.WishlistEntry{StudentID: studentID, TutorID: id, CreatedAt: time.Now()})
	}
	return out, nil
}

func TestWishlistLifecycle(t *testing.T) {
	tutors, _, _, _, _ := newTutorFixture(mondayTutor("tutor-1", "tutor-user-1", "14:00", "16:00"))
	repo := &memWishlistRepo{entries: map[string][]string{}}
	svc := NewWishlistService(repo, tutors, nil, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Add(ctx, student, models.AddWishlistRequest{TutorID: "missing"}), appErrors.ErrNotFound)
	assert.Equal(t, appErrors.ErrValidation.Code, appCode(svc.Add(ctx, student, models.AddWishlistRequest{})))

	require.NoError(t, svc.Add(ctx, student, models.AddWishlistRequest{TutorID: "tutor-1"}))
	require.NoError(t, svc.Add(ctx, student, models.AddWishlistRequest{TutorID: "tutor-1"}))

	entries, err := svc.List(ctx, student)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Tutor)
	assert.Equal(t, "Ada Tutor", entries[0].Tutor.FullName)

	require.NoError(t, svc.Remove(ctx, student, "tutor-1"))
	assert.ErrorIs(t, svc.Remove(ctx, student, "tutor-1"), appErrors.ErrNotFound)
}
