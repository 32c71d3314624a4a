package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

// WishlistRepository manages students' saved tutors.
type WishlistRepository struct {
	db *sqlx.DB
}

// NewWishlistRepository constructs a WishlistRepository.
func NewWishlistRepository(db *sqlx.DB) *WishlistRepository {
	return &WishlistRepository{db: db}
}

// Add saves tutorID for studentID; repeats are ignored.
func (r *WishlistRepository) Add(ctx context.Context, studentID, tutorID string) error {
	const query = `INSERT INTO wishlists (student_id, tutor_id, created_at) VALUES ($1, $2, $3) ON CONFLICT (student_id, tutor_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, studentID, tutorID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add wishlist entry: %w", err)
	}
	return nil
}

// Remove deletes a saved tutor and reports whether anything was removed.
func (r *WishlistRepository) Remove(ctx context.Context, studentID, tutorID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM wishlists WHERE student_id = $1 AND tutor_id = $2`, studentID, tutorID)
	if err != nil {
		return false, fmt.Errorf("remove wishlist entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove wishlist entry: %w", err)
	}
	return n > 0, nil
}

// ListByStudent returns the student's entries newest first.
func (r *WishlistRepository) ListByStudent(ctx context.Context, studentID string) ([]models.WishlistEntry, error) {
	const query = `SELECT student_id, tutor_id, created_at FROM wishlists WHERE student_id = $1 ORDER BY created_at DESC`
	var entries []models.WishlistEntry
	if err := r.db.SelectContext(ctx, &entries, query, studentID); err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	return entries, nil
}

// StudentsForTutor lists the students who saved tutorID.
func (r *WishlistRepository) StudentsForTutor(ctx context.Context, tutorID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT student_id FROM wishlists WHERE tutor_id = $1`, tutorID); err != nil {
		return nil, fmt.Errorf("list wishlisting students: %w", err)
	}
	return ids, nil
}
