package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/pkg/database"
)

// ErrAlreadyReviewed is returned when the session was reviewed before the insert landed.
var ErrAlreadyReviewed = errors.New("session already reviewed")

// ReviewRepository manages reviews and the tutor rating aggregate.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs a ReviewRepository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create stores review, marks its session reviewed and recomputes the tutor's rating in one transaction.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) (*models.RatingSummary, error) {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}

	var summary models.RatingSummary
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE sessions SET reviewed = TRUE, updated_at = $2 WHERE id = $1 AND reviewed = FALSE`, review.SessionID, now)
		if err != nil {
			return fmt.Errorf("mark session reviewed: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("mark session reviewed: %w", err)
		} else if n == 0 {
			return ErrAlreadyReviewed
		}

		const insert = `INSERT INTO reviews (id, session_id, tutor_id, student_id, rating, comment, created_at)
			VALUES (:id, :session_id, :tutor_id, :student_id, :rating, :comment, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insert, review); err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyReviewed
			}
			return fmt.Errorf("create review: %w", err)
		}

		const aggregate = `SELECT COALESCE(ROUND(AVG(rating)::numeric, 2), 0) AS average, COUNT(*) AS count FROM reviews WHERE tutor_id = $1`
		if err := tx.GetContext(ctx, &summary, aggregate, review.TutorID); err != nil {
			return fmt.Errorf("aggregate tutor rating: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tutors SET rating = $2, review_count = $3, updated_at = $4 WHERE id = $1`,
			review.TutorID, summary.Average, summary.Count, now); err != nil {
			return fmt.Errorf("update tutor rating: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListByTutor returns a tutor's reviews newest first.
func (r *ReviewRepository) ListByTutor(ctx context.Context, tutorID string) ([]models.Review, error) {
	const query = `SELECT id, session_id, tutor_id, student_id, rating, comment, created_at FROM reviews WHERE tutor_id = $1 ORDER BY created_at DESC`
	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, tutorID); err != nil {
		return nil, fmt.Errorf("list tutor reviews: %w", err)
	}
	return reviews, nil
}
