package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

const tutorColumns = `t.id, t.user_id, COALESCE(u.full_name, '') AS full_name, t.subjects, t.qualifications, t.hourly_rate, t.city, t.bio,
	t.teaching_mode, t.availability, t.rating, t.review_count, t.verification_status, t.verification_comment, t.created_at, t.updated_at`

const tutorFrom = `FROM tutors t LEFT JOIN users u ON u.id = t.user_id`

// TutorRepository manages persistence for tutor profiles.
type TutorRepository struct {
	db *sqlx.DB
}

// NewTutorRepository constructs a TutorRepository.
func NewTutorRepository(db *sqlx.DB) *TutorRepository {
	return &TutorRepository{db: db}
}

// List returns tutors matching filter along with the total count.
func (r *TutorRepository) List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, int, error) {
	where := " WHERE 1=1"
	var args []interface{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(" AND t.verification_status = $%d", len(args))
	}
	if filter.Subject != "" {
		args = append(args, "%"+strings.ToLower(filter.Subject)+"%")
		where += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM jsonb_array_elements(t.subjects) s WHERE LOWER(s->>'name') LIKE $%d)", len(args))
	}
	if filter.City != "" {
		args = append(args, strings.ToLower(filter.City))
		where += fmt.Sprintf(" AND LOWER(t.city) = $%d", len(args))
	}
	if filter.MaxRate != nil {
		args = append(args, *filter.MaxRate)
		where += fmt.Sprintf(" AND t.hourly_rate <= $%d", len(args))
	}

	page, size := models.NormalizePaging(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s%s ORDER BY t.rating DESC, t.created_at DESC LIMIT %d OFFSET %d", tutorColumns, tutorFrom, where, size, offset)
	var tutors []models.Tutor
	if err := r.db.SelectContext(ctx, &tutors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tutors: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s%s", tutorFrom, where), args...); err != nil {
		return nil, 0, fmt.Errorf("count tutors: %w", err)
	}
	return tutors, total, nil
}

// FindByID fetches a tutor by profile id.
func (r *TutorRepository) FindByID(ctx context.Context, id string) (*models.Tutor, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE t.id = $1", tutorColumns, tutorFrom)
	var tutor models.Tutor
	if err := r.db.GetContext(ctx, &tutor, query, id); err != nil {
		return nil, err
	}
	return &tutor, nil
}

// FindByUserID fetches the profile owned by userID.
func (r *TutorRepository) FindByUserID(ctx context.Context, userID string) (*models.Tutor, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE t.user_id = $1", tutorColumns, tutorFrom)
	var tutor models.Tutor
	if err := r.db.GetContext(ctx, &tutor, query, userID); err != nil {
		return nil, err
	}
	return &tutor, nil
}

// Create inserts a new tutor profile in pending verification.
func (r *TutorRepository) Create(ctx context.Context, tutor *models.Tutor) error {
	if tutor.ID == "" {
		tutor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tutor.CreatedAt.IsZero() {
		tutor.CreatedAt = now
	}
	tutor.UpdatedAt = now
	if tutor.VerificationStatus == "" {
		tutor.VerificationStatus = models.VerificationPending
	}

	const query = `INSERT INTO tutors (id, user_id, subjects, qualifications, hourly_rate, city, bio, teaching_mode, availability,
		rating, review_count, verification_status, verification_comment, created_at, updated_at)
		VALUES (:id, :user_id, :subjects, :qualifications, :hourly_rate, :city, :bio, :teaching_mode, :availability,
		:rating, :review_count, :verification_status, :verification_comment, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tutor); err != nil {
		return fmt.Errorf("create tutor: %w", err)
	}
	return nil
}

// UpdateProfile writes the tutor-editable fields.
func (r *TutorRepository) UpdateProfile(ctx context.Context, tutor *models.Tutor) error {
	tutor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tutors SET subjects = :subjects, qualifications = :qualifications, hourly_rate = :hourly_rate, city = :city,
		bio = :bio, teaching_mode = :teaching_mode, availability = :availability, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, tutor); err != nil {
		return fmt.Errorf("update tutor: %w", err)
	}
	return nil
}

// UpdateAvailability replaces the weekly schedule wholesale.
func (r *TutorRepository) UpdateAvailability(ctx context.Context, id string, availability models.Availability) error {
	const query = `UPDATE tutors SET availability = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, availability, time.Now().UTC()); err != nil {
		return fmt.Errorf("update tutor availability: %w", err)
	}
	return nil
}

// UpdateVerification records an admin decision.
func (r *TutorRepository) UpdateVerification(ctx context.Context, id string, status models.VerificationStatus, comment *string) error {
	const query = `UPDATE tutors SET verification_status = $2, verification_comment = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, comment, time.Now().UTC()); err != nil {
		return fmt.Errorf("update tutor verification: %w", err)
	}
	return nil
}

// VerificationStats counts tutors per verification status.
func (r *TutorRepository) VerificationStats(ctx context.Context) (*models.VerificationStats, error) {
	const query = `SELECT
		COUNT(*) FILTER (WHERE verification_status = 'pending') AS pending,
		COUNT(*) FILTER (WHERE verification_status = 'verified') AS verified,
		COUNT(*) FILTER (WHERE verification_status = 'rejected') AS rejected
		FROM tutors`
	var stats models.VerificationStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("tutor verification stats: %w", err)
	}
	return &stats, nil
}
