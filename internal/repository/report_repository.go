package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

// ReportRepository runs the aggregate queries behind admin reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs a ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// SessionsByStatus counts sessions per status.
func (r *ReportRepository) SessionsByStatus(ctx context.Context) ([]models.CountByKey, error) {
	return r.counts(ctx, "sessions by status", `SELECT status AS key, COUNT(*) AS count FROM sessions GROUP BY status`)
}

// UsersByRole counts users per role.
func (r *ReportRepository) UsersByRole(ctx context.Context) ([]models.CountByKey, error) {
	return r.counts(ctx, "users by role", `SELECT role AS key, COUNT(*) AS count FROM users GROUP BY role`)
}

// TutorsByVerification counts tutors per verification status.
func (r *ReportRepository) TutorsByVerification(ctx context.Context) ([]models.CountByKey, error) {
	return r.counts(ctx, "tutors by verification", `SELECT verification_status AS key, COUNT(*) AS count FROM tutors GROUP BY verification_status`)
}

// TopSubjects returns the most booked subjects.
func (r *ReportRepository) TopSubjects(ctx context.Context, limit int) ([]models.CountByKey, error) {
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT subject AS key, COUNT(*) AS count FROM sessions GROUP BY subject ORDER BY count DESC, subject LIMIT %d`, limit)
	return r.counts(ctx, "top subjects", query)
}

// SessionsByMonth groups sessions per calendar month, oldest first.
func (r *ReportRepository) SessionsByMonth(ctx context.Context) ([]models.MonthlySessions, error) {
	const query = `SELECT to_char(session_date, 'YYYY-MM') AS month, COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = 'completed') AS completed,
		COALESCE(SUM(price) FILTER (WHERE status = 'completed'), 0) AS revenue
		FROM sessions GROUP BY month ORDER BY month`
	var rows []models.MonthlySessions
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("sessions by month: %w", err)
	}
	return rows, nil
}

// TotalRevenue sums the price of completed sessions.
func (r *ReportRepository) TotalRevenue(ctx context.Context) (float64, error) {
	var total float64
	if err := r.db.GetContext(ctx, &total, `SELECT COALESCE(SUM(price), 0) FROM sessions WHERE status = 'completed'`); err != nil {
		return 0, fmt.Errorf("total revenue: %w", err)
	}
	return total, nil
}

func (r *ReportRepository) counts(ctx context.Context, label, query string) ([]models.CountByKey, error) {
	var rows []models.CountByKey
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	return rows, nil
}
