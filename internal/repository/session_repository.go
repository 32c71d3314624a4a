package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/pkg/database"
)

// ErrSlotTaken is returned when the active-slot unique index rejects an insert.
var ErrSlotTaken = errors.New("session slot already taken")

// ErrStatusChanged is returned when a conditional status update matched no row.
var ErrStatusChanged = errors.New("session status changed concurrently")

const uniqueViolation = "23505"

const sessionColumns = `id, tutor_id, tutor_user_id, student_id, session_date, start_time, duration, status, subject,
	session_type, location, price, notes, reviewed, created_at, updated_at`

// GuardFunc inspects the tutor's active sessions for the booked date while the per-tutor lock is held.
type GuardFunc func(active []models.Session) error

// SessionRepository manages persistence for sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// FindByID fetches a session by id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE id = $1", sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns sessions matching filter along with the total count, newest date first.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	where := " WHERE 1=1"
	var args []interface{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		where += fmt.Sprintf(" AND student_id = $%d", len(args))
	}
	if filter.TutorUserID != "" {
		args = append(args, filter.TutorUserID)
		where += fmt.Sprintf(" AND tutor_user_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	page, size := models.NormalizePaging(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM sessions%s ORDER BY session_date DESC, start_time DESC LIMIT %d OFFSET %d", sessionColumns, where, size, (page-1)*size)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM sessions"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}

// ListActiveByTutorAndDate returns pending and confirmed sessions for a tutor on date.
func (r *SessionRepository) ListActiveByTutorAndDate(ctx context.Context, tutorID string, date models.Date) ([]models.Session, error) {
	return r.listActive(ctx, r.db, tutorID, date, false)
}

// ListByTutor returns every session of a tutor profile, used for earnings.
func (r *SessionRepository) ListByTutor(ctx context.Context, tutorID string) ([]models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE tutor_id = $1", sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, tutorID); err != nil {
		return nil, fmt.Errorf("list tutor sessions: %w", err)
	}
	return sessions, nil
}

// BookedSlots lists active sessions of a tutor from the given date onwards.
func (r *SessionRepository) BookedSlots(ctx context.Context, tutorID string, from models.Date) ([]models.BookedSlot, error) {
	const query = `SELECT session_date, start_time, duration FROM sessions
		WHERE tutor_id = $1 AND session_date >= $2 AND status IN ('pending', 'confirmed')
		ORDER BY session_date, start_time`
	var slots []models.BookedSlot
	if err := r.db.SelectContext(ctx, &slots, query, tutorID, from); err != nil {
		return nil, fmt.Errorf("list booked slots: %w", err)
	}
	return slots, nil
}

// ListPendingReview returns completed sessions of a student that have not been reviewed.
func (r *SessionRepository) ListPendingReview(ctx context.Context, studentID string) ([]models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE student_id = $1 AND status = 'completed' AND reviewed = FALSE ORDER BY session_date DESC", sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, studentID); err != nil {
		return nil, fmt.Errorf("list sessions pending review: %w", err)
	}
	return sessions, nil
}

// CreateGuarded inserts session after serialising on the tutor with a
// transaction-scoped advisory lock and re-running guard against the active
// sessions for that date.
func (r *SessionRepository) CreateGuarded(ctx context.Context, session *models.Session, guard GuardFunc) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, session.TutorID); err != nil {
			return fmt.Errorf("lock tutor %s: %w", session.TutorID, err)
		}
		active, err := r.listActive(ctx, tx, session.TutorID, session.Date, true)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(active); err != nil {
				return err
			}
		}
		const query = `INSERT INTO sessions (id, tutor_id, tutor_user_id, student_id, session_date, start_time, duration, status, subject,
			session_type, location, price, notes, reviewed, created_at, updated_at)
			VALUES (:id, :tutor_id, :tutor_user_id, :student_id, :session_date, :start_time, :duration, :status, :subject,
			:session_type, :location, :price, :notes, :reviewed, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, session); err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		return nil
	})
	if isUniqueViolation(err) {
		return ErrSlotTaken
	}
	return err
}

// UpdateStatus moves a session from one status to another only if it is still in from.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, from, to models.SessionStatus) (*models.Session, error) {
	query := fmt.Sprintf("UPDATE sessions SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2 RETURNING %s", sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id, from, to, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatusChanged
		}
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("update session status: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) listActive(ctx context.Context, q sqlx.QueryerContext, tutorID string, date models.Date, forUpdate bool) ([]models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE tutor_id = $1 AND session_date = $2 AND status IN ('pending', 'confirmed') ORDER BY start_time", sessionColumns)
	if forUpdate {
		query += " FOR UPDATE"
	}
	var sessions []models.Session
	if err := sqlx.SelectContext(ctx, q, &sessions, query, tutorID, date); err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return sessions, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
