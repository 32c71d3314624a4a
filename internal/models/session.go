package models

import (
	"math"
	"time"
)

// SessionStatus is the lifecycle state of a booked session.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionConfirmed SessionStatus = "confirmed"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// IsActive reports whether the session still occupies the tutor's time.
func (s SessionStatus) IsActive() bool {
	return s == SessionPending || s == SessionConfirmed
}

// ActiveSessionStatuses are the statuses that block a time slot.
var ActiveSessionStatuses = []SessionStatus{SessionPending, SessionConfirmed}

// SessionType is how the session is held.
type SessionType string

const (
	SessionOnline   SessionType = "online"
	SessionInPerson SessionType = "in-person"
)

// Session is a booking of a tutor by a student.
type Session struct {
	ID          string        `db:"id" json:"id"`
	TutorID     string        `db:"tutor_id" json:"tutor_id"`
	TutorUserID string        `db:"tutor_user_id" json:"tutor_user_id"`
	StudentID   string        `db:"student_id" json:"student_id"`
	Date        Date          `db:"session_date" json:"date"`
	StartTime   TimeOfDay     `db:"start_time" json:"start_time"`
	Duration    int           `db:"duration" json:"duration"`
	Status      SessionStatus `db:"status" json:"status"`
	Subject     string        `db:"subject" json:"subject"`
	Type        SessionType   `db:"session_type" json:"type"`
	Location    *string       `db:"location" json:"location,omitempty"`
	Price       float64       `db:"price" json:"price"`
	Notes       *string       `db:"notes" json:"notes,omitempty"`
	Reviewed    bool          `db:"reviewed" json:"reviewed"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// EndTime is the exclusive end of the session.
func (s *Session) EndTime() TimeOfDay {
	return s.StartTime + TimeOfDay(s.Duration)
}

// IsParty reports whether userID is the student or the tutor's owning user.
func (s *Session) IsParty(userID string) bool {
	return userID != "" && (userID == s.StudentID || userID == s.TutorUserID)
}

// SessionPrice computes hourlyRate * minutes / 60 rounded to cents.
func SessionPrice(hourlyRate float64, minutes int) float64 {
	return math.Round(hourlyRate*float64(minutes)/60*100) / 100
}

// BookedSlot is the public projection of an active session used by booking UIs.
type BookedSlot struct {
	Date      Date      `db:"session_date" json:"date"`
	StartTime TimeOfDay `db:"start_time" json:"start_time"`
	Duration  int       `db:"duration" json:"duration"`
}

// SessionFilter captures listing criteria.
type SessionFilter struct {
	StudentID   string
	TutorUserID string
	Status      *SessionStatus
	Page        int
	PageSize    int
}

// BookSessionRequest is the payload a student sends to book a tutor.
type BookSessionRequest struct {
	TutorID   string      `json:"tutor_id" validate:"required"`
	Date      string      `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string      `json:"start_time" validate:"required,datetime=15:04"`
	Duration  int         `json:"duration" validate:"required,gt=0,lte=480"`
	Subject   string      `json:"subject" validate:"required,max=200"`
	Type      SessionType `json:"type" validate:"required,oneof=online in-person"`
	Location  string      `json:"location" validate:"max=500"`
	Notes     string      `json:"notes" validate:"max=2000"`
}

// UpdateSessionStatusRequest moves a session along its lifecycle.
type UpdateSessionStatusRequest struct {
	Status SessionStatus `json:"status" validate:"required,oneof=pending confirmed completed cancelled"`
}
