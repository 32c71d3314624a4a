package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// VerificationStatus tracks the admin review of a tutor's credentials.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// TeachingMode lists how a tutor is willing to meet students.
type TeachingMode string

const (
	TeachingOnline   TeachingMode = "online"
	TeachingInPerson TeachingMode = "in-person"
	TeachingBoth     TeachingMode = "both"
)

// DefaultProficiency is assigned to subjects supplied as bare names.
const DefaultProficiency = "Beginner"

// AvailabilityWindow is a recurring weekly interval during which a tutor accepts sessions.
type AvailabilityWindow struct {
	Day       Weekday   `json:"day"`
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
}

// Duration is the length of the window.
func (w AvailabilityWindow) Duration() time.Duration {
	return time.Duration(w.EndTime-w.StartTime) * time.Minute
}

// Availability is the tutor's weekly schedule, at most one window per weekday.
type Availability []AvailabilityWindow

// Validate enforces start < end and unique weekdays.
func (a Availability) Validate() error {
	seen := make(map[Weekday]struct{}, len(a))
	for _, w := range a {
		if _, err := ParseWeekday(string(w.Day)); err != nil {
			return err
		}
		if w.StartTime >= w.EndTime {
			return fmt.Errorf("%s: start time %s must be before end time %s", w.Day, w.StartTime, w.EndTime)
		}
		if w.EndTime > MinutesPerDay {
			return fmt.Errorf("%s: end time %s exceeds end of day", w.Day, w.EndTime)
		}
		if _, dup := seen[w.Day]; dup {
			return fmt.Errorf("%s: only one availability window per day is allowed", w.Day)
		}
		seen[w.Day] = struct{}{}
	}
	return nil
}

// ForDay returns the window configured for day, if any.
func (a Availability) ForDay(day Weekday) (AvailabilityWindow, bool) {
	for _, w := range a {
		if w.Day == day {
			return w, true
		}
	}
	return AvailabilityWindow{}, false
}

// Value stores the schedule as a JSONB document.
func (a Availability) Value() (driver.Value, error) {
	return jsonValue(a)
}

// Scan reads a JSONB document.
func (a *Availability) Scan(src interface{}) error {
	return jsonScan(src, a)
}

// Subject is a taught subject with the tutor's self-declared level.
type Subject struct {
	Name             string `json:"name" validate:"required"`
	ProficiencyLevel string `json:"proficiency_level"`
}

// UnmarshalJSON also accepts a plain subject name.
func (s *Subject) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*s = Subject{Name: strings.TrimSpace(name), ProficiencyLevel: DefaultProficiency}
		return nil
	}
	type plain Subject
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.ProficiencyLevel == "" {
		p.ProficiencyLevel = DefaultProficiency
	}
	*s = Subject(p)
	return nil
}

// Subjects is stored as a JSONB array.
type Subjects []Subject

// Names lists subject names in order.
func (s Subjects) Names() []string {
	names := make([]string, 0, len(s))
	for _, subj := range s {
		names = append(names, subj.Name)
	}
	return names
}

// Value stores the subjects as JSONB.
func (s Subjects) Value() (driver.Value, error) {
	return jsonValue(s)
}

// Scan reads JSONB subjects.
func (s *Subjects) Scan(src interface{}) error {
	return jsonScan(src, s)
}

// Qualification is an academic credential listed on a tutor profile.
type Qualification struct {
	Degree      string `json:"degree" validate:"required"`
	Institution string `json:"institution" validate:"required"`
	Year        int    `json:"year" validate:"omitempty,gte=1900,lte=2100"`
}

// Qualifications is stored as a JSONB array.
type Qualifications []Qualification

// Value stores the qualifications as JSONB.
func (q Qualifications) Value() (driver.Value, error) {
	return jsonValue(q)
}

// Scan reads JSONB qualifications.
func (q *Qualifications) Scan(src interface{}) error {
	return jsonScan(src, q)
}

// Tutor is a tutor profile owned by a user with the tutor role.
type Tutor struct {
	ID                  string             `db:"id" json:"id"`
	UserID              string             `db:"user_id" json:"user_id"`
	FullName            string             `db:"full_name" json:"full_name,omitempty"`
	Subjects            Subjects           `db:"subjects" json:"subjects"`
	Qualifications      Qualifications     `db:"qualifications" json:"qualifications"`
	HourlyRate          float64            `db:"hourly_rate" json:"hourly_rate"`
	City                string             `db:"city" json:"city"`
	Bio                 string             `db:"bio" json:"bio"`
	TeachingMode        TeachingMode       `db:"teaching_mode" json:"teaching_mode"`
	Availability        Availability       `db:"availability" json:"availability"`
	Rating              float64            `db:"rating" json:"rating"`
	ReviewCount         int                `db:"review_count" json:"review_count"`
	VerificationStatus  VerificationStatus `db:"verification_status" json:"verification_status"`
	VerificationComment *string            `db:"verification_comment" json:"verification_comment,omitempty"`
	CreatedAt           time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time          `db:"updated_at" json:"updated_at"`
}

// Verified reports whether the tutor may receive bookings.
func (t *Tutor) Verified() bool {
	return t != nil && t.VerificationStatus == VerificationVerified
}

// TutorFilter captures directory search criteria.
type TutorFilter struct {
	Subject  string
	City     string
	MaxRate  *float64
	Status   *VerificationStatus
	Page     int
	PageSize int
}

// UpsertTutorProfileRequest is the payload tutors send to create or edit their profile.
type UpsertTutorProfileRequest struct {
	Subjects       Subjects       `json:"subjects" validate:"required,min=1,dive"`
	Qualifications Qualifications `json:"qualifications" validate:"omitempty,dive"`
	HourlyRate     float64        `json:"hourly_rate" validate:"required,gt=0"`
	City           string         `json:"city" validate:"required"`
	Bio            string         `json:"bio" validate:"max=2000"`
	TeachingMode   TeachingMode   `json:"teaching_mode" validate:"required,oneof=online in-person both"`
	Availability   Availability   `json:"availability"`
}

// UpdateAvailabilityRequest replaces the tutor's weekly schedule.
type UpdateAvailabilityRequest struct {
	Availability Availability `json:"availability" validate:"required"`
}

// VerifyTutorRequest records an admin verification decision.
type VerifyTutorRequest struct {
	Status  VerificationStatus `json:"status" validate:"required,oneof=verified rejected"`
	Comment string             `json:"comment" validate:"max=1000"`
}

// VerificationStats counts tutors per verification status.
type VerificationStats struct {
	Pending  int `db:"pending" json:"pending"`
	Verified int `db:"verified" json:"verified"`
	Rejected int `db:"rejected" json:"rejected"`
}

func jsonValue(v interface{}) (driver.Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return types.JSONText(raw).Value()
}

func jsonScan(src interface{}, dest interface{}) error {
	if src == nil {
		return nil
	}
	var raw types.JSONText
	if err := raw.Scan(src); err != nil {
		return err
	}
	return raw.Unmarshal(dest)
}
