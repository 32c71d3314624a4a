package booking

import (
	"errors"
	"fmt"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

var (
	// ErrInvalidTransition is returned for a status pair outside the lifecycle table.
	ErrInvalidTransition = errors.New("booking: invalid status transition")
	// ErrNotAuthorized is returned when the actor may not perform a legal transition.
	ErrNotAuthorized = errors.New("booking: actor not authorized for transition")
)

// Party identifies the capacity in which an actor acts on a session.
type Party int

const (
	PartyNone Party = iota
	PartyStudent
	PartyTutor
	PartyAdmin
)

func (p Party) String() string {
	switch p {
	case PartyStudent:
		return "student"
	case PartyTutor:
		return "tutor"
	case PartyAdmin:
		return "admin"
	default:
		return "none"
	}
}

type edge struct {
	from models.SessionStatus
	to   models.SessionStatus
}

// allowedBy lists, per legal edge, which parties may take it. Admin may take any legal edge.
var allowedBy = map[edge][]Party{
	{models.SessionPending, models.SessionConfirmed}:   {PartyTutor},
	{models.SessionPending, models.SessionCancelled}:   {PartyStudent},
	{models.SessionConfirmed, models.SessionCancelled}: {PartyStudent, PartyTutor},
	{models.SessionConfirmed, models.SessionCompleted}: {PartyTutor},
}

// IsLegal reports whether from -> to appears in the lifecycle table.
func IsLegal(from, to models.SessionStatus) bool {
	_, ok := allowedBy[edge{from, to}]
	return ok
}

// PartyOf resolves the capacity in which actor acts on session.
func PartyOf(session *models.Session, actor models.Actor) Party {
	switch {
	case actor.Role == models.RoleAdmin:
		return PartyAdmin
	case actor.Role == models.RoleStudent && actor.UserID == session.StudentID:
		return PartyStudent
	case actor.Role == models.RoleTutor && actor.UserID == session.TutorUserID:
		return PartyTutor
	default:
		return PartyNone
	}
}

// Transition is an authorised status change and the users to notify about it.
type Transition struct {
	From       models.SessionStatus
	To         models.SessionStatus
	By         Party
	ActorID    string
	Recipients []string
}

// Authorize checks legality first and then the actor's right to take the edge.
func Authorize(session *models.Session, actor models.Actor, to models.SessionStatus) (Transition, error) {
	from := session.Status
	parties, ok := allowedBy[edge{from, to}]
	if !ok {
		return Transition{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	by := PartyOf(session, actor)
	if by == PartyNone {
		return Transition{}, ErrNotAuthorized
	}
	if by != PartyAdmin && !containsParty(parties, by) {
		return Transition{}, fmt.Errorf("%w: %s may not move %s -> %s", ErrNotAuthorized, by, from, to)
	}

	t := Transition{From: from, To: to, By: by, ActorID: actor.UserID}
	switch by {
	case PartyStudent:
		t.Recipients = []string{session.TutorUserID}
	case PartyTutor:
		t.Recipients = []string{session.StudentID}
	case PartyAdmin:
		t.Recipients = []string{session.StudentID, session.TutorUserID}
	}
	return t, nil
}

// Message renders the notification text the recipient sees.
func (t Transition) Message(session *models.Session, recipient string) string {
	if t.By == PartyAdmin {
		if recipient == session.StudentID {
			return fmt.Sprintf("Your session for %s has been updated to %s", session.Subject, t.To)
		}
		return fmt.Sprintf("Session for %s has been updated to %s", session.Subject, t.To)
	}
	switch t.To {
	case models.SessionConfirmed:
		return fmt.Sprintf("Your tutor has confirmed your session for %s", session.Subject)
	case models.SessionCompleted:
		return fmt.Sprintf("Your tutor has marked your session for %s as completed", session.Subject)
	case models.SessionCancelled:
		return fmt.Sprintf("The %s has cancelled the session for %s", t.By, session.Subject)
	default:
		return fmt.Sprintf("Session %s", t.To)
	}
}

func containsParty(parties []Party, p Party) bool {
	for _, candidate := range parties {
		if candidate == p {
			return true
		}
	}
	return false
}
