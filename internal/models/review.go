package models

import "time"

// Review is a student's rating of a completed session.
type Review struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	TutorID   string    `db:"tutor_id" json:"tutor_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   string    `db:"comment" json:"comment"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CreateReviewRequest is the payload for reviewing a session.
type CreateReviewRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"max=2000"`
}

// RatingSummary is the recomputed aggregate for a tutor.
type RatingSummary struct {
	Average float64 `db:"average"`
	Count   int     `db:"count"`
}

// WishlistEntry records a student's interest in a tutor.
type WishlistEntry struct {
	StudentID string    `db:"student_id" json:"student_id"`
	TutorID   string    `db:"tutor_id" json:"tutor_id"`
	Tutor     *Tutor    `db:"-" json:"tutor,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AddWishlistRequest adds a tutor to the caller's wishlist.
type AddWishlistRequest struct {
	TutorID string `json:"tutor_id" validate:"required"`
}
