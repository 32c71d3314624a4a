package models

import "time"

// NotificationType classifies notification records.
type NotificationType string

const (
	NotificationSessionRequest NotificationType = "session-request"
	NotificationSessionUpdate  NotificationType = "session-update"
	NotificationVerification   NotificationType = "verification"
	NotificationReview         NotificationType = "review"
	NotificationRateChange     NotificationType = "rate-change"
)

// RelatedModel names the entity a notification points at.
type RelatedModel string

const (
	RelatedSession RelatedModel = "session"
	RelatedReview  RelatedModel = "review"
	RelatedTutor   RelatedModel = "tutor"
)

// Notification is a persisted message for a user; only Read ever changes.
type Notification struct {
	ID           string           `db:"id" json:"id"`
	RecipientID  string           `db:"recipient_id" json:"recipient_id"`
	SenderID     *string          `db:"sender_id" json:"sender_id,omitempty"`
	Type         NotificationType `db:"type" json:"type"`
	Message      string           `db:"message" json:"message"`
	Read         bool             `db:"read" json:"read"`
	RelatedID    *string          `db:"related_id" json:"related_id,omitempty"`
	RelatedModel *RelatedModel    `db:"related_model" json:"related_model,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter captures listing criteria for a recipient.
type NotificationFilter struct {
	RecipientID string
	UnreadOnly  bool
	Page        int
	PageSize    int
}
