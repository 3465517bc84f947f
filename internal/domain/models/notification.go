package models

import "time"

// TypeNotification mirrors the notification categories of the delivery collaborator.
type TypeNotification string

const (
	NotificationDocumentRecu TypeNotification = "DOCUMENT_RECU"
	NotificationRappel       TypeNotification = "RAPPEL"
)

// Notification is one enqueued message for either a client or a comptable.
// Exactly one of ClientID/ComptableID is set.
type Notification struct {
	ID          string           `json:"id" db:"id"`
	Titre       string           `json:"titre" db:"titre"`
	Message     string           `json:"message" db:"message"`
	Type        TypeNotification `json:"type" db:"type"`
	ClientID    *string          `json:"client_id,omitempty" db:"client_id"`
	ComptableID *string          `json:"comptable_id,omitempty" db:"comptable_id"`
	Lu          bool             `json:"lu" db:"lu"`
	DateLecture *time.Time       `json:"date_lecture,omitempty" db:"date_lecture"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}
