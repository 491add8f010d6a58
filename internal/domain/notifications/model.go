package notifications

import "time"

// UserModel indica a qué tipo de actor pertenece UserID.
type UserModel string

const (
	UserOwner   UserModel = "Owner"
	UserShelter UserModel = "Shelter"
)

type Type string

const (
	TypeApplicationSubmitted Type = "application_submitted"
	TypeApplicationReceived  Type = "application_received"
	TypeApplicationWithdrawn Type = "application_withdrawn"
	TypeApplicationInReview  Type = "application_in_review"
	TypeApplicationRejected  Type = "application_rejected"
	TypeApplicationApproved  Type = "application_approved"
	TypeApplicationArchived  Type = "application_archived"
	TypeRoomOpened           Type = "room_opened"
	TypeRoomClosed           Type = "room_closed"
)

// Notification es el registro durable; el workflow nunca lo modifica
// después de crearlo (solo el toggle de leído).
type Notification struct {
	ID        string
	UserID    string
	UserModel UserModel
	Type      Type
	Title     string
	Message   string
	Metadata  map[string]any
	Read      bool
	CreatedAt time.Time
}
