package rooms

import "time"

type Kind string

const (
	KindChat    Kind = "chat"
	KindMeeting Kind = "meeting"
)

func (k Kind) Valid() bool {
	return k == KindChat || k == KindMeeting
}

// Status de una sala. blocked es terminal; closed -> open está permitido.
type Status string

const (
	StatusOpen    Status = "open"
	StatusOngoing Status = "ongoing"
	StatusClosed  Status = "closed"
	StatusBlocked Status = "blocked"
)

// Action reporta qué hizo CreateOrReopen.
type Action string

const (
	ActionCreated       Action = "created"
	ActionReopened      Action = "reopened"
	ActionAlreadyExists Action = "already_exists"
	ActionClosed        Action = "closed"
	ActionBlocked       Action = "blocked"
)

// Key identifica una sala: una por tipo y por (owner, shelter, pet).
// ApplicationID NO es parte de la identidad; se repunta en cada intento.
type Key struct {
	Kind      Kind
	OwnerID   string
	ShelterID string
	PetID     string
}

type Room struct {
	ID            string
	Kind          Kind
	OwnerID       string
	ShelterID     string
	PetID         string
	ApplicationID string
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ClosedAt      *time.Time
}

func (r Room) Key() Key {
	return Key{Kind: r.Kind, OwnerID: r.OwnerID, ShelterID: r.ShelterID, PetID: r.PetID}
}

const SenderSystem = "system"

// Message de una sala. Los mensajes del workflow usan SenderModel "system".
type Message struct {
	ID          string
	RoomID      string
	SenderID    string
	SenderModel string
	Body        string
	CreatedAt   time.Time
}

// Participants resuelve una solicitud a la tripleta de la sala.
type Participants struct {
	ApplicationID string
	OwnerID       string
	ShelterID     string
	PetID         string
	PetName       string

	// ApplicationActive: la solicitud sigue en submitted/review.
	ApplicationActive bool
}

func (p Participants) Key(kind Kind) Key {
	return Key{Kind: kind, OwnerID: p.OwnerID, ShelterID: p.ShelterID, PetID: p.PetID}
}
