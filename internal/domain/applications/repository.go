package applications

import (
	"context"
	"time"
)

// Transition es un compare-and-set de status acotado al shelter dueño.
type Transition struct {
	ID              string
	ShelterID       string
	From            []Status
	To              Status
	RejectionReason string
	At              time.Time
}

type Repository interface {
	Create(ctx context.Context, a Application) error
	GetByID(ctx context.Context, id string) (Application, error)

	ListByApplicant(ctx context.Context, applicantID string) ([]Application, error)
	ListByApplicantAndPet(ctx context.Context, applicantID, petID string) ([]Application, error)
	// status vacío = todas.
	ListByShelter(ctx context.Context, shelterID string, status Status) ([]Application, error)

	// Transition aplica el cambio solo si la fila sigue en algún From.
	// Devuelve ErrNotFound si no hubo match (no existe, otro shelter o estado distinto).
	Transition(ctx context.Context, t Transition) (Application, error)

	// Withdraw borra la solicitud del applicant (si sigue en from) y libera el
	// lock de la mascota en la misma transacción.
	Withdraw(ctx context.Context, id, applicantID string, from []Status, at time.Time) (Application, error)
}
