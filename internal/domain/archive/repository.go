package archive

import (
	"context"
	"time"

	"pet-adoption-hub/internal/domain/applications"
	"pet-adoption-hub/internal/domain/rooms"
)

// Tx expone las escrituras que el archivado hace dentro de una sola
// transacción. Cualquier error aborta todo.
type Tx interface {
	GetApplication(ctx context.Context, id string) (applications.Application, error)
	InsertArchived(ctx context.Context, a ArchivedApplication) error
	DeleteApplication(ctx context.Context, id string) error
	// ReleaseLock libera solo si el lock sigue apuntando a applicationID.
	ReleaseLock(ctx context.Context, petID, applicationID string, at time.Time) (bool, error)
	// FindRoom devuelve rooms.ErrNotFound si no hay sala.
	FindRoom(ctx context.Context, key rooms.Key) (rooms.Room, error)
	AppendMessage(ctx context.Context, m rooms.Message) error
}

type UnitOfWork interface {
	// WithinTx confirma si fn devuelve nil y descarta todo en otro caso.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

type Repository interface {
	GetByID(ctx context.Context, id string) (ArchivedApplication, error)
	GetByApplicationID(ctx context.Context, applicationID string) (ArchivedApplication, error)
	ListByShelter(ctx context.Context, shelterID string) ([]ArchivedApplication, error)
	ListByApplicant(ctx context.Context, applicantID string) ([]ArchivedApplication, error)
	ExistsForApplicantAndPet(ctx context.Context, applicantID, petID string) (bool, error)
}

// Exporter guarda una copia fría del archivo (best-effort, después del commit).
type Exporter interface {
	Export(ctx context.Context, a ArchivedApplication) error
}
