package locks

import (
	"context"
	"time"
)

type AcquireRequest struct {
	PetID         string
	PetName       string
	ApplicantID   string
	ApplicationID string
	Now           time.Time
}

type Repository interface {
	// Acquire es una única escritura condicional (upsert + match sobre
	// holder vacío). Si no gana devuelve acquired=false y el estado actual.
	Acquire(ctx context.Context, req AcquireRequest) (current PetLock, acquired bool, err error)

	// Release limpia el holder solo si apunta a applicationID.
	// released=false cuando el release es obsoleto (no es error).
	Release(ctx context.Context, petID, applicationID string, now time.Time) (released bool, err error)

	Get(ctx context.Context, petID string) (PetLock, error)

	// Register crea el lock vacío si no existe (idempotente) y actualiza el nombre.
	Register(ctx context.Context, petID, petName string, now time.Time) (PetLock, error)
}
