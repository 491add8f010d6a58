package catalog

import (
	"context"
	"errors"
)

var (
	ErrPetNotFound = errors.New("pet not found in catalog")
)

// AdoptablePet es la vista mínima del catálogo que necesita el flujo de adopción.
type AdoptablePet struct {
	PetID       string
	Name        string
	ShelterID   string
	IsAdoptable bool
}

// PetCatalog es el colaborador externo dueño de las mascotas publicadas.
type PetCatalog interface {
	GetAdoptablePet(ctx context.Context, petID string) (AdoptablePet, error)
}
