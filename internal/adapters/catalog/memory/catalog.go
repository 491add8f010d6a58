package memory

import (
	"context"
	"strings"
	"sync"

	"pet-adoption-hub/internal/ports/catalog"
)

// Catalog es el catálogo in-memory para dev y tests.
type Catalog struct {
	mu   sync.RWMutex
	pets map[string]catalog.AdoptablePet
}

func NewCatalog(pets ...catalog.AdoptablePet) *Catalog {
	c := &Catalog{pets: make(map[string]catalog.AdoptablePet)}
	for _, p := range pets {
		c.Put(p)
	}
	return c
}

// Put publica (o reemplaza) una mascota.
func (c *Catalog) Put(p catalog.AdoptablePet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pets[strings.TrimSpace(p.PetID)] = p
}

func (c *Catalog) GetAdoptablePet(ctx context.Context, petID string) (catalog.AdoptablePet, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.pets[strings.TrimSpace(petID)]
	if !ok {
		return catalog.AdoptablePet{}, catalog.ErrPetNotFound
	}
	return p, nil
}
