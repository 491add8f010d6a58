package memory

import (
	"context"
	"testing"

	"pet-adoption-hub/internal/ports/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	c := NewCatalog(catalog.AdoptablePet{PetID: "P1", Name: "Luna", ShelterID: "S1", IsAdoptable: true})
	ctx := context.Background()

	p, err := c.GetAdoptablePet(ctx, " P1 ")
	require.NoError(t, err)
	assert.Equal(t, "Luna", p.Name)

	_, err = c.GetAdoptablePet(ctx, "P2")
	assert.ErrorIs(t, err, catalog.ErrPetNotFound)

	c.Put(catalog.AdoptablePet{PetID: "P1", Name: "Luna", ShelterID: "S1", IsAdoptable: false})
	p, err = c.GetAdoptablePet(ctx, "P1")
	require.NoError(t, err)
	assert.False(t, p.IsAdoptable)
}
