package distance

import (
	"testing"

	"delivery-dispatch-sim/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var locations = []domain.Location{
	{ID: 1, Name: "Hub", Address: "1 Depot Way"},
	{ID: 2, Name: "Elm", Address: "10 Elm St"},
	{ID: 3, Name: "Oak", Address: "20 Oak St"},
}

func TestBuildRegistryLinksPairs(t *testing.T) {
	g, err := BuildRegistry(locations, []Pair{
		{From: "Hub", To: "Elm", Miles: 5},
		{From: "Hub", To: "Oak", Miles: 3},
		{From: "Oak", To: "Elm", Miles: 4},
	})
	require.NoError(t, err)

	assert.Equal(t, 4.0, g.Distance(2, 3))
	assert.Equal(t, 4.0, g.Distance(3, 2))
	assert.Equal(t, []Pair{
		{From: "Hub", To: "Elm", Miles: 5},
		{From: "Hub", To: "Oak", Miles: 3},
		{From: "Elm", To: "Oak", Miles: 4},
	}, Pairs(g))
}

func TestBuildRegistryErrors(t *testing.T) {
	_, err := BuildRegistry(locations, []Pair{{From: "Hub", To: "Nowhere", Miles: 1}})
	assert.ErrorIs(t, err, domain.ErrUnknownLocation)

	_, err = BuildRegistry(locations, []Pair{
		{From: "Hub", To: "Elm", Miles: 5},
		{From: "Elm", To: "Hub", Miles: 6},
	})
	assert.ErrorIs(t, err, domain.ErrDistanceConflict)

	_, err = BuildRegistry(locations, []Pair{{From: "Hub", To: "Elm", Miles: 5}})
	assert.ErrorContains(t, err, "no distance")
}
