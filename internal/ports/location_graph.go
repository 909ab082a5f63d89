package ports

import "delivery-dispatch-sim/internal/domain"

// Read-only view of the Location graph. Distances are symmetric and must be
// fully populated before the optimizer or scheduler runs.
type LocationGraph interface {
	domain.Distancer
	// Return all locations, hub included, in a stable order.
	Locations() []domain.Location
	// Return every location directly linked to id.
	Neighbors(id domain.LocationID) []domain.LocationID
}
