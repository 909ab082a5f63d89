package ports

import (
	"context"
	"delivery-dispatch-sim/internal/domain"
)

// Port: a boundary for loading and saving Parcel records.
type ParcelRepository interface {
	// Retrieve all parcels, ordered by id.
	ListParcels(ctx context.Context) ([]*domain.Parcel, error)
	// Insert or replace parcels.
	SaveParcels(ctx context.Context, parcels []*domain.Parcel) error
	// Retrieve scheduled address corrections, ordered by time.
	ListCorrections(ctx context.Context) ([]domain.AddressCorrection, error)
	SaveCorrections(ctx context.Context, corrections []domain.AddressCorrection) error
}

// Port: a boundary for loading and saving the Location graph.
type LocationRepository interface {
	LoadGraph(ctx context.Context) (*domain.Registry, error)
	SaveGraph(ctx context.Context, g *domain.Registry) error
}
