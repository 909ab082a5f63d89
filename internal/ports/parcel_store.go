package ports

import "delivery-dispatch-sim/internal/domain"

// In-process key/value store holding the day's parcels. The scheduler mutates
// parcels through their own methods and never replaces entries.
type ParcelStore interface {
	Insert(p *domain.Parcel) error
	Get(id int) (*domain.Parcel, bool)
	// Return all parcels in insertion order.
	All() []*domain.Parcel
}
