package ports

import (
	"context"
	"delivery-dispatch-sim/internal/domain"
	"time"
)

// A persisted optimizer result.
type SavedRouteSet struct {
	RunID     string
	CreatedAt time.Time
	Fitness   float64
	Routes    []domain.Route
}

// Port: persistence for generated route sets.
type RouteRepository interface {
	SaveRouteSet(ctx context.Context, set SavedRouteSet) error
	// Return the most recently saved set. ok is false when none exists.
	LatestRouteSet(ctx context.Context) (_ SavedRouteSet, ok bool, err error)
}
