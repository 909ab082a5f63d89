package ports

import (
	"context"
	"time"
)

type EventKind string

const (
	EventDispatched      EventKind = "vehicle.dispatched"
	EventReturned        EventKind = "vehicle.returned"
	EventParcelLoaded    EventKind = "parcel.loaded"
	EventParcelDelivered EventKind = "parcel.delivered"
	EventParcelAttempted EventKind = "parcel.attempted"
	EventParcelReleased  EventKind = "parcel.released"
)

// Event is one observable change in the simulation.
type Event struct {
	Kind       EventKind `json:"kind"`
	Clock      string    `json:"clock"`
	VehicleID  int       `json:"vehicle_id,omitempty"`
	ParcelIDs  []int     `json:"parcel_ids,omitempty"`
	Stops      []int     `json:"stops,omitempty"`
	Mileage    float64   `json:"mileage,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Contract for publishing simulation events to observers.
type EventPublisher interface {
	Publish(ctx context.Context, evt Event) error
}
