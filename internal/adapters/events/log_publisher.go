package events

import (
	"context"
	"delivery-dispatch-sim/internal/platform/obs"
	"delivery-dispatch-sim/internal/ports"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct {
	Level zerolog.Level
}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{Level: zerolog.InfoLevel}
}

func (p *LogPublisher) Publish(ctx context.Context, evt ports.Event) error {
	e := log.WithLevel(p.Level).
		Str("req_id", obs.RequestID(ctx)).
		Str("kind", string(evt.Kind)).
		Str("clock", evt.Clock)
	if evt.VehicleID != 0 {
		e = e.Int("vehicle", evt.VehicleID)
	}
	if len(evt.ParcelIDs) > 0 {
		e = e.Ints("parcels", evt.ParcelIDs)
	}
	if len(evt.Stops) > 0 {
		e = e.Ints("stops", evt.Stops)
	}
	if evt.Mileage > 0 {
		e = e.Float64("mileage", evt.Mileage)
	}
	e.Msg("simulation event")
	return nil
}

// Multi publishes to every publisher and returns the first error.
type Multi []ports.EventPublisher

func (m Multi) Publish(ctx context.Context, evt ports.Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, evt); err != nil && first == nil {
			first = err
		}
	}
	return first
}
