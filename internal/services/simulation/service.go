// Package simulation is the caller-facing side of the dispatch scheduler: it
// advances the day, answers status-at-time queries by replay, regenerates
// routes and forwards scheduler events to observers.
package simulation

import (
	"context"
	"delivery-dispatch-sim/internal/domain"
	"delivery-dispatch-sim/internal/metrics"
	"delivery-dispatch-sim/internal/platform/obs"
	"delivery-dispatch-sim/internal/ports"
	"delivery-dispatch-sim/internal/services/dispatch"
	"delivery-dispatch-sim/internal/services/priority"
	"delivery-dispatch-sim/internal/services/routing"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrUnknownParcel = errors.New("unknown parcel")

type Config struct {
	Hub           domain.LocationID
	Start         domain.Clock
	DeliveryStart domain.Clock
	Vehicles      int
	Drivers       int
	Capacity      int
	AvgSpeed      float64
	LookAhead     domain.Clock
	Priority      priority.Config
	Corrections   []domain.AddressCorrection
}

// Deps are the optional collaborators. A nil Publisher drops events; a nil
// Routes repository skips persisting regenerated route sets.
type Deps struct {
	Publisher ports.EventPublisher
	Routes    ports.RouteRepository
}

// Service serialises all access to one simulated day.
type Service struct {
	mu sync.Mutex

	graph ports.LocationGraph
	locs  map[domain.LocationID]domain.Location
	store ports.ParcelStore
	cfg   Config
	deps  Deps

	sched *dispatch.Scheduler
	runID string

	// published is the clock up to which events and metrics have been
	// reported. Ticks replayed below it after a rewind stay silent.
	published domain.Clock
}

func New(graph ports.LocationGraph, store ports.ParcelStore, routes []domain.Route, cfg Config, deps Deps) (*Service, error) {
	if graph == nil || store == nil {
		return nil, errors.New("new simulation: graph and parcel store are required")
	}
	if cfg.Vehicles < 1 {
		return nil, fmt.Errorf("new simulation: vehicles must be at least 1, got %d", cfg.Vehicles)
	}
	if cfg.Drivers < 1 {
		return nil, fmt.Errorf("new simulation: drivers must be at least 1, got %d", cfg.Drivers)
	}

	locs := make(map[domain.LocationID]domain.Location)
	for _, l := range graph.Locations() {
		locs[l.ID] = l
	}
	if _, ok := locs[cfg.Hub]; !ok {
		return nil, fmt.Errorf("new simulation: hub %d: %w", cfg.Hub, domain.ErrUnknownLocation)
	}

	s := &Service{graph: graph, locs: locs, store: store, cfg: cfg, deps: deps}
	sched, err := s.schedule(routes)
	if err != nil {
		return nil, err
	}
	s.sched = sched
	return s, nil
}

// schedule builds a fresh scheduler over the store. Parcels must be in their
// initial state.
func (s *Service) schedule(routes []domain.Route) (*dispatch.Scheduler, error) {
	parcels := s.store.All()
	scores := priority.NewScorer(s.graph, s.cfg.Hub, s.cfg.Priority).Score(parcels)

	vehicles := make([]*domain.Vehicle, 0, s.cfg.Vehicles)
	for i := 1; i <= s.cfg.Vehicles; i++ {
		vehicles = append(vehicles, domain.NewVehicle(i, s.cfg.Capacity, s.cfg.AvgSpeed, s.cfg.Hub))
	}
	drivers := make([]*domain.Driver, 0, s.cfg.Drivers)
	for i := 1; i <= s.cfg.Drivers; i++ {
		drivers = append(drivers, &domain.Driver{ID: i, Name: "Driver " + strconv.Itoa(i)})
	}

	sched, err := dispatch.New(dispatch.Options{
		Start:         s.cfg.Start,
		DeliveryStart: s.cfg.DeliveryStart,
		Routes:        routes,
		Store:         s.store,
		Priorities:    scores,
		Vehicles:      vehicles,
		Drivers:       drivers,
		Hub:           s.cfg.Hub,
		Graph:         s.graph,
		Corrections:   s.cfg.Corrections,
		LookAhead:     s.cfg.LookAhead,
	})
	if err != nil {
		return nil, fmt.Errorf("new simulation: %w", err)
	}
	return sched, nil
}

func (s *Service) Clock() domain.Clock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched.Clock()
}

// AdvanceTo ticks until the clock reaches t or no work remains. A t earlier
// than the current clock rewinds the day first. Events are published once:
// ticks that re-run an already reported minute are not published again. It
// returns whether work remains.
func (s *Service) AdvanceTo(ctx context.Context, t domain.Clock) (more bool, err error) {
	defer obs.Time(ctx, "simulation.advance")(&err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if t < s.sched.Clock() {
		s.sched.ResetDay()
	}

	more = true
	for more && s.sched.Clock() < t {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		at := s.sched.Clock()
		before := s.mileage()
		if more, err = s.sched.Tick(); err != nil {
			return false, fmt.Errorf("advance to %s: %w", t, err)
		}
		metrics.DispatchTicks.Inc()

		events := s.sched.Drain()
		if at < s.published {
			continue
		}
		s.recordMileage(before)
		s.publish(ctx, events)
		s.published = at + domain.Minute
	}
	return more, nil
}

// Reset rewinds the day to its start.
func (s *Service) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sched.ResetDay()
	log.Info().Str("req_id", obs.RequestID(ctx)).Str("clock", s.sched.Clock().String()).Msg("simulation reset")
}

// StatusAt replays the day up to t and reports parcel id as it stood then.
// The simulation is returned to its current clock afterwards.
func (s *Service) StatusAt(ctx context.Context, id int, t domain.Clock) (_ ParcelView, err error) {
	defer obs.Time(ctx, "simulation.status_at")(&err)

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.store.Get(id)
	if !ok {
		return ParcelView{}, fmt.Errorf("status of parcel %d: %w", id, ErrUnknownParcel)
	}

	now := s.sched.Clock()
	if err := s.replay(t); err != nil {
		return ParcelView{}, err
	}
	view := s.parcelView(p)
	view.AsOf = s.sched.Clock().String()

	if err := s.replay(now); err != nil {
		return ParcelView{}, err
	}
	return view, nil
}

// replay rewinds and silently re-runs the day up to t.
func (s *Service) replay(t domain.Clock) error {
	s.sched.ResetDay()
	if _, err := s.sched.AdvanceTo(t); err != nil {
		return fmt.Errorf("replay to %s: %w", t, err)
	}
	s.sched.Drain()
	return nil
}

// Regenerate runs the route optimizer, saves the result when a route
// repository is configured and restarts the day on the new routes.
func (s *Service) Regenerate(ctx context.Context, p routing.Params) (_ ports.SavedRouteSet, err error) {
	defer obs.Time(ctx, "simulation.regenerate")(&err)

	var ids []domain.LocationID
	for _, l := range s.graph.Locations() {
		ids = append(ids, l.ID)
	}

	res, err := routing.NewOptimizer(s.graph).Run(ctx, ids, s.cfg.Hub, p)
	if err != nil {
		return ports.SavedRouteSet{}, fmt.Errorf("regenerate routes: %w", err)
	}

	saved := ports.SavedRouteSet{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Fitness:   res.Fitness,
		Routes:    res.Best.Routes,
	}
	if s.deps.Routes != nil {
		if err := s.deps.Routes.SaveRouteSet(ctx, saved); err != nil {
			return ports.SavedRouteSet{}, fmt.Errorf("regenerate routes: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sched.ResetDay()
	sched, err := s.schedule(saved.Routes)
	if err != nil {
		return ports.SavedRouteSet{}, fmt.Errorf("regenerate routes: %w", err)
	}
	s.sched = sched
	s.runID = saved.RunID
	s.published = 0

	log.Info().
		Str("req_id", obs.RequestID(ctx)).
		Str("run_id", saved.RunID).
		Int("routes", len(saved.Routes)).
		Int("generations", res.Generations).
		Float64("fitness", res.Fitness).
		Msg("routes regenerated")
	return saved, nil
}

func (s *Service) mileage() map[int]float64 {
	out := make(map[int]float64)
	for _, v := range s.sched.Vehicles() {
		out[v.ID] = v.Mileage
	}
	return out
}

func (s *Service) recordMileage(before map[int]float64) {
	for _, v := range s.sched.Vehicles() {
		if d := v.Mileage - before[v.ID]; d > 0 {
			metrics.VehicleMiles.WithLabelValues(strconv.Itoa(v.ID)).Add(d)
		}
	}
}

func (s *Service) publish(ctx context.Context, events []ports.Event) {
	now := time.Now().UTC()
	for _, evt := range events {
		switch evt.Kind {
		case ports.EventDispatched:
			metrics.DispatchEvents.Inc()
		case ports.EventParcelDelivered:
			metrics.ParcelsDelivered.Add(float64(len(evt.ParcelIDs)))
		}

		if s.deps.Publisher == nil {
			continue
		}
		evt.OccurredAt = now
		if err := s.deps.Publisher.Publish(ctx, evt); err != nil {
			log.Warn().Err(err).Str("kind", string(evt.Kind)).Msg("publish event")
		}
	}
}
