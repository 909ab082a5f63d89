// Package dispatch advances a simulated delivery day one minute at a time.
package dispatch

import (
	"delivery-dispatch-sim/internal/domain"
	"delivery-dispatch-sim/internal/ports"
	"delivery-dispatch-sim/internal/services/pathfind"
	"errors"
	"fmt"
	"slices"
	"sort"
)

// DefaultLookAhead is how soon a delayed parcel must arrive for the
// scheduler to hold vehicles at the hub.
const DefaultLookAhead = 15 * domain.Minute

// Options carry everything the scheduler needs for one simulated day.
// Priorities are aligned with Store.All().
type Options struct {
	Start         domain.Clock
	DeliveryStart domain.Clock
	Routes        []domain.Route
	Store         ports.ParcelStore
	Priorities    []float64
	Vehicles      []*domain.Vehicle
	Drivers       []*domain.Driver
	Hub           domain.LocationID
	Graph         pathfind.Graph
	Corrections   []domain.AddressCorrection
	LookAhead     domain.Clock
}

type rankedParcel struct {
	parcel *domain.Parcel
	score  float64
}

// Scheduler owns parcel status and vehicle assignment for one day. It is not
// safe for concurrent use.
type Scheduler struct {
	clock         domain.Clock
	start         domain.Clock
	deliveryStart domain.Clock
	lookAhead     domain.Clock

	hub     domain.LocationID
	graph   pathfind.Graph
	refiner *pathfind.Refiner

	routes     []domain.Route
	store      ports.ParcelStore
	ranked     []rankedParcel
	priorities map[int]float64
	groups     map[int][]*domain.Parcel
	vehicles   []*domain.Vehicle
	drivers    []*domain.Driver

	corrections []domain.AddressCorrection
	applied     []bool
	snapshots   map[int]domain.ParcelSnapshot
	events      []ports.Event
}

// New initializes a scheduler: parcels get their starting status (delayed or
// in hub), are ranked by priority, and are snapshotted for ResetDay.
func New(opts Options) (*Scheduler, error) {
	if opts.Store == nil {
		return nil, errors.New("new scheduler: parcel store is nil")
	}
	if opts.Graph == nil {
		return nil, errors.New("new scheduler: location graph is nil")
	}
	parcels := opts.Store.All()
	if len(opts.Priorities) != len(parcels) {
		return nil, fmt.Errorf("new scheduler: %d priorities for %d parcels", len(opts.Priorities), len(parcels))
	}
	for i, r := range opts.Routes {
		if !r.HubBounded(opts.Hub) {
			return nil, fmt.Errorf("new scheduler: route %d does not start and end at the hub", i)
		}
	}
	if len(opts.Vehicles) == 0 {
		return nil, errors.New("new scheduler: at least one vehicle is required")
	}

	lookAhead := opts.LookAhead
	if lookAhead <= 0 {
		lookAhead = DefaultLookAhead
	}

	s := &Scheduler{
		clock:         opts.Start,
		start:         opts.Start,
		deliveryStart: opts.DeliveryStart,
		lookAhead:     lookAhead,
		hub:           opts.Hub,
		graph:         opts.Graph,
		refiner:       pathfind.NewRefiner(opts.Graph, opts.Hub),
		routes:        slices.Clone(opts.Routes),
		store:         opts.Store,
		priorities:    make(map[int]float64, len(parcels)),
		vehicles:      slices.Clone(opts.Vehicles),
		drivers:       slices.Clone(opts.Drivers),
		corrections:   slices.Clone(opts.Corrections),
		applied:       make([]bool, len(opts.Corrections)),
		snapshots:     make(map[int]domain.ParcelSnapshot, len(parcels)),
	}
	sort.SliceStable(s.vehicles, func(i, j int) bool { return s.vehicles[i].ID < s.vehicles[j].ID })

	for i, p := range parcels {
		initial := domain.InHub()
		if at, ok := p.Delay(); ok && !p.Invalid() {
			initial = domain.DelayedStatus(at)
		}
		if err := p.SetStatus(initial); err != nil {
			return nil, fmt.Errorf("new scheduler: %w", err)
		}
		s.snapshots[p.ID] = p.Snapshot()
		s.priorities[p.ID] = opts.Priorities[i]
		s.ranked = append(s.ranked, rankedParcel{parcel: p, score: opts.Priorities[i]})
	}
	sort.SliceStable(s.ranked, func(i, j int) bool { return s.ranked[i].score > s.ranked[j].score })

	for _, c := range s.corrections {
		if _, ok := s.store.Get(c.ParcelID); !ok {
			return nil, fmt.Errorf("new scheduler: correction for unknown parcel %d", c.ParcelID)
		}
	}

	s.groups = batchGroups(parcels, s.store)
	return s, nil
}

func (s *Scheduler) Clock() domain.Clock { return s.clock }

func (s *Scheduler) Hub() domain.LocationID { return s.hub }

func (s *Scheduler) Vehicles() []*domain.Vehicle { return s.vehicles }

func (s *Scheduler) Routes() []domain.Route { return s.routes }

func (s *Scheduler) Parcel(id int) (*domain.Parcel, bool) { return s.store.Get(id) }

func (s *Scheduler) Parcels() []*domain.Parcel { return s.store.All() }

func (s *Scheduler) Priority(id int) float64 { return s.priorities[id] }

// Drain returns and clears the events recorded since the last call.
func (s *Scheduler) Drain() []ports.Event {
	out := s.events
	s.events = nil
	return out
}

// ResetDay rewinds vehicles, parcels and the clock to their initialized state.
func (s *Scheduler) ResetDay() {
	for _, v := range s.vehicles {
		v.Reset()
	}
	for _, p := range s.store.All() {
		if snap, ok := s.snapshots[p.ID]; ok {
			p.Restore(snap)
		}
	}
	for i := range s.applied {
		s.applied[i] = false
	}
	s.clock = s.start
	s.events = nil
}

// Done reports whether every parcel is delivered or attempted.
func (s *Scheduler) Done() bool {
	for _, p := range s.store.All() {
		if !p.Status().Terminal() {
			return false
		}
	}
	return true
}

// Tick runs one simulated minute and reports whether there is more work.
// Within a tick vehicles move and deliver before any new dispatch.
func (s *Scheduler) Tick() (bool, error) {
	s.applyCorrections()
	s.resolveDelays()

	if s.clock < s.deliveryStart {
		s.clock += domain.Minute
		return true, nil
	}

	if s.Done() {
		return false, nil
	}
	if s.clock+domain.Minute > domain.EndOfDay {
		if err := s.closeDay(); err != nil {
			return false, fmt.Errorf("tick %s: %w", s.clock, err)
		}
		return false, nil
	}

	if err := s.moveVehicles(); err != nil {
		return false, fmt.Errorf("tick %s: %w", s.clock, err)
	}
	if err := s.dispatch(); err != nil {
		return false, fmt.Errorf("tick %s: %w", s.clock, err)
	}

	s.resolveDelays()
	s.clock += domain.Minute
	return true, nil
}

// AdvanceTo ticks until the clock reaches t or the day ends.
func (s *Scheduler) AdvanceTo(t domain.Clock) (more bool, err error) {
	more = true
	for more && s.clock < t {
		if more, err = s.Tick(); err != nil {
			return false, err
		}
	}
	return more, nil
}

// RunToEnd ticks until there is no more work.
func (s *Scheduler) RunToEnd() error {
	for {
		more, err := s.Tick()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

func (s *Scheduler) moveVehicles() error {
	for _, v := range s.vehicles {
		if len(v.Queue) == 0 {
			continue
		}
		if !v.Drive(s.graph) {
			continue
		}

		stop := v.Last
		delivered, err := v.AttemptDelivery(stop, s.clock)
		if err != nil {
			return err
		}
		if len(delivered) > 0 {
			s.emit(ports.Event{Kind: ports.EventParcelDelivered, VehicleID: v.ID, ParcelIDs: parcelIDs(delivered), Stops: []int{int(stop)}})
		}

		if stop == s.hub && len(v.Queue) == 0 {
			if err := s.release(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// release frees the vehicle and its driver; parcels still aboard go back to the hub.
func (s *Scheduler) release(v *domain.Vehicle) error {
	leftover := v.Clear()
	for _, p := range leftover {
		if err := p.SetStatus(domain.InHub()); err != nil {
			return err
		}
	}
	v.Driver = nil
	v.Queue = nil
	s.emit(ports.Event{Kind: ports.EventReturned, VehicleID: v.ID, Mileage: v.Mileage})
	if len(leftover) > 0 {
		s.emit(ports.Event{Kind: ports.EventParcelReleased, VehicleID: v.ID, ParcelIDs: parcelIDs(leftover)})
	}
	return nil
}

func (s *Scheduler) resolveDelays() {
	for _, p := range s.store.All() {
		st := p.Status()
		if st.Kind == domain.StatusDelayed && s.clock >= st.Until {
			// Delayed parcels are never INVALID, so this cannot fail.
			_ = p.SetStatus(domain.InHub())
		}
	}
}

func (s *Scheduler) applyCorrections() {
	for i, c := range s.corrections {
		if s.applied[i] || s.clock < c.At {
			continue
		}
		if p, ok := s.store.Get(c.ParcelID); ok {
			p.CorrectAddress(c.Destination)
		}
		s.applied[i] = true
	}
}

// closeDay marks every unresolved parcel ATTEMPTED. Parcels still flagged
// INVALID stay in the hub.
func (s *Scheduler) closeDay() error {
	for _, v := range s.vehicles {
		v.Clear()
		v.Driver = nil
	}
	var attempted []int
	for _, p := range s.store.All() {
		if p.Status().Terminal() || p.Invalid() {
			continue
		}
		if err := p.SetStatus(domain.Attempted()); err != nil {
			return err
		}
		attempted = append(attempted, p.ID)
	}
	if len(attempted) > 0 {
		s.emit(ports.Event{Kind: ports.EventParcelAttempted, ParcelIDs: attempted})
	}
	return nil
}

func (s *Scheduler) emit(evt ports.Event) {
	evt.Clock = s.clock.String()
	s.events = append(s.events, evt)
}

func parcelIDs(ps []*domain.Parcel) []int {
	ids := make([]int, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	return ids
}
