package dispatch

import (
	"slices"
	"testing"

	"delivery-dispatch-sim/internal/adapters/memory"
	"delivery-dispatch-sim/internal/domain"
	"delivery-dispatch-sim/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	hub    domain.LocationID = 1
	locA   domain.LocationID = 2
	locB   domain.LocationID = 3
	locFar domain.LocationID = 4
)

// triangle: A is 5 miles from the hub, B is 3, A-B is 4. Far is 100 miles out.
func triangle(t *testing.T) *domain.Registry {
	t.Helper()
	r := domain.NewRegistry()
	for _, l := range []domain.Location{
		{ID: hub, Name: "Hub", Address: "1 Depot Way"},
		{ID: locA, Name: "A", Address: "10 Elm St"},
		{ID: locB, Name: "B", Address: "20 Oak St"},
		{ID: locFar, Name: "Far", Address: "99 Remote Rd"},
	} {
		_, err := r.Add(l)
		require.NoError(t, err)
	}
	require.NoError(t, r.Link(hub, locA, 5))
	require.NoError(t, r.Link(hub, locB, 3))
	require.NoError(t, r.Link(locA, locB, 4))
	require.NoError(t, r.Link(hub, locFar, 100))
	require.NoError(t, r.Link(locA, locFar, 100))
	require.NoError(t, r.Link(locB, locFar, 100))
	return r
}

type fixture struct {
	parcels     []*domain.Parcel
	vehicles    int
	capacity    int
	drivers     int
	start       domain.Clock
	routes      []domain.Route
	corrections []domain.AddressCorrection
}

func newScheduler(t *testing.T, f fixture) *Scheduler {
	t.Helper()
	store, err := memory.NewParcelStoreFrom(f.parcels)
	require.NoError(t, err)

	var vehicles []*domain.Vehicle
	for i := 1; i <= f.vehicles; i++ {
		vehicles = append(vehicles, domain.NewVehicle(i, f.capacity, 0, hub))
	}
	var drivers []*domain.Driver
	for i := 1; i <= f.drivers; i++ {
		drivers = append(drivers, &domain.Driver{ID: i})
	}
	priorities := make([]float64, len(f.parcels))
	for i := range priorities {
		priorities[i] = float64(len(f.parcels) - i)
	}
	start := f.start
	if start == 0 {
		start = domain.NewClock(8, 0, 0)
	}

	s, err := New(Options{
		Start:         start,
		DeliveryStart: domain.NewClock(8, 0, 0),
		Routes:        f.routes,
		Store:         store,
		Priorities:    priorities,
		Vehicles:      vehicles,
		Drivers:       drivers,
		Hub:           hub,
		Graph:         triangle(t),
		Corrections:   f.corrections,
	})
	require.NoError(t, err)
	return s
}

// run ticks to completion, calling check after every tick.
func run(t *testing.T, s *Scheduler, check func()) []ports.Event {
	t.Helper()
	var events []ports.Event
	for i := 0; i < 24*60; i++ {
		more, err := s.Tick()
		require.NoError(t, err)
		events = append(events, s.Drain()...)
		if check != nil {
			check()
		}
		if !more {
			return events
		}
	}
	t.Fatal("scheduler did not finish within a day of ticks")
	return nil
}

func loadedOn(events []ports.Event, parcelID int) (vehicleID int, batch []int, ok bool) {
	for _, e := range events {
		if e.Kind == ports.EventParcelLoaded && slices.Contains(e.ParcelIDs, parcelID) {
			return e.VehicleID, e.ParcelIDs, true
		}
	}
	return 0, nil, false
}

func TestEmptyLoadFallsThroughToNextVehicle(t *testing.T) {
	held := func(id int) *domain.Parcel {
		return domain.NewParcel(id, locA, 1, 0, []domain.SpecialCode{
			domain.TruckRestricted{VehicleIDs: []int{2}},
			domain.Invalid{},
		})
	}
	s := newScheduler(t, fixture{
		parcels: []*domain.Parcel{
			held(1),
			held(2),
			domain.NewParcel(3, locB, 1, 0, []domain.SpecialCode{domain.TruckRestricted{VehicleIDs: []int{1}}}),
		},
		vehicles: 2,
		drivers:  1,
	})

	events := run(t, s, nil)

	p3, _ := s.Parcel(3)
	assert.Equal(t, domain.StatusDelivered, p3.Status().Kind)
	vid, _, ok := loadedOn(events, 3)
	require.True(t, ok)
	assert.Equal(t, 1, vid)

	for _, id := range []int{1, 2} {
		p, _ := s.Parcel(id)
		assert.Equal(t, domain.StatusInHub, p.Status().Kind, "parcel %d", id)
	}
	v1, v2 := s.Vehicles()[0], s.Vehicles()[1]
	assert.InDelta(t, 6.0, v1.Mileage, 1e-6)
	assert.Zero(t, v2.Mileage)
}

func TestRestrictedParcelRidesOnNamedVehicle(t *testing.T) {
	s := newScheduler(t, fixture{
		parcels: []*domain.Parcel{
			domain.NewParcel(1, locA, 1, 0, nil),
			domain.NewParcel(2, locB, 1, domain.NewClock(10, 30, 0), []domain.SpecialCode{domain.TruckRestricted{VehicleIDs: []int{2}}}),
		},
		vehicles: 2,
		drivers:  1,
	})

	events := run(t, s, nil)

	for _, p := range s.Parcels() {
		assert.Equal(t, domain.StatusDelivered, p.Status().Kind, "parcel %d", p.ID)
	}
	vid, _, ok := loadedOn(events, 2)
	require.True(t, ok)
	assert.Equal(t, 2, vid)

	v1, v2 := s.Vehicles()[0], s.Vehicles()[1]
	assert.Zero(t, v1.Mileage)
	assert.GreaterOrEqual(t, v2.Mileage, 10.0)
	assert.InDelta(t, 12.0, v2.Mileage, 1e-6)
	assert.True(t, v2.AtHub())
	assert.Nil(t, v2.Driver)

	p2, _ := s.Parcel(2)
	assert.LessOrEqual(t, p2.Status().At, domain.NewClock(10, 30, 0))
}

func TestCapacityNeverExceeded(t *testing.T) {
	var parcels []*domain.Parcel
	for i := 1; i <= 5; i++ {
		dest := locA
		if i%2 == 0 {
			dest = locB
		}
		parcels = append(parcels, domain.NewParcel(i, dest, 1, 0, nil))
	}
	s := newScheduler(t, fixture{parcels: parcels, vehicles: 1, capacity: 2, drivers: 1})

	events := run(t, s, func() {
		for _, v := range s.Vehicles() {
			assert.LessOrEqual(t, len(v.Parcels), v.Capacity)
		}
	})

	for _, p := range s.Parcels() {
		assert.Equal(t, domain.StatusDelivered, p.Status().Kind, "parcel %d", p.ID)
	}
	var trips int
	for _, e := range events {
		if e.Kind == ports.EventDispatched {
			trips++
		}
	}
	assert.Equal(t, 3, trips)
}

func TestTruckRestrictionHolds(t *testing.T) {
	only2 := []domain.SpecialCode{domain.TruckRestricted{VehicleIDs: []int{2}}}
	s := newScheduler(t, fixture{
		parcels: []*domain.Parcel{
			domain.NewParcel(1, locA, 1, 0, nil),
			domain.NewParcel(2, locA, 1, 0, only2),
			domain.NewParcel(3, locB, 1, 0, nil),
			domain.NewParcel(4, locB, 1, 0, only2),
			domain.NewParcel(5, locA, 1, 0, nil),
		},
		vehicles: 2,
		capacity: 2,
		drivers:  2,
	})

	events := run(t, s, func() {
		for _, v := range s.Vehicles() {
			for _, p := range v.Parcels {
				assert.True(t, p.AllowedOn(v.ID), "parcel %d on vehicle %d", p.ID, v.ID)
			}
		}
	})

	for _, id := range []int{2, 4} {
		vid, _, ok := loadedOn(events, id)
		require.True(t, ok)
		assert.Equal(t, 2, vid)
	}
	assert.True(t, s.Done())
}

func TestBatchLoadsTogether(t *testing.T) {
	s := newScheduler(t, fixture{
		parcels: []*domain.Parcel{
			domain.NewParcel(1, locA, 1, 0, nil),
			domain.NewParcel(2, locB, 1, 0, nil),
			domain.NewParcel(3, locA, 1, 0, []domain.SpecialCode{domain.BatchWith{ParcelIDs: []int{5}}}),
			domain.NewParcel(4, locB, 1, 0, nil),
			domain.NewParcel(5, locB, 1, 0, []domain.SpecialCode{domain.BatchWith{ParcelIDs: []int{6}}}),
			domain.NewParcel(6, locA, 1, 0, nil),
		},
		vehicles: 2,
		capacity: 3,
		drivers:  2,
	})

	events := run(t, s, nil)

	vid, batch, ok := loadedOn(events, 3)
	require.True(t, ok)
	assert.Subset(t, batch, []int{3, 5, 6})
	for _, id := range []int{5, 6} {
		other, _, _ := loadedOn(events, id)
		assert.Equal(t, vid, other)
	}
	assert.True(t, s.Done())
}

func TestInvalidParcelHeldUntilCorrected(t *testing.T) {
	s := newScheduler(t, fixture{
		parcels: []*domain.Parcel{
			domain.NewParcel(1, locA, 1, 0, []domain.SpecialCode{domain.Invalid{}}),
			domain.NewParcel(2, locA, 1, 0, nil),
		},
		vehicles:    1,
		drivers:     1,
		corrections: []domain.AddressCorrection{{ParcelID: 1, At: domain.NewClock(9, 0, 0), Destination: locB}},
	})

	p1, _ := s.Parcel(1)
	run(t, s, func() {
		if p1.Invalid() {
			assert.Equal(t, domain.StatusInHub, p1.Status().Kind)
		}
	})

	assert.Equal(t, domain.StatusDelivered, p1.Status().Kind)
	assert.Equal(t, locB, p1.Destination)
	assert.GreaterOrEqual(t, p1.Status().At, domain.NewClock(9, 0, 0))
}

func TestUncorrectedInvalidParcelStaysInHub(t *testing.T) {
	s := newScheduler(t, fixture{
		parcels: []*domain.Parcel{
			domain.NewParcel(1, locA, 1, 0, []domain.SpecialCode{domain.Invalid{}}),
			domain.NewParcel(2, locB, 1, 0, nil),
		},
		vehicles: 1,
		drivers:  1,
	})

	run(t, s, nil)

	p1, _ := s.Parcel(1)
	p2, _ := s.Parcel(2)
	assert.Equal(t, domain.StatusInHub, p1.Status().Kind)
	assert.Equal(t, domain.StatusDelivered, p2.Status().Kind)
}

func TestWaitsForImminentDelayedParcel(t *testing.T) {
	s := newScheduler(t, fixture{
		parcels: []*domain.Parcel{
			domain.NewParcel(1, locA, 1, 0, []domain.SpecialCode{domain.DelayedUntil{At: domain.NewClock(9, 5, 0)}}),
			domain.NewParcel(2, locB, 1, 0, nil),
		},
		vehicles: 1,
		drivers:  1,
		start:    domain.NewClock(8, 55, 0),
	})

	p1, _ := s.Parcel(1)
	assert.Equal(t, domain.StatusDelayed, p1.Status().Kind)

	events := run(t, s, nil)

	var first *ports.Event
	for i := range events {
		if events[i].Kind == ports.EventParcelLoaded {
			first = &events[i]
			break
		}
	}
	require.NotNil(t, first)
	assert.Equal(t, "09:05 AM", first.Clock)
	assert.ElementsMatch(t, []int{1, 2}, first.ParcelIDs)
}

func TestDispatchesWhenDelayIsFarOff(t *testing.T) {
	s := newScheduler(t, fixture{
		parcels: []*domain.Parcel{
			domain.NewParcel(1, locA, 1, 0, []domain.SpecialCode{domain.DelayedUntil{At: domain.NewClock(9, 5, 0)}}),
			domain.NewParcel(2, locB, 1, 0, nil),
		},
		vehicles: 1,
		drivers:  1,
	})

	more, err := s.Tick()
	require.NoError(t, err)
	require.True(t, more)

	events := s.Drain()
	vid, batch, ok := loadedOn(events, 2)
	require.True(t, ok)
	assert.Equal(t, 1, vid)
	assert.Equal(t, []int{2}, batch)
	assert.Empty(t, s.Drain())

	run(t, s, nil)
	assert.True(t, s.Done())
}

func TestNothingLeavesBeforeDeliveryStart(t *testing.T) {
	s := newScheduler(t, fixture{
		parcels:  []*domain.Parcel{domain.NewParcel(1, locA, 1, 0, nil)},
		vehicles: 1,
		drivers:  1,
		start:    domain.NewClock(7, 50, 0),
	})

	events := run(t, s, nil)
	require.NotEmpty(t, events)
	assert.Equal(t, "08:00 AM", events[0].Clock)
}

func TestEndOfDayMarksUnfinishedAttempted(t *testing.T) {
	s := newScheduler(t, fixture{
		parcels: []*domain.Parcel{
			domain.NewParcel(1, locFar, 1, 0, nil),
			domain.NewParcel(2, locB, 1, 0, []domain.SpecialCode{domain.Invalid{}}),
		},
		vehicles: 1,
		drivers:  1,
		start:    domain.NewClock(23, 30, 0),
	})

	events := run(t, s, nil)

	p1, _ := s.Parcel(1)
	p2, _ := s.Parcel(2)
	assert.Equal(t, domain.StatusAttempted, p1.Status().Kind)
	assert.Equal(t, domain.StatusInHub, p2.Status().Kind)
	assert.Empty(t, s.Vehicles()[0].Parcels)
	assert.Equal(t, ports.EventParcelAttempted, events[len(events)-1].Kind)
}

func TestResetDayReplaysIdentically(t *testing.T) {
	s := newScheduler(t, fixture{
		parcels: []*domain.Parcel{
			domain.NewParcel(1, locA, 1, 0, []domain.SpecialCode{domain.Invalid{}}),
			domain.NewParcel(2, locB, 1, 0, nil),
			domain.NewParcel(3, locA, 1, 0, []domain.SpecialCode{domain.DelayedUntil{At: domain.NewClock(9, 30, 0)}}),
		},
		vehicles:    1,
		drivers:     1,
		corrections: []domain.AddressCorrection{{ParcelID: 1, At: domain.NewClock(9, 0, 0), Destination: locB}},
	})

	run(t, s, nil)
	first := make(map[int]domain.Status)
	for _, p := range s.Parcels() {
		first[p.ID] = p.Status()
	}
	mileage := s.Vehicles()[0].Mileage

	s.ResetDay()
	assert.Equal(t, domain.NewClock(8, 0, 0), s.Clock())
	assert.Zero(t, s.Vehicles()[0].Mileage)
	p1, _ := s.Parcel(1)
	p3, _ := s.Parcel(3)
	assert.True(t, p1.Invalid())
	assert.Equal(t, locA, p1.Destination)
	assert.Equal(t, domain.StatusInHub, p1.Status().Kind)
	assert.Equal(t, domain.StatusDelayed, p3.Status().Kind)
	assert.Empty(t, s.Drain())

	run(t, s, nil)
	for _, p := range s.Parcels() {
		assert.Equal(t, first[p.ID], p.Status(), "parcel %d", p.ID)
	}
	assert.InDelta(t, mileage, s.Vehicles()[0].Mileage, 1e-9)
}

func TestAdvanceToStopsAtTarget(t *testing.T) {
	s := newScheduler(t, fixture{
		parcels:  []*domain.Parcel{domain.NewParcel(1, locA, 1, 0, nil)},
		vehicles: 1,
		drivers:  1,
	})

	more, err := s.AdvanceTo(domain.NewClock(8, 10, 0))
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, domain.NewClock(8, 10, 0), s.Clock())

	p, _ := s.Parcel(1)
	assert.Equal(t, domain.EnRoute(1), p.Status())

	more, err = s.AdvanceTo(domain.EndOfDay)
	require.NoError(t, err)
	assert.False(t, more)
	assert.Equal(t, domain.StatusDelivered, p.Status().Kind)
}

func TestNewRejectsBadOptions(t *testing.T) {
	store, err := memory.NewParcelStoreFrom([]*domain.Parcel{domain.NewParcel(1, locA, 1, 0, nil)})
	require.NoError(t, err)
	g := triangle(t)
	vehicles := []*domain.Vehicle{domain.NewVehicle(1, 0, 0, hub)}

	_, err = New(Options{Store: store, Graph: g, Vehicles: vehicles})
	assert.Error(t, err, "priorities must match parcels")

	_, err = New(Options{
		Store:      store,
		Graph:      g,
		Vehicles:   vehicles,
		Priorities: []float64{1},
		Hub:        hub,
		Routes:     []domain.Route{{hub, locA}},
	})
	assert.Error(t, err, "routes must return to the hub")

	_, err = New(Options{
		Store:       store,
		Graph:       g,
		Vehicles:    vehicles,
		Priorities:  []float64{1},
		Hub:         hub,
		Corrections: []domain.AddressCorrection{{ParcelID: 9}},
	})
	assert.Error(t, err, "correction for unknown parcel")
}

func TestBatchGroupsAreSymmetric(t *testing.T) {
	parcels := []*domain.Parcel{
		domain.NewParcel(1, locA, 1, 0, nil),
		domain.NewParcel(2, locA, 1, 0, []domain.SpecialCode{domain.BatchWith{ParcelIDs: []int{1, 99}}}),
		domain.NewParcel(3, locA, 1, 0, nil),
	}
	store, err := memory.NewParcelStoreFrom(parcels)
	require.NoError(t, err)

	groups := batchGroups(parcels, store)
	require.Len(t, groups, 2)
	assert.Equal(t, groups[1], groups[2])
	assert.Len(t, groups[1], 2)
	_, ok := groups[3]
	assert.False(t, ok)
}
