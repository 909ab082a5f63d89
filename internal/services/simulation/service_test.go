package simulation

import (
	"context"
	"sync"
	"testing"

	"delivery-dispatch-sim/internal/adapters/memory"
	"delivery-dispatch-sim/internal/domain"
	"delivery-dispatch-sim/internal/ports"
	"delivery-dispatch-sim/internal/services/priority"
	"delivery-dispatch-sim/internal/services/routing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []ports.Event
}

func (r *recorder) Publish(_ context.Context, evt ports.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

type routeStore struct {
	saved []ports.SavedRouteSet
}

func (r *routeStore) SaveRouteSet(_ context.Context, set ports.SavedRouteSet) error {
	r.saved = append(r.saved, set)
	return nil
}

func (r *routeStore) LatestRouteSet(context.Context) (ports.SavedRouteSet, bool, error) {
	if len(r.saved) == 0 {
		return ports.SavedRouteSet{}, false, nil
	}
	return r.saved[len(r.saved)-1], true, nil
}

func newService(t *testing.T) (*Service, *recorder, *routeStore) {
	t.Helper()
	g := domain.NewRegistry()
	for _, l := range []domain.Location{
		{ID: 1, Name: "Hub", Address: "1 Depot Way"},
		{ID: 2, Name: "Elm", Address: "10 Elm St"},
		{ID: 3, Name: "Oak", Address: "20 Oak St"},
	} {
		_, err := g.Add(l)
		require.NoError(t, err)
	}
	require.NoError(t, g.Link(1, 2, 5))
	require.NoError(t, g.Link(1, 3, 3))
	require.NoError(t, g.Link(2, 3, 4))

	store, err := memory.NewParcelStoreFrom([]*domain.Parcel{
		domain.NewParcel(1, 2, 1, 0, nil),
		domain.NewParcel(2, 3, 1, domain.NewClock(10, 30, 0), nil),
	})
	require.NoError(t, err)

	rec := &recorder{}
	routes := &routeStore{}
	svc, err := New(g, store, nil, Config{
		Hub:           1,
		Start:         domain.NewClock(8, 0, 0),
		DeliveryStart: domain.NewClock(8, 0, 0),
		Vehicles:      1,
		Drivers:       1,
		Priority:      priority.DefaultConfig(),
	}, Deps{Publisher: rec, Routes: routes})
	require.NoError(t, err)
	return svc, rec, routes
}

func TestAdvanceToPublishesEvents(t *testing.T) {
	svc, rec, _ := newService(t)
	ctx := context.Background()

	more, err := svc.AdvanceTo(ctx, domain.NewClock(8, 5, 0))
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, domain.NewClock(8, 5, 0), svc.Clock())

	require.NotEmpty(t, rec.events)
	assert.Equal(t, ports.EventParcelLoaded, rec.events[0].Kind)
	assert.ElementsMatch(t, []int{1, 2}, rec.events[0].ParcelIDs)
	assert.False(t, rec.events[0].OccurredAt.IsZero())

	more, err = svc.AdvanceTo(ctx, domain.NewClock(12, 0, 0))
	require.NoError(t, err)
	assert.False(t, more)

	r := svc.Report()
	assert.True(t, r.Done)
	assert.Equal(t, 2, r.Delivered)
	assert.InDelta(t, 12.0, r.TotalMileage, 1e-6)
	require.Len(t, r.Vehicles, 1)
	assert.True(t, r.Vehicles[0].AtHub)
	assert.Equal(t, "Hub", r.Vehicles[0].Last)
}

func TestStatusAtReplaysWithoutMovingClock(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AdvanceTo(ctx, domain.NewClock(11, 0, 0))
	require.NoError(t, err)
	end := svc.Clock()
	before := svc.Report()

	view, err := svc.StatusAt(ctx, 1, domain.NewClock(8, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, "EN ROUTE - VEHICLE 1", view.Status)
	assert.Equal(t, 1, view.VehicleID)
	assert.Equal(t, "08:01 AM", view.AsOf)
	assert.Equal(t, "Elm", view.Destination)
	assert.Equal(t, "10 Elm St", view.Address)

	assert.Equal(t, end, svc.Clock())
	assert.Equal(t, before.Parcels, svc.Report().Parcels)

	_, err = svc.StatusAt(ctx, 99, domain.NewClock(9, 0, 0))
	assert.ErrorIs(t, err, ErrUnknownParcel)
}

func TestAdvanceToEarlierClockRewinds(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AdvanceTo(ctx, domain.NewClock(10, 0, 0))
	require.NoError(t, err)

	_, err = svc.AdvanceTo(ctx, domain.NewClock(8, 2, 0))
	require.NoError(t, err)
	assert.Equal(t, domain.NewClock(8, 2, 0), svc.Clock())
	for _, p := range svc.Parcels() {
		assert.Equal(t, 1, p.VehicleID, "parcel %d", p.ID)
	}

	svc.Reset(ctx)
	assert.Equal(t, domain.NewClock(8, 0, 0), svc.Clock())
	for _, p := range svc.Parcels() {
		assert.Equal(t, "IN HUB", p.Status)
	}
}

func TestRewindDoesNotRepublishEvents(t *testing.T) {
	svc, rec, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AdvanceTo(ctx, domain.NewClock(12, 0, 0))
	require.NoError(t, err)
	published := len(rec.events)
	require.NotZero(t, published)

	_, err = svc.AdvanceTo(ctx, domain.NewClock(9, 0, 0))
	require.NoError(t, err)
	_, err = svc.AdvanceTo(ctx, domain.NewClock(12, 0, 0))
	require.NoError(t, err)
	assert.Len(t, rec.events, published)

	svc.Reset(ctx)
	_, err = svc.AdvanceTo(ctx, domain.NewClock(12, 0, 0))
	require.NoError(t, err)
	assert.Len(t, rec.events, published)
	assert.Equal(t, 2, svc.Report().Delivered)

	delivered := 0
	for _, e := range rec.events {
		if e.Kind == ports.EventParcelDelivered {
			delivered += len(e.ParcelIDs)
		}
	}
	assert.Equal(t, 2, delivered)
}

func TestRegenerateSavesAndRestarts(t *testing.T) {
	svc, _, routes := newService(t)
	ctx := context.Background()

	_, err := svc.AdvanceTo(ctx, domain.NewClock(9, 0, 0))
	require.NoError(t, err)

	saved, err := svc.Regenerate(ctx, routing.Params{NumRoutes: 2, Generations: 3, PopulationSize: 6, Seed: 7})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.RunID)
	require.Len(t, saved.Routes, 2)
	require.Len(t, routes.saved, 1)
	assert.Equal(t, saved.RunID, routes.saved[0].RunID)

	assert.Equal(t, domain.NewClock(8, 0, 0), svc.Clock())
	assert.Equal(t, saved.RunID, svc.Report().RunID)

	_, err = svc.AdvanceTo(ctx, domain.NewClock(12, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, svc.Report().Delivered)

	_, err = svc.Regenerate(ctx, routing.Params{NumRoutes: 0, Generations: 3, PopulationSize: 6})
	assert.ErrorIs(t, err, routing.ErrBadParameter)
}

func TestNewValidatesConfig(t *testing.T) {
	g := domain.NewRegistry()
	_, err := g.Add(domain.Location{ID: 1, Name: "Hub", Address: "1 Depot Way"})
	require.NoError(t, err)
	store := memory.NewParcelStore()

	_, err = New(g, store, nil, Config{Hub: 1, Vehicles: 0, Drivers: 1}, Deps{})
	assert.Error(t, err)

	_, err = New(g, store, nil, Config{Hub: 5, Vehicles: 1, Drivers: 1}, Deps{})
	assert.ErrorIs(t, err, domain.ErrUnknownLocation)
}
