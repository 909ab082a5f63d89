package dispatch

import (
	"delivery-dispatch-sim/internal/domain"
	"delivery-dispatch-sim/internal/ports"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"
)

// dispatch sends idle vehicles out while an idle driver remains. Vehicles
// are tried in demand order, lowest id first on ties. A vehicle that loads
// nothing stays at the hub and is not tried again this tick.
func (s *Scheduler) dispatch() error {
	demand := s.demand()
	tried := make(map[int]bool, len(s.vehicles))
	for {
		v := s.idleVehicle(demand, tried)
		if v == nil {
			return nil
		}
		d := s.idleDriver()
		if d == nil {
			return nil
		}
		v.Driver = d
		tried[v.ID] = true

		if s.delayImminent() {
			v.Driver = nil
			return nil
		}

		idx, route := s.bestRoute()
		loaded, err := s.load(v, route)
		if err != nil {
			return fmt.Errorf("dispatch vehicle %d: %w", v.ID, err)
		}
		if len(loaded) == 0 {
			v.Driver = nil
			continue
		}

		refined := s.refiner.Refine(route, v.Parcels, s.priorities, s.clock)
		if len(refined) > 1 {
			v.Push(s.graph, refined[1:]...)
		}

		stops := make([]int, 0, len(v.Queue))
		for _, id := range v.Queue {
			stops = append(stops, int(id))
		}
		log.Debug().
			Str("clock", s.clock.String()).
			Int("vehicle", v.ID).
			Int("driver", d.ID).
			Int("route", idx).
			Ints("parcels", parcelIDs(loaded)).
			Msg("dispatch")

		s.emit(ports.Event{Kind: ports.EventParcelLoaded, VehicleID: v.ID, ParcelIDs: parcelIDs(loaded)})
		s.emit(ports.Event{Kind: ports.EventDispatched, VehicleID: v.ID, Stops: stops, Mileage: v.Mileage})
	}
}

// demand counts, per vehicle, the IN_HUB parcels whose truck restriction names it.
func (s *Scheduler) demand() map[int]int {
	out := make(map[int]int, len(s.vehicles))
	for _, p := range s.store.All() {
		if p.Status().Kind != domain.StatusInHub {
			continue
		}
		t, ok := p.TruckRestriction()
		if !ok {
			continue
		}
		for _, id := range t.VehicleIDs {
			out[id]++
		}
	}
	return out
}

func (s *Scheduler) idleVehicle(demand map[int]int, tried map[int]bool) *domain.Vehicle {
	var best *domain.Vehicle
	for _, v := range s.vehicles {
		if !v.AtHub() || v.Driver != nil || tried[v.ID] {
			continue
		}
		if best == nil || demand[v.ID] > demand[best.ID] {
			best = v
		}
	}
	return best
}

func (s *Scheduler) idleDriver() *domain.Driver {
	for _, d := range s.drivers {
		busy := false
		for _, v := range s.vehicles {
			if v.Driver == d {
				busy = true
				break
			}
		}
		if !busy {
			return d
		}
	}
	return nil
}

// delayImminent reports whether some delayed parcel reaches the hub within
// the look-ahead window.
func (s *Scheduler) delayImminent() bool {
	for _, p := range s.store.All() {
		st := p.Status()
		if st.Kind != domain.StatusDelayed {
			continue
		}
		if wait := st.Until - s.clock; wait > 0 && wait <= s.lookAhead {
			return true
		}
	}
	return false
}

// bestRoute scores each route by the priority of IN_HUB parcels it visits.
// With no routes the vehicle starts from an empty hub loop and index -1.
func (s *Scheduler) bestRoute() (int, domain.Route) {
	if len(s.routes) == 0 {
		return -1, domain.Route{s.hub, s.hub}
	}
	bestIdx, bestScore := 0, 0.0
	for i, r := range s.routes {
		score := 0.0
		for _, rp := range s.ranked {
			if rp.parcel.Status().Kind == domain.StatusInHub && r.Contains(rp.parcel.Destination) {
				score += rp.score
			}
		}
		if i == 0 || score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	return bestIdx, s.routes[bestIdx].Clone()
}

// load fills v in four passes, each in priority order: batch groups, early
// deadlines, parcels on route or restricted to v, then anything loadable.
// Batch groups are loaded whole or not at all.
func (s *Scheduler) load(v *domain.Vehicle, route domain.Route) ([]*domain.Parcel, error) {
	passes := []func(p *domain.Parcel) bool{
		func(p *domain.Parcel) bool {
			_, ok := s.groups[p.ID]
			return ok
		},
		func(p *domain.Parcel) bool { return p.HasDeadline() },
		func(p *domain.Parcel) bool {
			if route.Contains(p.Destination) {
				return true
			}
			_, restricted := p.TruckRestriction()
			return restricted && p.AllowedOn(v.ID)
		},
		func(*domain.Parcel) bool { return true },
	}

	var loaded []*domain.Parcel
	for _, want := range passes {
		for _, rp := range s.ranked {
			if v.Full() {
				return loaded, nil
			}
			p := rp.parcel
			if !want(p) || !s.loadable(p, v) {
				continue
			}
			group, err := s.loadGroup(p, v)
			if err != nil {
				return loaded, err
			}
			loaded = append(loaded, group...)
		}
	}
	return loaded, nil
}

// loadGroup loads p together with every IN_HUB member of its batch group.
// It loads nothing if any member cannot ride on v or the group does not fit.
func (s *Scheduler) loadGroup(p *domain.Parcel, v *domain.Vehicle) ([]*domain.Parcel, error) {
	group := []*domain.Parcel{p}
	if members, ok := s.groups[p.ID]; ok {
		group = group[:0]
		for _, m := range members {
			if m.Status().Kind != domain.StatusInHub {
				continue
			}
			if !s.loadable(m, v) {
				return nil, nil
			}
			group = append(group, m)
		}
	}
	if len(v.Parcels)+len(group) > v.Capacity {
		return nil, nil
	}
	if err := v.LoadMultiple(group); err != nil {
		return nil, err
	}
	for _, m := range group {
		if err := m.SetStatus(domain.EnRoute(v.ID)); err != nil {
			return nil, err
		}
	}
	return group, nil
}

func (s *Scheduler) loadable(p *domain.Parcel, v *domain.Vehicle) bool {
	if p.Invalid() || p.Status().Kind != domain.StatusInHub {
		return false
	}
	if !p.AllowedOn(v.ID) {
		return false
	}
	if at, ok := p.Delay(); ok && s.clock < at {
		return false
	}
	for _, other := range s.vehicles {
		if other.Carries(p) {
			return false
		}
	}
	return true
}

// batchGroups joins parcels linked by BATCH codes, in either direction, and
// maps each member id to the whole group in store order.
func batchGroups(parcels []*domain.Parcel, store ports.ParcelStore) map[int][]*domain.Parcel {
	parent := make(map[int]int)
	var find func(int) int
	find = func(id int) int {
		if _, ok := parent[id]; !ok {
			parent[id] = id
		}
		for parent[id] != id {
			parent[id] = parent[parent[id]]
			id = parent[id]
		}
		return id
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for _, p := range parcels {
		ids, ok := p.Batch()
		if !ok {
			continue
		}
		find(p.ID)
		for _, id := range ids {
			if _, known := store.Get(id); known {
				union(p.ID, id)
			}
		}
	}

	byRoot := make(map[int][]*domain.Parcel)
	for _, p := range parcels {
		if _, linked := parent[p.ID]; !linked {
			continue
		}
		root := find(p.ID)
		byRoot[root] = append(byRoot[root], p)
	}

	groups := make(map[int][]*domain.Parcel, len(parent))
	for _, members := range byRoot {
		if len(members) < 2 {
			continue
		}
		for _, m := range members {
			groups[m.ID] = slices.Clip(members)
		}
	}
	return groups
}
