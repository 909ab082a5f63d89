package domain

import (
	"fmt"
	"math"
	"strings"
)

type LocationID int

// Location is a delivery destination (or the hub). Identity is the id; the
// (address, zip) pair and the display name are unique within a Registry.
type Location struct {
	ID      LocationID
	Name    string
	Address string
	Zip     string
}

type LocationKey struct {
	Address string
	Zip     string
}

// Key returns the interned lookup key for the location's address.
func (l Location) Key() LocationKey {
	return NewLocationKey(l.Address, l.Zip)
}

func NewLocationKey(address, zip string) LocationKey {
	return LocationKey{
		Address: strings.ToLower(strings.Join(strings.Fields(address), " ")),
		Zip:     strings.TrimSpace(zip),
	}
}

// Distancer answers symmetric travel distances in miles.
type Distancer interface {
	Distance(a, b LocationID) float64
}

// Registry holds every known Location and the symmetric distance between them.
// Once two locations are linked their distance cannot change.
type Registry struct {
	locations []Location
	byID      map[LocationID]int
	byKey     map[LocationKey]LocationID
	byName    map[string]LocationID
	dist      [][]float64
	nextID    LocationID
}

func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[LocationID]int),
		byKey:  make(map[LocationKey]LocationID),
		byName: make(map[string]LocationID),
		nextID: 1,
	}
}

// Add registers a location. A zero ID is replaced with the next free id.
func (r *Registry) Add(loc Location) (LocationID, error) {
	if loc.ID == 0 {
		loc.ID = r.nextID
	}
	if _, ok := r.byID[loc.ID]; ok {
		return 0, fmt.Errorf("add location id=%d: %w", loc.ID, ErrDuplicateLocation)
	}
	key := loc.Key()
	if other, ok := r.byKey[key]; ok {
		return 0, fmt.Errorf("add location %q: same address as id=%d: %w", loc.Address, other, ErrDuplicateLocation)
	}
	name := strings.TrimSpace(loc.Name)
	if name == "" {
		name = strings.TrimSpace(loc.Address)
	}
	if other, ok := r.byName[name]; ok {
		return 0, fmt.Errorf("add location %q: same name as id=%d: %w", name, other, ErrDuplicateLocation)
	}
	loc.Name = name

	idx := len(r.locations)
	r.locations = append(r.locations, loc)
	r.byID[loc.ID] = idx
	r.byKey[key] = loc.ID
	r.byName[name] = loc.ID
	if loc.ID >= r.nextID {
		r.nextID = loc.ID + 1
	}

	for i := range r.dist {
		r.dist[i] = append(r.dist[i], math.Inf(1))
	}
	row := make([]float64, idx+1)
	for i := range row {
		row[i] = math.Inf(1)
	}
	row[idx] = 0
	r.dist = append(r.dist, row)

	return loc.ID, nil
}

// Link records the distance between a and b in both directions.
func (r *Registry) Link(a, b LocationID, miles float64) error {
	ia, ok := r.byID[a]
	if !ok {
		return fmt.Errorf("link %d-%d: id=%d: %w", a, b, a, ErrUnknownLocation)
	}
	ib, ok := r.byID[b]
	if !ok {
		return fmt.Errorf("link %d-%d: id=%d: %w", a, b, b, ErrUnknownLocation)
	}
	if miles < 0 || math.IsNaN(miles) || math.IsInf(miles, 0) {
		return fmt.Errorf("link %d-%d: distance must be a non-negative number, got %v", a, b, miles)
	}
	if ia == ib {
		if miles != 0 {
			return fmt.Errorf("link %d-%d: self distance must be zero: %w", a, b, ErrDistanceConflict)
		}
		return nil
	}

	current := r.dist[ia][ib]
	if !math.IsInf(current, 1) {
		if current != miles {
			return fmt.Errorf("link %d-%d: have %.2f, got %.2f: %w", a, b, current, miles, ErrDistanceConflict)
		}
		return nil
	}
	r.dist[ia][ib] = miles
	r.dist[ib][ia] = miles
	return nil
}

// Distance returns the linked distance, or +Inf when the pair is not linked.
func (r *Registry) Distance(a, b LocationID) float64 {
	ia, ok := r.byID[a]
	if !ok {
		return math.Inf(1)
	}
	ib, ok := r.byID[b]
	if !ok {
		return math.Inf(1)
	}
	return r.dist[ia][ib]
}

func (r *Registry) Location(id LocationID) (Location, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Location{}, false
	}
	return r.locations[i], true
}

func (r *Registry) ByKey(address, zip string) (Location, error) {
	id, ok := r.byKey[NewLocationKey(address, zip)]
	if !ok {
		return Location{}, fmt.Errorf("lookup address %q zip %q: %w", address, zip, ErrUnknownLocation)
	}
	loc, _ := r.Location(id)
	return loc, nil
}

func (r *Registry) ByName(name string) (Location, error) {
	id, ok := r.byName[strings.TrimSpace(name)]
	if !ok {
		return Location{}, fmt.Errorf("lookup name %q: %w", name, ErrUnknownLocation)
	}
	loc, _ := r.Location(id)
	return loc, nil
}

// Locations returns all locations in registration order.
func (r *Registry) Locations() []Location {
	out := make([]Location, len(r.locations))
	copy(out, r.locations)
	return out
}

// Neighbors returns every location linked to id, in registration order.
func (r *Registry) Neighbors(id LocationID) []LocationID {
	i, ok := r.byID[id]
	if !ok {
		return nil
	}
	out := make([]LocationID, 0, len(r.locations))
	for j, d := range r.dist[i] {
		if j == i || math.IsInf(d, 1) {
			continue
		}
		out = append(out, r.locations[j].ID)
	}
	return out
}

// Validate reports the first unlinked pair. The optimizer and scheduler
// require a fully populated graph.
func (r *Registry) Validate() error {
	for i := range r.locations {
		for j := i + 1; j < len(r.locations); j++ {
			if math.IsInf(r.dist[i][j], 1) {
				return fmt.Errorf("validate graph: no distance between %q and %q", r.locations[i].Name, r.locations[j].Name)
			}
		}
	}
	return nil
}

func (r *Registry) Len() int { return len(r.locations) }
