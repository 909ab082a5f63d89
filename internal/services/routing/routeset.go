// Package routing partitions delivery stops into hub-bounded routes and
// evolves those partitions with a genetic search.
package routing

import (
	"delivery-dispatch-sim/internal/domain"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sort"
)

var (
	// ErrParentMismatch is returned when crossover parents cover different stops or route counts.
	ErrParentMismatch = errors.New("parent route sets do not match")

	// ErrRouteEndpoints is returned when a route does not start and end at the hub.
	ErrRouteEndpoints = errors.New("route must start and end at the hub")

	// ErrBadParameter is returned for out-of-range optimizer parameters.
	ErrBadParameter = errors.New("invalid optimizer parameter")
)

// Mutation odds.
const (
	neighborExchangeRate = 0.1 // pick a neighbor exchange over an in-route swap
	shortRouteLen        = 10  // routes this short always exchange with a neighbor
	neighborSwapRate     = 0.1 // swap with the neighbor instead of give/take
)

// RouteSet is one population member: every required stop appears in exactly
// one route, and every route starts and ends at the hub.
type RouteSet struct {
	Routes []domain.Route
}

// NewRouteSet validates hub endpoints, e.g. for routes read back from storage.
func NewRouteSet(routes []domain.Route, hub domain.LocationID) (RouteSet, error) {
	for i, r := range routes {
		if !r.HubBounded(hub) {
			return RouteSet{}, fmt.Errorf("new route set: route %d: %w", i, ErrRouteEndpoints)
		}
	}
	return RouteSet{Routes: routes}, nil
}

// RandomRouteSet shuffles stops and deals them round-robin into n routes.
func RandomRouteSet(rng *rand.Rand, stops []domain.LocationID, hub domain.LocationID, n int) RouteSet {
	shuffled := slices.Clone(stops)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	routes := make([]domain.Route, n)
	for i := range routes {
		routes[i] = domain.Route{hub}
	}
	for i, s := range shuffled {
		routes[i%n] = append(routes[i%n], s)
	}
	for i := range routes {
		routes[i] = append(routes[i], hub)
	}
	return RouteSet{Routes: routes}
}

// Clone returns a deep copy.
func (s RouteSet) Clone() RouteSet {
	routes := make([]domain.Route, len(s.Routes))
	for i, r := range s.Routes {
		routes[i] = r.Clone()
	}
	return RouteSet{Routes: routes}
}

// Stops returns every non-hub stop, route by route.
func (s RouteSet) Stops(hub domain.LocationID) []domain.LocationID {
	var out []domain.LocationID
	for _, r := range s.Routes {
		for _, loc := range r {
			if loc != hub {
				out = append(out, loc)
			}
		}
	}
	return out
}

// Validate checks the endpoint and coverage invariants against the required stops.
func (s RouteSet) Validate(hub domain.LocationID, required []domain.LocationID) error {
	seen := make(map[domain.LocationID]int, len(required))
	for i, r := range s.Routes {
		if !r.HubBounded(hub) {
			return fmt.Errorf("validate route set: route %d: %w", i, ErrRouteEndpoints)
		}
		for _, loc := range r.Stops() {
			if loc == hub {
				continue
			}
			seen[loc]++
		}
	}
	for _, loc := range required {
		if loc == hub {
			continue
		}
		switch seen[loc] {
		case 0:
			return fmt.Errorf("validate route set: stop %d missing", loc)
		case 1:
		default:
			return fmt.Errorf("validate route set: stop %d appears %d times", loc, seen[loc])
		}
		delete(seen, loc)
	}
	for loc := range seen {
		return fmt.Errorf("validate route set: unexpected stop %d", loc)
	}
	return nil
}

// Mutate returns a perturbed copy. Each route is picked with probability
// 1/len(Routes); a picked route either exchanges a stop with a neighboring
// route or swaps two adjacent stops of its own. Hub endpoints never move.
func (s RouteSet) Mutate(rng *rand.Rand) RouteSet {
	out := s.Clone()
	n := len(out.Routes)

	for i := 0; i < n; i++ {
		if rng.Intn(n) != 0 {
			continue
		}

		cur := out.Routes[i]
		if n > 1 && (rng.Float64() < neighborExchangeRate || len(cur) <= shortRouteLen) {
			j := (i + 1) % n
			if rng.Intn(2) == 1 {
				j = (i - 1 + n) % n
			}
			if rng.Float64() < neighborSwapRate {
				out.Routes[i], out.Routes[j] = swapBetween(rng, out.Routes[i], out.Routes[j])
				continue
			}
			switch {
			case len(out.Routes[i]) <= 2 && len(out.Routes[j]) <= 2:
				// both hub-only
			case len(out.Routes[i]) <= 2:
				out.Routes[j], out.Routes[i] = give(rng, out.Routes[j], out.Routes[i])
			default:
				out.Routes[i], out.Routes[j] = give(rng, out.Routes[i], out.Routes[j])
			}
			continue
		}

		out.Routes[i] = swapAdjacent(rng, cur)
	}

	return out
}

// give moves one random interior stop of from into a random interior slot of to.
func give(rng *rand.Rand, from, to domain.Route) (domain.Route, domain.Route) {
	ix := 1 + rng.Intn(len(from)-2)
	loc := from[ix]
	from = slices.Delete(from, ix, ix+1)
	at := 1 + rng.Intn(len(to)-1)
	to = slices.Insert(to, at, loc)
	return from, to
}

func swapBetween(rng *rand.Rand, a, b domain.Route) (domain.Route, domain.Route) {
	if len(a) <= 2 || len(b) <= 2 {
		return a, b
	}
	ia := 1 + rng.Intn(len(a)-2)
	ib := 1 + rng.Intn(len(b)-2)
	a[ia], b[ib] = b[ib], a[ia]
	return a, b
}

func swapAdjacent(rng *rand.Rand, r domain.Route) domain.Route {
	last := len(r) - 2
	if last < 2 {
		return r
	}
	ix := 1 + rng.Intn(last)
	var to int
	if rng.Intn(2) == 0 {
		to = ix + 1
		if to > last {
			to = ix - 1
		}
	} else {
		to = ix - 1
		if to < 1 {
			to = ix + 1
		}
	}
	r[ix], r[to] = r[to], r[ix]
	return r
}

// Offspring weights rank candidate routes during crossover.
const (
	offspringDistanceWeight = -0.3
	offspringStopsWeight    = -6.0
	offspringDevianceWeight = -0.5
	offspringDensityWeight  = 5.0
)

// Offspring recombines s and other. Both parents' routes are ranked by a
// local route score; routes are accepted best first, dropping stops already
// claimed, until the route count is reached. Stops left over go to the
// least dense accepted route.
func (s RouteSet) Offspring(other RouteSet, g domain.Distancer, hub domain.LocationID) (RouteSet, error) {
	n := len(s.Routes)
	if n != len(other.Routes) {
		return RouteSet{}, fmt.Errorf("offspring: %d routes vs %d: %w", n, len(other.Routes), ErrParentMismatch)
	}
	mine := s.Stops(hub)
	if !sameStops(mine, other.Stops(hub)) {
		return RouteSet{}, fmt.Errorf("offspring: parents cover different stops: %w", ErrParentMismatch)
	}

	pool := make([]domain.Route, 0, 2*n)
	pool = append(pool, s.Routes...)
	pool = append(pool, other.Routes...)
	scores := make([]float64, len(pool))
	for i, r := range pool {
		scores[i] = offspringScore(r, g, hub)
	}
	order := make([]int, len(pool))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	claimed := make(map[domain.LocationID]bool, len(mine))
	routes := make([]domain.Route, 0, n)
	for _, idx := range order {
		if len(routes) >= n {
			break
		}
		r := domain.Route{hub}
		for _, loc := range pool[idx] {
			if loc == hub || claimed[loc] {
				continue
			}
			claimed[loc] = true
			r = append(r, loc)
		}
		routes = append(routes, append(r, hub))
	}
	for len(routes) < n {
		routes = append(routes, domain.Route{hub, hub})
	}

	for _, loc := range mine {
		if claimed[loc] {
			continue
		}
		k := leastDense(routes, g)
		routes[k] = slices.Insert(routes[k], len(routes[k])-1, loc)
		claimed[loc] = true
	}

	return RouteSet{Routes: routes}, nil
}

func offspringScore(r domain.Route, g domain.Distancer, hub domain.LocationID) float64 {
	return r.Distance(g)*offspringDistanceWeight +
		float64(len(r)-2)*offspringStopsWeight +
		r.Deviance(g, hub)*offspringDevianceWeight +
		stopDensity(r, g)*offspringDensityWeight
}

// stopDensity counts interior stops per mile.
func stopDensity(r domain.Route, g domain.Distancer) float64 {
	d := r.Distance(g)
	if d == 0 {
		return 0
	}
	return float64(len(r)-2) / d
}

func leastDense(routes []domain.Route, g domain.Distancer) int {
	best := 0
	bestDensity := stopDensity(routes[0], g)
	for i := 1; i < len(routes); i++ {
		if d := stopDensity(routes[i], g); d < bestDensity {
			best, bestDensity = i, d
		}
	}
	return best
}

func sameStops(a, b []domain.LocationID) bool {
	if len(a) != len(b) {
		return false
	}
	x := slices.Clone(a)
	y := slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
