package domain

import "slices"

// Route is an ordered sequence of stops that starts and ends at the hub.
type Route []LocationID

// Distance is the sum of consecutive hop distances.
func (r Route) Distance(g Distancer) float64 {
	total := 0.0
	for i := 1; i < len(r); i++ {
		total += g.Distance(r[i-1], r[i])
	}
	return total
}

// Deviance is the route distance minus the round trip to its farthest stop.
func (r Route) Deviance(g Distancer, hub LocationID) float64 {
	farthest := 0.0
	for _, loc := range r {
		if d := g.Distance(loc, hub); d > farthest {
			farthest = d
		}
	}
	return r.Distance(g) - 2*farthest
}

// Density is stops per mile; a route with no distance has density 0.
func (r Route) Density(g Distancer) float64 {
	d := r.Distance(g)
	if d == 0 {
		return 0
	}
	return float64(len(r)) / d
}

// Stops returns the interior stops, without the hub endpoints.
func (r Route) Stops() []LocationID {
	if len(r) < 2 {
		return nil
	}
	return r[1 : len(r)-1]
}

func (r Route) Contains(id LocationID) bool { return slices.Contains(r, id) }

func (r Route) Clone() Route { return slices.Clone(r) }

// HubBounded reports whether the route starts and ends at hub.
func (r Route) HubBounded(hub LocationID) bool {
	return len(r) >= 2 && r[0] == hub && r[len(r)-1] == hub
}
