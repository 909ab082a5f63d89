package pathfind

import (
	"delivery-dispatch-sim/internal/domain"
	"slices"
	"sort"
)

const (
	// urgentWindow pulls a destination to the front when its deadline is this close.
	urgentWindow = domain.Hour
	shortcutEps  = 1e-9
)

// Refiner reshapes a candidate route around the parcels actually loaded.
type Refiner struct {
	Graph Graph
	Hub   domain.LocationID
}

func NewRefiner(g Graph, hub domain.LocationID) *Refiner {
	return &Refiner{Graph: g, Hub: hub}
}

// Refine returns the stop sequence for a vehicle leaving the hub at now with
// loaded aboard. priorities maps parcel id to its priority score. The result
// starts and ends at the hub.
func (r *Refiner) Refine(candidate domain.Route, loaded []*domain.Parcel, priorities map[int]float64, now domain.Clock) domain.Route {
	seq := r.normalize(candidate)

	dests := make(map[domain.LocationID]bool, len(loaded))
	for _, p := range loaded {
		dests[p.Destination] = true
	}

	seq = r.insertMissing(seq, loaded)
	seq = r.dropUnneeded(seq, dests)
	seq = r.orient(seq, loaded, priorities)
	seq = r.pullUrgent(seq, loaded, now)
	seq = r.shortcut(seq)
	seq = r.collapse(seq)
	return r.shortcut(seq)
}

// normalize pins the hub to both ends.
func (r *Refiner) normalize(candidate domain.Route) domain.Route {
	seq := domain.Route{r.Hub}
	for i, loc := range candidate {
		if loc == r.Hub && (i == 0 || i == len(candidate)-1) {
			continue
		}
		seq = append(seq, loc)
	}
	return append(seq, r.Hub)
}

// insertMissing adds each loaded destination absent from seq at the slot
// that adds the least distance.
func (r *Refiner) insertMissing(seq domain.Route, loaded []*domain.Parcel) domain.Route {
	for _, p := range loaded {
		if seq.Contains(p.Destination) {
			continue
		}
		bestAt, bestCost := 1, 0.0
		for at := 1; at < len(seq); at++ {
			prev, next := seq[at-1], seq[at]
			cost := r.Graph.Distance(prev, p.Destination) + r.Graph.Distance(p.Destination, next) - r.Graph.Distance(prev, next)
			if at == 1 || cost < bestCost {
				bestAt, bestCost = at, cost
			}
		}
		seq = slices.Insert(seq, bestAt, p.Destination)
	}
	return seq
}

func (r *Refiner) dropUnneeded(seq domain.Route, dests map[domain.LocationID]bool) domain.Route {
	out := make(domain.Route, 0, len(seq))
	for _, loc := range seq {
		if loc == r.Hub || dests[loc] {
			out = append(out, loc)
		}
	}
	return out
}

// orient reverses the interior when doing so front-loads priority. Both
// directions are scored over the same positions, earlier positions weighing more.
func (r *Refiner) orient(seq domain.Route, loaded []*domain.Parcel, priorities map[int]float64) domain.Route {
	value := make(map[domain.LocationID]float64, len(loaded))
	for _, p := range loaded {
		value[p.Destination] += priorities[p.ID]
	}

	interior := seq.Stops()
	n := len(interior)
	forward, backward := 0.0, 0.0
	for i := 0; i < n; i++ {
		w := float64(n - i)
		forward += w * value[interior[i]]
		backward += w * value[interior[n-1-i]]
	}
	if backward > forward {
		slices.Reverse(interior)
	}
	return seq
}

// pullUrgent moves destinations with a deadline under an hour away to the
// front, earliest deadline first.
func (r *Refiner) pullUrgent(seq domain.Route, loaded []*domain.Parcel, now domain.Clock) domain.Route {
	var urgent []*domain.Parcel
	for _, p := range loaded {
		if p.HasDeadline() && p.Deadline-now < urgentWindow {
			urgent = append(urgent, p)
		}
	}
	sort.SliceStable(urgent, func(i, j int) bool { return urgent[i].Deadline > urgent[j].Deadline })

	for _, p := range urgent {
		at := slices.Index(seq[1:len(seq)-1], p.Destination)
		if at < 0 {
			continue
		}
		at++
		seq = slices.Delete(seq, at, at+1)
		seq = slices.Insert(seq, 1, p.Destination)
	}
	return seq
}

// shortcut replaces each hop with the shortest multi-hop path when that path
// is strictly shorter than the direct distance.
func (r *Refiner) shortcut(seq domain.Route) domain.Route {
	if len(seq) < 2 {
		return seq
	}
	out := domain.Route{seq[0]}
	for i := 1; i < len(seq); i++ {
		u, v := seq[i-1], seq[i]
		path, d, ok := ShortestPath(r.Graph, u, v)
		if ok && len(path) > 2 && d < r.Graph.Distance(u, v)-shortcutEps {
			out = append(out, path[1:len(path)-1]...)
		}
		out = append(out, v)
	}
	return out
}

// collapse removes repeat visits, keeping the last occurrence of each stop,
// and closes the sequence at the hub.
func (r *Refiner) collapse(seq domain.Route) domain.Route {
	seen := make(map[domain.LocationID]bool, len(seq))
	var kept []domain.LocationID
	for i := len(seq) - 1; i >= 1; i-- {
		loc := seq[i]
		if loc == r.Hub || seen[loc] {
			continue
		}
		seen[loc] = true
		kept = append(kept, loc)
	}
	slices.Reverse(kept)

	out := make(domain.Route, 0, len(kept)+2)
	out = append(out, r.Hub)
	out = append(out, kept...)
	return append(out, r.Hub)
}
