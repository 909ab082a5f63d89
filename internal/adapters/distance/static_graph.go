package distance

import (
	"delivery-dispatch-sim/internal/domain"
	"fmt"
	"math"
)

// Pair is one symmetric distance between two named locations.
type Pair struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Miles float64 `json:"miles"`
}

// BuildRegistry registers locations and links every pair. The result must be
// fully connected.
func BuildRegistry(locations []domain.Location, pairs []Pair) (*domain.Registry, error) {
	r := domain.NewRegistry()
	for _, l := range locations {
		if _, err := r.Add(l); err != nil {
			return nil, fmt.Errorf("build graph: %w", err)
		}
	}

	for i, p := range pairs {
		from, err := r.ByName(p.From)
		if err != nil {
			return nil, fmt.Errorf("build graph: pair #%d: %w", i+1, err)
		}
		to, err := r.ByName(p.To)
		if err != nil {
			return nil, fmt.Errorf("build graph: pair #%d: %w", i+1, err)
		}
		if err := r.Link(from.ID, to.ID, p.Miles); err != nil {
			return nil, fmt.Errorf("build graph: pair #%d: %w", i+1, err)
		}
	}

	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	return r, nil
}

// Pairs lists every linked pair once, in registration order.
func Pairs(g *domain.Registry) []Pair {
	locs := g.Locations()
	var out []Pair
	for i, a := range locs {
		for _, b := range locs[i+1:] {
			d := g.Distance(a.ID, b.ID)
			if math.IsInf(d, 1) {
				continue
			}
			out = append(out, Pair{From: a.Name, To: b.Name, Miles: d})
		}
	}
	return out
}
