// Package priority ranks parcels by urgency for loading order.
package priority

import (
	"delivery-dispatch-sim/internal/domain"
	"math"
)

// Band awards Bonus for each other urgent parcel within Within miles.
type Band struct {
	Within float64 `yaml:"within"`
	Bonus  float64 `yaml:"bonus"`
}

// Config holds the scoring constants. Scores only order parcels; the
// absolute values mean nothing.
type Config struct {
	DeadlineExponent   float64 `yaml:"deadline_exponent"`
	DeadlineScale      float64 `yaml:"deadline_scale"`
	SpecialBonus       float64 `yaml:"special_bonus"`
	BatchBonus         float64 `yaml:"batch_bonus"`
	UrgentSpecialBonus float64 `yaml:"urgent_special_bonus"`
	HubDistanceWeight  float64 `yaml:"hub_distance_weight"`
	// Bands must be ordered by increasing Within; the first match wins.
	Bands []Band `yaml:"bands"`
}

func DefaultConfig() Config {
	return Config{
		DeadlineExponent:   1.4,
		DeadlineScale:      0.01,
		SpecialBonus:       50,
		BatchBonus:         200,
		UrgentSpecialBonus: 200,
		HubDistanceWeight:  10,
		Bands: []Band{
			{Within: 0.5, Bonus: 30},
			{Within: 1.5, Bonus: 15},
			{Within: 3.0, Bonus: 5},
		},
	}
}

// Scorer computes parcel priorities over a distance graph.
type Scorer struct {
	Graph  domain.Distancer
	Hub    domain.LocationID
	Config Config
}

func NewScorer(g domain.Distancer, hub domain.LocationID, cfg Config) *Scorer {
	return &Scorer{Graph: g, Hub: hub, Config: cfg}
}

// Score returns one score per parcel, in input order; higher is more urgent.
//
// The first pass rates each parcel on its own: deadline pressure, special
// codes and distance from the hub. The second pass adds a cluster bonus for
// each other positively scored parcel nearby. Cluster bonuses read only
// first-pass scores, so the result does not depend on iteration order.
func (s *Scorer) Score(parcels []*domain.Parcel) []float64 {
	first := make([]float64, len(parcels))
	for i, p := range parcels {
		first[i] = s.firstPass(p)
	}

	out := make([]float64, len(parcels))
	for i, p := range parcels {
		out[i] = first[i]
		if first[i] <= 0 {
			continue
		}
		for j, q := range parcels {
			if i == j || first[j] <= 0 {
				continue
			}
			out[i] += s.bandBonus(s.Graph.Distance(p.Destination, q.Destination))
		}
	}
	return out
}

func (s *Scorer) firstPass(p *domain.Parcel) float64 {
	cfg := s.Config
	score := 0.0

	if p.HasDeadline() {
		slack := float64(domain.EndOfDay-p.Deadline) / float64(domain.Minute)
		score += math.Pow(slack, cfg.DeadlineExponent) * cfg.DeadlineScale
	}

	score += float64(len(p.Codes)) * cfg.SpecialBonus
	if _, ok := p.Batch(); ok {
		score += cfg.BatchBonus
	}
	if len(p.Codes) > 0 && p.HasDeadline() {
		score += cfg.UrgentSpecialBonus
	}

	if d := s.Graph.Distance(s.Hub, p.Destination); !math.IsInf(d, 0) {
		score += d * cfg.HubDistanceWeight
	}
	return score
}

func (s *Scorer) bandBonus(miles float64) float64 {
	for _, b := range s.Config.Bands {
		if miles <= b.Within {
			return b.Bonus
		}
	}
	return 0
}
