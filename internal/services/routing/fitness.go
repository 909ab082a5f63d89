package routing

import (
	"delivery-dispatch-sim/internal/domain"
	"fmt"
	"slices"
)

// Weights scale each RouteSet metric in the fitness sum. Distance, length and
// deviance weights must not be positive; density weights must not be negative.
type Weights struct {
	Distance      float64 `yaml:"distance"`
	MaxLength     float64 `yaml:"max_length"`
	MedianLength  float64 `yaml:"median_length"`
	MaxDeviance   float64 `yaml:"max_deviance"`
	AvgDeviance   float64 `yaml:"avg_deviance"`
	MaxDensity    float64 `yaml:"max_density"`
	MedianDensity float64 `yaml:"median_density"`
	AvgDensity    float64 `yaml:"avg_density"`
}

func DefaultWeights() Weights {
	return Weights{
		Distance:      -2.0,
		MaxLength:     -0.1,
		MedianLength:  -0.1,
		MaxDeviance:   -5.0,
		AvgDeviance:   -2.0,
		MaxDensity:    0.1,
		MedianDensity: 3.0,
		AvgDensity:    1.0,
	}
}

func (w Weights) Validate() error {
	minimized := map[string]float64{
		"distance":      w.Distance,
		"max_length":    w.MaxLength,
		"median_length": w.MedianLength,
		"max_deviance":  w.MaxDeviance,
		"avg_deviance":  w.AvgDeviance,
	}
	for name, v := range minimized {
		if v > 0 {
			return fmt.Errorf("weights: %s must be <= 0, got %v: %w", name, v, ErrBadParameter)
		}
	}
	maximized := map[string]float64{
		"max_density":    w.MaxDensity,
		"median_density": w.MedianDensity,
		"avg_density":    w.AvgDensity,
	}
	for name, v := range maximized {
		if v < 0 {
			return fmt.Errorf("weights: %s must be >= 0, got %v: %w", name, v, ErrBadParameter)
		}
	}
	return nil
}

// Metrics are the derived RouteSet measurements fed to the fitness sum.
// Lengths count locations, hub endpoints included.
type Metrics struct {
	TotalDistance float64
	MaxLength     float64
	MedianLength  float64
	MaxDeviance   float64
	AvgDeviance   float64
	MaxDensity    float64
	MedianDensity float64
	AvgDensity    float64
}

func Measure(s RouteSet, g domain.Distancer, hub domain.LocationID) Metrics {
	n := len(s.Routes)
	if n == 0 {
		return Metrics{}
	}

	lengths := make([]float64, n)
	deviances := make([]float64, n)
	densities := make([]float64, n)
	var m Metrics
	for i, r := range s.Routes {
		m.TotalDistance += r.Distance(g)
		lengths[i] = float64(len(r))
		deviances[i] = r.Deviance(g, hub)
		densities[i] = r.Density(g)
	}

	m.MaxLength = slices.Max(lengths)
	m.MedianLength = median(lengths)
	m.MaxDeviance = slices.Max(deviances)
	m.AvgDeviance = mean(deviances)
	m.MaxDensity = slices.Max(densities)
	m.MedianDensity = median(densities)
	m.AvgDensity = mean(densities)
	return m
}

// Score is the weighted linear sum of m. Higher is fitter.
func (w Weights) Score(m Metrics) float64 {
	return m.TotalDistance*w.Distance +
		m.MaxLength*w.MaxLength +
		m.MedianLength*w.MedianLength +
		m.MaxDeviance*w.MaxDeviance +
		m.AvgDeviance*w.AvgDeviance +
		m.MaxDensity*w.MaxDensity +
		m.MedianDensity*w.MedianDensity +
		m.AvgDensity*w.AvgDensity
}

func Fitness(s RouteSet, g domain.Distancer, hub domain.LocationID, w Weights) float64 {
	return w.Score(Measure(s, g, hub))
}

func median(xs []float64) float64 {
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func mean(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total / float64(len(xs))
}
