package routing

import (
	"context"
	"delivery-dispatch-sim/internal/domain"
	"delivery-dispatch-sim/internal/metrics"
	"delivery-dispatch-sim/internal/platform/obs"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultElite         = 5
	DefaultCrossoverRate = 0.9
	DefaultMutationRate  = 0.9
)

// Params configure one optimizer run. Zero-valued rates, elite count and
// weights take their defaults.
type Params struct {
	NumRoutes      int
	Generations    int
	PopulationSize int
	Seed           int64

	Elite         int
	CrossoverRate float64
	MutationRate  float64
	Weights       *Weights
	Workers       int
}

func (p Params) withDefaults() Params {
	if p.Elite <= 0 {
		p.Elite = DefaultElite
	}
	if p.CrossoverRate == 0 {
		p.CrossoverRate = DefaultCrossoverRate
	}
	if p.MutationRate == 0 {
		p.MutationRate = DefaultMutationRate
	}
	if p.Weights == nil {
		w := DefaultWeights()
		p.Weights = &w
	}
	if p.Workers <= 0 {
		p.Workers = runtime.GOMAXPROCS(0)
	}
	return p
}

func (p Params) Validate() error {
	if p.NumRoutes < 1 {
		return fmt.Errorf("num_routes must be at least 1, got %d: %w", p.NumRoutes, ErrBadParameter)
	}
	if p.Generations < 1 {
		return fmt.Errorf("generations must be at least 1, got %d: %w", p.Generations, ErrBadParameter)
	}
	if p.PopulationSize < 1 {
		return fmt.Errorf("population_size must be at least 1, got %d: %w", p.PopulationSize, ErrBadParameter)
	}
	if p.CrossoverRate < 0 || p.CrossoverRate > 1 {
		return fmt.Errorf("crossover_rate must be within [0,1], got %v: %w", p.CrossoverRate, ErrBadParameter)
	}
	if p.MutationRate < 0 || p.MutationRate > 1 {
		return fmt.Errorf("mutation_rate must be within [0,1], got %v: %w", p.MutationRate, ErrBadParameter)
	}
	if p.Weights != nil {
		if err := p.Weights.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Result is the best RouteSet of the final generation.
type Result struct {
	Best        RouteSet
	Fitness     float64
	Generations int
	Converged   bool
	// BestByGeneration holds the best score of the initial population followed
	// by one entry per evolved generation.
	BestByGeneration []float64
}

// Optimizer evolves RouteSets over a Location graph.
type Optimizer struct {
	Graph domain.Distancer
}

func NewOptimizer(g domain.Distancer) *Optimizer {
	return &Optimizer{Graph: g}
}

type member struct {
	set   RouteSet
	score float64
}

// Run searches for a partition of locations (hub excluded) into p.NumRoutes
// routes. It stops after p.Generations generations, when every member of a
// generation scores the same, or when ctx is cancelled.
func (o *Optimizer) Run(ctx context.Context, locations []domain.LocationID, hub domain.LocationID, p Params) (_ Result, err error) {
	defer obs.Time(ctx, "optimizer.run")(&err)

	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return Result{}, fmt.Errorf("optimize routes: %w", err)
	}

	stops := make([]domain.LocationID, 0, len(locations))
	for _, loc := range locations {
		if loc != hub {
			stops = append(stops, loc)
		}
	}

	started := time.Now()
	defer func() { metrics.OptimizerDuration.Observe(time.Since(started).Seconds()) }()

	rng := rand.New(rand.NewSource(p.Seed))

	population := make([]member, p.PopulationSize)
	for i := range population {
		population[i].set = RandomRouteSet(rng, stops, hub, p.NumRoutes)
	}
	if err := o.score(ctx, population, hub, p); err != nil {
		return Result{}, fmt.Errorf("optimize routes: score initial population: %w", err)
	}
	rank(population)

	res := Result{BestByGeneration: []float64{population[0].score}}
	for gen := 0; gen < p.Generations; gen++ {
		if converged(population) {
			res.Converged = true
			break
		}
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("optimize routes: generation %d: %w", gen+1, err)
		}

		next, err := o.breed(rng, population, hub, p)
		if err != nil {
			return Result{}, fmt.Errorf("optimize routes: generation %d: %w", gen+1, err)
		}
		if err := o.score(ctx, next[min(p.Elite, len(next)):], hub, p); err != nil {
			return Result{}, fmt.Errorf("optimize routes: generation %d: %w", gen+1, err)
		}
		rank(next)
		population = next
		res.Generations++
		res.BestByGeneration = append(res.BestByGeneration, population[0].score)

		metrics.OptimizerGenerations.Inc()
		metrics.OptimizerBestFitness.Set(population[0].score)
		log.Debug().
			Int("generation", gen+1).
			Float64("best", population[0].score).
			Float64("worst", population[len(population)-1].score).
			Msg("optimizer generation")
	}
	if !res.Converged && converged(population) {
		res.Converged = true
	}

	res.Best = population[0].set
	res.Fitness = population[0].score
	if err := res.Best.Validate(hub, stops); err != nil {
		return Result{}, fmt.Errorf("optimize routes: %w", err)
	}

	log.Info().
		Int("generations", res.Generations).
		Bool("converged", res.Converged).
		Float64("fitness", res.Fitness).
		Int("routes", p.NumRoutes).
		Msg("route optimization finished")
	return res, nil
}

// breed builds the next generation from a ranked population: the elite carry
// over unchanged and the rest are children of parents drawn from the top half.
func (o *Optimizer) breed(rng *rand.Rand, ranked []member, hub domain.LocationID, p Params) ([]member, error) {
	next := make([]member, len(ranked))
	elite := min(p.Elite, len(ranked))
	copy(next, ranked[:elite])

	half := max(1, len(ranked)/2)
	for i := elite; i < len(next); i++ {
		a := ranked[rng.Intn(half)].set
		b := ranked[rng.Intn(half)].set

		var child RouteSet
		if rng.Float64() < p.CrossoverRate {
			c, err := a.Offspring(b, o.Graph, hub)
			if err != nil {
				return nil, err
			}
			child = c
		} else {
			child = a.Clone()
		}
		if rng.Float64() < p.MutationRate {
			child = child.Mutate(rng)
		}
		next[i] = member{set: child}
	}
	return next, nil
}

// score fills in fitness for every member, in parallel.
func (o *Optimizer) score(ctx context.Context, members []member, hub domain.LocationID, p Params) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)
	for i := range members {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			members[i].score = Fitness(members[i].set, o.Graph, hub, *p.Weights)
			return nil
		})
	}
	return g.Wait()
}

func rank(members []member) {
	sort.SliceStable(members, func(i, j int) bool { return members[i].score > members[j].score })
}

func converged(members []member) bool {
	for _, m := range members[1:] {
		if m.score != members[0].score {
			return false
		}
	}
	return true
}
