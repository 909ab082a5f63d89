package main

import (
	"context"
	"delivery-dispatch-sim/internal/adapters/repositories"
	"delivery-dispatch-sim/internal/adapters/routefile"
	"delivery-dispatch-sim/internal/config"
	"delivery-dispatch-sim/internal/domain"
	"delivery-dispatch-sim/internal/platform/db"
	"delivery-dispatch-sim/internal/platform/obs"
	"delivery-dispatch-sim/internal/ports"
	"delivery-dispatch-sim/internal/services/routing"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const usage = `usage: dbtool <command> [flags]

commands:
  init            create the schema
  seed            create the schema and load the seed file
  optimize        generate a route set and save it
  export-routes   write the latest saved route set as CSV
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	obs.Setup(cfg.LogLevel, cfg.LogPretty)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx := context.Background()
	d, err := db.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer d.Close()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "init":
		err = initSchema(ctx, d)
	case "seed":
		err = seed(ctx, d, cfg, args)
	case "optimize":
		err = optimize(ctx, d, cfg, args)
	case "export-routes":
		err = exportRoutes(ctx, d, cfg, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", cmd).Msg("dbtool failed")
	}
}

func initSchema(ctx context.Context, d *db.DB) error {
	log.Info().Str("driver", d.Driver).Msg("initializing database schema")
	if err := repositories.InitSchema(ctx, d); err != nil {
		return err
	}
	log.Info().Msg("schema ready")
	return nil
}

func seed(ctx context.Context, d *db.DB, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	path := fs.String("path", cfg.SeedPath, "seed JSON file")
	_ = fs.Parse(args)

	if err := initSchema(ctx, d); err != nil {
		return err
	}
	log.Info().Str("path", *path).Msg("seeding database")
	if err := repositories.SeedFromJSON(ctx, d, *path); err != nil {
		return err
	}
	log.Info().Msg("seeding complete")
	return nil
}

func optimize(ctx context.Context, d *db.DB, cfg config.Config, args []string) error {
	p := cfg.Optimizer
	fs := flag.NewFlagSet("optimize", flag.ExitOnError)
	fs.IntVar(&p.NumRoutes, "routes", p.NumRoutes, "number of routes")
	fs.IntVar(&p.Generations, "generations", p.Generations, "generations to evolve")
	fs.IntVar(&p.PopulationSize, "population", p.PopulationSize, "population size")
	fs.Int64Var(&p.Seed, "seed", p.Seed, "random seed")
	out := fs.String("out", "", "also write the routes as CSV to this path")
	_ = fs.Parse(args)

	g, err := repositories.NewSQLLocationRepository(d).LoadGraph(ctx)
	if err != nil {
		return err
	}
	hub, err := g.ByName(cfg.HubName)
	if err != nil {
		return fmt.Errorf("hub %q: %w", cfg.HubName, err)
	}
	ids := make([]domain.LocationID, 0, g.Len())
	for _, l := range g.Locations() {
		ids = append(ids, l.ID)
	}

	res, err := routing.NewOptimizer(g).Run(ctx, ids, hub.ID, p)
	if err != nil {
		return err
	}

	saved := ports.SavedRouteSet{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Fitness:   res.Fitness,
		Routes:    res.Best.Routes,
	}
	if err := repositories.NewSQLRouteRepository(d).SaveRouteSet(ctx, saved); err != nil {
		return err
	}
	log.Info().Str("run_id", saved.RunID).Float64("fitness", saved.Fitness).Msg("route set saved")

	if *out != "" {
		if err := routefile.Save(*out, saved.Routes, g); err != nil {
			return err
		}
		log.Info().Str("path", *out).Msg("routes written")
	}
	return nil
}

func exportRoutes(ctx context.Context, d *db.DB, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("export-routes", flag.ExitOnError)
	out := fs.String("out", cfg.RoutesPath, "CSV output path")
	_ = fs.Parse(args)

	saved, ok, err := repositories.NewSQLRouteRepository(d).LatestRouteSet(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("export routes: no saved route set; run optimize first")
	}
	g, err := repositories.NewSQLLocationRepository(d).LoadGraph(ctx)
	if err != nil {
		return err
	}
	if err := routefile.Save(*out, saved.Routes, g); err != nil {
		return err
	}
	log.Info().Str("run_id", saved.RunID).Str("path", *out).Msg("routes exported")
	return nil
}
