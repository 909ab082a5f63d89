package main

import (
	"context"
	"delivery-dispatch-sim/internal/adapters/events"
	"delivery-dispatch-sim/internal/adapters/memory"
	"delivery-dispatch-sim/internal/adapters/repositories"
	"delivery-dispatch-sim/internal/adapters/routefile"
	"delivery-dispatch-sim/internal/api"
	"delivery-dispatch-sim/internal/config"
	"delivery-dispatch-sim/internal/domain"
	"delivery-dispatch-sim/internal/metrics"
	"delivery-dispatch-sim/internal/platform/db"
	"delivery-dispatch-sim/internal/platform/obs"
	"delivery-dispatch-sim/internal/ports"
	"delivery-dispatch-sim/internal/services/simulation"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// main is the composition root: it loads the day from the database, builds
// the simulation and serves it over HTTP until interrupted.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	obs.Setup(cfg.LogLevel, cfg.LogPretty)
	metrics.RegisterDefault()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	d, err := db.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := repositories.InitSchema(ctx, d); err != nil {
		return err
	}

	locations := repositories.NewSQLLocationRepository(d)
	parcelRepo := repositories.NewSQLParcelRepository(d)
	day, err := loadDay(ctx, locations, parcelRepo)
	if err != nil {
		return err
	}
	// Seed demo data on first start.
	if day.graph.Len() == 0 {
		log.Info().Str("path", cfg.SeedPath).Msg("empty database, seeding")
		if err := repositories.SeedFromJSON(ctx, d, cfg.SeedPath); err != nil {
			return err
		}
		if day, err = loadDay(ctx, locations, parcelRepo); err != nil {
			return err
		}
	}
	g := day.graph

	hub, err := g.ByName(cfg.HubName)
	if err != nil {
		return fmt.Errorf("hub %q: %w", cfg.HubName, err)
	}

	store, err := memory.NewParcelStoreFrom(day.parcels)
	if err != nil {
		return err
	}

	routeRepo := repositories.NewSQLRouteRepository(d)
	routes, err := initialRoutes(ctx, routeRepo, g, hub.ID, cfg.RoutesPath)
	if err != nil {
		return err
	}

	publisher, closePublisher, err := newPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePublisher()

	svc, err := simulation.New(g, store, routes, simulation.Config{
		Hub:           hub.ID,
		Start:         cfg.Start,
		DeliveryStart: cfg.DeliveryStart,
		Vehicles:      cfg.Vehicles,
		Drivers:       cfg.Drivers,
		Capacity:      cfg.Capacity,
		AvgSpeed:      cfg.AvgSpeed,
		LookAhead:     cfg.LookAhead,
		Priority:      cfg.Priority,
		Corrections:   day.corrections,
	}, simulation.Deps{Publisher: publisher, Routes: routeRepo})
	if err != nil {
		return err
	}

	// Route generation runs the optimizer inside the request.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(svc, cfg.Optimizer),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info().
			Str("addr", srv.Addr).
			Str("hub", hub.Name).
			Int("parcels", store.Len()).
			Int("routes", len(routes)).
			Msg("server listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

type dayData struct {
	graph       *domain.Registry
	parcels     []*domain.Parcel
	corrections []domain.AddressCorrection
}

func loadDay(ctx context.Context, locations ports.LocationRepository, parcels ports.ParcelRepository) (dayData, error) {
	g, err := locations.LoadGraph(ctx)
	if err != nil {
		return dayData{}, err
	}
	ps, err := parcels.ListParcels(ctx)
	if err != nil {
		return dayData{}, err
	}
	corrections, err := parcels.ListCorrections(ctx)
	if err != nil {
		return dayData{}, err
	}
	return dayData{graph: g, parcels: ps, corrections: corrections}, nil
}

// initialRoutes prefers the latest optimizer run, then the routes file. With
// neither the scheduler dispatches hub to hub trips until routes are generated.
func initialRoutes(ctx context.Context, repo ports.RouteRepository, g *domain.Registry, hub domain.LocationID, path string) ([]domain.Route, error) {
	saved, ok, err := repo.LatestRouteSet(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		log.Info().Str("run_id", saved.RunID).Msg("using saved route set")
		return saved.Routes, nil
	}

	routes, ok, err := routefile.Load(path, g, hub)
	if err != nil {
		return nil, err
	}
	if ok {
		log.Info().Str("path", path).Msg("using routes file")
		return routes, nil
	}

	log.Warn().Msg("no routes available; POST /routes/generate to build some")
	return nil, nil
}

func newPublisher(ctx context.Context, cfg config.Config) (ports.EventPublisher, func(), error) {
	logPub := events.NewLogPublisher()
	if cfg.RedisURL == "" {
		return logPub, func() {}, nil
	}

	rp, err := events.NewRedisPublisherFromURL(ctx, cfg.RedisURL, cfg.RedisChannel)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("channel", rp.Channel()).Msg("publishing dispatch events to redis")
	return events.Multi{logPub, rp}, func() {
		if err := rp.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis publisher")
		}
	}, nil
}
