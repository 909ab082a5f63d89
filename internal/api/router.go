package api

import (
	"delivery-dispatch-sim/internal/api/handlers"
	"delivery-dispatch-sim/internal/metrics"
	"delivery-dispatch-sim/internal/services/routing"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the HTTP surface over a running simulation.
func NewRouter(sim handlers.Simulation, defaults routing.Params) http.Handler {
	mux := http.NewServeMux()

	parcels := &handlers.ParcelHandler{Sim: sim}
	simulation := &handlers.SimulationHandler{Sim: sim}
	routes := &handlers.RouteHandler{Sim: sim, Defaults: defaults}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/parcels", parcels.List)
	mux.HandleFunc("/parcels/{id}", parcels.Get)
	mux.HandleFunc("/simulation", simulation.Get)
	mux.HandleFunc("/simulation/advance", simulation.Advance)
	mux.HandleFunc("/simulation/reset", simulation.Reset)
	mux.HandleFunc("/routes/generate", routes.Generate)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return requestMiddleware(mux)
}
