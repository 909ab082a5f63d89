package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry served on /metrics.
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request latency.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path"},
	)

	// DispatchTicks counts simulated minutes processed by the scheduler.
	DispatchTicks = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dispatch_ticks_total", Help: "Scheduler ticks processed."},
	)
	DispatchEvents = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dispatch_events_total", Help: "Vehicles sent out from the hub."},
	)
	ParcelsDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "parcels_delivered_total", Help: "Parcels marked delivered."},
	)
	VehicleMiles = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "vehicle_miles_total", Help: "Miles driven per vehicle."},
		[]string{"vehicle"},
	)

	OptimizerGenerations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "optimizer_generations_total", Help: "Generations evolved by the route optimizer."},
	)
	OptimizerBestFitness = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "optimizer_best_fitness", Help: "Best fitness of the latest generation."},
	)
	OptimizerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "optimizer_run_duration_seconds", Help: "Route optimizer run time.", Buckets: prometheus.DefBuckets},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on Registry once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests, HTTPDuration)
		Registry.MustRegister(DispatchTicks, DispatchEvents, ParcelsDelivered, VehicleMiles)
		Registry.MustRegister(OptimizerGenerations, OptimizerBestFitness, OptimizerDuration)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
