package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Simulation metrics
	SimulationStepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "simulation_steps_total",
			Help: "Total number of simulation ticks completed",
		},
	)

	SimulationStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "simulation_step_duration_seconds",
			Help:    "Duration of simulation tick phases in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"phase"}, // phase: build, mass, force, integrate, total
	)

	SimulationBodies = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "simulation_bodies",
			Help: "Number of bodies in the running simulation",
		},
	)

	SimulationOutOfBounds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "simulation_bodies_out_of_bounds",
			Help: "Bodies outside the root square at the last tick",
		},
	)

	// Quadtree metrics
	QuadtreeNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quadtree_nodes",
			Help: "Number of quadtree nodes built at the last tick",
		},
	)

	QuadtreeDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quadtree_depth",
			Help: "Deepest quadtree level reached at the last tick",
		},
	)

	QuadtreeDepthFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quadtree_depth_fallbacks_total",
			Help: "Insertions that hit the maximum subdivision depth",
		},
		[]string{"policy"}, // policy: bucket, fuse
	)

	// Force evaluation metrics
	ForceNodesVisited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "force_nodes_visited_total",
			Help: "Total number of tree nodes visited during force evaluation",
		},
	)

	ForceApproximations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "force_approximations_total",
			Help: "Total number of subtrees approximated as a single mass",
		},
	)

	// Recorder metrics
	RecorderFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recorder_frames_total",
			Help: "Total number of frames handed to a recorder",
		},
		[]string{"recorder", "status"}, // status: success, failed
	)

	// Database operation metrics
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Duration of database operations",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	DBOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_operation_errors_total",
			Help: "Total number of database operation errors",
		},
		[]string{"operation"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"component"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Total number of circuit breaker trips",
		},
		[]string{"component"},
	)

	// Snapshot cache metrics
	APICacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_cache_hits_total",
			Help: "Total number of API cache hits",
		},
		[]string{"endpoint"},
	)

	APICacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_cache_misses_total",
			Help: "Total number of API cache misses",
		},
		[]string{"endpoint"},
	)

	APICacheItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "api_cache_items",
			Help: "Current number of items in API cache",
		},
		[]string{"endpoint"},
	)

	APICacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_cache_evictions_total",
			Help: "Total number of cache evictions",
		},
		[]string{"endpoint"},
	)

	// System state sampled by the collector
	SystemTotalMass = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "simulation_total_mass_kg",
			Help: "Sum of body masses in the latest snapshot",
		},
	)

	SystemKineticEnergy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "simulation_kinetic_energy_joules",
			Help: "Total kinetic energy in the latest snapshot",
		},
	)

	SystemMomentum = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "simulation_momentum",
			Help: "Total linear momentum in the latest snapshot",
		},
		[]string{"axis"}, // axis: x, y
	)

	MetricsCollectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrics_collection_errors_total",
			Help: "Total number of errors during metrics collection",
		},
		[]string{"collector"},
	)

	// API request metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"endpoint", "method", "status"},
	)

	APIRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	WebSocketMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent to clients",
		},
	)

	WebSocketMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_dropped_total",
			Help: "Frames dropped because a client or the hub was too slow",
		},
	)
)
