// Package api wires the monitoring endpoints of a running simulation.
package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/barnes-hut-sim/internal/api/handlers"
	"github.com/onnwee/barnes-hut-sim/internal/middleware"
)

// Deps are the live components the routes read from.
type Deps struct {
	Status    handlers.StatusSource
	Snapshots handlers.SnapshotReader
	Hub       *handlers.Hub
	Limiter   *middleware.RateLimiter // nil disables rate limiting
}

func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.RecoverWithSentry, middleware.Instrument)

	// Probes and metrics stay outside rate limiting and compression;
	// promhttp negotiates its own encoding.
	r.HandleFunc("/health", handlers.Health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	if d.Limiter != nil {
		api.Use(d.Limiter.Limit)
	}

	if d.Snapshots != nil {
		api.HandleFunc("/ready", handlers.Ready(d.Snapshots)).Methods("GET")
	}
	if d.Status != nil {
		api.Handle("/status", middleware.Compress(handlers.GetStatus(d.Status, d.Snapshots, d.Hub))).Methods("GET")
	}

	// Snapshots
	if d.Snapshots != nil {
		api.Handle("/snapshots/latest", middleware.Compress(handlers.GetLatestSnapshot(d.Snapshots))).Methods("GET")
		api.Handle("/snapshots/{step:[0-9]+}", middleware.Compress(handlers.GetSnapshot(d.Snapshots))).Methods("GET")
	}

	// Live frames
	if d.Hub != nil {
		ws := handlers.NewWebSocketHandler(d.Hub, d.Snapshots)
		api.HandleFunc("/ws", ws.HandleWebSocket).Methods("GET")
	}

	return r
}
