// Package server assembles a simulation run and its optional recorders and
// monitoring API from configuration.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/barnes-hut-sim/internal/api"
	"github.com/onnwee/barnes-hut-sim/internal/api/handlers"
	"github.com/onnwee/barnes-hut-sim/internal/cache"
	"github.com/onnwee/barnes-hut-sim/internal/config"
	"github.com/onnwee/barnes-hut-sim/internal/errorreporting"
	"github.com/onnwee/barnes-hut-sim/internal/logger"
	"github.com/onnwee/barnes-hut-sim/internal/metrics"
	"github.com/onnwee/barnes-hut-sim/internal/middleware"
	"github.com/onnwee/barnes-hut-sim/internal/output"
	"github.com/onnwee/barnes-hut-sim/internal/physics"
	"github.com/onnwee/barnes-hut-sim/internal/quadtree"
	"github.com/onnwee/barnes-hut-sim/internal/scenario"
	"github.com/onnwee/barnes-hut-sim/internal/simulation"
	"github.com/onnwee/barnes-hut-sim/internal/snapshot"
	"github.com/onnwee/barnes-hut-sim/internal/store"
)

const (
	collectInterval = 15 * time.Second
	shutdownTimeout = 10 * time.Second
	finishTimeout   = 5 * time.Second
)

// Server owns one simulation run and everything attached to it.
type Server struct {
	cfg   *config.Config
	runID string
	sim   *simulation.Simulation
	log   *slog.Logger

	csv   *output.Writer
	sqlDB *sql.DB
	db    *store.Store

	lru       *cache.LRUCache
	snaps     *snapshot.Store
	hub       *handlers.Hub
	limiter   *middleware.RateLimiter
	collector *metrics.Collector
	httpSrv   *http.Server

	mu     sync.RWMutex
	status handlers.RunStatus

	closeOnce sync.Once
}

type options struct {
	http   bool
	runID  string
	bodies []physics.Body
	dbtx   store.DBTX
}

// Option configures New.
type Option func(*options)

// WithHTTP enables the snapshot cache, websocket hub and monitoring API.
func WithHTTP() Option { return func(o *options) { o.http = true } }

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option { return func(o *options) { o.runID = id } }

// WithBodies bypasses scenario generation.
func WithBodies(b []physics.Body) Option { return func(o *options) { o.bodies = b } }

// WithDB persists frames through db instead of opening DATABASE_URL.
func WithDB(db store.DBTX) Option { return func(o *options) { o.dbtx = db } }

// New builds the run described by cfg. Failing to open the CSV file or the
// database is reported and the run continues without that recorder.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = uuid.New().String()
	}

	fallback, err := quadtree.ParseFallback(cfg.DepthFallback)
	if err != nil {
		return nil, err
	}
	simCfg := simulation.Config{
		DomainSize: cfg.DomainSize,
		TimeStep:   cfg.TimeStep,
		Theta:      cfg.Theta,
		MaxDepth:   cfg.MaxDepth,
		Fallback:   fallback,
	}
	if err := simCfg.Validate(); err != nil {
		return nil, err
	}

	bodies := o.bodies
	if bodies == nil {
		bodies, err = scenario.Build(cfg.Scenario, cfg.Bodies, cfg.DomainSize, cfg.Seed)
		if err != nil {
			return nil, fmt.Errorf("build scenario: %w", err)
		}
	}

	s := &Server{
		cfg:   cfg,
		runID: o.runID,
		log:   logger.WithComponent("server").With("run_id", o.runID),
		status: handlers.RunStatus{
			RunID:      o.runID,
			Scenario:   cfg.Scenario,
			State:      handlers.StatePending,
			Bodies:     len(bodies),
			Steps:      cfg.Steps,
			Theta:      cfg.Theta,
			TimeStep:   cfg.TimeStep,
			DomainSize: cfg.DomainSize,
			Fallback:   fallback.String(),
		},
	}

	simOpts := []simulation.Option{
		simulation.WithRunID(o.runID),
		simulation.WithRecorder("status", simulation.RecorderFunc(s.trackStep)),
	}

	if cfg.OutputFile != "" {
		w, err := output.Create(cfg.OutputFile)
		if err != nil {
			s.log.Error("output file unavailable, continuing without it",
				"path", cfg.OutputFile, "error", err)
			errorreporting.CaptureError(err)
		} else {
			s.csv = w
			simOpts = append(simOpts, simulation.WithRecorder("csv", w))
		}
	}

	if rec := s.openStore(ctx, o.dbtx, len(bodies), fallback); rec != nil {
		simOpts = append(simOpts, simulation.WithRecorder("postgres", simulation.Every(cfg.SnapshotEvery, rec)))
	}

	if o.http {
		if err := s.setupHTTP(); err != nil {
			s.Close()
			return nil, err
		}
		simOpts = append(simOpts, simulation.WithRecorder("snapshots", s.snaps.Every(cfg.SnapshotEvery)))
	}

	s.sim, err = simulation.New(bodies, simCfg, simOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// openStore connects to Postgres when configured and registers the run.
func (s *Server) openStore(ctx context.Context, dbtx store.DBTX, bodies int, fallback quadtree.Fallback) simulation.Recorder {
	if dbtx == nil {
		if s.cfg.DatabaseURL == "" {
			return nil
		}
		db, err := store.Open(ctx, s.cfg.DatabaseURL)
		if err != nil {
			s.log.Error("database unavailable, continuing without persistence",
				"error", errorreporting.Scrub(err.Error()))
			errorreporting.CaptureError(err)
			return nil
		}
		s.sqlDB = db
		dbtx = db
	}

	st := store.New(dbtx, s.cfg.DBBatchSize)
	if s.sqlDB != nil {
		if err := st.Migrate(ctx); err != nil {
			s.log.Error("schema migration failed, continuing without persistence", "error", err)
			errorreporting.CaptureError(err)
			return nil
		}
	}
	params := store.RunParams{
		DomainSize: s.cfg.DomainSize,
		TimeStep:   s.cfg.TimeStep,
		Theta:      s.cfg.Theta,
		MaxDepth:   s.cfg.MaxDepth,
		Fallback:   fallback.String(),
		Seed:       s.cfg.Seed,
		Steps:      s.cfg.Steps,
	}
	if err := st.StartRun(ctx, s.runID, s.cfg.Scenario, bodies, params); err != nil {
		s.log.Error("could not register run, continuing without persistence", "error", err)
		errorreporting.CaptureError(err)
		return nil
	}
	s.db = st
	return st.Recorder(s.runID)
}

func (s *Server) setupHTTP() error {
	lru, err := cache.NewLRU(s.cfg.CacheMaxMB, s.cfg.CacheMaxEntries, s.cfg.CacheTTL)
	if err != nil {
		return fmt.Errorf("snapshot cache: %w", err)
	}
	s.lru = lru
	s.snaps = snapshot.NewStore(lru, s.cfg.CacheTTL, s.runID)
	s.hub = handlers.NewHub()
	s.snaps.OnSnapshot(func(_ snapshot.Snapshot, data []byte) {
		s.hub.PublishSnapshot(data)
	})
	s.collector = metrics.NewCollector(s.snaps, collectInterval)

	if s.cfg.EnableRateLimit {
		s.limiter = middleware.NewRateLimiter(
			s.cfg.RateLimitGlobal, s.cfg.RateLimitGlobalBurst,
			s.cfg.RateLimitPerIP, s.cfg.RateLimitPerIPBurst,
		)
	}

	s.httpSrv = &http.Server{
		Addr: s.cfg.HTTPAddr,
		Handler: api.NewRouter(api.Deps{
			Status:    s,
			Snapshots: s.snaps,
			Hub:       s.hub,
			Limiter:   s.limiter,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// trackStep keeps the published status current. It runs on the simulation
// goroutine after every tick.
func (s *Server) trackStep(_ context.Context, f simulation.Frame) error {
	s.mu.Lock()
	s.status.Step = f.Step + 1
	s.mu.Unlock()
	return nil
}

func (s *Server) setState(state string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.State = state
	if state == handlers.StateRunning {
		s.status.StartedAt = time.Now().UTC()
	}
	if err != nil {
		s.status.Error = errorreporting.Scrub(err.Error())
	}
}

// Status implements handlers.StatusSource.
func (s *Server) Status() handlers.RunStatus {
	s.mu.RLock()
	st := s.status
	s.mu.RUnlock()
	if s.db != nil {
		st.StoreBreaker = s.db.Breaker().GetState().String()
	}
	return st
}

// RunSimulation advances the configured number of steps. Cancellation stops
// the run between ticks and is not treated as a failure by callers that
// check for context.Canceled.
func (s *Server) RunSimulation(ctx context.Context) error {
	ctx = logger.ContextWithRunID(ctx, s.runID)
	errorreporting.SetTag("run_id", s.runID)
	s.setState(handlers.StateRunning, nil)

	err := s.sim.Run(ctx, s.cfg.Steps, s.cfg.ReportEvery)

	final := handlers.StateCompleted
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		final = handlers.StateCancelled
	default:
		final = handlers.StateFailed
		s.log.Error("simulation failed", "error", err)
		errorreporting.CaptureStepError(err, s.runID, "simulation", s.sim.StepCount())
	}
	s.setState(final, err)

	if s.csv != nil {
		if ferr := s.csv.Flush(); ferr != nil {
			s.log.Error("flushing output failed", "error", ferr)
			errorreporting.CaptureError(ferr)
		}
	}
	if s.db != nil {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
		defer cancel()
		if ferr := s.db.FinishRun(fctx, s.runID, final, s.sim.StepCount()); ferr != nil {
			s.log.Error("could not finalize run", "error", errorreporting.Scrub(ferr.Error()))
		}
	}
	return err
}

// Handler returns the monitoring API, or nil when HTTP is disabled.
func (s *Server) Handler() http.Handler {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Handler
}

// Serve runs the hub, the metrics collector and the HTTP listener until ctx
// is cancelled, then shuts the listener down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if s.httpSrv == nil {
		return errors.New("server: HTTP not enabled")
	}
	ln, err := net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpSrv.Addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	go s.hub.Run(ctx)
	go s.collector.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("monitoring API listening", "addr", ln.Addr().String())
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down monitoring API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-s.hub.Done()
	return <-errCh
}

// RunID returns the identifier of this run.
func (s *Server) RunID() string { return s.runID }

// Simulation exposes the underlying step driver.
func (s *Server) Simulation() *simulation.Simulation { return s.sim }

// Close releases every resource New acquired. Safe to call more than once.
func (s *Server) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		if s.collector != nil {
			s.collector.Stop()
		}
		if s.limiter != nil {
			s.limiter.Stop()
		}
		if s.lru != nil {
			s.lru.Close()
		}
		if s.csv != nil {
			if err := s.csv.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close output: %w", err))
			}
		}
		if s.sqlDB != nil {
			if err := s.sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
	})
	return errors.Join(errs...)
}
