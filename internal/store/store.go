// Package store persists simulation runs and body states to Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"

	"github.com/onnwee/barnes-hut-sim/internal/circuitbreaker"
	"github.com/onnwee/barnes-hut-sim/internal/logger"
	"github.com/onnwee/barnes-hut-sim/internal/metrics"
)

// DBTX is the subset of *sql.DB and *sql.Tx the store needs.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS simulation_runs (
	id          TEXT PRIMARY KEY,
	scenario    TEXT NOT NULL,
	body_count  INTEGER NOT NULL,
	params      JSONB,
	status      TEXT NOT NULL DEFAULT 'running',
	steps       INTEGER NOT NULL DEFAULT 0,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS body_states (
	run_id     TEXT NOT NULL REFERENCES simulation_runs(id) ON DELETE CASCADE,
	step       INTEGER NOT NULL,
	body_index INTEGER NOT NULL,
	x          DOUBLE PRECISION NOT NULL,
	y          DOUBLE PRECISION NOT NULL,
	vx         DOUBLE PRECISION NOT NULL,
	vy         DOUBLE PRECISION NOT NULL,
	mass       DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, step, body_index)
);`

// Store writes runs through a circuit breaker so an unavailable database is
// skipped rather than retried on every tick.
type Store struct {
	db        DBTX
	batchSize int
	breaker   *circuitbreaker.CircuitBreaker
	log       *slog.Logger
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return conn, nil
}

// New returns a store over db writing body states in batches of batchSize rows.
func New(db DBTX, batchSize int) *Store {
	return &Store{
		db:        db,
		batchSize: clampBatch(batchSize),
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Name:             "postgres",
			FailureThreshold: 3,
			SuccessThreshold: 1,
			Timeout:          30 * time.Second,
		}),
		log: logger.WithComponent("store"),
	}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	return s.exec(ctx, "migrate", schema)
}

// RunParams is stored as JSONB alongside the run.
type RunParams struct {
	DomainSize float64 `json:"domain_size"`
	TimeStep   float64 `json:"dt"`
	Theta      float64 `json:"theta"`
	MaxDepth   int     `json:"max_depth"`
	Fallback   string  `json:"fallback"`
	Seed       int64   `json:"seed"`
	Steps      int     `json:"steps"`
}

// StartRun registers a run.
func (s *Store) StartRun(ctx context.Context, runID, scenario string, bodies int, params RunParams) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode run params: %w", err)
	}
	return s.exec(ctx, "start_run",
		`INSERT INTO simulation_runs (id, scenario, body_count, params) VALUES ($1, $2, $3, $4)`,
		runID, scenario, bodies, pqtype.NullRawMessage{RawMessage: raw, Valid: true},
	)
}

// FinishRun records the final status and step count.
func (s *Store) FinishRun(ctx context.Context, runID, status string, steps int) error {
	return s.exec(ctx, "finish_run",
		`UPDATE simulation_runs SET status = $2, steps = $3, finished_at = now() WHERE id = $1`,
		runID, status, steps,
	)
}

// RunInfo is a stored run header.
type RunInfo struct {
	ID       string
	Scenario string
	Bodies   int
	Status   string
	Steps    int
	Params   pqtype.NullRawMessage
}

// GetRun loads a run header.
func (s *Store) GetRun(ctx context.Context, runID string) (RunInfo, error) {
	var r RunInfo
	err := s.db.QueryRowContext(ctx,
		`SELECT id, scenario, body_count, status, steps, params FROM simulation_runs WHERE id = $1`, runID,
	).Scan(&r.ID, &r.Scenario, &r.Bodies, &r.Status, &r.Steps, &r.Params)
	if err != nil {
		return RunInfo{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return r, nil
}

// exec runs one statement through the breaker and records timing.
func (s *Store) exec(ctx context.Context, op, query string, args ...interface{}) error {
	start := time.Now()
	err := s.breaker.CallContext(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
	metrics.DBOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DBOperationErrors.WithLabelValues(op).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Breaker exposes the breaker guarding the database.
func (s *Store) Breaker() *circuitbreaker.CircuitBreaker { return s.breaker }
