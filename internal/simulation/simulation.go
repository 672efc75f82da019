// Package simulation drives a Barnes-Hut N-body system tick by tick: build a
// quadtree, aggregate mass, evaluate forces, integrate and hand the result to
// recorders.
package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/onnwee/barnes-hut-sim/internal/barneshut"
	"github.com/onnwee/barnes-hut-sim/internal/errorreporting"
	"github.com/onnwee/barnes-hut-sim/internal/logger"
	"github.com/onnwee/barnes-hut-sim/internal/metrics"
	"github.com/onnwee/barnes-hut-sim/internal/physics"
	"github.com/onnwee/barnes-hut-sim/internal/quadtree"
	"github.com/onnwee/barnes-hut-sim/internal/tracing"
)

// StepStats describes the work done by one tick.
type StepStats struct {
	Step           int
	Tree           quadtree.Stats
	Force          barneshut.Stats
	DepthFallbacks int
	OutOfBounds    int
	RecordErrors   int
	Duration       time.Duration
}

type namedRecorder struct {
	name string
	r    Recorder
}

// Simulation owns the step counter and borrows the caller's body slice.
type Simulation struct {
	cfg       Config
	bodies    []physics.Body
	step      int
	runID     string
	recorders []namedRecorder
	log       *slog.Logger
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithRecorder registers r under name. Recorders run in registration order.
func WithRecorder(name string, r Recorder) Option {
	return func(s *Simulation) {
		if r != nil {
			s.recorders = append(s.recorders, namedRecorder{name: name, r: r})
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRunID labels logs, spans and error reports.
func WithRunID(id string) Option {
	return func(s *Simulation) { s.runID = id }
}

// New validates cfg and prepares a simulation over bodies. The slice is
// mutated in place by every Step.
func New(bodies []physics.Body, cfg Config, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = quadtree.DefaultMaxDepth
	}

	s := &Simulation{
		cfg:    cfg,
		bodies: bodies,
		log:    logger.WithComponent("simulation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runID != "" {
		s.log = s.log.With("run_id", s.runID)
	}

	if cfg.TimeStep <= 0 {
		s.log.Warn("non-positive time step, bodies will not move", "dt", cfg.TimeStep)
	}
	metrics.SimulationBodies.Set(float64(len(bodies)))
	return s, nil
}

// Step advances the system by one tick. Recorder failures are logged and
// counted in the returned stats; they do not make Step fail.
func (s *Simulation) Step(ctx context.Context) (StepStats, error) {
	if err := ctx.Err(); err != nil {
		return StepStats{}, err
	}

	ctx, span := tracing.StartSpan(ctx, "simulation.step")
	defer span.End()

	start := time.Now()
	stats := StepStats{Step: s.step}
	half := s.cfg.center()

	// Build
	phase := time.Now()
	tree := quadtree.New(
		physics.Vec2{X: half, Y: half},
		s.cfg.DomainSize,
		quadtree.WithMaxDepth(s.cfg.MaxDepth),
		quadtree.WithFallback(s.cfg.Fallback),
	)
	defer tree.Release()

	for i := range s.bodies {
		b := &s.bodies[i]
		if !tree.Root.Contains(b.Position) {
			stats.OutOfBounds++
		}
		tree.Insert(b)
	}
	metrics.SimulationStepDuration.WithLabelValues("build").Observe(time.Since(phase).Seconds())

	// Aggregate
	phase = time.Now()
	tree.ComputeMassDistribution()
	metrics.SimulationStepDuration.WithLabelValues("mass").Observe(time.Since(phase).Seconds())

	// Forces
	phase = time.Now()
	for i := range s.bodies {
		b := &s.bodies[i]
		b.ResetAcceleration()
		stats.Force.Add(barneshut.CalculateForce(b, tree.Root, s.cfg.Theta))
	}
	metrics.SimulationStepDuration.WithLabelValues("force").Observe(time.Since(phase).Seconds())

	// Integrate
	phase = time.Now()
	for i := range s.bodies {
		s.bodies[i].Integrate(s.cfg.TimeStep)
	}
	metrics.SimulationStepDuration.WithLabelValues("integrate").Observe(time.Since(phase).Seconds())

	stats.Tree = tree.Stats()
	stats.DepthFallbacks = tree.Fallbacks()
	stats.Duration = time.Since(start)

	if stats.OutOfBounds > 0 {
		s.log.Warn("bodies outside the root square", "step", s.step, "count", stats.OutOfBounds)
	}

	stats.RecordErrors = s.record(ctx, Frame{Step: s.step, Bodies: s.bodies, Stats: stats})
	s.observe(stats)

	span.SetAttributes(tracing.StepAttributes(s.step, len(s.bodies), stats.Tree.Nodes, stats.Tree.MaxDepth)...)
	span.SetAttributes(
		attribute.Int("force.approximations", stats.Force.Approximations),
		attribute.Int("sim.record_errors", stats.RecordErrors),
	)
	if stats.RecordErrors > 0 {
		span.SetStatus(codes.Error, "recorder failed")
	}

	s.step++
	return stats, nil
}

// record hands f to every recorder and returns the number that failed.
func (s *Simulation) record(ctx context.Context, f Frame) int {
	failed := 0
	for _, nr := range s.recorders {
		if err := nr.r.Record(ctx, f); err != nil {
			failed++
			metrics.RecorderFramesTotal.WithLabelValues(nr.name, "failed").Inc()
			s.log.Error("recorder failed", "recorder", nr.name, "step", f.Step,
				"error", errorreporting.Scrub(err.Error()))
			errorreporting.CaptureStepError(err, s.runID, nr.name, f.Step)
			continue
		}
		metrics.RecorderFramesTotal.WithLabelValues(nr.name, "success").Inc()
	}
	return failed
}

func (s *Simulation) observe(stats StepStats) {
	metrics.SimulationStepsTotal.Inc()
	metrics.SimulationStepDuration.WithLabelValues("total").Observe(stats.Duration.Seconds())
	metrics.SimulationOutOfBounds.Set(float64(stats.OutOfBounds))
	metrics.QuadtreeNodes.Set(float64(stats.Tree.Nodes))
	metrics.QuadtreeDepth.Set(float64(stats.Tree.MaxDepth))
	if stats.DepthFallbacks > 0 {
		metrics.QuadtreeDepthFallbacks.WithLabelValues(s.cfg.Fallback.String()).Add(float64(stats.DepthFallbacks))
	}
	metrics.ForceNodesVisited.Add(float64(stats.Force.NodesVisited))
	metrics.ForceApproximations.Add(float64(stats.Force.Approximations))
}

// Run performs steps ticks, logging progress every reportEvery steps and on
// the last one. It stops between ticks when ctx is cancelled.
func (s *Simulation) Run(ctx context.Context, steps, reportEvery int) error {
	if reportEvery <= 0 {
		reportEvery = 1
	}

	ctx, span := tracing.StartSpan(ctx, "simulation.run")
	defer span.End()
	span.SetAttributes(tracing.RunAttributes(s.runID, len(s.bodies), s.cfg.Theta, s.cfg.TimeStep)...)

	s.log.Info("simulation started",
		"bodies", len(s.bodies),
		"steps", steps,
		"theta", s.cfg.Theta,
		"dt", s.cfg.TimeStep,
		"domain_size", s.cfg.DomainSize,
		"fallback", s.cfg.Fallback.String(),
	)

	start := time.Now()
	recordErrors := 0
	for i := 0; i < steps; i++ {
		stats, err := s.Step(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "run interrupted")
			s.log.Warn("simulation interrupted", "step", s.step, "error", err)
			return fmt.Errorf("step %d: %w", s.step, err)
		}
		recordErrors += stats.RecordErrors

		if (i+1)%reportEvery == 0 || i == steps-1 {
			s.log.Info("simulation progress",
				"step", i+1,
				"of", steps,
				"nodes", stats.Tree.Nodes,
				"depth", stats.Tree.MaxDepth,
				"approximations", stats.Force.Approximations,
				"step_ms", stats.Duration.Milliseconds(),
			)
		}
	}

	s.log.Info("simulation completed",
		"steps", steps,
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
		"record_errors", recordErrors,
	)
	return nil
}

// StepCount returns the number of completed ticks.
func (s *Simulation) StepCount() int { return s.step }

// Bodies returns the live body slice.
func (s *Simulation) Bodies() []physics.Body { return s.bodies }

// Config returns the parameters in effect.
func (s *Simulation) Config() Config { return s.cfg }

// RunID returns the label set with WithRunID.
func (s *Simulation) RunID() string { return s.runID }
