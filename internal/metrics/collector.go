package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/onnwee/barnes-hut-sim/internal/logger"
)

// SystemSample summarises the physical state of the system at one tick.
type SystemSample struct {
	Step          int
	TotalMass     float64
	KineticEnergy float64
	MomentumX     float64
	MomentumY     float64
}

// SampleSource yields the latest system sample. ok is false until the first
// frame has been recorded.
type SampleSource interface {
	Sample(ctx context.Context) (s SystemSample, ok bool, err error)
}

// Collector periodically samples the running system and updates Prometheus gauges
type Collector struct {
	source   SampleSource
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// NewCollector creates a new metrics collector
func NewCollector(source SampleSource, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		source:   source,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start runs the collection loop until Stop or ctx cancellation.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect(ctx)

	for {
		select {
		case <-ticker.C:
			c.collect(ctx)
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the metrics collector. Safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Collector) collect(ctx context.Context) {
	s, ok, err := c.source.Sample(ctx)
	if err != nil {
		logger.WithComponent("metrics").Warn("system sample failed", "error", err)
		MetricsCollectionErrors.WithLabelValues("system").Inc()
		SystemKineticEnergy.Set(-1) // Signal stale data
		return
	}
	if !ok {
		return
	}
	SystemTotalMass.Set(s.TotalMass)
	SystemKineticEnergy.Set(s.KineticEnergy)
	SystemMomentum.WithLabelValues("x").Set(s.MomentumX)
	SystemMomentum.WithLabelValues("y").Set(s.MomentumY)
}
