package simulation

import (
	"errors"
	"fmt"
	"math"

	"github.com/onnwee/barnes-hut-sim/internal/quadtree"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Config holds the parameters of one run. It is passed explicitly so several
// simulations can coexist.
type Config struct {
	DomainSize float64 // side length of the root square [0, DomainSize]²
	TimeStep   float64 // seconds per tick
	Theta      float64 // Barnes-Hut opening threshold
	MaxDepth   int     // subdivision bound; 0 means quadtree.DefaultMaxDepth
	Fallback   quadtree.Fallback
}

// DefaultConfig returns the parameters used by the galaxy scenario.
func DefaultConfig() Config {
	return Config{
		DomainSize: 1e19,
		TimeStep:   2e11,
		Theta:      0.2,
		MaxDepth:   quadtree.DefaultMaxDepth,
		Fallback:   quadtree.FallbackBucket,
	}
}

// Validate checks the parameters the tree and integrator cannot work without.
func (c Config) Validate() error {
	switch {
	case math.IsNaN(c.DomainSize) || math.IsInf(c.DomainSize, 0) || c.DomainSize <= 0:
		return fmt.Errorf("%w: domain size must be positive and finite, got %g", ErrInvalidConfig, c.DomainSize)
	case math.IsNaN(c.Theta) || c.Theta < 0:
		return fmt.Errorf("%w: theta must be >= 0, got %g", ErrInvalidConfig, c.Theta)
	case math.IsNaN(c.TimeStep) || math.IsInf(c.TimeStep, 0):
		return fmt.Errorf("%w: time step must be finite, got %g", ErrInvalidConfig, c.TimeStep)
	case c.MaxDepth < 0:
		return fmt.Errorf("%w: max depth must be >= 0, got %d", ErrInvalidConfig, c.MaxDepth)
	}
	return nil
}

func (c Config) center() float64 { return c.DomainSize / 2 }
