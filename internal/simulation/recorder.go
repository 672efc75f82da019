package simulation

import (
	"context"

	"github.com/onnwee/barnes-hut-sim/internal/physics"
)

// Frame is the state handed to recorders after a tick has been integrated.
// Bodies aliases the simulation's slice and is only valid for the duration
// of Record; recorders that keep state must copy it.
type Frame struct {
	Step   int
	Bodies []physics.Body
	Stats  StepStats
}

// Recorder consumes frames. Errors are reported by the simulation but never
// stop it.
type Recorder interface {
	Record(ctx context.Context, f Frame) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, f Frame) error

// Record calls fn.
func (fn RecorderFunc) Record(ctx context.Context, f Frame) error { return fn(ctx, f) }

// Every forwards only frames whose step is a multiple of n. n <= 1 forwards
// every frame.
func Every(n int, r Recorder) Recorder {
	if n <= 1 {
		return r
	}
	return RecorderFunc(func(ctx context.Context, f Frame) error {
		if f.Step%n != 0 {
			return nil
		}
		return r.Record(ctx, f)
	})
}
