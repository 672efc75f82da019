package handlers

import (
	"context"
	"testing"

	"github.com/onnwee/barnes-hut-sim/internal/cache"
	"github.com/onnwee/barnes-hut-sim/internal/physics"
	"github.com/onnwee/barnes-hut-sim/internal/simulation"
	"github.com/onnwee/barnes-hut-sim/internal/snapshot"
)

// newTestStore returns a snapshot store that has seen steps 0..last,
// keeping every nth one.
func newTestStore(t *testing.T, c cache.Cache, every, last int) *snapshot.Store {
	t.Helper()
	store := snapshot.NewStore(c, 0, "run-test")
	rec := store.Every(every)
	bodies := []physics.Body{
		{Position: physics.Vec2{X: 1, Y: 2}, Velocity: physics.Vec2{X: 0.5}, Mass: 10},
		{Position: physics.Vec2{X: -3, Y: 4}, Mass: 20},
	}
	for step := 0; step <= last; step++ {
		if err := rec.Record(context.Background(), simulation.Frame{Step: step, Bodies: bodies}); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

type fixedStatus RunStatus

func (f fixedStatus) Status() RunStatus { return RunStatus(f) }
