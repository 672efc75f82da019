package snapshot

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/onnwee/barnes-hut-sim/internal/barneshut"
	"github.com/onnwee/barnes-hut-sim/internal/cache"
	"github.com/onnwee/barnes-hut-sim/internal/physics"
	"github.com/onnwee/barnes-hut-sim/internal/quadtree"
	"github.com/onnwee/barnes-hut-sim/internal/simulation"
)

func testFrame(step int) simulation.Frame {
	return simulation.Frame{
		Step: step,
		Bodies: []physics.Body{
			{Position: physics.Vec2{X: 1, Y: 2}, Velocity: physics.Vec2{X: 3, Y: 0}, Mass: 2},
			{Position: physics.Vec2{X: 5, Y: 6}, Velocity: physics.Vec2{X: 0, Y: -1}, Mass: 4},
		},
		Stats: simulation.StepStats{
			Step:     step,
			Tree:     quadtree.Stats{Nodes: 5, Leaves: 2, MaxDepth: 1},
			Force:    barneshut.Stats{NodesVisited: 6, Approximations: 1, Interactions: 2},
			Duration: 1500 * time.Microsecond,
		},
	}
}

func TestFromFrameCopiesBodies(t *testing.T) {
	f := testFrame(3)
	snap := FromFrame("run-1", f)
	f.Bodies[0].Position.X = 99

	if snap.Bodies[0].X != 1 {
		t.Error("snapshot must not alias the frame's bodies")
	}
	if snap.Bodies[1].Index != 1 || snap.Bodies[1].VY != -1 || snap.Bodies[1].Mass != 4 {
		t.Errorf("unexpected body state %+v", snap.Bodies[1])
	}
	if snap.Stats.TreeNodes != 5 || snap.Stats.Approximations != 1 || snap.Stats.DurationMS != 1.5 {
		t.Errorf("unexpected stats %+v", snap.Stats)
	}
	if snap.RunID != "run-1" || snap.Step != 3 {
		t.Errorf("unexpected header %+v", snap)
	}
}

func TestSystem(t *testing.T) {
	s := FromFrame("", testFrame(0)).System()
	if s.TotalMass != 6 {
		t.Errorf("TotalMass = %g, want 6", s.TotalMass)
	}
	// 0.5*2*9 + 0.5*4*1
	if math.Abs(s.KineticEnergy-11) > 1e-12 {
		t.Errorf("KineticEnergy = %g, want 11", s.KineticEnergy)
	}
	if s.MomentumX != 6 || s.MomentumY != -4 {
		t.Errorf("momentum = (%g, %g), want (6, -4)", s.MomentumX, s.MomentumY)
	}
}

func TestStoreRecordAndGet(t *testing.T) {
	store := NewStore(cache.NewMockCache(), 0, "run-9")

	if _, _, ok := store.Latest(); ok {
		t.Fatal("empty store should have no latest snapshot")
	}
	if _, ok, _ := store.Sample(context.Background()); ok {
		t.Fatal("empty store should have no sample")
	}

	for step := 0; step < 3; step++ {
		if err := store.Record(context.Background(), testFrame(step)); err != nil {
			t.Fatal(err)
		}
	}

	data, step, ok := store.Latest()
	if !ok || step != 2 {
		t.Fatalf("Latest = step %d, ok %v", step, ok)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if snap.Step != 2 || snap.RunID != "run-9" || len(snap.Bodies) != 2 {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	if _, ok := store.Get(1); !ok {
		t.Error("older steps should still be cached")
	}
	if _, ok := store.Get(42); ok {
		t.Error("unknown step should miss")
	}

	sample, ok, err := store.Sample(context.Background())
	if err != nil || !ok || sample.Step != 2 || sample.TotalMass != 6 {
		t.Errorf("Sample = %+v, %v, %v", sample, ok, err)
	}
}

func TestStoreListeners(t *testing.T) {
	store := NewStore(cache.NewMockCache(), time.Minute, "")
	var got []int
	store.OnSnapshot(func(s Snapshot, data []byte) {
		if len(data) == 0 {
			t.Error("listener should receive the encoded snapshot")
		}
		got = append(got, s.Step)
	})

	store.Record(context.Background(), testFrame(4))
	store.Record(context.Background(), testFrame(5))

	if len(got) != 2 || got[0] != 4 || got[1] != 5 {
		t.Errorf("listener saw steps %v", got)
	}
}

func TestStoreRejectsNonFiniteValues(t *testing.T) {
	store := NewStore(cache.NewMockCache(), 0, "")
	f := testFrame(0)
	f.Bodies[0].Position.X = math.NaN()

	if err := store.Record(context.Background(), f); err == nil {
		t.Error("expected an encoding error for NaN positions")
	}
	if _, ok := store.LatestStep(); ok {
		t.Error("failed frames must not become the latest snapshot")
	}
}

func TestStoreEveryAndRecorded(t *testing.T) {
	store := NewStore(cache.NewMockCache(), 0, "")
	rec := store.Every(5)

	if store.Recorded(0) {
		t.Error("nothing recorded yet")
	}
	for step := 0; step <= 12; step++ {
		if err := rec.Record(context.Background(), testFrame(step)); err != nil {
			t.Fatal(err)
		}
	}

	if step, _ := store.LatestStep(); step != 10 {
		t.Fatalf("LatestStep = %d, want 10", step)
	}
	for _, step := range []int{0, 5, 10} {
		if !store.Recorded(step) {
			t.Errorf("step %d should be recorded", step)
		}
	}
	for _, step := range []int{-5, 3, 11, 15} {
		if store.Recorded(step) {
			t.Errorf("step %d should not be recorded", step)
		}
	}
}
