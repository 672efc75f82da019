// Package snapshot serializes simulation frames for the monitoring API and
// keeps recent ones in a cache.
package snapshot

import (
	"time"

	"github.com/onnwee/barnes-hut-sim/internal/metrics"
	"github.com/onnwee/barnes-hut-sim/internal/simulation"
)

// BodyState is one body in a snapshot.
type BodyState struct {
	Index int     `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	VX    float64 `json:"vx"`
	VY    float64 `json:"vy"`
	Mass  float64 `json:"mass"`
}

// Stats is the per-tick work summary exposed to clients.
type Stats struct {
	TreeNodes      int     `json:"tree_nodes"`
	TreeDepth      int     `json:"tree_depth"`
	NodesVisited   int     `json:"nodes_visited"`
	Approximations int     `json:"approximations"`
	DepthFallbacks int     `json:"depth_fallbacks"`
	OutOfBounds    int     `json:"out_of_bounds"`
	DurationMS     float64 `json:"duration_ms"`
}

// Snapshot is a self-contained copy of a frame.
type Snapshot struct {
	RunID     string      `json:"run_id,omitempty"`
	Step      int         `json:"step"`
	CreatedAt time.Time   `json:"created_at"`
	Bodies    []BodyState `json:"bodies"`
	Stats     Stats       `json:"stats"`
}

// FromFrame copies f so the snapshot outlives the tick.
func FromFrame(runID string, f simulation.Frame) Snapshot {
	bodies := make([]BodyState, len(f.Bodies))
	for i := range f.Bodies {
		b := &f.Bodies[i]
		bodies[i] = BodyState{
			Index: i,
			X:     b.Position.X,
			Y:     b.Position.Y,
			VX:    b.Velocity.X,
			VY:    b.Velocity.Y,
			Mass:  b.Mass,
		}
	}
	st := f.Stats
	return Snapshot{
		RunID:     runID,
		Step:      f.Step,
		CreatedAt: time.Now().UTC(),
		Bodies:    bodies,
		Stats: Stats{
			TreeNodes:      st.Tree.Nodes,
			TreeDepth:      st.Tree.MaxDepth,
			NodesVisited:   st.Force.NodesVisited,
			Approximations: st.Force.Approximations,
			DepthFallbacks: st.DepthFallbacks,
			OutOfBounds:    st.OutOfBounds,
			DurationMS:     float64(st.Duration.Microseconds()) / 1000,
		},
	}
}

// System computes conserved quantities over the snapshot's bodies.
func (s Snapshot) System() metrics.SystemSample {
	out := metrics.SystemSample{Step: s.Step}
	for _, b := range s.Bodies {
		out.TotalMass += b.Mass
		out.KineticEnergy += 0.5 * b.Mass * (b.VX*b.VX + b.VY*b.VY)
		out.MomentumX += b.Mass * b.VX
		out.MomentumY += b.Mass * b.VY
	}
	return out
}
