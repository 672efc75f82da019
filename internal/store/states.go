package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/onnwee/barnes-hut-sim/internal/physics"
	"github.com/onnwee/barnes-hut-sim/internal/simulation"
)

const (
	stateColumns = 8
	// Postgres accepts at most 65535 bind parameters per statement.
	maxBatch = 65535 / stateColumns
)

func clampBatch(n int) int {
	if n <= 0 {
		return 1000
	}
	if n > maxBatch {
		return maxBatch
	}
	return n
}

// buildStateInsert returns a multi-row INSERT for bodies[start:end].
func buildStateInsert(runID string, step int, bodies []physics.Body, start, end int) (string, []any) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO body_states (run_id,step,body_index,x,y,vx,vy,mass) VALUES ")
	args := make([]any, 0, (end-start)*stateColumns)
	for i := start; i < end; i++ {
		if i > start {
			sb.WriteByte(',')
		}
		idx := (i-start)*stateColumns + 1
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)", idx, idx+1, idx+2, idx+3, idx+4, idx+5, idx+6, idx+7)
		b := &bodies[i]
		args = append(args, runID, step, i, b.Position.X, b.Position.Y, b.Velocity.X, b.Velocity.Y, b.Mass)
	}
	sb.WriteString(" ON CONFLICT (run_id, step, body_index) DO NOTHING")
	return sb.String(), args
}

// InsertStates writes every body of one step in batches.
func (s *Store) InsertStates(ctx context.Context, runID string, step int, bodies []physics.Body) error {
	for start := 0; start < len(bodies); start += s.batchSize {
		end := start + s.batchSize
		if end > len(bodies) {
			end = len(bodies)
		}
		query, args := buildStateInsert(runID, step, bodies, start, end)
		if err := s.exec(ctx, "insert_states", query, args...); err != nil {
			return fmt.Errorf("step %d rows %d-%d: %w", step, start, end, err)
		}
	}
	return nil
}

// Recorder returns a simulation.Recorder persisting frames under runID.
func (s *Store) Recorder(runID string) simulation.Recorder {
	return simulation.RecorderFunc(func(ctx context.Context, f simulation.Frame) error {
		return s.InsertStates(ctx, runID, f.Step, f.Bodies)
	})
}
