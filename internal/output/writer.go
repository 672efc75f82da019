// Package output writes per-tick body records as CSV lines:
//
//	step,body_index,x,y,mass
//
// with no header, six decimals per float and bodies in slice order.
package output

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/onnwee/barnes-hut-sim/internal/simulation"
)

// Writer is a simulation.Recorder that appends every frame to a CSV stream.
type Writer struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	buf    []byte
	lines  int64
}

// Create opens (truncating) the file at path. Callers must Close it.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open output %q: %w", path, err)
	}
	return NewWriter(f), nil
}

// NewWriter wraps w. If w is an io.Closer, Close closes it after flushing.
func NewWriter(w io.Writer) *Writer {
	out := &Writer{w: bufio.NewWriterSize(w, 64*1024)}
	if c, ok := w.(io.Closer); ok {
		out.closer = c
	}
	return out
}

var _ simulation.Recorder = (*Writer)(nil)

// Record writes one line per body of f.
func (w *Writer) Record(_ context.Context, f simulation.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil {
		return fmt.Errorf("output writer is closed")
	}
	for i := range f.Bodies {
		b := &f.Bodies[i]
		w.buf = appendLine(w.buf[:0], f.Step, i, b.Position.X, b.Position.Y, b.Mass)
		if _, err := w.w.Write(w.buf); err != nil {
			return fmt.Errorf("write step %d body %d: %w", f.Step, i, err)
		}
		w.lines++
	}
	return nil
}

func appendLine(dst []byte, step, index int, x, y, mass float64) []byte {
	dst = strconv.AppendInt(dst, int64(step), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(index), 10)
	dst = append(dst, ',')
	dst = strconv.AppendFloat(dst, x, 'f', 6, 64)
	dst = append(dst, ',')
	dst = strconv.AppendFloat(dst, y, 'f', 6, 64)
	dst = append(dst, ',')
	dst = strconv.AppendFloat(dst, mass, 'f', 6, 64)
	return append(dst, '\n')
}

// Lines returns the number of records written so far.
func (w *Writer) Lines() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lines
}

// Flush pushes buffered lines to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	return w.w.Flush()
}

// Close flushes and closes the underlying file. Safe to call twice.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	err := w.w.Flush()
	w.w = nil
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
