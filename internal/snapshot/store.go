package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/onnwee/barnes-hut-sim/internal/cache"
	"github.com/onnwee/barnes-hut-sim/internal/metrics"
	"github.com/onnwee/barnes-hut-sim/internal/simulation"
)

const keyPrefix = "snapshot:"

// Store is a simulation.Recorder that caches each frame as JSON keyed by
// step. Reads are safe from any goroutine.
type Store struct {
	cache cache.Cache
	ttl   time.Duration
	runID string

	mu        sync.RWMutex
	every     int
	latest    int
	hasLatest bool
	sample    metrics.SystemSample
	listeners []func(Snapshot, []byte)
}

// NewStore wraps c. ttl of 0 uses the cache default.
func NewStore(c cache.Cache, ttl time.Duration, runID string) *Store {
	return &Store{cache: c, ttl: ttl, runID: runID}
}

var _ simulation.Recorder = (*Store)(nil)

// Every returns the store as a recorder that only keeps every nth frame and
// remembers n so Recorded can tell skipped steps from evicted ones.
func (s *Store) Every(n int) simulation.Recorder {
	if n < 1 {
		n = 1
	}
	s.mu.Lock()
	s.every = n
	s.mu.Unlock()
	return simulation.Every(n, s)
}

// Recorded reports whether step was handed to the store at some point. The
// snapshot may since have been evicted from the cache.
func (s *Store) Recorded(step int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	every := s.every
	if every < 1 {
		every = 1
	}
	return s.hasLatest && step >= 0 && step <= s.latest && step%every == 0
}

// OnSnapshot registers fn to receive every stored snapshot with its JSON
// encoding. fn runs on the simulation goroutine and must not block.
func (s *Store) OnSnapshot(fn func(Snapshot, []byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Record serializes f and caches it.
func (s *Store) Record(_ context.Context, f simulation.Frame) error {
	snap := FromFrame(s.runID, f)
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %d: %w", f.Step, err)
	}
	s.cache.Set(key(f.Step), data, s.ttl)

	s.mu.Lock()
	s.latest = f.Step
	s.hasLatest = true
	s.sample = snap.System()
	listeners := s.listeners
	s.mu.Unlock()

	metrics.APICacheItems.WithLabelValues("snapshots").Set(float64(s.cache.Stats().Items))
	for _, fn := range listeners {
		fn(snap, data)
	}
	return nil
}

// Get returns the JSON snapshot for step.
func (s *Store) Get(step int) ([]byte, bool) {
	data, ok := s.cache.Get(key(step))
	if ok {
		metrics.APICacheHits.WithLabelValues("snapshots").Inc()
	} else {
		metrics.APICacheMisses.WithLabelValues("snapshots").Inc()
	}
	return data, ok
}

// Latest returns the most recent snapshot still in the cache.
func (s *Store) Latest() ([]byte, int, bool) {
	step, ok := s.LatestStep()
	if !ok {
		return nil, 0, false
	}
	data, ok := s.Get(step)
	return data, step, ok
}

// LatestStep returns the step of the last recorded frame.
func (s *Store) LatestStep() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.hasLatest
}

// Sample implements metrics.SampleSource over the last recorded frame.
func (s *Store) Sample(context.Context) (metrics.SystemSample, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sample, s.hasLatest, nil
}

// RunID returns the run the store records.
func (s *Store) RunID() string { return s.runID }

func key(step int) string { return keyPrefix + strconv.Itoa(step) }
