package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/onnwee/barnes-hut-sim/internal/apierr"
)

// SnapshotReader is the read side of snapshot.Store.
type SnapshotReader interface {
	Get(step int) ([]byte, bool)
	Latest() ([]byte, int, bool)
	LatestStep() (int, bool)
	Recorded(step int) bool
	RunID() string
}

// snapshotETag is stable for a given run and step; snapshots never change
// once written.
func snapshotETag(runID string, step int) string {
	return `"` + runID + "-" + strconv.Itoa(step) + `"`
}

func writeSnapshot(w http.ResponseWriter, r *http.Request, runID string, step int, data []byte, cacheControl string) {
	etag := snapshotETag(runID, step)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", cacheControl)
	w.Header().Set("X-Snapshot-Step", strconv.Itoa(step))
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GetLatestSnapshot serves the most recent cached frame.
// GET /api/snapshots/latest
func GetLatestSnapshot(snaps SnapshotReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		latest, ok := snaps.LatestStep()
		if !ok {
			apierr.WriteErrorWithContext(w, r, apierr.SimNotStarted())
			return
		}
		data, step, ok := snaps.Latest()
		if !ok {
			apierr.WriteErrorWithContext(w, r, apierr.SnapshotExpired(latest))
			return
		}
		writeSnapshot(w, r, snaps.RunID(), step, data, "no-cache")
	}
}

// GetSnapshot serves the frame recorded at a given step.
// GET /api/snapshots/{step}
func GetSnapshot(snaps SnapshotReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := mux.Vars(r)["step"]
		step, err := strconv.Atoi(raw)
		if err != nil || step < 0 {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("step", "step must be a non-negative integer"))
			return
		}
		if _, ok := snaps.LatestStep(); !ok {
			apierr.WriteErrorWithContext(w, r, apierr.SimNotStarted())
			return
		}
		if !snaps.Recorded(step) {
			apierr.WriteErrorWithContext(w, r, apierr.SnapshotNotFound(step))
			return
		}
		data, ok := snaps.Get(step)
		if !ok {
			apierr.WriteErrorWithContext(w, r, apierr.SnapshotExpired(step))
			return
		}
		writeSnapshot(w, r, snaps.RunID(), step, data, "public, max-age=3600, immutable")
	}
}
