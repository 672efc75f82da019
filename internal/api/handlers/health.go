package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/onnwee/barnes-hut-sim/internal/apierr"
)

// Health returns a simple JSON payload to indicate the API is alive.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready answers 503 until the simulation has produced its first snapshot.
func Ready(snaps SnapshotReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		step, ok := snaps.LatestStep()
		if !ok {
			apierr.WriteErrorWithContext(w, r, apierr.SimNotStarted())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "step": step})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
