package handlers

import (
	"net/http"
	"time"
)

// Run lifecycle states reported by /api/status.
const (
	StatePending   = "pending"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
	StateCancelled = "cancelled"
)

// RunStatus describes the simulation behind the API.
type RunStatus struct {
	RunID        string    `json:"run_id"`
	Scenario     string    `json:"scenario"`
	State        string    `json:"state"`
	Bodies       int       `json:"bodies"`
	Step         int       `json:"step"`
	Steps        int       `json:"steps"`
	Theta        float64   `json:"theta"`
	TimeStep     float64   `json:"dt"`
	DomainSize   float64   `json:"domain_size"`
	Fallback     string    `json:"depth_fallback"`
	StartedAt    time.Time `json:"started_at"`
	Error        string    `json:"error,omitempty"`
	LatestStep   *int      `json:"latest_snapshot,omitempty"`
	StoreBreaker string    `json:"store_breaker,omitempty"`
	WSClients    int       `json:"ws_clients"`
}

// StatusSource reports the current run.
type StatusSource interface {
	Status() RunStatus
}

// GetStatus serves the run summary, enriched with snapshot and client counts.
func GetStatus(src StatusSource, snaps SnapshotReader, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := src.Status()
		if snaps != nil {
			if step, ok := snaps.LatestStep(); ok {
				st.LatestStep = &step
			}
		}
		if hub != nil {
			st.WSClients = hub.Clients()
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, st)
	}
}
