package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/onnwee/barnes-hut-sim/internal/cache"
)

func TestGetStatus(t *testing.T) {
	src := fixedStatus{
		RunID:    "run-test",
		Scenario: "binary",
		State:    StateRunning,
		Bodies:   2,
		Step:     5,
		Steps:    100,
		Theta:    0.5,
	}
	store := newTestStore(t, cache.NewMockCache(), 2, 5)

	rr := httptest.NewRecorder()
	GetStatus(src, store, NewHub())(rr, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Error("status must not be cached")
	}

	var out RunStatus
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.RunID != "run-test" || out.State != StateRunning || out.Steps != 100 {
		t.Errorf("unexpected status %+v", out)
	}
	if out.LatestStep == nil || *out.LatestStep != 4 {
		t.Errorf("latest snapshot should be step 4, got %v", out.LatestStep)
	}
	if out.WSClients != 0 {
		t.Errorf("WSClients = %d, want 0", out.WSClients)
	}
}

func TestGetStatus_NoSnapshots(t *testing.T) {
	rr := httptest.NewRecorder()
	GetStatus(fixedStatus{State: StatePending}, nil, nil)(rr, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if _, ok := out["latest_snapshot"]; ok {
		t.Error("latest_snapshot should be omitted before the first frame")
	}
	if out["state"] != StatePending {
		t.Errorf("state = %v", out["state"])
	}
}
