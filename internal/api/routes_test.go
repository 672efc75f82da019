package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"

	"github.com/onnwee/barnes-hut-sim/internal/api/handlers"
	"github.com/onnwee/barnes-hut-sim/internal/cache"
	"github.com/onnwee/barnes-hut-sim/internal/middleware"
	"github.com/onnwee/barnes-hut-sim/internal/physics"
	"github.com/onnwee/barnes-hut-sim/internal/simulation"
	"github.com/onnwee/barnes-hut-sim/internal/snapshot"
)

type staticStatus struct{}

func (staticStatus) Status() handlers.RunStatus {
	return handlers.RunStatus{RunID: "run-routes", State: handlers.StateRunning}
}

func testDeps(t *testing.T) Deps {
	t.Helper()
	store := snapshot.NewStore(cache.NewMockCache(), 0, "run-routes")
	bodies := []physics.Body{{Position: physics.Vec2{X: 1, Y: 1}, Mass: 1}}
	for step := 0; step < 3; step++ {
		if err := store.Record(context.Background(), simulation.Frame{Step: step, Bodies: bodies}); err != nil {
			t.Fatal(err)
		}
	}
	return Deps{Status: staticStatus{}, Snapshots: store, Hub: handlers.NewHub()}
}

func TestRoutesRegistered(t *testing.T) {
	router := NewRouter(testDeps(t))

	tests := []struct {
		path   string
		status int
	}{
		{"/health", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/ready", http.StatusOK},
		{"/api/status", http.StatusOK},
		{"/api/snapshots/latest", http.StatusOK},
		{"/api/snapshots/1", http.StatusOK},
		{"/api/snapshots/abc", http.StatusNotFound},
		{"/api/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rr.Code != tt.status {
				t.Errorf("GET %s = %d, want %d", tt.path, rr.Code, tt.status)
			}
			if rr.Header().Get(middleware.RequestIDHeader) == "" && tt.status != http.StatusNotFound {
				t.Errorf("GET %s should carry a request ID", tt.path)
			}
		})
	}
}

func TestSnapshotEndpointCompression(t *testing.T) {
	router := NewRouter(testDeps(t))

	req := httptest.NewRequest(http.MethodGet, "/api/snapshots/latest", nil)
	req.Header.Set("Accept-Encoding", "br")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Header().Get("Content-Encoding") != "br" {
		t.Fatalf("expected brotli encoding, got %q", rr.Header().Get("Content-Encoding"))
	}
	body, err := io.ReadAll(brotli.NewReader(rr.Body))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), `"run_id":"run-routes"`) {
		t.Errorf("unexpected snapshot body %s", body)
	}
}

func TestRateLimitAppliesToAPIOnly(t *testing.T) {
	deps := testDeps(t)
	deps.Limiter = middleware.NewRateLimiter(1000, 1000, 1, 1)
	defer deps.Limiter.Stop()
	router := NewRouter(deps)

	do := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "198.51.100.7:4000"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := do("/api/status"); code != http.StatusOK {
		t.Fatalf("first request = %d", code)
	}
	if code := do("/api/status"); code != http.StatusTooManyRequests {
		t.Errorf("second request should be limited, got %d", code)
	}
	if code := do("/health"); code != http.StatusOK {
		t.Errorf("health should bypass the limiter, got %d", code)
	}
}
