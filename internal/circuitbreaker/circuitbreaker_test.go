package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errSink = errors.New("sink unavailable")

// newTestBreaker returns a breaker with a controllable clock.
func newTestBreaker(failures, successes int) (*CircuitBreaker, *time.Time) {
	cb := New(Config{
		Name:             "test",
		FailureThreshold: failures,
		SuccessThreshold: successes,
		Timeout:          time.Minute,
	})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestCircuitBreakerStateClosed(t *testing.T) {
	cb, _ := newTestBreaker(3, 2)

	if err := cb.Call(func() error { return nil }); err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Expected state to be closed, got %v", cb.GetState())
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, 2)

	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return errSink }); !errors.Is(err, errSink) {
			t.Errorf("Expected sink error, got: %v", err)
		}
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("Expected state to be open, got %v", cb.GetState())
	}

	called := false
	err := cb.Call(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got: %v", err)
	}
	if called {
		t.Error("fn must not run while the circuit is open")
	}
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	cb, now := newTestBreaker(2, 2)

	cb.Call(func() error { return errSink })
	cb.Call(func() error { return errSink })
	if cb.GetState() != StateOpen {
		t.Fatalf("Expected open, got %v", cb.GetState())
	}

	*now = now.Add(2 * time.Minute)
	if err := cb.Call(func() error { return nil }); err != nil {
		t.Fatalf("Expected half-open trial to run, got %v", err)
	}
	if cb.GetState() != StateHalfOpen {
		t.Errorf("Expected half-open after one success, got %v", cb.GetState())
	}

	cb.Call(func() error { return nil })
	if cb.GetState() != StateClosed {
		t.Errorf("Expected closed after %d successes, got %v", 2, cb.GetState())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb, now := newTestBreaker(1, 2)

	cb.Call(func() error { return errSink })
	*now = now.Add(2 * time.Minute)
	cb.Call(func() error { return errSink })

	if cb.GetState() != StateOpen {
		t.Errorf("Expected failure in half-open to reopen, got %v", cb.GetState())
	}
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(2, 1)

	cb.Call(func() error { return errSink })
	cb.Call(func() error { return nil })
	cb.Call(func() error { return errSink })

	if cb.GetState() != StateClosed {
		t.Errorf("non-consecutive failures should not trip, got %v", cb.GetState())
	}
}

func TestCallContextCancellationIsNotAFailure(t *testing.T) {
	cb, _ := newTestBreaker(1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	err := cb.CallContext(ctx, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("cancellation must not trip the breaker, got %v", cb.GetState())
	}

	if err := cb.CallContext(ctx, func(context.Context) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancelled context to short-circuit, got %v", err)
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(9):      "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
