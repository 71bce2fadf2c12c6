package infra

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_AllowWhenClosed(t *testing.T) {
	cb := NewDefaultCircuitBreaker("test")

	if !cb.Allow() {
		t.Error("expected Allow() to return true in CLOSED state")
	}

	if cb.State() != BreakerClosed {
		t.Errorf("expected state CLOSED, got %s", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 2, 100*time.Millisecond)

	cb.MarkFailure()
	cb.MarkFailure()

	if cb.State() != BreakerClosed {
		t.Error("should still be CLOSED after 2 failures")
	}

	cb.MarkFailure() // 3rd failure

	if cb.State() != BreakerOpen {
		t.Errorf("expected OPEN after 3 failures, got %s", cb.State())
	}

	if cb.Allow() {
		t.Error("expected Allow() to return false in OPEN state")
	}
}

func TestCircuitBreaker_ProbesAfterCooldown(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, 1, 50*time.Millisecond)

	cb.MarkFailure()
	cb.MarkFailure()

	if cb.State() != BreakerOpen {
		t.Fatal("expected OPEN state")
	}

	time.Sleep(60 * time.Millisecond)

	if !cb.Allow() {
		t.Error("expected Allow() to return true after cooldown (half-open)")
	}

	if cb.State() != BreakerHalfOpen {
		t.Errorf("expected HALF_OPEN, got %s", cb.State())
	}
}

func TestCircuitBreaker_ClosesOnProbeSuccess(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, 2, 10*time.Millisecond)

	cb.MarkFailure()
	cb.MarkFailure()

	time.Sleep(15 * time.Millisecond)
	cb.Allow()

	cb.MarkSuccess()
	if cb.State() != BreakerHalfOpen {
		t.Error("should still be HALF_OPEN after 1 success")
	}

	cb.MarkSuccess()
	if cb.State() != BreakerClosed {
		t.Errorf("expected CLOSED after 2 successes, got %s", cb.State())
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, 2, 10*time.Millisecond)

	cb.MarkFailure()
	cb.MarkFailure()

	time.Sleep(15 * time.Millisecond)
	cb.Allow()

	cb.MarkFailure()
	if cb.State() != BreakerOpen {
		t.Errorf("expected OPEN after failed probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_Do(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 1, time.Hour)

	boom := errors.New("boom")
	if err := cb.Do(func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	// Breaker opened on the first failure; next call is rejected.
	if err := cb.Do(func() error { return nil }); !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}
}
