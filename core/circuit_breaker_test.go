package core

import (
	"testing"
	"time"
)

func TestNewCircuitBreakerAppliesDefaultsWhenUnset(t *testing.T) {
	cb := NewCircuitBreaker("triage", CircuitBreakerConfig{})

	if cb.config.Threshold != DefaultCircuitBreakerConfig().Threshold {
		t.Errorf("Threshold = %d, want default %d", cb.config.Threshold, DefaultCircuitBreakerConfig().Threshold)
	}
	if cb.config.Timeout != DefaultCircuitBreakerConfig().Timeout {
		t.Errorf("Timeout = %v, want default %v", cb.config.Timeout, DefaultCircuitBreakerConfig().Timeout)
	}
	if cb.State() != "closed" {
		t.Errorf("initial state = %q, want closed", cb.State())
	}
}

func TestCircuitBreakerTripsAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("triage", CircuitBreakerConfig{Threshold: 3, Timeout: time.Hour})

	for i := 0; i < 2; i++ {
		cb.RecordFailure()
		if cb.State() != "closed" {
			t.Fatalf("breaker tripped after %d failures, want 3", i+1)
		}
	}
	cb.RecordFailure()
	if cb.State() != "open" {
		t.Error("breaker should be open after reaching threshold")
	}
	if cb.CanExecute() {
		t.Error("CanExecute should be false while open and before timeout")
	}
}

func TestCircuitBreakerHalfOpenAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker("triage", CircuitBreakerConfig{Threshold: 1, Timeout: time.Millisecond})

	cb.RecordFailure()
	if cb.State() != "open" {
		t.Fatal("breaker should be open after single failure at threshold 1")
	}

	time.Sleep(5 * time.Millisecond)

	if !cb.CanExecute() {
		t.Error("CanExecute should allow a probe once the cooldown elapses")
	}
	if cb.State() != "half-open" {
		t.Errorf("state = %q, want half-open", cb.State())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("triage", CircuitBreakerConfig{Threshold: 1, Timeout: time.Millisecond})
	cb.RecordFailure()
	time.Sleep(5 * time.Millisecond)
	cb.CanExecute() // transitions to half-open

	cb.RecordFailure()
	if cb.State() != "open" {
		t.Errorf("a failed probe should reopen the breaker, got %q", cb.State())
	}
}

func TestCircuitBreakerSuccessClosesAndResetsCount(t *testing.T) {
	cb := NewCircuitBreaker("triage", CircuitBreakerConfig{Threshold: 3, Timeout: time.Hour})
	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()

	if cb.State() != "closed" {
		t.Error("RecordSuccess should close the breaker")
	}
	if cb.failureCount != 0 {
		t.Errorf("failureCount = %d, want 0 after success", cb.failureCount)
	}
}

func TestCircuitBreakerReset(t *testing.T) {
	cb := NewCircuitBreaker("triage", CircuitBreakerConfig{Threshold: 1, Timeout: time.Hour})
	cb.RecordFailure()
	cb.Reset()

	if cb.State() != "closed" {
		t.Error("Reset should force the breaker closed")
	}
	if !cb.CanExecute() {
		t.Error("CanExecute should be true immediately after Reset")
	}
}
