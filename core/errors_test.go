package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsHandlerFailureMatchesDeadlineExceededToo(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"ErrHandlerFailure matches", ErrHandlerFailure, true},
		{"ErrDeadlineExceeded matches (taxonomy treats it like a handler failure)", ErrDeadlineExceeded, true},
		{"wrapped handler failure matches", fmt.Errorf("panic recovered: %w", ErrHandlerFailure), true},
		{"ErrSafetyViolation does not match", ErrSafetyViolation, false},
		{"custom error does not match", errors.New("boom"), false},
		{"nil does not match", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHandlerFailure(tt.err); got != tt.expected {
				t.Errorf("IsHandlerFailure(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestTaxonomyPredicatesAreDisjoint(t *testing.T) {
	cases := []struct {
		err  error
		pred func(error) bool
	}{
		{ErrInputInvalid, IsInputInvalid},
		{ErrHandlerUnavailable, IsHandlerUnavailable},
		{ErrSafetyViolation, IsSafetyViolation},
		{ErrWrapperFailure, IsWrapperFailure},
		{ErrAuditFailure, IsAuditFailure},
	}

	for _, c := range cases {
		if !c.pred(c.err) {
			t.Errorf("predicate did not match its own sentinel %v", c.err)
		}
		for _, other := range cases {
			if other.err == c.err {
				continue
			}
			if c.pred(other.err) {
				t.Errorf("predicate for %v incorrectly matched %v", c.err, other.err)
			}
		}
	}
}

func TestPipelineErrorWrapsAndUnwraps(t *testing.T) {
	err := NewPipelineError(StageDispatch, "triage", "panic recovered", ErrHandlerFailure)

	if !errors.Is(err, ErrHandlerFailure) {
		t.Error("errors.Is should see through PipelineError to the sentinel")
	}
	if errors.Unwrap(err) != ErrHandlerFailure {
		t.Error("Unwrap should return the wrapped sentinel")
	}
	if got := err.Error(); got == "" {
		t.Error("Error() should not be empty")
	}
}

func TestPipelineErrorWithoutHandlerName(t *testing.T) {
	err := NewPipelineError(StageValidate, "", "empty message", ErrInputInvalid)
	if got := err.Error(); got == "" {
		t.Error("Error() should not be empty when HandlerName is blank")
	}
}

func BenchmarkIsHandlerFailure(b *testing.B) {
	err := fmt.Errorf("wrapped: %w", ErrDeadlineExceeded)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = IsHandlerFailure(err)
	}
}
