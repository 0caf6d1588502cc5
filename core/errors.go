package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is(). Each maps to one
// member of the pipeline's error taxonomy; PipelineError wraps the sentinel
// with stage-specific context.
var (
	// ErrInputInvalid covers empty messages and malformed context. No handler
	// dispatch occurs and no audit entry is written.
	ErrInputInvalid = errors.New("input invalid")

	// ErrHandlerUnavailable covers unknown or disabled handler names. No
	// audit entry is written.
	ErrHandlerUnavailable = errors.New("handler unavailable")

	// ErrHandlerFailure covers a panic or error returned from a handler's
	// Process call. An audit entry is written with action=agent_query.
	ErrHandlerFailure = errors.New("handler failure")

	// ErrSafetyViolation covers a Block verdict from the safety wrapper. An
	// audit entry is written with action=safety_violation.
	ErrSafetyViolation = errors.New("safety violation")

	// ErrWrapperFailure covers an unexpected failure inside the safety
	// wrapper itself (distinct from a Block verdict). Audit is best-effort.
	ErrWrapperFailure = errors.New("safety wrapper failure")

	// ErrAuditFailure covers a persistence failure in the audit store. This
	// is the one error the orchestrator surfaces as an infrastructure error.
	ErrAuditFailure = errors.New("audit write failure")

	// ErrDeadlineExceeded covers a request deadline expiring during handler
	// dispatch. Treated identically to ErrHandlerFailure for audit purposes.
	ErrDeadlineExceeded = errors.New("deadline exceeded")

	// ErrNotFound is returned by registry/store lookups for absent entries.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyReviewed guards the audit override's single-mutation
	// invariant: an entry may receive at most one clinician review.
	ErrAlreadyReviewed = errors.New("audit entry already reviewed")

	// ErrOverrideReasonRequired guards mark_reviewed's override=true path.
	ErrOverrideReasonRequired = errors.New("override reason required")
)

// PipelineStage names the §4.6 orchestrator step an error originated in.
type PipelineStage string

const (
	StageValidate      PipelineStage = "validate"
	StageClassify       PipelineStage = "classify"
	StageLookup         PipelineStage = "lookup"
	StageDispatch       PipelineStage = "dispatch"
	StageSafety         PipelineStage = "safety"
	StageExplain        PipelineStage = "explain"
	StageAudit          PipelineStage = "audit"
)

// PipelineError carries structured context about which pipeline stage and
// handler an error originated from, wrapping one of the sentinel errors
// above so callers can still use errors.Is/errors.As.
type PipelineError struct {
	Stage       PipelineStage
	HandlerName string
	Message     string
	Err         error
}

func (e *PipelineError) Error() string {
	if e.HandlerName != "" {
		return fmt.Sprintf("%s[%s]: %s: %v", e.Stage, e.HandlerName, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError builds a PipelineError wrapping one of the taxonomy
// sentinels with stage and handler context.
func NewPipelineError(stage PipelineStage, handlerName, message string, err error) *PipelineError {
	return &PipelineError{Stage: stage, HandlerName: handlerName, Message: message, Err: err}
}

// IsInputInvalid reports whether err is (or wraps) ErrInputInvalid.
func IsInputInvalid(err error) bool { return errors.Is(err, ErrInputInvalid) }

// IsHandlerUnavailable reports whether err is (or wraps) ErrHandlerUnavailable.
func IsHandlerUnavailable(err error) bool { return errors.Is(err, ErrHandlerUnavailable) }

// IsHandlerFailure reports whether err is (or wraps) ErrHandlerFailure or
// ErrDeadlineExceeded, which the taxonomy treats identically for audit
// purposes.
func IsHandlerFailure(err error) bool {
	return errors.Is(err, ErrHandlerFailure) || errors.Is(err, ErrDeadlineExceeded)
}

// IsSafetyViolation reports whether err is (or wraps) ErrSafetyViolation.
func IsSafetyViolation(err error) bool { return errors.Is(err, ErrSafetyViolation) }

// IsWrapperFailure reports whether err is (or wraps) ErrWrapperFailure.
func IsWrapperFailure(err error) bool { return errors.Is(err, ErrWrapperFailure) }

// IsAuditFailure reports whether err is (or wraps) ErrAuditFailure.
func IsAuditFailure(err error) bool { return errors.Is(err, ErrAuditFailure) }

// IsDeadlineExceeded reports whether err is (or wraps) ErrDeadlineExceeded.
func IsDeadlineExceeded(err error) bool { return errors.Is(err, ErrDeadlineExceeded) }

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
