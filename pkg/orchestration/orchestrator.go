package orchestration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clinicalcore/orchestrator/core"
	"github.com/clinicalcore/orchestrator/pkg/audit"
	"github.com/clinicalcore/orchestrator/pkg/explainability"
	"github.com/clinicalcore/orchestrator/pkg/logger"
	"github.com/clinicalcore/orchestrator/pkg/safety"
)

// Classifier is the subset of *classifier.Classifier the orchestrator
// depends on, expressed as an interface so tests can supply a stub without
// compiling the real pattern table.
type Classifier interface {
	Classify(ctx context.Context, req core.Request) (core.IntentClassification, error)
}

// Orchestrator composes the classifier, handler registry, safety wrapper,
// explainability generator, and audit logger into the single
// process(Request) -> WrappedResponse pipeline of §4.6. It owns no global
// state; per the design notes (§9) a single Orchestrator value replaces the
// source's process-wide singletons, with the registry as the sole
// runtime-mutable component.
type Orchestrator struct {
	registry   *core.Registry
	classifier Classifier
	wrapper    *safety.Wrapper
	explainer  *explainability.Generator
	auditLog   *audit.Logger
	dispatch   *dispatcher

	logger   core.Logger
	tel      core.Telemetry
	deadline time.Duration
	fallback string
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithLogger attaches a component-scoped logger.
func WithLogger(l core.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithTelemetry attaches a telemetry sink for pipeline-stage spans and
// request/violation/emergency/failure counters.
func WithTelemetry(t core.Telemetry) Option {
	return func(o *Orchestrator) { o.tel = t }
}

// WithDeadline overrides the per-request handler-dispatch deadline
// (default §6 default_deadline_ms, core.DefaultDeadline).
func WithDeadline(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.deadline = d
		}
	}
}

// WithFallbackHandlerName overrides the handler consulted when context
// annotation applies (§4.6 step 3), default core.DefaultFallbackHandlerName.
func WithFallbackHandlerName(name string) Option {
	return func(o *Orchestrator) {
		if name != "" {
			o.fallback = name
		}
	}
}

// New constructs an Orchestrator. registry, classifier, wrapper, explainer,
// and auditLog must be non-nil; they are the five pipeline components §2
// lists as dependency-ordered leaves feeding the orchestrator.
func New(
	registry *core.Registry,
	classifier Classifier,
	wrapper *safety.Wrapper,
	explainer *explainability.Generator,
	auditLog *audit.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		registry:   registry,
		classifier: classifier,
		wrapper:    wrapper,
		explainer:  explainer,
		auditLog:   auditLog,
		logger:     core.NoOpLogger{},
		tel:        core.NoOpTelemetry{},
		deadline:   core.DefaultDeadline,
		fallback:   core.DefaultFallbackHandlerName,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logger.Scope(o.logger, "core/orchestrator")
	o.dispatch = newDispatcher(o.logger)
	return o
}

// Process implements the nine-step pipeline of §4.6. It never returns an
// error to the caller or panics out of the pipeline (§7); every failure
// mode is surfaced as a WrappedResponse error envelope (§6).
func (o *Orchestrator) Process(ctx context.Context, req core.Request) core.WrappedResponse {
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	// Step 1: validate.
	if strings.TrimSpace(req.Message) == "" {
		o.logger.Warn("rejected empty message", "user_id_present", req.UserID != "")
		return o.errorEnvelope("input_invalid", "message must not be empty", nil)
	}

	ctx, span := o.tel.StartSpan(ctx, "pipeline.process")
	defer span.End()

	// Step 2: classify.
	intent, err := o.classifier.Classify(ctx, req)
	if err != nil {
		o.logger.Error("classifier failed", "error", err)
		return o.errorEnvelope("classification_failed", err.Error(), nil)
	}
	o.tel.RecordMetric("requests_total", 1, map[string]string{"urgency": string(intent.Urgency)})
	if intent.Urgency == core.UrgencyEmergency {
		o.tel.RecordMetric("emergencies_total", 1, nil)
	}

	// Step 3: annotate context. The only context mutation the orchestrator
	// performs: if the selected handler is the fallback ("communication")
	// and the caller didn't supply a "question" key, default it to the raw
	// message.
	if intent.PrimaryHandler == o.fallback {
		if req.Context == nil {
			req.Context = make(map[string]interface{})
		}
		if _, ok := req.Context["question"]; !ok {
			req.Context["question"] = req.Message
		}
	}

	// Step 4: lookup.
	handler, ok := o.registry.Get(intent.PrimaryHandler)
	if !ok || !handler.Enabled() {
		o.logger.Warn("handler unavailable", "handler", intent.PrimaryHandler)
		return o.errorEnvelope("handler_unavailable",
			fmt.Sprintf("handler %q is unknown or disabled", intent.PrimaryHandler), nil)
	}

	// Steps 5-8: dispatch, safety wrap, explain, audit.
	wrapped := o.runHandler(ctx, req, handler)
	if wrapped.Success || wrapped.AuditID != nil {
		intentCopy := intent
		wrapped.Intent = &intentCopy
	}

	// Step 9: return.
	return wrapped
}

// runHandler implements §4.6 steps 5-8 (dispatch, safety wrap, explain,
// audit) for a single already-resolved handler. Shared by Process (which
// resolves the handler via classification) and ProcessMulti (which takes
// handler names directly from the caller).
func (o *Orchestrator) runHandler(ctx context.Context, req core.Request, handler core.Handler) core.WrappedResponse {
	reply, err := o.dispatch.call(ctx, handler, req, o.deadline)
	if err != nil {
		o.tel.RecordMetric("handler_failures_total", 1, map[string]string{"handler": handler.Name()})
		auditID, auditErr := o.auditLog.RecordFailure(ctx, req, handler.Name(), err.Error())
		if auditErr != nil {
			o.logger.Error("audit write failed after handler failure", "error", auditErr)
			return o.errorEnvelope("audit_failure", "failed to persist audit record", nil)
		}
		kind := "handler_failure"
		if core.IsDeadlineExceeded(err) {
			kind = "deadline_exceeded"
		}
		return o.errorEnvelope(kind, err.Error(), &auditID)
	}

	wrapped, verdict := o.wrapper.Wrap(reply, handler.Name())
	if verdict.Kind == core.VerdictBlock {
		o.tel.RecordMetric("safety_violations_total", 1, map[string]string{"kind": verdict.ViolationKind})
		auditID, auditErr := o.auditLog.RecordViolation(ctx, req, verdict.ViolationKind, verdict.Details)
		if auditErr != nil {
			o.logger.Error("audit write failed after safety violation", "error", auditErr)
			return o.errorEnvelope("audit_failure", "failed to persist audit record", nil)
		}
		return o.errorEnvelope("safety_violation",
			fmt.Sprintf("response blocked: %s", verdict.ViolationKind), &auditID)
	}

	explain := o.explainer.Explain(reply, handler.Name())

	var escalation *string
	if wrapped.Emergency {
		summary := "emergency overlay applied"
		escalation = &summary
	}
	auditID, err := o.auditLog.RecordInteraction(ctx, req, reply, wrapped, explain, escalation)
	if err != nil {
		o.logger.Error("audit write failed", "error", err)
		return o.errorEnvelope("audit_failure", "failed to persist audit record", nil)
	}

	wrapped.AuditID = &auditID
	wrapped.Explainability = &core.ExplainabilitySummary{
		Score:              explain.ExplainabilityScore,
		ReasoningAvailable: explain.ReasoningSummary != "",
	}
	return wrapped
}

// errorEnvelope assembles the §6 error envelope: success=false, no handler,
// no confidence, a generic (always non-empty) disclaimer, and an audit id
// that is non-nil only when an audit entry was actually written.
func (o *Orchestrator) errorEnvelope(errKind, details string, auditID *string) core.WrappedResponse {
	data := map[string]interface{}{"error": errKind}
	if details != "" {
		data["details"] = details
	}
	return core.WrappedResponse{
		Success:    false,
		Handler:    nil,
		Timestamp:  time.Now().UTC(),
		Data:       data,
		Disclaimer: o.wrapper.GenericDisclaimer(),
		AuditID:    auditID,
		Emergency:  false,
	}
}

// HealthStatus is the result of HealthCheck (SPEC_FULL.md supplemented
// feature, grounded on original_source's orchestrator.py health_check()).
type HealthStatus struct {
	Status          string
	EnabledHandlers int
	TotalHandlers   int
}

// HealthCheck reports operational status: "healthy" when at least one
// handler is enabled, "degraded" when none are. This is not part of the
// request pipeline; it is an operational probe.
func (o *Orchestrator) HealthCheck() HealthStatus {
	total := o.registry.Len()
	enabled := len(o.registry.ListEnabled())
	status := "healthy"
	if enabled == 0 {
		status = "degraded"
	}
	return HealthStatus{Status: status, EnabledHandlers: enabled, TotalHandlers: total}
}
