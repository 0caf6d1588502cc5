package audit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/clinicalcore/orchestrator/core"
	"github.com/clinicalcore/orchestrator/pkg/logger"
)

// Logger is the audit logger (§4.5): it owns redaction, hashing, audit-id
// formatting, and the read/write operations layered over a Store.
type Logger struct {
	store Store
	log   core.Logger
}

// New constructs a Logger over store. A nil logger is replaced with a
// no-op logger.
func New(store Store, log core.Logger) *Logger {
	if log == nil {
		log = core.NoOpLogger{}
	}
	return &Logger{store: store, log: logger.Scope(log, "core/audit")}
}

// RecordInteraction implements the write path (§4.5): redact, hash, commit,
// and return a human-readable audit id of the form
// "audit_YYYYMMDD_<zero-padded 5-digit sequence>".
func (l *Logger) RecordInteraction(
	ctx context.Context,
	req core.Request,
	reply core.HandlerReply,
	wrapped core.WrappedResponse,
	explain core.ExplainabilityMetadata,
	escalationTriggered *string,
) (string, error) {
	inputData := redact(map[string]interface{}{
		"message":     req.Message,
		"attachments": toInterfaceSlice(req.Attachments),
		"context":     req.Context,
	})

	outputData := map[string]interface{}{
		"handler":              reply.HandlerName,
		"data":                 reply.Data,
		"confidence":           reply.Confidence,
		"reasoning":            reply.Reasoning,
		"red_flags":            reply.RedFlags,
		"requires_escalation":  reply.RequiresEscalation,
		"disclaimer_truncated": truncate(wrapped.Disclaimer, 100),
	}

	confidenceScore := int(reply.Confidence*100 + 0.5)
	explainScore := explain.ExplainabilityScore

	var safetyFlags map[string]interface{}
	if wrapped.SafetyCheck != nil {
		safetyFlags = map[string]interface{}{
			"disclaimer_applied": wrapped.SafetyCheck.DisclaimerApplied,
			"prohibited_language": wrapped.SafetyCheck.ProhibitedLanguage,
			"emergency_overlay":   wrapped.SafetyCheck.EmergencyOverlay,
		}
	}

	entry := &core.AuditEntry{
		Timestamp:           time.Now().UTC(),
		UserIDHash:          hashUserID(req.UserID),
		HandlerName:         reply.HandlerName,
		Action:              core.ActionAgentQuery,
		InputData:           inputData,
		OutputData:          outputData,
		ConfidenceScore:     &confidenceScore,
		ExplainabilityScore: &explainScore,
		ReasoningSummary:    explain.ReasoningSummary,
		DecisionFactors:     explain.DecisionFactors,
		Alternatives:        explain.AlternativeConsiderations,
		EscalationTriggered: escalationTriggered,
		SafetyFlags:         safetyFlags,
	}

	id, err := l.store.Insert(ctx, entry)
	if err != nil {
		l.log.Error("failed to record audit entry", "error", err)
		return "", fmt.Errorf("audit: insert: %w", err)
	}
	entry.ID = id

	auditID := formatAuditID(entry)
	l.log.Info("recorded interaction", "audit_id", auditID, "handler", reply.HandlerName, "explainability_score", explainScore)
	return auditID, nil
}

// RecordFailure records a handler-dispatch failure or deadline expiry
// (§7 HandlerFailure/DeadlineExceeded: "audit written with action=agent_query
// and an error in output_data"). Unlike RecordInteraction, no
// WrappedResponse or ExplainabilityMetadata exists yet at the point a
// handler call fails, so this path assembles a minimal entry instead.
func (l *Logger) RecordFailure(ctx context.Context, req core.Request, handlerName, errDetail string) (string, error) {
	entry := &core.AuditEntry{
		Timestamp:   time.Now().UTC(),
		UserIDHash:  hashUserID(req.UserID),
		HandlerName: handlerName,
		Action:      core.ActionAgentQuery,
		InputData:   redact(map[string]interface{}{"message": req.Message, "context": req.Context}),
		OutputData: map[string]interface{}{
			"error":   errDetail,
			"success": false,
		},
	}

	id, err := l.store.Insert(ctx, entry)
	if err != nil {
		l.log.Error("failed to record handler failure", "error", err)
		return "", fmt.Errorf("audit: insert failure: %w", err)
	}
	entry.ID = id

	auditID := formatAuditID(entry)
	l.log.Warn("handler failure logged", "audit_id", auditID, "handler", handlerName, "error", errDetail)
	return auditID, nil
}

// RecordViolation implements the safety-violation path (§4.5).
func (l *Logger) RecordViolation(ctx context.Context, req core.Request, violationKind, details string) (string, error) {
	entry := &core.AuditEntry{
		Timestamp:   time.Now().UTC(),
		UserIDHash:  hashUserID(req.UserID),
		HandlerName: "safety",
		Action:      core.ActionSafetyViolation,
		InputData:   redact(map[string]interface{}{"message": req.Message}),
		OutputData: map[string]interface{}{
			"violation_kind": violationKind,
			"details":        details,
			"blocked":        true,
		},
		EscalationTriggered: &violationKind,
	}

	id, err := l.store.Insert(ctx, entry)
	if err != nil {
		l.log.Error("failed to record safety violation", "error", err)
		return "", fmt.Errorf("audit: insert violation: %w", err)
	}
	entry.ID = id

	auditID := formatAuditID(entry)
	l.log.Warn("safety violation logged", "audit_id", auditID, "violation_kind", violationKind)
	return auditID, nil
}

// RecordOverride implements the override path (§4.5): the only permitted
// post-write mutation besides a plain review note.
func (l *Logger) RecordOverride(ctx context.Context, auditID, clinicianID, reason, newDecision string) error {
	id, err := parseAuditID(auditID)
	if err != nil {
		return err
	}

	override := &core.ClinicianOverride{
		ClinicianIDHash: hashUserID(clinicianID),
		Timestamp:       time.Now().UTC(),
		Reason:          reason,
		NewDecision:     newDecision,
	}

	err = l.store.UpdateReview(ctx, id, ReviewUpdate{Override: override})
	if err != nil {
		return fmt.Errorf("audit: record override: %w", err)
	}
	l.log.Info("clinician override recorded", "audit_id", auditID)
	return nil
}

// MarkReviewed implements the external mark_reviewed operation (§6):
// always records a review timestamp/hash/notes; when override is true,
// override_reason is mandatory and the entry additionally receives a
// ClinicianOverride (notes, if given, doubles as the recorded new
// decision).
func (l *Logger) MarkReviewed(ctx context.Context, auditID, clinicianID string, notes *string, override bool, overrideReason string) error {
	if override && strings.TrimSpace(overrideReason) == "" {
		return core.ErrOverrideReasonRequired
	}

	id, err := parseAuditID(auditID)
	if err != nil {
		return err
	}

	update := ReviewUpdate{
		ReviewedByHash:  hashUserID(clinicianID),
		ReviewNotes:     notes,
		ReviewTimestamp: time.Now().UTC(),
	}
	if override {
		newDecision := ""
		if notes != nil {
			newDecision = *notes
		}
		update.Override = &core.ClinicianOverride{
			ClinicianIDHash: update.ReviewedByHash,
			Timestamp:       update.ReviewTimestamp,
			Reason:          overrideReason,
			NewDecision:     newDecision,
		}
	}

	if err := l.store.UpdateReview(ctx, id, update); err != nil {
		return fmt.Errorf("audit: mark reviewed: %w", err)
	}
	return nil
}

// Get implements get_full(audit_id) (§6).
func (l *Logger) Get(ctx context.Context, auditID string) (*core.AuditEntry, error) {
	id, err := parseAuditID(auditID)
	if err != nil {
		return nil, err
	}
	return l.store.Get(ctx, id)
}

// List implements list(filters) (§6).
func (l *Logger) List(ctx context.Context, filters ListFilters) ([]core.AuditEntry, error) {
	if filters.SinceHours == 0 {
		filters.SinceHours = 24
	}
	if filters.Limit == 0 {
		filters.Limit = 50
	}
	return l.store.List(ctx, filters)
}

// Summary is the rendered form returned by get_summary (§6).
type Summary struct {
	SummaryText         string
	HandlerName         string
	Timestamp           time.Time
	RequiresReview      bool
	ExplainabilityScore int
}

// GetSummary implements get_summary(audit_id) (§6): a rendered multi-line
// human-readable document, grounded on
// original_source/backend/agents/explainability_agent.py's
// format_audit_summary.
func (l *Logger) GetSummary(ctx context.Context, auditID string) (*Summary, error) {
	id, err := parseAuditID(auditID)
	if err != nil {
		return nil, err
	}
	entry, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	score := 0
	if entry.ExplainabilityScore != nil {
		score = *entry.ExplainabilityScore
	}
	requiresReview := entry.EscalationTriggered != nil && entry.ReviewedByHash == nil

	return &Summary{
		SummaryText:         renderSummary(entry),
		HandlerName:         entry.HandlerName,
		Timestamp:           entry.Timestamp,
		RequiresReview:      requiresReview,
		ExplainabilityScore: score,
	}, nil
}

func renderSummary(entry *core.AuditEntry) string {
	var b strings.Builder

	fmt.Fprintln(&b, "=== AI Decision Audit Summary ===")
	fmt.Fprintf(&b, "Time: %s\n", entry.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "Handler: %s\n\n", strings.ToUpper(entry.HandlerName))

	message, _ := entry.InputData["message"].(string)
	fmt.Fprintf(&b, "Query: %s\n\n", truncate(message, 200))

	confidence := 0
	if entry.ConfidenceScore != nil {
		confidence = *entry.ConfidenceScore
	}
	fmt.Fprintf(&b, "AI Confidence: %d%%\n\n", confidence)

	reasoning := entry.ReasoningSummary
	if reasoning == "" {
		reasoning = "No reasoning available"
	}
	fmt.Fprintf(&b, "Reasoning:\n  %s\n\n", reasoning)

	if len(entry.DecisionFactors) > 0 {
		fmt.Fprintln(&b, "Key Decision Factors:")
		for _, f := range entry.DecisionFactors {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", strings.ToUpper(f.Importance), f.Factor, f.Value)
		}
		fmt.Fprintln(&b)
	}

	if len(entry.Alternatives) > 0 {
		fmt.Fprintln(&b, "Alternatives Considered:")
		for _, alt := range entry.Alternatives {
			fmt.Fprintf(&b, "  - %s\n", alt)
		}
		fmt.Fprintln(&b)
	}

	if entry.EscalationTriggered != nil {
		fmt.Fprintf(&b, "ESCALATION: %s\n\n", *entry.EscalationTriggered)
	}

	if entry.ClinicianOverride != nil {
		fmt.Fprintln(&b, "Clinician Override Recorded")
		fmt.Fprintln(&b)
	}

	score := 0
	if entry.ExplainabilityScore != nil {
		score = *entry.ExplainabilityScore
	}
	fmt.Fprintf(&b, "Explainability Score: %d/100\n", score)

	return b.String()
}

// ExplainabilityStats is the result of stats_explainability (§6).
type ExplainabilityStats struct {
	AverageScore float64
	High         int
	Moderate     int
	Low          int
	Total        int
}

// StatsExplainability implements stats_explainability(days) (§6): average
// score and distribution over [high>=80 / moderate 50-79 / low <50] across
// entries from the last `days` days.
func (l *Logger) StatsExplainability(ctx context.Context, days int) (*ExplainabilityStats, error) {
	if days <= 0 {
		days = 7
	}
	entries, err := l.store.List(ctx, ListFilters{SinceHours: days * 24, Limit: 100000})
	if err != nil {
		return nil, err
	}

	stats := &ExplainabilityStats{}
	var sum float64
	for _, e := range entries {
		if e.ExplainabilityScore == nil {
			continue
		}
		score := *e.ExplainabilityScore
		sum += float64(score)
		stats.Total++
		switch {
		case score >= 80:
			stats.High++
		case score >= 50:
			stats.Moderate++
		default:
			stats.Low++
		}
	}
	if stats.Total > 0 {
		stats.AverageScore = sum / float64(stats.Total)
	}
	return stats, nil
}

// HandlerStats is the supplemented per-handler usage summary
// (SPEC_FULL.md supplemented feature, grounded on
// original_source/backend/orchestrator/audit_logger.py's
// get_agent_statistics).
type HandlerStats struct {
	HandlerName       string
	TotalQueries      int
	Escalations       int
	ClinicianOverrides int
	AverageConfidence float64
	OverrideRatePct   float64
}

// HandlerStatistics computes HandlerStats for handlerName over the entries
// currently in the store.
func (l *Logger) HandlerStatistics(ctx context.Context, handlerName string) (*HandlerStats, error) {
	entries, err := l.store.List(ctx, ListFilters{Handler: handlerName, Limit: 100000})
	if err != nil {
		return nil, err
	}

	stats := &HandlerStats{HandlerName: handlerName}
	var confidenceSum float64
	var confidenceCount int

	for _, e := range entries {
		stats.TotalQueries++
		if e.EscalationTriggered != nil {
			stats.Escalations++
		}
		if e.ClinicianOverride != nil {
			stats.ClinicianOverrides++
		}
		if e.ConfidenceScore != nil {
			confidenceSum += float64(*e.ConfidenceScore)
			confidenceCount++
		}
	}

	if confidenceCount > 0 {
		stats.AverageConfidence = round2(confidenceSum / float64(confidenceCount))
	}
	if stats.TotalQueries > 0 {
		stats.OverrideRatePct = round2(float64(stats.ClinicianOverrides) / float64(stats.TotalQueries) * 100)
	}
	return stats, nil
}

func formatAuditID(entry *core.AuditEntry) string {
	return fmt.Sprintf("audit_%s_%05d", entry.Timestamp.Format("20060102"), entry.ID)
}

// parseAuditID extracts the numeric sequence suffix from an audit id of
// the form "audit_YYYYMMDD_NNNNN" (§4.5 override path: "finds the prior
// entry by numeric suffix").
func parseAuditID(auditID string) (int64, error) {
	parts := strings.Split(auditID, "_")
	if len(parts) == 0 {
		return 0, fmt.Errorf("%w: malformed audit id %q", core.ErrNotFound, auditID)
	}
	id, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed audit id %q", core.ErrNotFound, auditID)
	}
	return id, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func toInterfaceSlice(items []string) []interface{} {
	out := make([]interface{}, len(items))
	for i, v := range items {
		out[i] = v
	}
	return out
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
