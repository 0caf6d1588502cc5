package audit_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicalcore/orchestrator/core"
	"github.com/clinicalcore/orchestrator/pkg/audit"
)

func newTestLogger(t *testing.T) *audit.Logger {
	t.Helper()
	store, err := audit.NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return audit.New(store, nil)
}

func sampleRequest() core.Request {
	return core.Request{
		UserID:    "patient-42",
		Message:   "I have a bad headache",
		Timestamp: time.Now(),
		Context: map[string]interface{}{
			"email": "patient@example.com",
		},
	}
}

func TestRecordInteractionRedactsPIIAndHashesUserID(t *testing.T) {
	l := newTestLogger(t)
	req := sampleRequest()
	reply := core.HandlerReply{HandlerName: "triage", Success: true, Confidence: 0.6, Timestamp: time.Now()}
	wrapped := core.WrappedResponse{Disclaimer: "d"}
	explain := core.ExplainabilityMetadata{ExplainabilityScore: 55}

	auditID, err := l.RecordInteraction(context.Background(), req, reply, wrapped, explain, nil)
	require.NoError(t, err)
	assert.Contains(t, auditID, "audit_")

	entry, err := l.Get(context.Background(), auditID)
	require.NoError(t, err)

	assert.NotEqual(t, "patient-42", entry.UserIDHash)
	assert.Len(t, entry.UserIDHash, 16)

	ctx, ok := entry.InputData["context"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "[REDACTED]", ctx["email"])
}

func TestAuditIDsAreStrictlyIncreasing(t *testing.T) {
	l := newTestLogger(t)
	req := sampleRequest()
	reply := core.HandlerReply{HandlerName: "triage", Success: true, Confidence: 0.5, Timestamp: time.Now()}
	wrapped := core.WrappedResponse{Disclaimer: "d"}
	explain := core.ExplainabilityMetadata{}

	first, err := l.RecordInteraction(context.Background(), req, reply, wrapped, explain, nil)
	require.NoError(t, err)
	second, err := l.RecordInteraction(context.Background(), req, reply, wrapped, explain, nil)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	e1, err := l.Get(context.Background(), first)
	require.NoError(t, err)
	e2, err := l.Get(context.Background(), second)
	require.NoError(t, err)
	assert.Less(t, e1.ID, e2.ID)
}

func TestRecordViolationSetsSafetyViolationAction(t *testing.T) {
	l := newTestLogger(t)
	req := sampleRequest()

	auditID, err := l.RecordViolation(context.Background(), req, "prohibited_language", "matched \"you have\"")
	require.NoError(t, err)

	entry, err := l.Get(context.Background(), auditID)
	require.NoError(t, err)
	assert.Equal(t, core.ActionSafetyViolation, entry.Action)
	assert.Equal(t, true, entry.OutputData["blocked"])
	assert.NotContains(t, entry.OutputData["details"], "you have diabetes")
}

func TestRecordFailureWritesAgentQueryActionWithError(t *testing.T) {
	l := newTestLogger(t)
	req := sampleRequest()

	auditID, err := l.RecordFailure(context.Background(), req, "triage", "handler panic: boom")
	require.NoError(t, err)

	entry, err := l.Get(context.Background(), auditID)
	require.NoError(t, err)
	assert.Equal(t, core.ActionAgentQuery, entry.Action)
	assert.Equal(t, "handler panic: boom", entry.OutputData["error"])
}

func TestMarkReviewedRequiresOverrideReason(t *testing.T) {
	l := newTestLogger(t)
	req := sampleRequest()
	reply := core.HandlerReply{HandlerName: "triage", Success: true, Confidence: 0.5, Timestamp: time.Now()}
	auditID, err := l.RecordInteraction(context.Background(), req, reply, core.WrappedResponse{Disclaimer: "d"}, core.ExplainabilityMetadata{}, nil)
	require.NoError(t, err)

	err = l.MarkReviewed(context.Background(), auditID, "dr-smith", nil, true, "")
	assert.ErrorIs(t, err, core.ErrOverrideReasonRequired)
}

func TestMarkReviewedWithOverrideRecordsClinicianOverride(t *testing.T) {
	l := newTestLogger(t)
	req := sampleRequest()
	reply := core.HandlerReply{HandlerName: "triage", Success: true, Confidence: 0.5, Timestamp: time.Now()}
	auditID, err := l.RecordInteraction(context.Background(), req, reply, core.WrappedResponse{Disclaimer: "d"}, core.ExplainabilityMetadata{}, nil)
	require.NoError(t, err)

	notes := "reclassified as routine"
	err = l.MarkReviewed(context.Background(), auditID, "dr-smith", &notes, true, "symptoms resolved on follow-up")
	require.NoError(t, err)

	entry, err := l.Get(context.Background(), auditID)
	require.NoError(t, err)
	require.NotNil(t, entry.ClinicianOverride)
	assert.Equal(t, "symptoms resolved on follow-up", entry.ClinicianOverride.Reason)
	assert.NotNil(t, entry.ReviewedByHash)
}

func TestGetSummaryRendersExpectedSections(t *testing.T) {
	l := newTestLogger(t)
	req := sampleRequest()
	reply := core.HandlerReply{
		HandlerName: "triage",
		Success:     true,
		Confidence:  0.9,
		Reasoning:   "emergency keywords detected",
		Timestamp:   time.Now(),
	}
	explain := core.ExplainabilityMetadata{
		ReasoningSummary: "EMERGENCY triage classification",
		DecisionFactors: []core.DecisionFactor{
			{Factor: "AI Confidence Score", Value: "90%", Importance: core.ImportanceHigh},
		},
		AlternativeConsiderations: []string{"Emergency department if condition deteriorates"},
		ExplainabilityScore:       80,
	}
	escalation := "red flags present"
	auditID, err := l.RecordInteraction(context.Background(), req, reply, core.WrappedResponse{Disclaimer: "d", Emergency: true}, explain, &escalation)
	require.NoError(t, err)

	summary, err := l.GetSummary(context.Background(), auditID)
	require.NoError(t, err)

	assert.Contains(t, summary.SummaryText, "AI Decision Audit Summary")
	assert.Contains(t, summary.SummaryText, "[HIGH] AI Confidence Score")
	assert.Contains(t, summary.SummaryText, "- Emergency department")
	assert.Contains(t, summary.SummaryText, "ESCALATION: red flags present")
	assert.Contains(t, summary.SummaryText, "Explainability Score: 80/100")
	assert.True(t, summary.RequiresReview)
}

func TestStatsExplainabilityBucketsScores(t *testing.T) {
	l := newTestLogger(t)
	req := sampleRequest()
	reply := core.HandlerReply{HandlerName: "triage", Success: true, Confidence: 0.5, Timestamp: time.Now()}

	for _, score := range []int{90, 60, 20} {
		explain := core.ExplainabilityMetadata{ExplainabilityScore: score}
		_, err := l.RecordInteraction(context.Background(), req, reply, core.WrappedResponse{Disclaimer: "d"}, explain, nil)
		require.NoError(t, err)
	}

	stats, err := l.StatsExplainability(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.High)
	assert.Equal(t, 1, stats.Moderate)
	assert.Equal(t, 1, stats.Low)
}

func TestHandlerStatisticsAggregatesPerHandler(t *testing.T) {
	l := newTestLogger(t)
	req := sampleRequest()

	reply := core.HandlerReply{HandlerName: "triage", Success: true, Confidence: 0.8, Timestamp: time.Now()}
	_, err := l.RecordInteraction(context.Background(), req, reply, core.WrappedResponse{Disclaimer: "d"}, core.ExplainabilityMetadata{}, nil)
	require.NoError(t, err)

	escalation := "red flags"
	_, err = l.RecordInteraction(context.Background(), req, reply, core.WrappedResponse{Disclaimer: "d", Emergency: true}, core.ExplainabilityMetadata{}, &escalation)
	require.NoError(t, err)

	stats, err := l.HandlerStatistics(context.Background(), "triage")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalQueries)
	assert.Equal(t, 1, stats.Escalations)
	assert.Equal(t, float64(80), stats.AverageConfidence)
}
