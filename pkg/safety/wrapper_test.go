package safety_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clinicalcore/orchestrator/core"
	"github.com/clinicalcore/orchestrator/pkg/safety"
)

func TestWrapAppliesHandlerSpecificDisclaimer(t *testing.T) {
	w := safety.New(nil)
	reply := core.HandlerReply{
		HandlerName: "triage",
		Success:     true,
		Confidence:  0.85,
		Data:        map[string]interface{}{"urgency_level": "ROUTINE"},
		Timestamp:   time.Now(),
	}

	resp, verdict := w.Wrap(reply, "triage")

	assert.Equal(t, core.VerdictAllow, verdict.Kind)
	assert.NotEmpty(t, resp.Disclaimer)
	assert.Contains(t, resp.Disclaimer, "triage")
}

func TestWrapFallsBackToGenericDisclaimer(t *testing.T) {
	w := safety.New(nil)
	reply := core.HandlerReply{HandlerName: "appointment", Success: true, Timestamp: time.Now()}

	resp, verdict := w.Wrap(reply, "appointment")

	assert.Equal(t, core.VerdictAllow, verdict.Kind)
	assert.NotEmpty(t, resp.Disclaimer)
}

func TestWrapBlocksProhibitedLanguage(t *testing.T) {
	w := safety.New(nil)
	reply := core.HandlerReply{
		HandlerName: "diagnostic_support",
		Success:     true,
		Reasoning:   "Based on the symptoms, you have pneumonia.",
		Timestamp:   time.Now(),
	}

	resp, verdict := w.Wrap(reply, "diagnostic_support")

	assert.Equal(t, core.VerdictBlock, verdict.Kind)
	assert.Equal(t, "prohibited_language", verdict.ViolationKind)
	assert.NotEmpty(t, verdict.Details)
	assert.Equal(t, core.WrappedResponse{}, resp)
}

func TestWrapEmergencyOverlayOnRedFlags(t *testing.T) {
	w := safety.New(nil)
	reply := core.HandlerReply{
		HandlerName: "triage",
		Success:     true,
		RedFlags:    []string{"chest pain", "arm radiation"},
		Confidence:  0.9,
		Timestamp:   time.Now(),
	}

	resp, verdict := w.Wrap(reply, "triage")

	assert.Equal(t, core.VerdictAllowWithOverlay, verdict.Kind)
	assert.True(t, resp.Emergency)
	assert.NotNil(t, resp.EmergencyAlert)
	assert.Contains(t, *resp.EmergencyAlert, "chest pain")
}

func TestWrapEmergencyOverlayOnRequiresEscalation(t *testing.T) {
	w := safety.New(nil)
	reply := core.HandlerReply{
		HandlerName:        "triage",
		Success:            true,
		RequiresEscalation: true,
		Confidence:         0.9,
		Timestamp:          time.Now(),
	}

	_, verdict := w.Wrap(reply, "triage")
	assert.Equal(t, core.VerdictAllowWithOverlay, verdict.Kind)
}

func TestWrapNoEmergencyWhenClean(t *testing.T) {
	w := safety.New(nil)
	reply := core.HandlerReply{HandlerName: "communication", Success: true, Confidence: 0.6, Timestamp: time.Now()}

	resp, verdict := w.Wrap(reply, "communication")
	assert.Equal(t, core.VerdictAllow, verdict.Kind)
	assert.False(t, resp.Emergency)
	assert.Nil(t, resp.EmergencyAlert)
}

func TestWrapConfidenceLeveling(t *testing.T) {
	w := safety.New(nil)
	reply := core.HandlerReply{HandlerName: "triage", Success: true, Confidence: 0.42, Timestamp: time.Now()}

	resp, _ := w.Wrap(reply, "triage")
	assert.Equal(t, 42, resp.Confidence.ScorePercent)
	assert.Equal(t, string(core.ConfidenceLow), resp.Confidence.Level)
	assert.NotEmpty(t, resp.Confidence.Indicator)
}

func TestWrapNeverEditsContentOnBlock(t *testing.T) {
	w := safety.New(nil)
	reply := core.HandlerReply{
		HandlerName: "drug_info",
		Data:        map[string]interface{}{"instructions": "take two tablets daily"},
		Timestamp:   time.Now(),
	}

	_, verdict := w.Wrap(reply, "drug_info")
	assert.Equal(t, core.VerdictBlock, verdict.Kind)
}
