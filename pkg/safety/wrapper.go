// Package safety implements the safety wrapper (§4.3): a referentially
// transparent function from a handler's reply to the response envelope
// returned to callers, responsible for disclaimer injection, the
// prohibited-language check, the emergency overlay, and confidence
// leveling. It never reads or writes the audit store.
package safety

import (
	"fmt"
	"strings"

	"github.com/clinicalcore/orchestrator/core"
)

// Wrapper applies the safety checks and assembles a WrappedResponse, or
// returns a Block verdict describing why the reply was refused.
type Wrapper struct {
	tables *Tables
}

// New constructs a Wrapper using the built-in tables unless tables is
// non-nil.
func New(tables *Tables) *Wrapper {
	if tables == nil {
		tables = DefaultTables()
	}
	return &Wrapper{tables: tables}
}

// GenericDisclaimer returns the fallback disclaimer used for handler types
// with no specific entry (§4.3 item 1), for callers that need a disclaimer
// outside of Wrap itself (e.g. error envelopes assembled before a handler
// type is known).
func (w *Wrapper) GenericDisclaimer() string {
	return w.tables.Disclaimer("")
}

// Wrap runs the five responsibilities of §4.3 against reply, assuming it
// was produced by a handler of the given handlerType (used to select the
// disclaimer table entry). The returned SafetyVerdict's Kind determines
// whether resp is meaningful: on VerdictBlock, resp is the zero value and
// must not be surfaced to the caller.
func (w *Wrapper) Wrap(reply core.HandlerReply, handlerType string) (core.WrappedResponse, core.SafetyVerdict) {
	if violation, details := w.checkProhibitedLanguage(reply); violation != "" {
		return core.WrappedResponse{}, core.SafetyVerdict{
			Kind:          core.VerdictBlock,
			ViolationKind: violation,
			Details:       details,
		}
	}

	disclaimer := w.tables.Disclaimer(handlerType)

	emergency := reply.RequiresEscalation || len(reply.RedFlags) > 0
	var emergencyAlert string
	if emergency {
		emergencyAlert = emergencyAlertSummary(reply)
	}

	level := core.DeriveConfidenceLevel(reply.Confidence)
	confidence := &core.ConfidenceSummary{
		ScorePercent: int(reply.Confidence*100 + 0.5),
		Level:        string(level),
		Indicator:    core.ConfidenceIndicator(level),
	}

	handler := reply.HandlerName
	reasoning := reply.Reasoning

	resp := core.WrappedResponse{
		Success:    reply.Success,
		Handler:    &handler,
		Timestamp:  reply.Timestamp,
		Confidence: confidence,
		Data:       reply.Data,
		Reasoning:  &reasoning,
		Disclaimer: disclaimer,
		Emergency:  emergency,
		SafetyCheck: &core.SafetyCheckSummary{
			DisclaimerApplied:  true,
			ProhibitedLanguage: "checked",
			EmergencyOverlay:   emergency,
		},
	}
	if emergencyAlert != "" {
		resp.EmergencyAlert = &emergencyAlert
	}

	verdictKind := core.VerdictAllow
	if emergency {
		verdictKind = core.VerdictAllowWithOverlay
	}
	return resp, core.SafetyVerdict{Kind: verdictKind, EmergencyAlert: emergencyAlert}
}

// checkProhibitedLanguage stringifies reply.Data and reply.Reasoning and
// searches for forbidden substrings (§4.3 item 2). It never edits content;
// a match always yields a Block.
func (w *Wrapper) checkProhibitedLanguage(reply core.HandlerReply) (violation, details string) {
	haystack := reply.Reasoning + " " + stringifyData(reply.Data)
	if phrase := w.tables.FindProhibited(haystack); phrase != "" {
		return "prohibited_language", fmt.Sprintf("matched forbidden phrase %q", phrase)
	}
	return "", ""
}

func stringifyData(data map[string]interface{}) string {
	var b strings.Builder
	for k, v := range data {
		fmt.Fprintf(&b, "%s=%v ", k, v)
	}
	return b.String()
}

func emergencyAlertSummary(reply core.HandlerReply) string {
	if len(reply.RedFlags) > 0 {
		return fmt.Sprintf("EMERGENCY: red flags detected (%s). Seek immediate medical attention.",
			strings.Join(reply.RedFlags, ", "))
	}
	return "EMERGENCY: this interaction requires escalation to a clinician."
}

