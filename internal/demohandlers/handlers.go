// Package demohandlers provides minimal Handler implementations for running
// the orchestrator pipeline end to end. The domain handlers themselves
// (triage reasoning, diagnostic support, imaging, ...) are external
// collaborators per core.Handler's doc comment and are out of scope for this
// module; these stand in for them so cmd/orchestratord has something to
// dispatch to.
package demohandlers

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicalcore/orchestrator/core"
)

// Echo is a canned Handler that always succeeds with a fixed confidence and
// a reply echoing the request message back, tagged with the handler's own
// name. It exists to exercise the pipeline's dispatch/safety/explain/audit
// stages without any real domain logic.
type Echo struct {
	core.BaseHandler
	description string
	capabilities []string
	confidence  float64
}

// NewEcho constructs an Echo handler registered under name.
func NewEcho(name, description string, confidence float64, capabilities ...string) *Echo {
	return &Echo{
		BaseHandler:  core.NewBaseHandler(name),
		description:  description,
		capabilities: capabilities,
		confidence:   confidence,
	}
}

func (e *Echo) Description() string         { return e.description }
func (e *Echo) Capabilities() []string      { return e.capabilities }
func (e *Echo) ConfidenceThreshold() float64 { return 0.2 }

// Process returns a reply summarizing the request, with no real clinical
// reasoning behind it.
func (e *Echo) Process(ctx context.Context, req core.Request) (core.HandlerReply, error) {
	return core.HandlerReply{
		HandlerName: e.Name(),
		Success:     true,
		Data: map[string]interface{}{
			"echo": req.Message,
		},
		Confidence: e.confidence,
		Reasoning:  fmt.Sprintf("handled by demo handler %q", e.Name()),
		Timestamp:  time.Now().UTC(),
	}, nil
}

// Default registers a small set of demo handlers covering the classifier's
// built-in handler order, enough for cmd/orchestratord to report "healthy"
// and to demonstrate every pipeline stage.
func Default(registry *core.Registry) {
	registry.Register(NewEcho("triage", "demo triage handler", 0.75, "fever", "pain", "symptoms"))
	registry.Register(NewEcho("communication", "demo communication handler", 0.6, "explain", "what is"))
	registry.Register(NewEcho("drug_info", "demo medication-information handler", 0.65, "medication", "dosage"))
	registry.Register(NewEcho("appointment", "demo appointment handler", 0.6, "appointment", "schedule"))
}
