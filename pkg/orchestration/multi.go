package orchestration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clinicalcore/orchestrator/core"
)

// ProcessMulti implements the dispatcher extension of §4.6: process_multi
// runs req through each named handler independently, safety-wrapping and
// auditing each reply on its own. A failing handler yields an error entry
// in the result map without aborting the others, and there is no
// aggregation of confidences across handlers. Adapted from the teacher's
// ResponseSynthesizer, which combined multiple agent replies into one
// response; here each handler's reply stays independent all the way
// through, matching the spec's explicit "no aggregation" requirement.
func (o *Orchestrator) ProcessMulti(ctx context.Context, req core.Request, handlerNames []string) map[string]core.WrappedResponse {
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	results := make(map[string]core.WrappedResponse, len(handlerNames))
	if len(handlerNames) == 0 {
		return results
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, name := range handlerNames {
		wg.Add(1)
		go func(handlerName string) {
			defer wg.Done()
			resp := o.processOne(ctx, req, handlerName)
			mu.Lock()
			results[handlerName] = resp
			mu.Unlock()
		}(name)
	}
	wg.Wait()
	return results
}

// processOne resolves handlerName and runs steps 5-8 of §4.6 for it,
// independent of the classifier (process_multi bypasses classification: the
// caller names the handlers directly).
func (o *Orchestrator) processOne(ctx context.Context, req core.Request, handlerName string) core.WrappedResponse {
	handler, ok := o.registry.Get(handlerName)
	if !ok || !handler.Enabled() {
		o.logger.Warn("multi: handler unavailable", "handler", handlerName)
		return o.errorEnvelope("handler_unavailable",
			fmt.Sprintf("handler %q is unknown or disabled", handlerName), nil)
	}
	return o.runHandler(ctx, req, handler)
}
