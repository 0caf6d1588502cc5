package telemetry_test

import (
	"context"
	"os"
	"testing"

	"github.com/clinicalcore/orchestrator/core"
	"github.com/clinicalcore/orchestrator/pkg/telemetry"
)

func TestNewOTELPipelineDisabledIsSafeToUse(t *testing.T) {
	os.Setenv(core.EnvOTELSDKDisabled, "true")
	defer os.Unsetenv(core.EnvOTELSDKDisabled)

	p, err := telemetry.NewOTELPipeline("test-service")
	if err != nil {
		t.Fatalf("NewOTELPipeline: %v", err)
	}

	ctx := context.Background()
	ctx, span := p.StartSpan(ctx, "stage.classify")
	span.SetAttribute("handler", "triage")
	span.RecordError(nil)
	span.End()

	p.RecordRequest(ctx, "routine")
	p.RecordSafetyViolation(ctx, "prohibited_language")
	p.RecordEmergency(ctx)
	p.RecordHandlerFailure(ctx, "triage")
	p.RecordStageDuration(ctx, "classify", 0.01)

	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestOTELPipelineSatisfiesCoreTelemetry(t *testing.T) {
	os.Setenv(core.EnvOTELSDKDisabled, "true")
	defer os.Unsetenv(core.EnvOTELSDKDisabled)

	p, err := telemetry.NewOTELPipeline("")
	if err != nil {
		t.Fatalf("NewOTELPipeline: %v", err)
	}
	var _ core.Telemetry = p
}
