// Package telemetry provides observability for the clinical orchestration
// pipeline using OpenTelemetry standards.
//
// # Core Components
//
// Metrics emitted by the orchestrator through core.Telemetry.RecordMetric,
// each as a counter under the name given:
//   - requests_total, tagged by urgency
//   - safety_violations_total, tagged by kind
//   - emergencies_total
//   - handler_failures_total, tagged by handler
//
// OTELPipeline also creates typed instruments, recorded only through its
// own helper methods (RecordRequest, RecordSafetyViolation,
// RecordEmergency, RecordHandlerFailure, RecordStageDuration), which the
// orchestrator does not call:
//   - orchestrator_requests_total, tagged by urgency
//   - orchestrator_safety_violations_total, tagged by violation_kind
//   - orchestrator_emergencies_total
//   - orchestrator_handler_failures_total, tagged by handler
//   - orchestrator_stage_duration_seconds, tagged by stage
//
// Traces:
//   - A "pipeline.process" span per request, started by the orchestrator
//   - A "stage.classify" child span, started by the classifier
//   - Lookup, dispatch, safety, explain, and audit run inside the request
//     span and have no spans of their own
//
// # Usage Example
//
//	ctx, span := pipeline.StartSpan(ctx, "stage.classify")
//	defer span.End()
//	span.SetAttribute("handler", classification.PrimaryHandler)
//	if err != nil {
//	    span.RecordError(err)
//	}
//
// # Configuration
//
// Telemetry is configured through environment variables:
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP gRPC endpoint; falls back to a
//     stdout exporter when unset
//   - OTEL_SDK_DISABLED: set to "true" to disable tracing entirely
//   - OTEL_SERVICE_VERSION, DEPLOYMENT_ENVIRONMENT: resource attributes
//
// # Exporters
//
//   - OTLP gRPC (recommended, production)
//   - Stdout (development, zero configuration)
package telemetry
