package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinicalcore/orchestrator/core"
)

// OTELPipeline is an AutoOTEL-style zero-configuration telemetry provider
// adapted to the pipeline's stage model: it starts whatever spans callers
// name through StartSpan (the orchestrator starts "pipeline.process", the
// classifier "stage.classify") and records counters for request volume,
// safety violations, emergencies, and handler failures
// (SPEC_FULL.md DOMAIN STACK). It implements core.Telemetry so it can be
// injected into the orchestrator as a plain core.Telemetry value.
type OTELPipeline struct {
	traceProvider *sdktrace.TracerProvider
	tracer        trace.Tracer
	meter         metric.Meter
	serviceName   string

	requestsTotal        metric.Int64Counter
	safetyViolationsTotal metric.Int64Counter
	emergenciesTotal      metric.Int64Counter
	handlerFailuresTotal  metric.Int64Counter
	stageDuration         metric.Float64Histogram
}

// NewOTELPipeline wires OTEL the same way the teacher does: disabled
// entirely via OTEL_SDK_DISABLED, exporting via OTLP gRPC when
// OTEL_EXPORTER_OTLP_ENDPOINT is set, and otherwise falling back to a
// stdout exporter so spans are still visible in local development.
func NewOTELPipeline(serviceName string) (*OTELPipeline, error) {
	if serviceName == "" {
		serviceName = "clinical-orchestrator"
	}

	if os.Getenv(core.EnvOTELSDKDisabled) == "true" {
		return &OTELPipeline{
			tracer:      otel.Tracer("noop"),
			meter:       otel.Meter("noop"),
			serviceName: serviceName,
		}, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(getServiceVersion()),
			semconv.DeploymentEnvironmentKey.String(getEnvironment()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create resource: %w", err)
	}

	traceProvider, err := setupTraceProvider(res)
	if err != nil {
		return nil, fmt.Errorf("telemetry: setup trace provider: %w", err)
	}

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	meter := otel.GetMeterProvider().Meter("clinical-orchestrator")

	p := &OTELPipeline{
		traceProvider: traceProvider,
		tracer:        traceProvider.Tracer("clinical-orchestrator"),
		meter:         meter,
		serviceName:   serviceName,
	}

	if p.requestsTotal, err = meter.Int64Counter(
		"orchestrator_requests_total",
		metric.WithDescription("Total requests processed by the pipeline"),
	); err != nil {
		return nil, fmt.Errorf("telemetry: requests_total counter: %w", err)
	}
	if p.safetyViolationsTotal, err = meter.Int64Counter(
		"orchestrator_safety_violations_total",
		metric.WithDescription("Total requests blocked by the safety wrapper"),
	); err != nil {
		return nil, fmt.Errorf("telemetry: safety_violations_total counter: %w", err)
	}
	if p.emergenciesTotal, err = meter.Int64Counter(
		"orchestrator_emergencies_total",
		metric.WithDescription("Total requests classified as emergencies"),
	); err != nil {
		return nil, fmt.Errorf("telemetry: emergencies_total counter: %w", err)
	}
	if p.handlerFailuresTotal, err = meter.Int64Counter(
		"orchestrator_handler_failures_total",
		metric.WithDescription("Total handler Process calls that returned an error"),
	); err != nil {
		return nil, fmt.Errorf("telemetry: handler_failures_total counter: %w", err)
	}
	if p.stageDuration, err = meter.Float64Histogram(
		"orchestrator_stage_duration_seconds",
		metric.WithDescription("Duration of each pipeline stage"),
	); err != nil {
		return nil, fmt.Errorf("telemetry: stage_duration histogram: %w", err)
	}

	return p, nil
}

// StartSpan starts a span named for the pipeline stage (e.g.
// "stage.classify", "stage.dispatch.triage"). Implements core.Telemetry.
func (p *OTELPipeline) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	ctx, span := p.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

// RecordMetric records an arbitrary named metric as a counter addition,
// tagged with labels. Implements core.Telemetry. Stage duration recording
// goes through RecordStageDuration instead, since it needs histogram
// semantics rather than a running total.
func (p *OTELPipeline) RecordMetric(name string, value float64, labels map[string]string) {
	counter, err := p.meter.Float64Counter(name)
	if err != nil {
		return
	}
	counter.Add(context.Background(), value, metric.WithAttributes(toAttributes(labels)...))
}

// RecordRequest increments the total-requests counter.
func (p *OTELPipeline) RecordRequest(ctx context.Context, urgency string) {
	if p.requestsTotal == nil {
		return
	}
	p.requestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("urgency", urgency)))
}

// RecordSafetyViolation increments the safety-violations counter.
func (p *OTELPipeline) RecordSafetyViolation(ctx context.Context, kind string) {
	if p.safetyViolationsTotal == nil {
		return
	}
	p.safetyViolationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("violation_kind", kind)))
}

// RecordEmergency increments the emergencies counter.
func (p *OTELPipeline) RecordEmergency(ctx context.Context) {
	if p.emergenciesTotal == nil {
		return
	}
	p.emergenciesTotal.Add(ctx, 1)
}

// RecordHandlerFailure increments the handler-failures counter for handler.
func (p *OTELPipeline) RecordHandlerFailure(ctx context.Context, handler string) {
	if p.handlerFailuresTotal == nil {
		return
	}
	p.handlerFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("handler", handler)))
}

// RecordStageDuration records how long a pipeline stage took.
func (p *OTELPipeline) RecordStageDuration(ctx context.Context, stage string, seconds float64) {
	if p.stageDuration == nil {
		return
	}
	p.stageDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("stage", stage)))
}

// Shutdown flushes and stops the trace provider.
func (p *OTELPipeline) Shutdown(ctx context.Context) error {
	if p.traceProvider != nil {
		return p.traceProvider.Shutdown(ctx)
	}
	return nil
}

func toAttributes(labels map[string]string) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		out = append(out, attribute.String(k, v))
	}
	return out
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() { s.span.End() }

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

func (s *otelSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
}

// setupTraceProvider exports via OTLP gRPC when OTEL_EXPORTER_OTLP_ENDPOINT
// is set, otherwise falls back to a stdout exporter so traces remain
// visible without any collector configured.
func setupTraceProvider(res *resource.Resource) (*sdktrace.TracerProvider, error) {
	ctx := context.Background()

	endpoint := os.Getenv(core.EnvOTELExporterEndpoint)
	if endpoint == "" {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("stdout exporter: %w", err)
		}
		return sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		), nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	), nil
}

func getServiceVersion() string {
	if v := os.Getenv("OTEL_SERVICE_VERSION"); v != "" {
		return v
	}
	return "1.0.0"
}

func getEnvironment() string {
	if env := os.Getenv("DEPLOYMENT_ENVIRONMENT"); env != "" {
		return env
	}
	return "development"
}
