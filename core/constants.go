package core

import "time"

// Environment variables read by the ambient config/logging stack.
const (
	EnvLogLevel             = "LOG_LEVEL"
	EnvOTELSDKDisabled      = "OTEL_SDK_DISABLED"
	EnvOTELExporterEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// DefaultDeadline is the per-request deadline applied when the config
// surface's default_deadline_ms (§6) is unset.
const DefaultDeadline = 30 * time.Second

// DefaultFallbackHandlerName is the handler consulted when the classifier
// scores no registered handler above zero (§4.2 step 3).
const DefaultFallbackHandlerName = "communication"

// MaxSecondaryHandlers bounds IntentClassification.SecondaryHandlers (§3).
const MaxSecondaryHandlers = 2

// SecondaryHandlerScoreFloor is the score a non-primary handler must exceed
// to be included as secondary (§4.2 step 3).
const SecondaryHandlerScoreFloor = 0.30
