// Package telemetry wires OpenTelemetry tracing and metrics into the
// pipeline's stage model, adapted from the teacher's AutoOTEL interface.
package telemetry
