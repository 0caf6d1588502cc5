// Package logger provides structured logging for the clinical orchestrator.
//
// This package offers a simple yet powerful logging interface that supports structured
// fields, multiple log levels, and contextual logging for better observability and debugging.
//
// # Logger Interface
//
// The Logger interface defines the contract for all logging implementations:
//
//	type Logger interface {
//	    Debug(msg string, fields ...interface{})
//	    Info(msg string, fields ...interface{})
//	    Warn(msg string, fields ...interface{})
//	    Error(msg string, fields ...interface{})
//	    SetLevel(level string)
//	    WithField(key string, value interface{}) Logger
//	    WithFields(fields map[string]interface{}) Logger
//	    With(fields ...Field) Logger
//	    WithComponent(component string) Logger
//	}
//
// # Log Levels
//
// Supported log levels in order of severity:
//   - DEBUG: Detailed information for debugging
//   - INFO: General informational messages
//   - WARN: Warning messages for potentially harmful situations
//   - ERROR: Error messages for serious problems
//
// # Structured Logging
//
// All log methods take alternating key/value arguments after the message:
//
//	logger.Info("Processing request",
//	    "user_id", "123",
//	    "action", "create_order",
//	    "duration_ms", 145,
//	)
//
// # Contextual Logging
//
// Create child loggers with persistent fields:
//
//	requestLogger := logger.WithFields(map[string]interface{}{
//	    "request_id": "abc-123",
//	    "user_id": "456",
//	})
//	
//	// All logs from requestLogger will include request_id and user_id
//	requestLogger.Info("Starting processing")
//	requestLogger.Info("Processing complete", "items_processed", 10)
//
// # Simple Logger Implementation
//
// The package provides SimpleLogger:
//   - Plain-text output through the standard library log package, which
//     prefixes each line with a timestamp
//   - Configurable log levels
//   - key=value field formatting; a trailing key without a value is dropped
//
// # Configuration
//
// NewDefaultLogger reads one environment variable:
//   - LOG_LEVEL: Minimum log level (debug, info, warn, error); INFO when unset
//
// There is no output-format setting; output is always text.
//
// # Component Scoping
//
// Pipeline stages obtain a logger tagged with their own name via
// WithComponent, or via Scope when only a core.Logger is in hand:
//
//	stageLogger := logger.Scope(baseLogger, "core/classifier")
//	stageLogger.Info("classified request", "handler", primary)
//
// # Best Practices
//
//   - Use appropriate log levels to control verbosity
//   - Include relevant context through structured fields
//   - Avoid logging sensitive information (passwords, tokens, PII)
//   - Use child loggers for request-scoped logging
//   - Keep log messages concise and actionable
package logger