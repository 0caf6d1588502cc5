package logger

import "github.com/clinicalcore/orchestrator/core"

// Scope returns l scoped to component if l supports component-aware
// scoping, otherwise l unchanged. Mirrors the teacher's pattern of
// type-asserting an injected core.Logger against a richer local interface
// before calling WithComponent.
func Scope(l core.Logger, component string) core.Logger {
	if cal, ok := l.(Logger); ok {
		return cal.WithComponent(component)
	}
	return l
}

// Logger interface defines the logging contract. Its WithComponent return
// type is this package's own Logger, not core.Logger, so *SimpleLogger does
// not automatically satisfy core.ComponentAwareLogger — use Scope to bridge
// the two.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	SetLevel(level string)
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	With(fields ...Field) Logger
	WithComponent(component string) Logger
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// LogLevel represents the logging level
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)
