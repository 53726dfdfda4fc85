package logging

import (
	"context"
	"log/slog"
	"time"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized key for the capture attempt identifier.
	FieldRunID = "run_id"
	// FieldState is the standardized key for orchestrator state names.
	FieldState = "state"
	// FieldEventType labels notable lines so they can be grepped or alerted on.
	FieldEventType = "event_type"
	// FieldErrorHint carries a short operator-facing remediation hint.
	FieldErrorHint = "error_hint"
	// FieldError is the key used by Error.
	FieldError = "error"
)

type Attr = slog.Attr

func Any(key string, value any) Attr { return slog.Any(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Time(key string, value time.Time) Attr { return slog.Time(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String(FieldError, "<nil>")
	}
	return slog.Any(FieldError, err)
}

// EventType tags a record with FieldEventType.
func EventType(value string) Attr { return slog.String(FieldEventType, value) }

func attrsToArgs(attrs []Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

// Args converts attrs into the variadic form slog.Logger methods accept.
func Args(attrs ...Attr) []any {
	return attrsToArgs(attrs)
}

func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NewComponentLogger creates a logger with a standardized component attribute.
// If logger is nil, a no-op logger is used as the base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// WarnWithHint logs a warning carrying event_type and error_hint fields.
func WarnWithHint(logger *slog.Logger, msg, eventType, hint string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = append(attrs, EventType(eventType), String(FieldErrorHint, hint))
	logger.Warn(msg, attrsToArgs(attrs)...)
}

// ErrorWithHint logs an error carrying event_type and error_hint fields.
func ErrorWithHint(logger *slog.Logger, msg, eventType, hint string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = append(attrs, EventType(eventType), String(FieldErrorHint, hint))
	logger.Error(msg, attrsToArgs(attrs)...)
}

// NoopHandler discards all log output.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }

func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler { return NoopHandler{} }

func (NoopHandler) WithGroup(string) slog.Handler { return NoopHandler{} }
