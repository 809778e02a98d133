package bwuow

import (
	"context"
	"maps"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Severity is the ordered level of a log record.
type Severity int

const (
	SeverityDebug Severity = iota + 1
	SeverityInfo
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeverityWarn:
		return "WARN"
	case SeverityError:
		return "ERROR"
	default:
		return "UNSPECIFIED"
	}
}

// LogRecord is one structured log emission. Records are built with [NewLogRecord] and
// must not be modified afterwards.
type LogRecord struct {
	Time         time.Time
	Severity     Severity
	SeverityText string
	Body         any
	Attributes   map[string]any

	// TraceID and SpanID are set when a span was active in the emitting context.
	TraceID trace.TraceID
	SpanID  trace.SpanID
}

// NewLogRecord creates a record correlated with the span in ctx, if any.
// The attribute map is copied.
func NewLogRecord(ctx context.Context, sev Severity, body any, attrs map[string]any) LogRecord {
	rec := LogRecord{
		Time:         time.Now(),
		Severity:     sev,
		SeverityText: sev.String(),
		Body:         body,
		Attributes:   maps.Clone(attrs),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		rec.TraceID = sc.TraceID()
		rec.SpanID = sc.SpanID()
	}
	return rec
}

// Correlated reports whether the record carries trace and span identifiers.
func (r LogRecord) Correlated() bool {
	return r.TraceID.IsValid() && r.SpanID.IsValid()
}

// LogSink receives log records. Emit is fire-and-forget; sinks report their own
// failures out of band.
type LogSink interface {
	Emit(ctx context.Context, rec LogRecord)
}

// LogSinkFunc adapts a function to a LogSink.
type LogSinkFunc func(ctx context.Context, rec LogRecord)

func (f LogSinkFunc) Emit(ctx context.Context, rec LogRecord) { f(ctx, rec) }

// NopSink drops every record.
type NopSink struct{}

func (NopSink) Emit(context.Context, LogRecord) {}
