// Package bwlog provides log sinks for bwuow records and trace-correlated zap helpers.
//
// AWS recommends including trace_id and span_id in log messages for trace-log
// correlation. CloudWatch Logs Insights can then filter logs by trace ID, and
// X-Ray can display correlated logs in the trace timeline.
package bwlog

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TraceFields extracts trace_id and span_id from the context for log correlation.
func TraceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

// With returns logger annotated with the trace context of ctx.
func With(ctx context.Context, logger *zap.Logger) *zap.Logger {
	return logger.With(TraceFields(ctx)...)
}

// Printf logs an informational message with trace context.
func Printf(ctx context.Context, logger *zap.Logger, format string, args ...any) {
	With(ctx, logger).Info(fmt.Sprintf(format, args...))
}

// Errorf logs an error with trace context and records it on the active span.
// Use this for errors that should appear in both logs and traces.
func Errorf(ctx context.Context, logger *zap.Logger, format string, args ...any) {
	err := errors.Newf(format, args...)
	With(ctx, logger).Error(fmt.Sprintf(format, args...))

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.RecordError(err)
	}
}
