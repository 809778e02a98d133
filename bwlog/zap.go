package bwlog

import (
	"context"
	"slices"

	"github.com/basewarphq/bwobs/bwuow"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapSink writes bwuow records through a zap logger.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink creates a sink that writes to logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger}
}

// Emit implements bwuow.LogSink. A string body becomes the message; any other body is
// written as the "body" field.
func (s *ZapSink) Emit(_ context.Context, rec bwuow.LogRecord) {
	msg, isString := rec.Body.(string)
	if !isString {
		msg = rec.SeverityText
	}

	ce := s.logger.Check(zapLevel(rec.Severity), msg)
	if ce == nil {
		return
	}
	if !rec.Time.IsZero() {
		ce.Time = rec.Time
	}

	fields := make([]zap.Field, 0, len(rec.Attributes)+4)
	if rec.Correlated() {
		fields = append(fields,
			zap.String("trace_id", rec.TraceID.String()),
			zap.String("span_id", rec.SpanID.String()),
		)
	}
	fields = append(fields, zap.String("severity_text", rec.SeverityText))
	if !isString && rec.Body != nil {
		fields = append(fields, zap.Any("body", rec.Body))
	}
	for _, key := range sortedKeys(rec.Attributes) {
		fields = append(fields, zap.Any(key, rec.Attributes[key]))
	}
	ce.Write(fields...)
}

func zapLevel(sev bwuow.Severity) zapcore.Level {
	switch sev {
	case bwuow.SeverityDebug:
		return zapcore.DebugLevel
	case bwuow.SeverityWarn:
		return zapcore.WarnLevel
	case bwuow.SeverityError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

var _ bwuow.LogSink = (*ZapSink)(nil)
