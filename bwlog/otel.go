package bwlog

import (
	"context"
	"fmt"
	"time"

	"github.com/basewarphq/bwobs/bwuow"
	"go.opentelemetry.io/otel/log"
)

// OTelSink emits bwuow records through the OpenTelemetry logs API. Trace correlation is
// taken from the context by the logger implementation.
type OTelSink struct {
	logger log.Logger
}

// NewOTelSink creates a sink that emits on logger.
func NewOTelSink(logger log.Logger) *OTelSink {
	return &OTelSink{logger: logger}
}

// Emit implements bwuow.LogSink.
func (s *OTelSink) Emit(ctx context.Context, rec bwuow.LogRecord) {
	s.logger.Emit(ctx, Record(rec))
}

// Record converts a bwuow record into an OpenTelemetry log record.
func Record(rec bwuow.LogRecord) log.Record {
	var r log.Record
	r.SetTimestamp(rec.Time)
	r.SetObservedTimestamp(time.Now())
	r.SetSeverity(otelSeverity(rec.Severity))
	r.SetSeverityText(rec.SeverityText)
	r.SetBody(value(rec.Body))
	for _, key := range sortedKeys(rec.Attributes) {
		r.AddAttributes(log.KeyValue{Key: key, Value: value(rec.Attributes[key])})
	}
	return r
}

func otelSeverity(sev bwuow.Severity) log.Severity {
	switch sev {
	case bwuow.SeverityDebug:
		return log.SeverityDebug
	case bwuow.SeverityInfo:
		return log.SeverityInfo
	case bwuow.SeverityWarn:
		return log.SeverityWarn
	case bwuow.SeverityError:
		return log.SeverityError
	default:
		return log.SeverityUndefined
	}
}

func value(v any) log.Value {
	switch t := v.(type) {
	case nil:
		return log.Value{}
	case string:
		return log.StringValue(t)
	case bool:
		return log.BoolValue(t)
	case int:
		return log.IntValue(t)
	case int64:
		return log.Int64Value(t)
	case float64:
		return log.Float64Value(t)
	case []byte:
		return log.BytesValue(t)
	case error:
		return log.StringValue(t.Error())
	case map[string]any:
		kvs := make([]log.KeyValue, 0, len(t))
		for _, key := range sortedKeys(t) {
			kvs = append(kvs, log.KeyValue{Key: key, Value: value(t[key])})
		}
		return log.MapValue(kvs...)
	default:
		return log.StringValue(fmt.Sprint(t))
	}
}

var _ bwuow.LogSink = (*OTelSink)(nil)
