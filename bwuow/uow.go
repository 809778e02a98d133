package bwuow

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// SpanEventCompleted is added to the span when the operation succeeds.
	SpanEventCompleted = "Lambda execution completed"

	// SpanAttrEvent holds the JSON encoded input of the invocation.
	SpanAttrEvent = "event"

	// LogMsgStarted is the default body of the onStart record.
	LogMsgStarted = "unit of work started"

	// LogMsgCompleted is the message of the onSuccess record.
	LogMsgCompleted = "unit of work completed"

	// LogMsgFailed is the message of the onError record.
	LogMsgFailed = "unit of work failed"

	LogAttrOperation     = "operation"
	LogAttrMessage       = "message"
	LogAttrResultType    = "result.type"
	LogAttrResultCount   = "result.count"
	LogAttrError         = "error"
	LogAttrExceptionType = "exception.type"

	instrumentationName = "github.com/basewarphq/bwobs/bwuow"
)

// Operation describes the work wrapped by [Runner.Run].
type Operation struct {
	// Name is used as the span name and the operation log attribute.
	Name string

	// Input describes the invocation; it is recorded as the "event" span attribute.
	Input any

	// ResultField nests the result under this field of the success body. When empty the
	// result must itself encode to a JSON object.
	ResultField string

	// Attributes are added to the span when it is opened.
	Attributes []attribute.KeyValue

	// LogAttributes are added to every record emitted for this operation.
	LogAttributes map[string]any

	// StartSeverity and StartBody shape the onStart record. Defaults are DEBUG and
	// LogMsgStarted.
	StartSeverity Severity
	StartBody     any

	// Do performs the work. A panic is treated as a failure.
	Do func(ctx context.Context) (any, error)
}

// Runner executes operations under tracing and logging. A Runner holds no per-invocation
// state and is safe for concurrent use.
type Runner struct {
	tracer trace.Tracer
	sink   LogSink
}

// NewRunner creates a Runner that opens spans from tp and emits records to sink.
// A nil sink drops all records.
func NewRunner(tp trace.TracerProvider, sink LogSink) *Runner {
	if sink == nil {
		sink = NopSink{}
	}
	return &Runner{
		tracer: tp.Tracer(instrumentationName),
		sink:   sink,
	}
}

// StartSpan opens a span named name and returns a context carrying it.
func (r *Runner) StartSpan(ctx context.Context, name string, kv ...attribute.KeyValue) (context.Context, *Span) {
	ctx, span := r.tracer.Start(ctx, name, trace.WithAttributes(kv...))
	return ctx, newSpan(span)
}

// Run executes op once under policy. It always opens and closes exactly one span.
//
// On success it returns a 200 envelope. On failure it returns a 500 envelope, or under
// [Rethrow] an *OperationFailedError and a zero envelope. Under
// [CloseInCleanupOverridingReturn] the deferred cleanup replaces both with
// [GenericEnvelope] and a nil error.
func (r *Runner) Run(ctx context.Context, policy Policy, op Operation) (env Envelope, err error) {
	policy = policy.withDefaults()

	ctx, span := r.StartSpan(ctx, op.Name, r.openAttributes(op)...)
	defer func() {
		span.Close()
		if policy.SpanCloseTiming == CloseInCleanupOverridingReturn {
			env, err = GenericEnvelope(), nil
		}
	}()

	if policy.EmitLogs.Has(OnStart) {
		sev, body := op.StartSeverity, op.StartBody
		if sev == 0 {
			sev = SeverityDebug
		}
		if body == nil {
			body = LogMsgStarted
		}
		r.emit(ctx, op, sev, body, nil)
	}

	span.Start()
	result, opErr := invoke(ctx, op)

	var body []byte
	if opErr == nil {
		body, opErr = successBody(op.ResultField, result)
	}

	if opErr == nil {
		span.Succeed()
		if policy.EmitLogs.Has(OnSuccess) {
			r.emit(ctx, op, SeverityInfo, LogMsgCompleted, summarize(op.ResultField, result, body))
		}
		r.closeEarly(span, policy)
		return Envelope{StatusCode: http.StatusOK, Body: string(body)}, nil
	}

	failure := newOperationFailed(op.Name, opErr)
	span.Fail(failure.recordable(), failure.Message())
	if policy.EmitLogs.Has(OnError) {
		r.emit(ctx, op, SeverityError, failure.Message(), map[string]any{
			LogAttrMessage:       LogMsgFailed,
			LogAttrError:         failure.Error(),
			LogAttrExceptionType: typeName(opErr),
		})
	}
	r.closeEarly(span, policy)

	if policy.OnError == Rethrow {
		return Envelope{}, failure
	}
	return ErrorEnvelope(failure), nil
}

func (r *Runner) closeEarly(span *Span, policy Policy) {
	if policy.SpanCloseTiming == CloseBeforeReturn {
		span.Close()
	}
}

func (r *Runner) emit(ctx context.Context, op Operation, sev Severity, body any, extra map[string]any) {
	attrs := make(map[string]any, len(op.LogAttributes)+len(extra)+1)
	maps.Copy(attrs, op.LogAttributes)
	maps.Copy(attrs, extra)
	attrs[LogAttrOperation] = op.Name
	r.sink.Emit(ctx, NewLogRecord(ctx, sev, body, attrs))
}

func (r *Runner) openAttributes(op Operation) []attribute.KeyValue {
	kv := make([]attribute.KeyValue, 0, len(op.Attributes)+1)
	if op.Input != nil {
		kv = append(kv, attribute.String(SpanAttrEvent, describeInput(op.Input)))
	}
	return append(kv, op.Attributes...)
}

func invoke(ctx context.Context, op Operation) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			result, err = nil, panicError(p)
		}
	}()
	if op.Do == nil {
		return nil, nil
	}
	return op.Do(ctx)
}

func describeInput(input any) string {
	switch v := input.(type) {
	case json.RawMessage:
		return string(v)
	case []byte:
		return string(v)
	case string:
		return v
	}
	b, err := json.Marshal(input)
	if err != nil {
		return fmt.Sprintf("%+v", input)
	}
	return string(b)
}
