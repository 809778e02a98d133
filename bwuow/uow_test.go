package bwuow_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/basewarphq/bwobs/bwuow"
	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type recordingSink struct {
	mu      sync.Mutex
	records []bwuow.LogRecord
}

func (s *recordingSink) Emit(_ context.Context, rec bwuow.LogRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

func (s *recordingSink) Records() []bwuow.LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bwuow.LogRecord(nil), s.records...)
}

type user struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
}

func sixUsers() []user {
	users := make([]user, 6)
	for i := range users {
		users[i] = user{ID: i + 1, Email: "user@example.com"}
	}
	return users
}

func newRunner(t *testing.T) (*bwuow.Runner, *tracetest.SpanRecorder, *recordingSink) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	sink := &recordingSink{}
	return bwuow.NewRunner(tp, sink), rec, sink
}

func failingWith(err error) func(context.Context) (any, error) {
	return func(context.Context) (any, error) { return nil, err }
}

func onlySpan(t *testing.T, rec *tracetest.SpanRecorder) sdktrace.ReadOnlySpan {
	t.Helper()
	if got := len(rec.Started()); got != 1 {
		t.Fatalf("started spans = %d, want 1", got)
	}
	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	return ended[0]
}

func countEvents(span sdktrace.ReadOnlySpan, name string) int {
	n := 0
	for _, ev := range span.Events() {
		if ev.Name == name {
			n++
		}
	}
	return n
}

func TestRun_Success(t *testing.T) {
	runner, rec, sink := newRunner(t)
	users := sixUsers()

	env, err := runner.Run(context.Background(), bwuow.DefaultPolicy(), bwuow.Operation{
		Name:        "lambdaHandler",
		Input:       json.RawMessage(`{"rawPath":"/"}`),
		ResultField: "users",
		Do:          func(context.Context) (any, error) { return users, nil },
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	wantBody, _ := json.Marshal(map[string]any{"users": users})
	want := bwuow.Envelope{StatusCode: 200, Body: string(wantBody)}
	if diff := cmp.Diff(want, env); diff != "" {
		t.Errorf("envelope mismatch (-want +got):\n%s", diff)
	}

	span := onlySpan(t, rec)
	if span.Name() != "lambdaHandler" {
		t.Errorf("span name = %q, want lambdaHandler", span.Name())
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("span status = %v, want Ok", span.Status().Code)
	}
	if n := countEvents(span, bwuow.SpanEventCompleted); n != 1 {
		t.Errorf("completed events = %d, want 1", n)
	}
	wantAttr := attribute.String(bwuow.SpanAttrEvent, `{"rawPath":"/"}`)
	found := false
	for _, kv := range span.Attributes() {
		if kv == wantAttr {
			found = true
		}
	}
	if !found {
		t.Errorf("span attributes %v missing %v", span.Attributes(), wantAttr)
	}

	records := sink.Records()
	if len(records) != 2 {
		t.Fatalf("log records = %d, want 2", len(records))
	}
	if records[0].Severity != bwuow.SeverityDebug {
		t.Errorf("start severity = %v, want DEBUG", records[0].Severity)
	}
	done := records[1]
	if done.Severity != bwuow.SeverityInfo {
		t.Errorf("success severity = %v, want INFO", done.Severity)
	}
	if got := done.Attributes[bwuow.LogAttrResultCount]; got != int64(6) {
		t.Errorf("result.count = %v, want 6", got)
	}
	if got := done.Attributes[bwuow.LogAttrOperation]; got != "lambdaHandler" {
		t.Errorf("operation attribute = %v", got)
	}
	if done.TraceID != span.SpanContext().TraceID() || done.SpanID != span.SpanContext().SpanID() {
		t.Error("success record is not correlated with the span")
	}
}

func TestRun_FailureMapsTo500(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantBody string
	}{
		{name: "message", err: errors.New("testing error"), wantBody: `{"error":"testing error"}`},
		{name: "empty message falls back", err: errors.New(""), wantBody: `{"error":"error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, rec, sink := newRunner(t)

			env, err := runner.Run(context.Background(), bwuow.DefaultPolicy(), bwuow.Operation{
				Name: "lambdaHandler",
				Do:   failingWith(tt.err),
			})
			if err != nil {
				t.Fatalf("Run error: %v", err)
			}

			want := bwuow.Envelope{StatusCode: 500, Body: tt.wantBody}
			if diff := cmp.Diff(want, env); diff != "" {
				t.Errorf("envelope mismatch (-want +got):\n%s", diff)
			}

			span := onlySpan(t, rec)
			if span.Status().Code != codes.Error {
				t.Errorf("span status = %v, want Error", span.Status().Code)
			}
			if n := countEvents(span, "exception"); n != 1 {
				t.Errorf("exception events = %d, want 1", n)
			}
			if n := countEvents(span, bwuow.SpanEventCompleted); n != 0 {
				t.Errorf("completed events = %d, want 0", n)
			}

			records := sink.Records()
			last := records[len(records)-1]
			if last.Severity != bwuow.SeverityError {
				t.Errorf("last severity = %v, want ERROR", last.Severity)
			}
			if !last.Correlated() {
				t.Error("error record is not correlated")
			}
		})
	}
}

func TestRun_FailureStatusMessage(t *testing.T) {
	runner, rec, _ := newRunner(t)

	_, _ = runner.Run(context.Background(), bwuow.DefaultPolicy(), bwuow.Operation{
		Name: "lambdaHandler",
		Do:   failingWith(errors.New("testing error")),
	})

	if got := onlySpan(t, rec).Status().Description; got != "testing error" {
		t.Errorf("status description = %q, want %q", got, "testing error")
	}
}

func TestRun_Rethrow(t *testing.T) {
	runner, rec, _ := newRunner(t)
	cause := errors.New("connection refused")
	policy := bwuow.DefaultPolicy()
	policy.OnError = bwuow.Rethrow

	env, err := runner.Run(context.Background(), policy, bwuow.Operation{
		Name: "lambdaHandler",
		Do:   failingWith(cause),
	})
	if err == nil {
		t.Fatal("expected failure to propagate")
	}
	if diff := cmp.Diff(bwuow.Envelope{}, env); diff != "" {
		t.Errorf("expected zero envelope (-want +got):\n%s", diff)
	}
	if !errors.Is(err, bwuow.ErrOperationFailed) {
		t.Errorf("errors.Is(err, ErrOperationFailed) = false for %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false for %v", err)
	}
	var failed *bwuow.OperationFailedError
	if !errors.As(err, &failed) || failed.Operation != "lambdaHandler" {
		t.Errorf("expected OperationFailedError for lambdaHandler, got %#v", err)
	}

	span := onlySpan(t, rec)
	if span.Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", span.Status().Code)
	}
	if span.EndTime().IsZero() {
		t.Error("span left open")
	}
}

// The legacy timing replaces the computed envelope from the deferred cleanup. These
// cases pin that behavior down rather than correcting it.
func TestRun_CleanupOverridesReturn(t *testing.T) {
	tests := []struct {
		name       string
		onError    bwuow.ErrorMode
		do         func(context.Context) (any, error)
		wantStatus codes.Code
	}{
		{
			name:       "failure is replaced by generic envelope",
			onError:    bwuow.MapTo500,
			do:         failingWith(errors.New("testing error")),
			wantStatus: codes.Error,
		},
		{
			name:       "rethrown failure is discarded",
			onError:    bwuow.Rethrow,
			do:         failingWith(errors.New("testing error")),
			wantStatus: codes.Error,
		},
		{
			name:       "success is replaced by generic envelope",
			onError:    bwuow.MapTo500,
			do:         func(context.Context) (any, error) { return sixUsers(), nil },
			wantStatus: codes.Ok,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, rec, _ := newRunner(t)
			policy := bwuow.Policy{
				OnError:         tt.onError,
				SpanCloseTiming: bwuow.CloseInCleanupOverridingReturn,
				EmitLogs:        bwuow.AllLogPoints,
			}

			env, err := runner.Run(context.Background(), policy, bwuow.Operation{
				Name:        "lambdaHandler",
				ResultField: "users",
				Do:          tt.do,
			})
			if err != nil {
				t.Fatalf("expected cleanup to swallow the error, got %v", err)
			}
			if diff := cmp.Diff(bwuow.GenericEnvelope(), env); diff != "" {
				t.Errorf("envelope mismatch (-want +got):\n%s", diff)
			}

			span := onlySpan(t, rec)
			if span.Status().Code != tt.wantStatus {
				t.Errorf("span status = %v, want %v", span.Status().Code, tt.wantStatus)
			}
		})
	}
}

func TestRun_PanicIsRecordedAsFailure(t *testing.T) {
	runner, rec, _ := newRunner(t)

	env, err := runner.Run(context.Background(), bwuow.DefaultPolicy(), bwuow.Operation{
		Name: "lambdaHandler",
		Do:   func(context.Context) (any, error) { panic("boom") },
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	want := bwuow.Envelope{StatusCode: 500, Body: `{"error":"panic: boom"}`}
	if diff := cmp.Diff(want, env); diff != "" {
		t.Errorf("envelope mismatch (-want +got):\n%s", diff)
	}
	if n := countEvents(onlySpan(t, rec), "exception"); n != 1 {
		t.Errorf("exception events = %d, want 1", n)
	}
}

type nilPointerError struct{ msg string }

func (e *nilPointerError) Error() string { return e.msg }

func exceptionAttrs(t *testing.T, span sdktrace.ReadOnlySpan) map[attribute.Key]string {
	t.Helper()
	for _, ev := range span.Events() {
		if ev.Name != "exception" {
			continue
		}
		attrs := map[attribute.Key]string{}
		for _, kv := range ev.Attributes {
			attrs[kv.Key] = kv.Value.Emit()
		}
		return attrs
	}
	t.Fatal("span has no exception event")
	return nil
}

func TestRun_NilPointerError(t *testing.T) {
	for _, mode := range []bwuow.ErrorMode{bwuow.MapTo500, bwuow.Rethrow} {
		t.Run(string(mode), func(t *testing.T) {
			runner, rec, sink := newRunner(t)
			policy := bwuow.DefaultPolicy()
			policy.OnError = mode

			env, err := runner.Run(context.Background(), policy, bwuow.Operation{
				Name: "lambdaHandler",
				Do: func(context.Context) (any, error) {
					var e *nilPointerError
					return nil, e
				},
			})

			if mode == bwuow.Rethrow {
				if !errors.Is(err, bwuow.ErrOperationFailed) {
					t.Fatalf("err = %v, want ErrOperationFailed", err)
				}
				if err.Error() != "operation lambdaHandler failed: error" {
					t.Errorf("err = %q", err.Error())
				}
			} else {
				want := bwuow.Envelope{StatusCode: 500, Body: `{"error":"error"}`}
				if diff := cmp.Diff(want, env); diff != "" {
					t.Errorf("envelope mismatch (-want +got):\n%s", diff)
				}
			}

			span := onlySpan(t, rec)
			if span.Status().Code != codes.Error || span.Status().Description != "error" {
				t.Errorf("span status = %+v, want Error/error", span.Status())
			}
			if n := countEvents(span, "exception"); n != 1 {
				t.Errorf("exception events = %d, want 1", n)
			}
			records := sink.Records()
			if last := records[len(records)-1]; last.Severity != bwuow.SeverityError {
				t.Errorf("last severity = %v, want ERROR", last.Severity)
			}
		})
	}
}

func TestRun_RecordsUnderlyingException(t *testing.T) {
	runner, rec, _ := newRunner(t)

	_, _ = runner.Run(context.Background(), bwuow.DefaultPolicy(), bwuow.Operation{
		Name: "lambdaHandler",
		Do:   failingWith(&nilPointerError{msg: "testing error"}),
	})

	attrs := exceptionAttrs(t, onlySpan(t, rec))
	if got := attrs["exception.message"]; got != "testing error" {
		t.Errorf("exception.message = %q, want testing error", got)
	}
	if got := attrs["exception.type"]; got != "*bwuow_test.nilPointerError" {
		t.Errorf("exception.type = %q", got)
	}
}

func TestRun_UnencodableResult(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		result any
	}{
		{name: "channel", field: "users", result: make(chan int)},
		{name: "non object without field", field: "", result: []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, rec, _ := newRunner(t)

			env, err := runner.Run(context.Background(), bwuow.DefaultPolicy(), bwuow.Operation{
				Name:        "lambdaHandler",
				ResultField: tt.field,
				Do:          func(context.Context) (any, error) { return tt.result, nil },
			})
			if err != nil {
				t.Fatalf("Run error: %v", err)
			}
			if env.StatusCode != 500 {
				t.Errorf("status = %d, want 500", env.StatusCode)
			}
			if got := onlySpan(t, rec).Status().Code; got != codes.Error {
				t.Errorf("span status = %v, want Error", got)
			}
		})
	}
}

func TestRun_ObjectResultWithoutField(t *testing.T) {
	runner, _, sink := newRunner(t)

	env, err := runner.Run(context.Background(), bwuow.DefaultPolicy(), bwuow.Operation{
		Name: "lambdaHandler",
		Do: func(context.Context) (any, error) {
			return map[string]any{"message": "helloWorld", "users": []int{}}, nil
		},
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	want := bwuow.Envelope{StatusCode: 200, Body: `{"message":"helloWorld","users":[]}`}
	if diff := cmp.Diff(want, env); diff != "" {
		t.Errorf("envelope mismatch (-want +got):\n%s", diff)
	}
	records := sink.Records()
	if _, ok := records[len(records)-1].Attributes[bwuow.LogAttrResultCount]; ok {
		t.Error("object result should not carry a count")
	}
}

func TestRun_EmitLogs(t *testing.T) {
	tests := []struct {
		name   string
		points bwuow.LogPoints
		fail   bool
		want   []bwuow.Severity
	}{
		{name: "none on success", points: 0, want: nil},
		{name: "none on failure", points: 0, fail: true, want: nil},
		{name: "error only on success", points: bwuow.OnError, want: nil},
		{name: "error only on failure", points: bwuow.OnError, fail: true, want: []bwuow.Severity{bwuow.SeverityError}},
		{name: "start and success", points: bwuow.OnStart | bwuow.OnSuccess, want: []bwuow.Severity{bwuow.SeverityDebug, bwuow.SeverityInfo}},
		{name: "all on failure", points: bwuow.AllLogPoints, fail: true, want: []bwuow.Severity{bwuow.SeverityDebug, bwuow.SeverityError}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, _, sink := newRunner(t)
			do := func(context.Context) (any, error) { return []int{1}, nil }
			if tt.fail {
				do = failingWith(errors.New("testing error"))
			}

			_, _ = runner.Run(context.Background(), bwuow.Policy{EmitLogs: tt.points}, bwuow.Operation{
				Name:        "lambdaHandler",
				ResultField: "items",
				Do:          do,
			})

			var got []bwuow.Severity
			for _, rec := range sink.Records() {
				got = append(got, rec.Severity)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("severities mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRun_StartRecordOverrides(t *testing.T) {
	runner, _, sink := newRunner(t)

	_, _ = runner.Run(context.Background(), bwuow.Policy{EmitLogs: bwuow.OnStart}, bwuow.Operation{
		Name:          "lambdaHandler",
		StartSeverity: bwuow.SeverityInfo,
		StartBody:     "helloWorld",
		LogAttributes: map[string]any{"log.type": "custom"},
		Do:            func(context.Context) (any, error) { return map[string]any{}, nil },
	})

	records := sink.Records()
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Severity != bwuow.SeverityInfo || records[0].Body != "helloWorld" {
		t.Errorf("unexpected start record: %+v", records[0])
	}
	if records[0].Attributes["log.type"] != "custom" {
		t.Errorf("missing custom attribute: %v", records[0].Attributes)
	}
}

func TestRun_ConcurrentInvocationsAreIndependent(t *testing.T) {
	runner, rec, _ := newRunner(t)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			do := func(context.Context) (any, error) { return []int{i}, nil }
			if i%2 == 0 {
				do = failingWith(errors.New("testing error"))
			}
			_, _ = runner.Run(context.Background(), bwuow.DefaultPolicy(), bwuow.Operation{
				Name:        "lambdaHandler",
				ResultField: "items",
				Do:          do,
			})
		}()
	}
	wg.Wait()

	if got := len(rec.Ended()); got != 20 {
		t.Errorf("ended spans = %d, want 20", got)
	}
}
