package bwuow

import (
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// State is the lifecycle position of a [Span].
type State int

const (
	StateOpened State = iota
	StateRunning
	StateSucceeded
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpened:
		return "OPENED"
	case StateRunning:
		return "RUNNING"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateFailed:
		return "FAILED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Span owns one OpenTelemetry span for the duration of a single invocation and enforces
// OPENED -> RUNNING -> (SUCCEEDED | FAILED) -> CLOSED. Transitions that are not allowed,
// including anything after CLOSED, are ignored.
type Span struct {
	span trace.Span

	mu    sync.Mutex
	state State
}

func newSpan(span trace.Span) *Span {
	return &Span{span: span, state: StateOpened}
}

// State returns the current lifecycle state.
func (s *Span) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SpanContext returns the identifiers of the underlying span.
func (s *Span) SpanContext() trace.SpanContext {
	return s.span.SpanContext()
}

// AddEvent records a timestamped event while the span is not closed.
func (s *Span) AddEvent(name string, kv ...attribute.KeyValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.span.AddEvent(name, trace.WithAttributes(kv...))
}

// Start moves the span from OPENED to RUNNING.
func (s *Span) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(StateOpened, StateRunning)
}

// Succeed records the completion event and sets status OK.
func (s *Span) Succeed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.transition(StateRunning, StateSucceeded) {
		return false
	}
	s.span.AddEvent(SpanEventCompleted)
	s.span.SetStatus(codes.Ok, "")
	return true
}

// Fail records err as an exception and sets status ERROR with message.
func (s *Span) Fail(err error, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.transition(StateRunning, StateFailed) {
		return false
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, message)
	return true
}

// Close ends the underlying span. Only the first call has an effect; it reports whether
// this call was the one that closed the span.
func (s *Span) Close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return false
	}
	s.state = StateClosed
	s.span.End()
	return true
}

func (s *Span) transition(from, to State) bool {
	if s.state != from {
		return false
	}
	s.state = to
	return true
}
