package bwuow

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrorMode selects what happens to a failed operation once it has been instrumented.
type ErrorMode string

const (
	// MapTo500 converts a failure into a 500 envelope with an error body.
	MapTo500 ErrorMode = "map-to-500"
	// Rethrow returns the failure to the caller instead of an envelope.
	Rethrow ErrorMode = "rethrow"
)

// UnmarshalText implements encoding.TextUnmarshaler so the mode can be read from the environment.
func (m *ErrorMode) UnmarshalText(text []byte) error {
	switch v := ErrorMode(strings.TrimSpace(string(text))); v {
	case MapTo500, Rethrow:
		*m = v
		return nil
	default:
		return errors.Newf("unsupported error mode: %q (supported: %s, %s)", v, MapTo500, Rethrow)
	}
}

// CloseTiming selects when the span is closed.
type CloseTiming string

const (
	// CloseBeforeReturn closes the span as soon as the outcome is known.
	CloseBeforeReturn CloseTiming = "before-return"

	// CloseInCleanupOverridingReturn closes the span in the deferred cleanup and replaces
	// whatever was computed with [GenericEnvelope]. This reproduces a handler that returned
	// from its finally block; the real success or error envelope is lost. Only use it for
	// compatibility with callers that depend on that behavior.
	CloseInCleanupOverridingReturn CloseTiming = "in-cleanup-overriding-return"
)

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *CloseTiming) UnmarshalText(text []byte) error {
	switch v := CloseTiming(strings.TrimSpace(string(text))); v {
	case CloseBeforeReturn, CloseInCleanupOverridingReturn:
		*t = v
		return nil
	default:
		return errors.Newf("unsupported span close timing: %q (supported: %s, %s)",
			v, CloseBeforeReturn, CloseInCleanupOverridingReturn)
	}
}

// LogPoints is a set of lifecycle points that emit a log record.
type LogPoints uint8

const (
	OnStart LogPoints = 1 << iota
	OnSuccess
	OnError

	// AllLogPoints emits on every lifecycle point.
	AllLogPoints = OnStart | OnSuccess | OnError
)

var logPointNames = []struct {
	point LogPoints
	name  string
}{
	{OnStart, "onStart"},
	{OnSuccess, "onSuccess"},
	{OnError, "onError"},
}

// Has reports whether every point in q is part of the set.
func (p LogPoints) Has(q LogPoints) bool {
	return p&q == q
}

// String renders the set in the same comma separated form UnmarshalText accepts.
func (p LogPoints) String() string {
	names := make([]string, 0, len(logPointNames))
	for _, lp := range logPointNames {
		if p.Has(lp.point) {
			names = append(names, lp.name)
		}
	}
	return strings.Join(names, ",")
}

// UnmarshalText parses a comma separated list such as "onStart,onError".
// An empty string yields the empty set.
func (p *LogPoints) UnmarshalText(text []byte) error {
	var set LogPoints
	for _, part := range strings.Split(string(text), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		found := false
		for _, lp := range logPointNames {
			if strings.EqualFold(part, lp.name) {
				set |= lp.point
				found = true
				break
			}
		}
		if !found {
			return errors.Newf("unsupported log point: %q (supported: onStart, onSuccess, onError)", part)
		}
	}
	*p = set
	return nil
}

// Policy selects among the behavioral variants of [Runner.Run].
type Policy struct {
	OnError         ErrorMode
	SpanCloseTiming CloseTiming
	EmitLogs        LogPoints
}

// DefaultPolicy maps failures to 500, closes the span before returning and logs every
// lifecycle point.
func DefaultPolicy() Policy {
	return Policy{
		OnError:         MapTo500,
		SpanCloseTiming: CloseBeforeReturn,
		EmitLogs:        AllLogPoints,
	}
}

// Validate reports unknown modes. Empty fields are valid and take their default.
func (p Policy) Validate() error {
	switch p.OnError {
	case "", MapTo500, Rethrow:
	default:
		return errors.Newf("invalid policy: unsupported error mode %q", p.OnError)
	}
	switch p.SpanCloseTiming {
	case "", CloseBeforeReturn, CloseInCleanupOverridingReturn:
	default:
		return errors.Newf("invalid policy: unsupported span close timing %q", p.SpanCloseTiming)
	}
	if p.EmitLogs&^AllLogPoints != 0 {
		return errors.Newf("invalid policy: unknown log points %08b", uint8(p.EmitLogs))
	}
	return nil
}

// withDefaults fills empty modes. EmitLogs is left alone, the empty set means no logs.
func (p Policy) withDefaults() Policy {
	if p.OnError == "" {
		p.OnError = MapTo500
	}
	if p.SpanCloseTiming == "" {
		p.SpanCloseTiming = CloseBeforeReturn
	}
	return p
}
