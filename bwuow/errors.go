package bwuow

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrOperationFailed matches every failure produced by [Runner.Run] with errors.Is.
var ErrOperationFailed = errors.New("operation failed")

// OperationFailedError wraps the error of a failed operation. It is the only error kind
// that originates from this package.
type OperationFailedError struct {
	Operation string
	Err       error
}

func newOperationFailed(operation string, err error) *OperationFailedError {
	return &OperationFailedError{Operation: operation, Err: err}
}

func (e *OperationFailedError) Error() string {
	return fmt.Sprintf("operation %s failed: %s", e.Operation, e.Message())
}

// Message returns the underlying error text, or "error" when it has none.
func (e *OperationFailedError) Message() string {
	if msg, ok := errorText(e.Err); ok && msg != "" {
		return msg
	}
	return fallbackErrorMessage
}

// recordable returns the error to record on the span: the underlying error, or e itself
// when the underlying error cannot produce its text.
func (e *OperationFailedError) recordable() error {
	if _, ok := errorText(e.Err); ok {
		return e.Err
	}
	return e
}

func (e *OperationFailedError) Unwrap() error { return e.Err }

// Is makes every OperationFailedError match ErrOperationFailed.
func (e *OperationFailedError) Is(target error) bool {
	return target == ErrOperationFailed
}

// panicError converts a recovered panic value into an error.
func panicError(p any) error {
	if err, ok := p.(error); ok {
		return errors.Wrap(err, "panic")
	}
	return errors.Newf("panic: %v", p)
}

// errorText calls err.Error(), reporting false for a nil error or one whose Error method
// panics, such as a nil pointer stored in an error interface.
func errorText(err error) (msg string, ok bool) {
	if err == nil {
		return "", false
	}
	defer func() {
		if recover() != nil {
			msg, ok = "", false
		}
	}()
	return err.Error(), true
}

func typeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", v)
}
