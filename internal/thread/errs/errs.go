// Package errs defines the error taxonomy shared by the thread primitives.
//
// Every error produced by this module belongs to exactly one Kind:
//   - KindUsage: misuse of a primitive (release of an unheld lock, invalid
//     stack size, barrier with no parties). Returned synchronously to the caller.
//   - KindPlatformUnsupported: the current platform cannot provide the
//     requested capability (changing stack size, process duplication).
//   - KindWorkUnitFailure: a spawned work unit returned an error or panicked.
//     These never reach the spawning goroutine; they are reported to the sink.
//
// Callers distinguish kinds with [IsUsage] and [IsPlatformUnsupported] so a
// missing feature can be skipped while misuse is treated as a bug.
package errs

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// Kind classifies an error.
type Kind int

const (
	// KindNone is returned by KindOf for errors not produced by this module.
	KindNone Kind = iota
	// KindUsage indicates misuse of a primitive.
	KindUsage
	// KindPlatformUnsupported indicates a capability the platform lacks.
	KindPlatformUnsupported
	// KindWorkUnitFailure indicates an unhandled failure inside a work unit.
	KindWorkUnitFailure
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage error"
	case KindPlatformUnsupported:
		return "platform unsupported"
	case KindWorkUnitFailure:
		return "unhandled work unit failure"
	default:
		return "unknown"
	}
}

// Error is a classified error raised by an operation.
type Error struct {
	// Kind is the taxonomy bucket.
	Kind Kind

	// Op names the operation that failed ("release", "stack_size", "fork").
	Op string

	// Msg is the human readable description.
	Msg string

	// Err is an optional underlying cause.
	Err error
}

// Markers matched by errors.Is against any error of the same Kind.
var (
	ErrUsage               = &Error{Kind: KindUsage}
	ErrPlatformUnsupported = &Error{Kind: KindPlatformUnsupported}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op == "" {
		return msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// Is makes markers match. A marker is an *Error with no Msg and no Err; it
// matches errors of the same Kind, and of the same Op when it names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Msg != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Usage creates a KindUsage error.
func Usage(op, format string, args ...any) *Error {
	return &Error{Kind: KindUsage, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Unsupported creates a KindPlatformUnsupported error.
func Unsupported(op, format string, args ...any) *Error {
	return &Error{Kind: KindPlatformUnsupported, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Failure wraps a work unit failure, attaching a stack trace.
//
// An error that already carries a go-errors trace anywhere in its chain
// keeps it, so the trace points at where the work unit created the error.
// Anything else is wrapped with go-errors at the caller; skip is the
// number of frames above the caller to omit, as for goerrors.Wrap.
func Failure(op string, cause any, skip int) *Error {
	if err, ok := cause.(error); ok && Stack(err) != nil {
		return &Error{Kind: KindWorkUnitFailure, Op: op, Msg: err.Error(), Err: err}
	}
	wrapped := goerrors.Wrap(cause, skip+1)
	return &Error{Kind: KindWorkUnitFailure, Op: op, Msg: wrapped.Error(), Err: wrapped}
}

// KindOf walks the error chain and returns the Kind of the first classified
// error found, or KindNone.
func KindOf(err error) Kind {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Kind
		case *goerrors.Error:
			err = e.Err
		default:
			err = errors.Unwrap(err)
		}
	}
	return KindNone
}

// IsUsage reports whether err is a KindUsage error.
func IsUsage(err error) bool {
	return KindOf(err) == KindUsage
}

// IsPlatformUnsupported reports whether err is a KindPlatformUnsupported error.
func IsPlatformUnsupported(err error) bool {
	return KindOf(err) == KindPlatformUnsupported
}

// Stack returns the stack frames carried by err when it wraps a go-errors
// error (as Failure does), or nil otherwise.
func Stack(err error) []goerrors.StackFrame {
	var ge *goerrors.Error
	if errors.As(err, &ge) {
		return ge.StackFrames()
	}
	return nil
}
