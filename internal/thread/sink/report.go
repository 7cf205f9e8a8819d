package sink

import (
	"fmt"
	"io"
	"strings"

	goerrors "github.com/go-errors/errors"

	"github.com/kolkov/gothread/internal/thread/errs"
	"github.com/kolkov/gothread/internal/thread/goid"
)

// TracebackHeader introduces the stack trace section of a report.
const TracebackHeader = "Traceback (most recent call first):"

// FailureReport describes one unhandled work unit failure.
type FailureReport struct {
	// Ident is the identity of the failing thread.
	Ident goid.ID

	// Entry is the name of the work unit function.
	Entry string

	// Panicked is true when the work unit panicked rather than returning an error.
	Panicked bool

	// Err is the failure, normally created by errs.Failure.
	Err error
}

// NewFailureReport builds a report for the failure err of thread id.
func NewFailureReport(id goid.ID, entry string, panicked bool, err error) *FailureReport {
	return &FailureReport{
		Ident:    id,
		Entry:    entry,
		Panicked: panicked,
		Err:      err,
	}
}

// Format writes the report to w.
//
// The output format:
//
//	==================
//	Unhandled exception in thread started by main.worker (goroutine 17)
//	panic: boom
//	Traceback (most recent call first):
//	  main.worker()
//	      /path/to/file.go:45
//	==================
//
//nolint:errcheck // Error handling omitted for diagnostic output formatting
func (r *FailureReport) Format(w io.Writer) {
	fmt.Fprintf(w, "==================\n")
	fmt.Fprintf(w, "Unhandled exception in thread started by %s (goroutine %d)\n", r.Entry, r.Ident)

	kind := "error"
	if r.Panicked {
		kind = "panic"
	}
	fmt.Fprintf(w, "%s: %s\n", kind, cause(r.Err))

	fmt.Fprintln(w, TracebackHeader)
	fmt.Fprint(w, formatStack(errs.Stack(r.Err)))
	fmt.Fprintf(w, "==================\n")
}

// String returns the formatted report.
func (r *FailureReport) String() string {
	var buf strings.Builder
	r.Format(&buf)
	return buf.String()
}

// cause returns the innermost message of err, without the taxonomy prefix.
func cause(err error) string {
	if err == nil {
		return "<nil>"
	}
	if e, ok := err.(*errs.Error); ok && e.Err != nil {
		err = e.Err
	}
	if ge, ok := err.(*goerrors.Error); ok && ge.Err != nil {
		return ge.Err.Error()
	}
	return err.Error()
}

// formatStack formats stack frames, skipping runtime frames and the
// spawner's own frames. A plain error returned by a work unit is wrapped
// inside the spawner, so its trace has nothing left; the report header
// still names the entry.
func formatStack(frames []goerrors.StackFrame) string {
	if len(frames) == 0 {
		return "  (no stack trace available)\n"
	}

	var buf strings.Builder
	for _, frame := range frames {
		if skipFrame(frame) {
			continue
		}

		buf.WriteString("  ")
		if frame.Package != "" {
			buf.WriteString(frame.Package)
			buf.WriteString(".")
		}
		buf.WriteString(frame.Name)
		buf.WriteString("()\n")

		fmt.Fprintf(&buf, "      %s:%d\n", frame.File, frame.LineNumber)
	}

	if buf.Len() == 0 {
		return "  (no frames outside the runtime; return a go-errors error to record where it was created)\n"
	}
	return buf.String()
}

func skipFrame(frame goerrors.StackFrame) bool {
	switch {
	case frame.Package == "runtime" || strings.HasPrefix(frame.Package, "runtime/"):
		return true
	case strings.HasSuffix(frame.Package, "/internal/thread/spawn") &&
		strings.HasPrefix(frame.Name, "(*Spawner)."):
		return true
	}
	return false
}
