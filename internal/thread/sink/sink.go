// Package sink reports unhandled work unit failures.
//
// A work unit that returns an error or panics must not crash the process
// and its failure never propagates to the spawning goroutine (there is no
// join). Instead the spawner hands a FailureReport to a Sink, which writes a
// human readable report with a stack trace to its writer (os.Stderr unless
// configured otherwise) and logs a structured entry.
//
// Reports are written under a mutex so concurrent failures do not
// interleave.
package sink

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/kolkov/gothread/internal/thread/lockcheck"
)

// Sink is the destination of failure reports.
type Sink struct {
	mu  lockcheck.Mutex
	out io.Writer

	log      *logrus.Entry
	reported atomic.Uint64
}

// New creates a Sink writing to out. A nil out selects os.Stderr and a nil
// log discards structured entries.
func New(out io.Writer, log *logrus.Entry) *Sink {
	if out == nil {
		out = os.Stderr
	}
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = logrus.NewEntry(l)
	}
	return &Sink{out: out, log: log.WithField("component", "sink")}
}

// SetOutput replaces the writer and returns the previous one.
func (s *Sink) SetOutput(w io.Writer) io.Writer {
	if w == nil {
		w = os.Stderr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.out
	s.out = w
	return old
}

// Report writes r to the sink.
func (s *Sink) Report(r *FailureReport) {
	s.reported.Add(1)

	s.log.WithFields(logrus.Fields{
		"ident":    int64(r.Ident),
		"entry":    r.Entry,
		"panicked": r.Panicked,
	}).Error(cause(r.Err))

	s.mu.Lock()
	defer s.mu.Unlock()
	r.Format(s.out)
}

// Reported returns the number of reports written.
func (s *Sink) Reported() uint64 {
	return s.reported.Load()
}
