package spawn

import (
	"context"
	"io"
	"reflect"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kolkov/gothread/internal/thread/errs"
	"github.com/kolkov/gothread/internal/thread/goid"
	"github.com/kolkov/gothread/internal/thread/metrics"
	"github.com/kolkov/gothread/internal/thread/registry"
	"github.com/kolkov/gothread/internal/thread/sink"
	"github.com/kolkov/gothread/internal/thread/stack"
)

// Entry is a work unit. A non-nil error is an unhandled failure.
type Entry func(args ...any) error

// ErrClosed is returned by Spawn after Close.
var ErrClosed = errs.Usage("spawn", "spawner is closed")

// ErrNilEntry is returned by Spawn when entry is nil.
var ErrNilEntry = errs.Usage("spawn", "first arg must be callable")

// Options holds the collaborators of a Spawner. Nil fields get defaults.
type Options struct {
	Registry *registry.Registry
	Stack    *stack.Config
	Sink     *sink.Sink
	Metrics  *metrics.Metrics
	Log      *logrus.Entry
}

// Spawner starts threads and keeps their bookkeeping.
type Spawner struct {
	registry *registry.Registry
	stack    *stack.Config
	sink     *sink.Sink
	metrics  *metrics.Metrics
	log      *logrus.Entry

	closed atomic.Bool
}

// New creates a Spawner.
func New(opts Options) *Spawner {
	if opts.Log == nil {
		l := logrus.New()
		l.Out = io.Discard
		opts.Log = logrus.NewEntry(l)
	}
	if opts.Registry == nil {
		opts.Registry = registry.New()
	}
	if opts.Stack == nil {
		opts.Stack = stack.New()
	}
	if opts.Sink == nil {
		opts.Sink = sink.New(nil, opts.Log)
	}

	return &Spawner{
		registry: opts.Registry,
		stack:    opts.Stack,
		sink:     opts.Sink,
		metrics:  opts.Metrics,
		log:      opts.Log.WithField("component", "spawn"),
	}
}

// Spawn starts a thread running entry(args...) and returns its identity.
func (s *Spawner) Spawn(entry Entry, args ...any) (goid.ID, error) {
	if entry == nil {
		return 0, ErrNilEntry
	}
	if s.closed.Load() {
		return 0, ErrClosed
	}

	h := registry.Handle{
		Entry:     entryName(entry),
		Args:      args,
		StackSize: s.stack.Get(),
		Started:   time.Now(),
	}

	s.registry.Inc()
	s.metrics.ThreadStarted()

	ready := make(chan goid.ID, 1)
	go s.run(ready, entry, h)

	return <-ready, nil
}

// run is the body of every spawned goroutine.
func (s *Spawner) run(ready chan<- goid.ID, entry Entry, h registry.Handle) {
	h.Ident = goid.Get()
	s.registry.Track(h)
	defer s.finish(h)

	log := s.log.WithFields(logrus.Fields{"ident": int64(h.Ident), "entry": h.Entry})
	log.WithField("stackSize", h.StackSize).Debug("thread started")

	ready <- h.Ident

	stack.Grow(h.StackSize)
	s.invoke(log, h, entry)
}

// invoke runs the work unit and converts its failures into reports.
func (s *Spawner) invoke(log *logrus.Entry, h registry.Handle, entry Entry) {
	returned := false
	defer func() {
		if returned {
			return
		}
		r := recover()
		if r == nil {
			// runtime.Goexit: the work unit called ExitThread.
			log.Debug("thread exited")
			return
		}
		s.fail(h, true, errs.Failure("spawn", r, 1))
	}()

	err := entry(h.Args...)
	returned = true

	if err != nil {
		s.fail(h, false, errs.Failure("spawn", err, 0))
	}
}

func (s *Spawner) fail(h registry.Handle, panicked bool, err error) {
	cause := "error"
	if panicked {
		cause = "panic"
	}
	s.metrics.ThreadFailed(cause)
	s.sink.Report(sink.NewFailureReport(h.Ident, h.Entry, panicked, err))
}

func (s *Spawner) finish(h registry.Handle) {
	if err := s.registry.Done(h.Ident); err != nil {
		s.log.WithError(err).Warn("thread registry out of balance")
	}
	s.metrics.ThreadFinished()
	s.log.WithField("ident", int64(h.Ident)).Debug("thread finished")
}

// ActiveCount returns the number of live threads.
func (s *Spawner) ActiveCount() int {
	return s.registry.Count()
}

// Handles returns a snapshot of the live threads.
func (s *Spawner) Handles() []registry.Handle {
	return s.registry.Handles()
}

// WaitIdle polls until ActiveCount is at most baseline.
func (s *Spawner) WaitIdle(ctx context.Context, baseline int) error {
	return s.registry.WaitIdle(ctx, baseline, 0)
}

// Stack returns the stack size setting used for new threads.
func (s *Spawner) Stack() *stack.Config {
	return s.stack
}

// Sink returns the failure sink.
func (s *Spawner) Sink() *sink.Sink {
	return s.sink
}

// Close makes later Spawn calls fail. Running threads are unaffected.
func (s *Spawner) Close() {
	s.closed.Store(true)
}

// ExitThread ends the calling thread's work unit without reporting a
// failure. Deferred calls run and the registry is decremented as for a
// normal return. Other threads are unaffected.
//
// ExitThread must be called from a spawned thread. Called from the main
// goroutine it ends main while other goroutines keep running.
func ExitThread() {
	runtime.Goexit()
}

func entryName(entry Entry) string {
	fn := runtime.FuncForPC(reflect.ValueOf(entry).Pointer())
	if fn == nil {
		return "<unknown>"
	}
	return fn.Name()
}
