package thread

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/kolkov/gothread/internal/thread/barrier"
	"github.com/kolkov/gothread/internal/thread/config"
	"github.com/kolkov/gothread/internal/thread/interrupt"
	"github.com/kolkov/gothread/internal/thread/lock"
	"github.com/kolkov/gothread/internal/thread/lockcheck"
	"github.com/kolkov/gothread/internal/thread/logging"
	"github.com/kolkov/gothread/internal/thread/metrics"
	"github.com/kolkov/gothread/internal/thread/registry"
	"github.com/kolkov/gothread/internal/thread/sink"
	"github.com/kolkov/gothread/internal/thread/spawn"
	"github.com/kolkov/gothread/internal/thread/stack"
)

// Config is the runtime configuration.
type Config = config.Config

// MetricsConfig configures the Prometheus collectors of a runtime.
type MetricsConfig = config.MetricsConfig

// LoadConfig reads the configuration from the YAML file at path (or the
// file named by GOTHREAD_CONFIG when path is empty) and the environment.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// Runtime owns the bookkeeping shared by the threads it starts: the live
// thread registry, the stack size setting, the error sink, the interrupt
// fan-out and, when enabled, the metrics registry.
type Runtime struct {
	cfg     Config
	log     *logrus.Entry
	metrics *metrics.Metrics

	spawner     *spawn.Spawner
	interrupter *interrupt.Interrupter
	sinkOut     io.Closer
}

// NewRuntime creates a Runtime from cfg. Zero fields take their defaults.
//
// Deadlock detection on the internal mutexes is process-wide: the first
// runtime created decides it from its DeadlockTimeout, and it is off when
// that is 0.
func NewRuntime(cfg Config) (*Runtime, error) {
	cfg, err := config.WithDefaults(cfg)
	if err != nil {
		return nil, err
	}

	applied := cfg.ApplyDeadlockOptions()

	log := logging.NewLogger(cfg, Version)
	if !applied && cfg.DeadlockTimeout != lockcheck.Timeout() {
		log.WithFields(logrus.Fields{
			"requested": cfg.DeadlockTimeout,
			"active":    lockcheck.Timeout(),
		}).Warn("deadlock detection already configured for this process")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	st := stack.New()
	if _, err := st.Set(cfg.StackSize); err != nil {
		return nil, err
	}

	out, err := cfg.OpenErrorSink()
	if err != nil {
		return nil, err
	}

	r := &Runtime{
		cfg:     cfg,
		log:     log,
		metrics: m,
		spawner: spawn.New(spawn.Options{
			Registry: registry.New(),
			Stack:    st,
			Sink:     sink.New(out, log),
			Metrics:  m,
			Log:      log,
		}),
		interrupter: interrupt.New(),
		sinkOut:     out,
	}

	log.WithFields(logrus.Fields{
		"stackSize": cfg.StackSize,
		"metrics":   cfg.Metrics.Enabled,
		"errorSink": cfg.ErrorSink,
	}).Debug("runtime created")

	return r, nil
}

var (
	defaultOnce    sync.Once
	defaultRuntime *Runtime
)

// Default returns the runtime used by the package level functions. It is
// configured from the environment on first use. An invalid environment
// configuration is reported on os.Stderr and replaced by the defaults.
func Default() *Runtime {
	defaultOnce.Do(func() {
		cfg, err := config.Load("")
		if err == nil {
			defaultRuntime, err = NewRuntime(cfg)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "gothread: %v; using default configuration\n", err)
			defaultRuntime, _ = NewRuntime(config.GetDefaultConfig())
		}
	})
	return defaultRuntime
}

// Config returns the configuration the runtime was created with.
func (r *Runtime) Config() Config {
	return r.cfg
}

// Logger returns the runtime's logger.
func (r *Runtime) Logger() *logrus.Entry {
	return r.log
}

// AllocateLock returns a new free lock.
func (r *Runtime) AllocateLock() *Lock {
	if r.metrics == nil {
		return lock.New()
	}
	return lock.New(lock.WithObserver(r.metrics))
}

// Spawn starts a thread running entry(args...) and returns its identity.
// It returns once the thread is running; entry may not have started yet.
func (r *Runtime) Spawn(entry Entry, args ...any) (Ident, error) {
	return r.spawner.Spawn(entry, args...)
}

// ActiveCount returns the number of live threads started by r. The value
// is eventually consistent: a thread that just finished may still count.
func (r *Runtime) ActiveCount() int {
	return r.spawner.ActiveCount()
}

// Handles returns a snapshot of the live threads, ordered by identity.
func (r *Runtime) Handles() []Handle {
	return r.spawner.Handles()
}

// WaitIdle polls until ActiveCount is at most baseline or ctx is done.
// It is not a join: it says nothing about which threads finished.
func (r *Runtime) WaitIdle(ctx context.Context, baseline int) error {
	return r.spawner.WaitIdle(ctx, baseline)
}

// StackSize returns the stack size used for new threads; 0 is the
// platform default.
func (r *Runtime) StackSize() int {
	return r.spawner.Stack().Get()
}

// SetStackSize sets the stack size for threads spawned afterwards and
// returns the previous value. size 0 restores the platform default.
//
// A size below MinStackSize or not a multiple of the page size fails with
// an error matching ErrInvalidStackSize. On platforms without support
// every non-zero size fails with an error matching ErrPlatformUnsupported.
// On error the setting is unchanged.
func (r *Runtime) SetStackSize(size int) (int, error) {
	old, err := r.spawner.Stack().Set(size)
	if err == nil {
		r.log.WithFields(logrus.Fields{"old": old, "new": size}).Debug("stack size changed")
	}
	return old, err
}

// NewBarrier creates a rendezvous for n parties.
func (r *Runtime) NewBarrier(n int) (*Barrier, error) {
	if r.metrics == nil {
		return barrier.New(n)
	}
	return barrier.New(n,
		barrier.WithLocks(r.AllocateLock(), r.AllocateLock()),
		barrier.WithObserver(r.metrics),
	)
}

// InterruptMain interrupts the main goroutine. See [InterruptMain].
func (r *Runtime) InterruptMain() error {
	return r.interrupter.InterruptMain()
}

// NotifyInterrupt subscribes to InterruptMain. stop ends the subscription.
func (r *Runtime) NotifyInterrupt() (<-chan struct{}, func()) {
	return r.interrupter.Notify()
}

// NotifyInterruptContext returns a context cancelled with cause
// ErrInterrupted at the next InterruptMain.
func (r *Runtime) NotifyInterruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return r.interrupter.NotifyContext(parent)
}

// SetErrorOutput redirects failure reports and returns the previous writer.
func (r *Runtime) SetErrorOutput(w io.Writer) io.Writer {
	return r.spawner.Sink().SetOutput(w)
}

// FailuresReported returns the number of failure reports written.
func (r *Runtime) FailuresReported() uint64 {
	return r.spawner.Sink().Reported()
}

// Gatherer exposes the runtime's metrics. With metrics disabled it is an
// empty registry.
func (r *Runtime) Gatherer() prometheus.Gatherer {
	return r.metrics.Gatherer()
}

// Close stops r from spawning and closes a file error sink. Running
// threads are unaffected.
func (r *Runtime) Close() error {
	r.spawner.Close()
	return r.sinkOut.Close()
}
