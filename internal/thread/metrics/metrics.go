// Package metrics provides Prometheus metrics for the thread primitives.
//
// Each Runtime owns its own registry so that independent runtimes (and
// tests) never share counters. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors of one runtime.
type Metrics struct {
	registry *prometheus.Registry

	// ThreadsActive tracks the live thread count.
	ThreadsActive prometheus.Gauge

	// ThreadsStarted counts spawned threads.
	ThreadsStarted prometheus.Counter

	// ThreadsFailed counts work units that ended with an unhandled failure.
	ThreadsFailed *prometheus.CounterVec

	// LockAcquisitions counts successful lock acquisitions by mode.
	LockAcquisitions *prometheus.CounterVec

	// BarrierTrips counts completed barrier rendezvous.
	BarrierTrips prometheus.Counter
}

// New creates the collectors under namespace and registers them.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ThreadsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "threads_active",
			Help:      "Number of live threads started by this runtime",
		}),
		ThreadsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threads_started_total",
			Help:      "Total threads started",
		}),
		ThreadsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threads_failed_total",
			Help:      "Total work units ended by an unhandled failure, by cause",
		}, []string{"cause"}),
		LockAcquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_acquire_total",
			Help:      "Total successful lock acquisitions by mode",
		}, []string{"mode"}),
		BarrierTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "barrier_trips_total",
			Help:      "Total completed barrier rendezvous",
		}),
	}

	m.registry.MustRegister(
		m.ThreadsActive,
		m.ThreadsStarted,
		m.ThreadsFailed,
		m.LockAcquisitions,
		m.BarrierTrips,
	)
	return m
}

// Gatherer returns the registry for exposition.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// ThreadStarted records a spawn.
func (m *Metrics) ThreadStarted() {
	if m == nil {
		return
	}
	m.ThreadsStarted.Inc()
	m.ThreadsActive.Inc()
}

// ThreadFinished records a thread fully unwinding.
func (m *Metrics) ThreadFinished() {
	if m == nil {
		return
	}
	m.ThreadsActive.Dec()
}

// ThreadFailed records an unhandled failure. cause is "panic" or "error".
func (m *Metrics) ThreadFailed(cause string) {
	if m == nil {
		return
	}
	m.ThreadsFailed.WithLabelValues(cause).Inc()
}

// LockAcquired implements lock.Observer.
func (m *Metrics) LockAcquired(blocking bool) {
	if m == nil {
		return
	}
	mode := "nonblocking"
	if blocking {
		mode = "blocking"
	}
	m.LockAcquisitions.WithLabelValues(mode).Inc()
}

// BarrierTripped records one completed rendezvous.
func (m *Metrics) BarrierTripped() {
	if m == nil {
		return
	}
	m.BarrierTrips.Inc()
}
