package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadLifecycle(t *testing.T) {
	m := New("gothread")

	m.ThreadStarted()
	m.ThreadStarted()
	m.ThreadFinished()
	m.ThreadFailed("panic")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ThreadsStarted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ThreadsActive))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ThreadsFailed.WithLabelValues("panic")))
}

func TestLockAndBarrier(t *testing.T) {
	m := New("gothread")

	m.LockAcquired(true)
	m.LockAcquired(false)
	m.LockAcquired(false)
	m.BarrierTripped()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.LockAcquisitions.WithLabelValues("blocking")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.LockAcquisitions.WithLabelValues("nonblocking")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BarrierTrips))
}

func TestGatherer(t *testing.T) {
	m := New("gothread")
	m.ThreadStarted()

	families, err := m.Gatherer().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["gothread_threads_started_total"])
	assert.True(t, names["gothread_threads_active"])
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	// This should not panic
	m.ThreadStarted()
	m.ThreadFinished()
	m.ThreadFailed("error")
	m.LockAcquired(true)
	m.BarrierTripped()

	_, err := m.Gatherer().Gather()
	require.NoError(t, err)
}
