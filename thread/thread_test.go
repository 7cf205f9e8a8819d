package thread

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kolkov/gothread/internal/thread/lockcheck"
)

func TestMain(m *testing.M) {
	if InitChild() {
		return
	}
	goleak.VerifyTestMain(m)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newRuntime(t *testing.T, cfg Config) *Runtime {
	t.Helper()
	r, err := NewRuntime(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func waitIdle(t *testing.T, r *Runtime, baseline int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, r.WaitIdle(ctx, baseline))
}

func TestLock(t *testing.T) {
	l := AllocateLock()

	assert.False(t, l.Locked(), "lock created in acquired state")
	assert.True(t, l.AcquireBlocking(false), "lock not acquired with blocking=false")
	assert.True(t, l.Locked(), "lock not locked after acquire")
	assert.False(t, l.AcquireBlocking(false), "held lock acquired again")
	require.NoError(t, l.Release())
	assert.False(t, l.Locked(), "lock still locked after release")

	err := l.Release()
	require.ErrorIs(t, err, ErrAlreadyUnlocked)
	assert.True(t, IsUsageError(err))
}

func TestNonOwnerRelease(t *testing.T) {
	r := newRuntime(t, Config{})
	l := r.AllocateLock()
	l.Acquire()

	released := make(chan error, 1)
	_, err := r.Spawn(func(...any) error {
		released <- l.Release()
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, <-released)
	assert.True(t, l.TryAcquire())
	require.NoError(t, l.Release())
	waitIdle(t, r, 0)
}

func TestSpawnIdentity(t *testing.T) {
	r := newRuntime(t, Config{})

	got := make(chan Ident, 1)
	id, err := r.Spawn(func(...any) error {
		got <- GetIdent()
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, id, <-got)
	assert.NotEqual(t, GetIdent(), id)
	waitIdle(t, r, 0)
}

func TestActiveCount(t *testing.T) {
	r := newRuntime(t, Config{})
	orig := r.ActiveCount()

	mut := r.AllocateLock()
	mut.Acquire()
	_, err := r.Spawn(func(...any) error {
		mut.Acquire()
		return mut.Release()
	})
	require.NoError(t, err)

	assert.Equal(t, orig+1, r.ActiveCount())
	require.Len(t, r.Handles(), 1)

	require.NoError(t, mut.Release())
	waitIdle(t, r, orig)
}

func TestFailureReported(t *testing.T) {
	r := newRuntime(t, Config{})
	out := &syncBuffer{}
	r.SetErrorOutput(out)
	c := r.ActiveCount()

	started := r.AllocateLock()
	started.Acquire()
	_, err := r.Spawn(func(...any) error {
		_ = started.Release()
		panic("syntax error")
	})
	require.NoError(t, err)

	started.Acquire()
	waitIdle(t, r, c)
	require.Eventually(t, func() bool { return r.FailuresReported() == 1 }, time.Second, time.Millisecond)
	assert.Contains(t, out.String(), "Traceback")
}

func TestFailureToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failures.log")
	r, err := NewRuntime(Config{ErrorSink: path})
	require.NoError(t, err)

	_, err = r.Spawn(func(...any) error {
		return os.ErrNotExist
	})
	require.NoError(t, err)

	waitIdle(t, r, 0)
	require.Eventually(t, func() bool { return r.FailuresReported() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, r.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "file does not exist")

	_, err = r.Spawn(func(...any) error { return nil })
	assert.True(t, IsUsageError(err), "spawn after Close must fail")
}

func TestExitThread(t *testing.T) {
	r := newRuntime(t, Config{})
	out := &syncBuffer{}
	r.SetErrorOutput(out)

	_, err := r.Spawn(func(...any) error {
		ExitThread()
		return nil
	})
	require.NoError(t, err)

	waitIdle(t, r, 0)
	assert.Empty(t, out.String())
	assert.Equal(t, uint64(0), r.FailuresReported())
}

func TestStackSize(t *testing.T) {
	r := newRuntime(t, Config{})
	assert.Equal(t, 0, r.StackSize(), "initial stack size is not 0")

	_, err := r.SetStackSize(4096)
	if IsPlatformUnsupported(err) {
		require.ErrorIs(t, err, ErrPlatformUnsupported)
		t.Skip("platform does not support changing thread stack size")
	}
	require.ErrorIs(t, err, ErrInvalidStackSize)
	assert.True(t, IsUsageError(err))

	for _, size := range []int{262144, 0x100000, 0} {
		_, err := r.SetStackSize(size)
		require.NoError(t, err, "stack_size(%d) failed - should succeed", size)
		assert.Equal(t, size, r.StackSize())
	}

	prev, err := r.SetStackSize(262144)
	require.NoError(t, err)
	assert.Equal(t, 0, prev)

	done := r.AllocateLock()
	done.Acquire()
	_, err = r.Spawn(func(...any) error { return done.Release() })
	require.NoError(t, err)
	done.Acquire()
	waitIdle(t, r, 0)
}

func TestNewRuntimeInvalidStackSize(t *testing.T) {
	_, err := NewRuntime(Config{StackSize: 4096})
	require.Error(t, err)
	assert.True(t, IsUsageError(err) || IsPlatformUnsupported(err))

	_, err = NewRuntime(Config{StackSize: -1})
	assert.Error(t, err)
}

func TestBarrier(t *testing.T) {
	r := newRuntime(t, Config{Metrics: MetricsConfig{Enabled: true}})

	const n = 5
	b, err := r.NewBarrier(n)
	require.NoError(t, err)

	done := r.AllocateLock()
	done.Acquire()
	var mu sync.Mutex
	finished := 0
	for i := 0; i < n; i++ {
		_, err := r.Spawn(func(...any) error {
			for trip := 0; trip < 3; trip++ {
				b.Enter()
			}
			mu.Lock()
			defer mu.Unlock()
			finished++
			if finished == n {
				return done.Release()
			}
			return nil
		})
		require.NoError(t, err)
	}

	done.Acquire()
	waitIdle(t, r, 0)
	assert.Equal(t, uint64(3), b.Trips())

	_, err = r.NewBarrier(0)
	assert.True(t, IsUsageError(err))
}

func TestMetricsExposed(t *testing.T) {
	r := newRuntime(t, Config{Metrics: MetricsConfig{Enabled: true, Namespace: "demo"}})

	l := r.AllocateLock()
	l.Acquire()
	require.NoError(t, l.Release())

	_, err := r.Spawn(func(...any) error { return nil })
	require.NoError(t, err)
	waitIdle(t, r, 0)

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "demo_threads_started_total")
	assert.Contains(t, names, "demo_lock_acquire_total")
}

func TestMetricsDisabled(t *testing.T) {
	r := newRuntime(t, Config{})

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}

func TestInterruptMain(t *testing.T) {
	r := newRuntime(t, Config{})

	ch, stop := r.NotifyInterrupt()
	defer stop()

	_, err := r.Spawn(func(...any) error {
		return r.InterruptMain()
	})
	require.NoError(t, err)

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("main goroutine was not interrupted")
	}
	waitIdle(t, r, 0)
	assert.Equal(t, uint64(0), r.FailuresReported())
}

func TestInterruptContext(t *testing.T) {
	r := newRuntime(t, Config{})

	ctx, stop := r.NotifyInterruptContext(context.Background())
	defer stop()

	require.NoError(t, r.InterruptMain())
	<-ctx.Done()
	assert.ErrorIs(t, context.Cause(ctx), ErrInterrupted)
}

func TestForkInThread(t *testing.T) {
	if !ForkSupported() {
		_, err := StartChild("ready")
		assert.True(t, IsPlatformUnsupported(err))
		t.Skip("process duplication not supported on this platform")
	}

	r := newRuntime(t, Config{})
	done := r.AllocateLock()
	done.Acquire()

	var ready string
	var status int
	_, err := r.Spawn(func(...any) error {
		defer func() { _ = done.Release() }()
		c, err := StartChild("ready")
		if err != nil {
			return err
		}
		b, err := c.ReadReady(2)
		ready = string(b)
		if err != nil {
			_, _ = c.Wait()
			return err
		}
		status, err = c.Wait()
		return err
	})
	require.NoError(t, err)

	done.Acquire()
	waitIdle(t, r, 0)
	assert.Equal(t, "OK", ready)
	assert.Equal(t, 0, status)
	assert.Equal(t, uint64(0), r.FailuresReported())
}

func TestStartChildUnknown(t *testing.T) {
	if !ForkSupported() {
		t.Skip("process duplication not supported on this platform")
	}
	_, err := StartChild("missing")
	require.ErrorIs(t, err, ErrUnknownChild)
}

func TestDefault(t *testing.T) {
	assert.Same(t, Default(), Default())
	assert.GreaterOrEqual(t, ActiveCount(), 0)
	assert.Equal(t, StackSize(), Default().StackSize())
}

func TestGetInfo(t *testing.T) {
	info := GetInfo()

	assert.Equal(t, Version, info.Version)
	assert.True(t, strings.Contains(info.Platform, "/"))
	assert.Equal(t, ForkSupported(), info.ForkSupported)
}

func TestCompareVersion(t *testing.T) {
	assert.Equal(t, 0, CompareVersion(Version))
	assert.Equal(t, 0, CompareVersion("v"+Version))
	assert.Equal(t, -1, CompareVersion("0.0.9"))
	assert.Equal(t, 1, CompareVersion("v1.0.0"))
	assert.Equal(t, -1, CompareVersion("not-a-version"))

	assert.True(t, AtLeast("0.1"))
	assert.False(t, AtLeast("2.0.0"))
	assert.False(t, AtLeast("garbage"))
}

func TestNewRuntimeLeavesDeadlockDetectionOff(t *testing.T) {
	newRuntime(t, Config{})
	assert.False(t, lockcheck.Enabled())

	// Detection is settled by the first runtime of the process.
	newRuntime(t, Config{DeadlockTimeout: time.Minute})
	assert.False(t, lockcheck.Enabled())
}

func TestNewRuntimeAppliesDeadlockTimeout(t *testing.T) {
	if !ForkSupported() {
		t.Skip("process duplication not supported on this platform")
	}

	c, err := StartChild("deadlock-options")
	require.NoError(t, err)
	out, err := io.ReadAll(c.Reader())
	require.NoError(t, err)
	status, err := c.Wait()
	require.NoError(t, err)

	require.Equal(t, 0, status, string(out))
	assert.Equal(t, "false true 123ms", string(out))
}
