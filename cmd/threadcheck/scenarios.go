package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kolkov/gothread/internal/thread/lockcheck"
	"github.com/kolkov/gothread/thread"
)

const (
	numTasks   = 10
	numTrips   = 3
	readyChild = "ready"
)

// errSkip marks a scenario the platform cannot run.
var errSkip = errors.New("skipped")

func skipf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errSkip}, args...)...)
}

// env is what a scenario runs against.
type env struct {
	rt      *thread.Runtime
	out     io.Writer
	print   *thread.Lock
	verbose bool
}

// verbosef prints under the print lock so lines from tasks do not interleave.
func (e *env) verbosef(format string, args ...any) {
	if !e.verbose {
		return
	}
	_ = e.print.With(func() {
		fmt.Fprintf(e.out, format, args...)
	})
}

type scenario struct {
	name string
	help string
	run  func(ctx context.Context, e *env) error
}

var scenarios = []scenario{
	{"start", "spawn 10 tasks; the last to finish releases a completion lock", startScenario},
	{"count", "live thread count rises while a task blocks and returns to baseline", countScenario},
	{"failure", "a panicking task prints a traceback and the count recovers", failureScenario},
	{"stack-size", "stack size validation, read-back and tasks under 256 KiB and 1 MiB", stackSizeScenario},
	{"barrier", "10 tasks meet at a two-lock barrier 3 times", barrierScenario},
	{"fork", "a thread duplicates the process; the child reports OK and exits 0", forkScenario},
	{"interrupt", "a thread interrupts the main goroutine", interruptScenario},
}

func scenarioHelp() string {
	var b strings.Builder
	for _, sc := range scenarios {
		fmt.Fprintf(&b, "  %-11s %s\n", sc.name, sc.help)
	}
	return b.String()
}

func sleepRandom(random *thread.Lock, rng *rand.Rand) time.Duration {
	var delay time.Duration
	_ = random.With(func() {
		delay = time.Duration(rng.Int63n(int64(100 * time.Microsecond)))
	})
	time.Sleep(delay)
	return delay
}

// runTasks spawns numTasks tasks that sleep a random delay and decrement a
// shared counter; the last one releases the completion lock.
func runTasks(ctx context.Context, e *env) error {
	done := e.rt.AllocateLock()
	running := e.rt.AllocateLock()
	random := e.rt.AllocateLock()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	created, active := 0, 0
	done.Acquire()

	task := func(args ...any) error {
		ident := args[0].(int)
		delay := sleepRandom(random, rng)
		e.verbosef("task %d slept %s\n", ident, delay)
		return running.With(func() {
			active--
			if created == numTasks && active == 0 {
				_ = done.Release()
			}
		})
	}

	for i := 0; i < numTasks; i++ {
		var err error
		_ = running.With(func() {
			if _, err = e.rt.Spawn(task, i); err == nil {
				created++
				active++
			}
		})
		if err != nil {
			return err
		}
	}

	if err := done.AcquireContext(ctx); err != nil {
		return fmt.Errorf("waiting for tasks: %w", err)
	}
	return e.rt.WaitIdle(ctx, 0)
}

func startScenario(ctx context.Context, e *env) error {
	return runTasks(ctx, e)
}

func countScenario(ctx context.Context, e *env) error {
	orig := e.rt.ActiveCount()

	mut := e.rt.AllocateLock()
	mut.Acquire()
	if _, err := e.rt.Spawn(func(...any) error {
		mut.Acquire()
		return mut.Release()
	}); err != nil {
		return err
	}

	if got := e.rt.ActiveCount(); got != orig+1 {
		_ = mut.Release()
		return fmt.Errorf("active count %d, want %d", got, orig+1)
	}
	if err := mut.Release(); err != nil {
		return err
	}
	return e.rt.WaitIdle(ctx, orig)
}

type lockedBuffer struct {
	mu  lockcheck.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func failureScenario(ctx context.Context, e *env) error {
	buf := &lockedBuffer{}
	old := e.rt.SetErrorOutput(buf)
	defer e.rt.SetErrorOutput(old)

	c := e.rt.ActiveCount()
	started := e.rt.AllocateLock()
	started.Acquire()
	if _, err := e.rt.Spawn(func(...any) error {
		_ = started.Release()
		panic("syntax error")
	}); err != nil {
		return err
	}

	if err := started.AcquireContext(ctx); err != nil {
		return err
	}
	if err := e.rt.WaitIdle(ctx, c); err != nil {
		return err
	}
	if !strings.Contains(buf.String(), "Traceback") {
		return fmt.Errorf("no traceback in failure report: %q", buf.String())
	}
	e.verbosef("%s", buf.String())
	return nil
}

func stackSizeScenario(ctx context.Context, e *env) error {
	if size := e.rt.StackSize(); size != 0 {
		return fmt.Errorf("initial stack size is %d, not 0", size)
	}

	_, err := e.rt.SetStackSize(4096)
	switch {
	case thread.IsPlatformUnsupported(err):
		return skipf("setting thread stack size not supported")
	case err == nil:
		return fmt.Errorf("stack size 4096 accepted")
	case !errors.Is(err, thread.ErrInvalidStackSize):
		return fmt.Errorf("stack size 4096: unexpected error: %w", err)
	}

	for _, size := range []int{262144, 0x100000, 0} {
		if _, err := e.rt.SetStackSize(size); err != nil {
			return fmt.Errorf("stack_size(%d) failed - should succeed: %w", size, err)
		}
		if got := e.rt.StackSize(); got != size {
			return fmt.Errorf("stack_size not reset to %d, got %d", size, got)
		}
	}

	defer func() { _, _ = e.rt.SetStackSize(0) }()
	for _, size := range []int{262144, 0x100000} {
		e.verbosef("trying stack_size = (%d)\n", size)
		if _, err := e.rt.SetStackSize(size); err != nil {
			return err
		}
		if err := runTasks(ctx, e); err != nil {
			return fmt.Errorf("tasks with stack size %d: %w", size, err)
		}
	}
	return nil
}

func barrierScenario(ctx context.Context, e *env) error {
	b, err := e.rt.NewBarrier(numTasks)
	if err != nil {
		return err
	}

	done := e.rt.AllocateLock()
	running := e.rt.AllocateLock()
	random := e.rt.AllocateLock()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var arrivals atomic.Int64
	var early atomic.Bool
	left := numTasks
	done.Acquire()

	task := func(args ...any) error {
		ident := args[0].(int)
		for trip := 0; trip < numTrips; trip++ {
			if ident != 0 {
				sleepRandom(random, rng)
			}
			e.verbosef("task %d entering %d\n", ident, trip)
			arrivals.Add(1)
			b.Enter()
			if arrivals.Load() < int64((trip+1)*numTasks) {
				early.Store(true)
			}
			e.verbosef("task %d leaving barrier\n", ident)
		}
		return running.With(func() {
			left--
			if left == 0 {
				_ = done.Release()
			}
		})
	}

	for i := 0; i < numTasks; i++ {
		if _, err := e.rt.Spawn(task, i); err != nil {
			return err
		}
	}

	if err := done.AcquireContext(ctx); err != nil {
		return fmt.Errorf("waiting for barrier tasks: %w", err)
	}
	if early.Load() {
		return fmt.Errorf("a task left the barrier before all tasks arrived")
	}
	if trips := b.Trips(); trips != numTrips {
		return fmt.Errorf("barrier tripped %d times, want %d", trips, numTrips)
	}
	return e.rt.WaitIdle(ctx, 0)
}

func forkScenario(ctx context.Context, e *env) error {
	if !thread.ForkSupported() {
		return skipf("process duplication not supported")
	}

	done := e.rt.AllocateLock()
	done.Acquire()

	var (
		ready  []byte
		status = -1
		ferr   error
	)
	if _, err := e.rt.Spawn(func(...any) error {
		defer func() { _ = done.Release() }()

		c, err := thread.StartChild(readyChild)
		if err != nil {
			ferr = err
			return nil
		}
		e.verbosef("child %d started\n", c.Pid())
		ready, ferr = c.ReadReady(2)
		status, err = c.Wait()
		if ferr == nil {
			ferr = err
		}
		return nil
	}); err != nil {
		return err
	}

	if err := done.AcquireContext(ctx); err != nil {
		return fmt.Errorf("waiting for forking thread: %w", err)
	}
	switch {
	case ferr != nil:
		return ferr
	case string(ready) != "OK":
		return fmt.Errorf("child wrote %q, want %q", ready, "OK")
	case status != 0:
		return fmt.Errorf("child exited with status %d", status)
	}
	return e.rt.WaitIdle(ctx, 0)
}

func interruptScenario(ctx context.Context, e *env) error {
	ch, stop := e.rt.NotifyInterrupt()
	defer stop()

	if _, err := e.rt.Spawn(func(...any) error {
		return e.rt.InterruptMain()
	}); err != nil {
		return err
	}

	select {
	case <-ch:
	case <-ctx.Done():
		return fmt.Errorf("main goroutine not interrupted: %w", ctx.Err())
	}
	return e.rt.WaitIdle(ctx, 0)
}
