package thread_test

import (
	"fmt"

	"github.com/kolkov/gothread/thread"
)

// Example starts a thread and waits for it with a lock.
func Example() {
	done := thread.AllocateLock()
	done.Acquire()

	_, err := thread.Spawn(func(args ...any) error {
		fmt.Println("hello from", args[0])
		return done.Release()
	}, "a thread")
	if err != nil {
		fmt.Println(err)
		return
	}

	done.Acquire()
	_ = done.Release()

	// Output:
	// hello from a thread
}

// ExampleNewBarrier runs three threads through two rendezvous.
func ExampleNewBarrier() {
	const parties = 3

	b, err := thread.NewBarrier(parties)
	if err != nil {
		fmt.Println(err)
		return
	}

	mu := thread.AllocateLock()
	done := thread.AllocateLock()
	done.Acquire()
	left := parties

	for i := 0; i < parties; i++ {
		_, _ = thread.Spawn(func(...any) error {
			b.Enter()
			b.Enter()
			return mu.With(func() {
				left--
				if left == 0 {
					_ = done.Release()
				}
			})
		})
	}

	done.Acquire()
	fmt.Println("trips:", b.Trips())

	// Output:
	// trips: 2
}

// ExampleLock_Release shows that releasing a free lock is a usage error.
func ExampleLock_Release() {
	l := thread.AllocateLock()

	err := l.Release()
	fmt.Println(err)
	fmt.Println(thread.IsUsageError(err))

	// Output:
	// release: release unlocked lock
	// true
}

// ExampleNewRuntime creates an isolated runtime.
func ExampleNewRuntime() {
	r, err := thread.NewRuntime(thread.Config{StackSize: 0x100000})
	if err != nil {
		fmt.Println(thread.IsPlatformUnsupported(err))
		return
	}
	defer r.Close()

	fmt.Println(r.StackSize())

	// Output:
	// 1048576
}
