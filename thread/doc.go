// Copyright 2025 The gothread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package thread provides low-level thread and lock primitives.
//
// The package exposes the contract of a minimal runtime "thread" module:
// binary locks, thread creation returning a stable identity, a live thread
// count, a process-wide stack size setting, a two-lock rendezvous barrier,
// duplicating the process from inside a thread, and delivering an
// interrupt to the main goroutine.
//
// # Quick Start
//
//	done := thread.AllocateLock()
//	done.Acquire()
//
//	_, err := thread.Spawn(func(args ...any) error {
//		defer done.Release()
//		fmt.Println("hello from", thread.GetIdent())
//		return nil
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	done.Acquire() // wait for the thread
//
// # API Overview
//
// The package provides functions for:
//   - Locks: [AllocateLock]
//   - Threads: [Spawn], [ActiveCount], [GetIdent], [ExitThread]
//   - Stack size: [StackSize], [SetStackSize]
//   - Rendezvous: [NewBarrier]
//   - Process duplication: [ForkSupported], [RegisterChild], [InitChild], [StartChild]
//   - Interrupts: [InterruptMain], [NotifyInterrupt]
//   - Version information: [GetInfo], [Version]
//
// # Threads
//
// A thread is a goroutine started by [Spawn]. Goroutines run in parallel
// on native threads and are preempted by the Go scheduler; this package
// adds identity, counting and failure reporting on top.
//
// There is no join. A caller that needs to wait for a thread hands it a
// lock, or polls [ActiveCount] (see [Runtime.WaitIdle]). A work unit that
// returns an error or panics is reported to the error sink (os.Stderr by
// default) with a traceback and the process keeps running.
//
// # Locks
//
// A [Lock] has no owner: any thread may release a lock another thread
// acquired. Releasing a free lock fails with [ErrAlreadyUnlocked]. A
// release followed by the acquire it unblocks is a happens-before edge.
//
// # Runtimes
//
// Package level functions use the [Default] runtime, configured from the
// environment on first use. Independent runtimes with their own counters,
// stack size, error sink and metrics are created with [NewRuntime].
//
// # Errors
//
// Misuse (releasing a free lock, an invalid stack size) is reported with
// errors for which [IsUsageError] is true. A capability the platform lacks
// is reported with errors for which [IsPlatformUnsupported] is true, so
// callers can skip a feature instead of failing.
package thread
