// Copyright 2025 The gothread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lock implements the binary lock primitive.
//
// A Lock has two states, free and held. Acquire blocks until the lock is
// free and then takes it; TryAcquire takes it only if it is free right now.
// Release returns a held lock to free and fails with ErrAlreadyUnlocked when
// the lock is already free.
//
// Ownership is not tracked: any goroutine may release a lock that another
// goroutine acquired. The Barrier relies on this, passing its exit lock from
// one waiter to the next.
//
// Memory Model:
//
// The lock state is a single-slot channel. Acquire sends into the slot and
// Release receives from it, so every Release happens-before the Acquire that
// next succeeds, exactly as for sync.Mutex.
//
//	// Goroutine 1
//	l.Acquire()
//	x = 42
//	l.Release()
//
//	// Goroutine 2
//	l.Acquire() // observes x == 42
//
// Locked is informational only. Its answer can be stale by the time the
// caller looks at it and must not be used for synchronization.
package lock
