// Copyright 2025 The gothread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package barrier implements a reusable rendezvous built from two locks.
//
// A Barrier for n parties is made of exactly two locks and a counter:
//   - entry gates check-in: only one party at a time mutates the counter
//   - exit gates the drain: it is held while parties are checking in and
//     is passed from waiter to waiter, one at a time, once the last party
//     arrives
//
// Algorithm (per Enter call):
//
//	entry.Acquire()
//	waiting++
//	if waiting == n:            // last arriver
//	    waiting = n-1
//	    exit.Release()          // wake one waiter to start the drain
//	    return                  // entry stays held until the drain ends
//	entry.Release()
//	exit.Acquire()
//	waiting--
//	if waiting == 0:
//	    entry.Release()         // drain finished, open check-in again
//	    return
//	exit.Release()              // pass the wake-up to the next waiter
//
// Wake-ups are sequential, never a broadcast. Because entry stays held for
// the whole drain, no party can check in to trip k+1 before every party has
// left trip k, which makes the barrier reusable without re-construction.
//
// The exit lock is acquired by one goroutine and released by another, which
// relies on locks not tracking ownership.
package barrier

import (
	"sync/atomic"

	"github.com/kolkov/gothread/internal/thread/errs"
	"github.com/kolkov/gothread/internal/thread/lock"
)

// Observer is notified of completed trips.
type Observer interface {
	BarrierTripped()
}

// Barrier is a rendezvous point for a fixed number of parties.
type Barrier struct {
	n       int
	waiting int // guarded by entry, or by exit during the drain

	entry *lock.Lock
	exit  *lock.Lock

	trips    atomic.Uint64
	observer Observer
}

// Option configures a Barrier.
type Option func(*Barrier)

// WithObserver attaches an Observer.
func WithObserver(o Observer) Option {
	return func(b *Barrier) {
		b.observer = o
	}
}

// WithLocks supplies the two locks, for callers that allocate locks with
// their own observer. Both locks must be free.
func WithLocks(entry, exit *lock.Lock) Option {
	return func(b *Barrier) {
		b.entry = entry
		b.exit = exit
	}
}

// New creates a barrier for n parties. n must be at least 1.
func New(n int, opts ...Option) (*Barrier, error) {
	if n < 1 {
		return nil, errs.Usage("barrier", "number of parties must be at least 1, got %d", n)
	}

	b := &Barrier{n: n}
	for _, opt := range opts {
		opt(b)
	}
	if b.entry == nil {
		b.entry = lock.New()
	}
	if b.exit == nil {
		b.exit = lock.New()
	}

	// exit is closed until the first trip completes.
	b.exit.Acquire()
	return b, nil
}

// Enter blocks until all n parties have called Enter for the current trip.
func (b *Barrier) Enter() {
	b.entry.Acquire()
	b.waiting++
	if b.waiting == b.n {
		b.waiting = b.n - 1
		b.trips.Add(1)
		if b.observer != nil {
			b.observer.BarrierTripped()
		}
		if b.waiting == 0 {
			// Sole party: there is nobody to drain.
			b.mustRelease(b.entry)
			return
		}
		b.mustRelease(b.exit)
		return
	}
	b.mustRelease(b.entry)

	b.exit.Acquire()
	b.waiting--
	if b.waiting == 0 {
		b.mustRelease(b.entry)
		return
	}
	b.mustRelease(b.exit)
}

// Parties returns n.
func (b *Barrier) Parties() int {
	return b.n
}

// Trips returns the number of completed rendezvous.
func (b *Barrier) Trips() uint64 {
	return b.trips.Load()
}

// mustRelease releases a lock the algorithm guarantees is held.
func (b *Barrier) mustRelease(l *lock.Lock) {
	if err := l.Release(); err != nil {
		panic("barrier: " + err.Error())
	}
}
