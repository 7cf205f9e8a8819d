// Copyright 2025 The gothread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package registry tracks the live threads started by a spawner.
//
// The Registry keeps two views of the same population:
//   - an atomic counter, read by ActiveCount on every call without locking
//   - a table of Handles keyed by identity, used for diagnostics
//
// Invariant: Count() equals the number of threads started minus the number
// whose work unit has fully returned (normally, by panic, or via Goexit).
// It never goes negative. A Done without a matching Inc is a usage error
// and leaves the count unchanged.
//
// The count is eventually consistent with respect to unwinding: a thread
// that has returned from its work unit but not yet run its cleanup is still
// counted. Callers that need the baseline back poll with WaitIdle.
package registry

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"github.com/kolkov/gothread/internal/thread/errs"
	"github.com/kolkov/gothread/internal/thread/goid"
	"github.com/kolkov/gothread/internal/thread/lockcheck"
)

// DefaultPollInterval is the WaitIdle polling interval when none is given.
const DefaultPollInterval = 10 * time.Millisecond

// Handle describes one live thread.
type Handle struct {
	// Ident is the goroutine identity of the thread.
	Ident goid.ID

	// Entry is the name of the work unit function.
	Entry string

	// Args are the arguments passed to the work unit.
	Args []any

	// StackSize is the stack size configured when the thread was spawned.
	// 0 means the platform default.
	StackSize int

	// Started is when the spawn request was issued.
	Started time.Time
}

// Registry counts live threads. The zero value is not usable; use New.
type Registry struct {
	count atomic.Int64

	mu      lockcheck.Mutex
	handles map[goid.ID]Handle
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{handles: make(map[goid.ID]Handle)}
}

// Inc records a thread about to start. It is called by the spawner before
// the goroutine is launched so that the count never lags behind a running
// work unit.
func (r *Registry) Inc() {
	r.count.Add(1)
}

// Track records the handle of a started thread.
func (r *Registry) Track(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[h.Ident] = h
}

// Done records that the thread with the given identity has fully unwound.
// It must be called exactly once per Inc.
func (r *Registry) Done(id goid.ID) error {
	r.mu.Lock()
	delete(r.handles, id)
	r.mu.Unlock()

	for {
		cur := r.count.Load()
		if cur <= 0 {
			return errs.Usage("registry", "thread %d finished with no live threads counted", id)
		}
		if r.count.CompareAndSwap(cur, cur-1) {
			return nil
		}
	}
}

// Count returns the number of live threads.
func (r *Registry) Count() int {
	return int(r.count.Load())
}

// Handles returns a snapshot of the tracked threads ordered by identity.
func (r *Registry) Handles() []Handle {
	r.mu.Lock()
	handles := lo.Values(r.handles)
	r.mu.Unlock()

	slices.SortFunc(handles, func(a, b Handle) int {
		return int(a.Ident - b.Ident)
	})
	return handles
}

// Lookup returns the handle tracked for id.
func (r *Registry) Lookup(id goid.ID) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	return h, ok
}

// WaitIdle polls until Count() is at most baseline or ctx is done.
//
// This is not a join: it observes the count only, the same way a test
// harness waits for threads to exit. interval <= 0 selects
// DefaultPollInterval.
func (r *Registry) WaitIdle(ctx context.Context, baseline int, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if r.Count() <= baseline {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if r.Count() <= baseline {
				return nil
			}
		}
	}
}
