package lock

import (
	"context"

	"github.com/kolkov/gothread/internal/thread/errs"
)

// ErrAlreadyUnlocked is returned by Release when the lock is free.
var ErrAlreadyUnlocked = errs.Usage("release", "release unlocked lock")

// Observer receives lock events. It is used to feed metrics.
type Observer interface {
	// LockAcquired is called after every successful acquisition.
	// blocking reports whether the acquisition was allowed to wait.
	LockAcquired(blocking bool)
}

// Lock is a binary mutual-exclusion primitive without owner tracking.
//
// The zero value is not usable; create locks with New.
type Lock struct {
	// slot holds one token while the lock is held.
	slot chan struct{}

	observer Observer
}

// Option configures a Lock.
type Option func(*Lock)

// WithObserver attaches an Observer to the lock.
func WithObserver(o Observer) Option {
	return func(l *Lock) {
		l.observer = o
	}
}

// New creates a free lock.
func New(opts ...Option) *Lock {
	l := &Lock{slot: make(chan struct{}, 1)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire blocks until the lock is free, then takes it.
func (l *Lock) Acquire() {
	l.slot <- struct{}{}
	l.acquired(true)
}

// TryAcquire takes the lock if it is free and reports whether it did.
// It never blocks.
func (l *Lock) TryAcquire() bool {
	select {
	case l.slot <- struct{}{}:
		l.acquired(false)
		return true
	default:
		return false
	}
}

// AcquireBlocking is acquire(blocking): with blocking set it behaves like
// Acquire and returns true; otherwise it behaves like TryAcquire.
func (l *Lock) AcquireBlocking(blocking bool) bool {
	if !blocking {
		return l.TryAcquire()
	}
	l.Acquire()
	return true
}

// AcquireContext waits for the lock until ctx is done.
//
// The lock itself has no timeout; this is the caller-side bounded wait.
// On success it returns nil with the lock held. If ctx ends first it returns
// ctx.Err() and the lock is not held by the caller.
func (l *Lock) AcquireContext(ctx context.Context) error {
	// Prefer the lock if both are ready.
	if l.TryAcquire() {
		return nil
	}
	select {
	case l.slot <- struct{}{}:
		l.acquired(true)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the lock, letting exactly one blocked Acquire proceed.
// It returns ErrAlreadyUnlocked if the lock is free.
func (l *Lock) Release() error {
	select {
	case <-l.slot:
		return nil
	default:
		return ErrAlreadyUnlocked
	}
}

// Locked reports whether the lock is currently held.
func (l *Lock) Locked() bool {
	return len(l.slot) == 1
}

// With acquires the lock, runs fn and releases the lock, even if fn panics.
func (l *Lock) With(fn func()) (err error) {
	l.Acquire()
	defer func() {
		if rerr := l.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	fn()
	return nil
}

func (l *Lock) acquired(blocking bool) {
	if l.observer != nil {
		l.observer.LockAcquired(blocking)
	}
}
