// Package interrupt delivers an asynchronous interrupt to the main goroutine.
//
// Go has no way to raise an exception inside another goroutine, so the main
// goroutine opts in: it subscribes with Notify (or NotifyContext) and
// watches the returned channel or context. InterruptMain, called from any
// thread, signals every subscriber without blocking.
//
// With no subscriber the interrupt falls back to what an interactive
// interrupt would do: SIGINT is raised on the process. On platforms without
// signals this fails with a platform-unsupported error.
package interrupt

import (
	"context"
	"errors"

	"github.com/kolkov/gothread/internal/thread/lockcheck"
)

// ErrInterrupted is the cancellation cause of contexts from NotifyContext.
var ErrInterrupted = errors.New("interrupted by interrupt_main")

// Interrupter fans an interrupt out to subscribers.
type Interrupter struct {
	mu   lockcheck.Mutex
	subs map[uint64]chan struct{}
	next uint64

	raise func() error
}

// New creates an Interrupter whose fallback raises SIGINT on the process.
func New() *Interrupter {
	return NewWithFallback(raiseSignal)
}

// NewWithFallback creates an Interrupter with a custom no-subscriber fallback.
func NewWithFallback(raise func() error) *Interrupter {
	return &Interrupter{
		subs:  make(map[uint64]chan struct{}),
		raise: raise,
	}
}

// Notify subscribes to interrupts. The returned channel receives one value
// per interrupt, coalescing interrupts that arrive before the previous one
// was consumed. stop unsubscribes; it is safe to call more than once.
func (i *Interrupter) Notify() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	i.mu.Lock()
	id := i.next
	i.next++
	i.subs[id] = ch
	i.mu.Unlock()

	stop := func() {
		i.mu.Lock()
		delete(i.subs, id)
		i.mu.Unlock()
	}
	return ch, stop
}

// NotifyContext returns a context cancelled with cause ErrInterrupted at the
// next interrupt. stop releases the subscription and cancels the context.
func (i *Interrupter) NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	ch, unsubscribe := i.Notify()

	go func() {
		select {
		case <-ch:
			cancel(ErrInterrupted)
		case <-ctx.Done():
		}
		unsubscribe()
	}()

	return ctx, func() { cancel(context.Canceled) }
}

// InterruptMain signals every subscriber. With none it runs the fallback.
func (i *Interrupter) InterruptMain() error {
	i.mu.Lock()
	delivered := len(i.subs) > 0
	for _, ch := range i.subs {
		select {
		case ch <- struct{}{}:
		default:
			// An interrupt is already pending for this subscriber.
		}
	}
	i.mu.Unlock()

	if delivered {
		return nil
	}
	return i.raise()
}

// Subscribers returns the number of active subscriptions.
func (i *Interrupter) Subscribers() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.subs)
}
