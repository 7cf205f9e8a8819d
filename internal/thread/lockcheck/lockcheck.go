// Package lockcheck provides the mutexes guarding the library's internal
// bookkeeping.
//
// They are go-deadlock mutexes. Detection is off until Configure enables
// it with a timeout; the package init turns it off before any package that
// imports lockcheck can take a lock, so no watchdog goroutine is started
// by default. The go-deadlock options are process-wide and read without
// synchronization by every lock call, so they are written at most once.
package lockcheck

import (
	"sync"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Mutex is the bookkeeping mutex.
type Mutex = deadlock.Mutex

// RWMutex is the bookkeeping reader/writer mutex.
type RWMutex = deadlock.RWMutex

func init() {
	deadlock.Opts.Disable = true
}

var configureOnce sync.Once

// Configure sets the detection timeout for the process; 0 keeps detection
// off. Only the first call has an effect, and it must happen before other
// goroutines take bookkeeping locks. It reports whether this call applied
// the options.
func Configure(timeout time.Duration) bool {
	applied := false
	configureOnce.Do(func() {
		deadlock.Opts.DeadlockTimeout = timeout
		deadlock.Opts.Disable = timeout <= 0
		applied = true
	})
	return applied
}

// Enabled reports whether deadlock detection is on.
func Enabled() bool {
	return !deadlock.Opts.Disable
}

// Timeout returns the configured detection timeout.
func Timeout() time.Duration {
	return deadlock.Opts.DeadlockTimeout
}
