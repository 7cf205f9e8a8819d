package thread

import (
	"github.com/kolkov/gothread/internal/thread/barrier"
	"github.com/kolkov/gothread/internal/thread/errs"
	"github.com/kolkov/gothread/internal/thread/fork"
	"github.com/kolkov/gothread/internal/thread/goid"
	"github.com/kolkov/gothread/internal/thread/interrupt"
	"github.com/kolkov/gothread/internal/thread/lock"
	"github.com/kolkov/gothread/internal/thread/registry"
	"github.com/kolkov/gothread/internal/thread/spawn"
	"github.com/kolkov/gothread/internal/thread/stack"
)

// Lock is a binary lock without owner tracking.
type Lock = lock.Lock

// Barrier is a reusable rendezvous for a fixed number of threads.
type Barrier = barrier.Barrier

// Ident identifies a thread for its whole lifetime.
type Ident = goid.ID

// Entry is a work unit. A non-nil error is an unhandled failure.
type Entry = spawn.Entry

// Handle describes a live thread.
type Handle = registry.Handle

// Child is a process started with StartChild.
type Child = fork.Child

// ChildFunc is a routine run in a child process.
type ChildFunc = fork.ChildFunc

// MinStackSize is the smallest non-zero stack size accepted.
const MinStackSize = stack.MinStackSize

var (
	// ErrAlreadyUnlocked is returned when releasing a free lock.
	ErrAlreadyUnlocked = lock.ErrAlreadyUnlocked

	// ErrInvalidStackSize matches stack sizes the platform rejects.
	ErrInvalidStackSize = stack.ErrInvalidSize

	// ErrPlatformUnsupported matches every platform-unsupported error.
	ErrPlatformUnsupported = errs.ErrPlatformUnsupported

	// ErrUnknownChild matches StartChild calls for unregistered names.
	ErrUnknownChild = fork.ErrUnknownRoutine

	// ErrInterrupted is the cancellation cause of NotifyInterruptContext.
	ErrInterrupted = interrupt.ErrInterrupted
)

// IsUsageError reports whether err reports misuse of a primitive.
func IsUsageError(err error) bool {
	return errs.IsUsage(err)
}

// IsPlatformUnsupported reports whether err reports a capability the
// platform lacks.
func IsPlatformUnsupported(err error) bool {
	return errs.IsPlatformUnsupported(err)
}

// AllocateLock returns a new free lock.
func AllocateLock() *Lock {
	return Default().AllocateLock()
}

// Spawn starts a new thread running entry(args...) and returns its
// identity. Failures of entry are reported to the error sink and never
// returned here; the error is for misuse only.
func Spawn(entry Entry, args ...any) (Ident, error) {
	return Default().Spawn(entry, args...)
}

// ActiveCount returns the number of live threads started by Spawn.
func ActiveCount() int {
	return Default().ActiveCount()
}

// StackSize returns the stack size used for new threads.
func StackSize() int {
	return Default().StackSize()
}

// SetStackSize sets the stack size for new threads and returns the
// previous value. See [Runtime.SetStackSize].
func SetStackSize(size int) (int, error) {
	return Default().SetStackSize(size)
}

// GetIdent returns the identity of the calling goroutine. Inside a work
// unit it equals the Ident returned by Spawn.
func GetIdent() Ident {
	return goid.Get()
}

// ExitThread ends the calling thread silently. Deferred calls run.
func ExitThread() {
	spawn.ExitThread()
}

// NewBarrier creates a rendezvous for n parties.
func NewBarrier(n int) (*Barrier, error) {
	return Default().NewBarrier(n)
}

// InterruptMain interrupts the main goroutine.
//
// The main goroutine receives interrupts by subscribing with
// NotifyInterrupt. With no subscriber SIGINT is raised on the process,
// which a program without a signal handler treats as an interactive
// interrupt.
func InterruptMain() error {
	return Default().InterruptMain()
}

// NotifyInterrupt subscribes to InterruptMain.
func NotifyInterrupt() (<-chan struct{}, func()) {
	return Default().NotifyInterrupt()
}

// ForkSupported reports whether StartChild works on this platform.
func ForkSupported() bool {
	return fork.Supported()
}

// RegisterChild makes fn runnable in a child process under name.
func RegisterChild(name string, fn ChildFunc) {
	fork.Register(name, fn)
}

// InitChild must be called first in main (or TestMain) of programs that
// use StartChild. In a child process it runs the selected routine and
// exits; otherwise it returns false.
func InitChild() bool {
	return fork.Init()
}

// StartChild duplicates the process from the calling thread. Only the
// routine registered under name runs in the child.
func StartChild(name string) (*Child, error) {
	return fork.Start(name)
}
