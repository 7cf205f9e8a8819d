// Package spawn starts threads of execution running user work units.
//
// A thread is a goroutine started by a Spawner. The Go scheduler runs
// goroutines on preemptible native threads, so work units run in parallel
// with the caller and with each other.
//
// Lifecycle of one thread:
//
//  1. Spawn reads the current stack size, increments the registry and
//     launches the goroutine.
//  2. The goroutine records its handle and publishes its identity; Spawn
//     returns that identity.
//  3. The stack is pre-grown to the configured size and the work unit runs.
//  4. When the work unit returns, panics, or calls ExitThread, the registry
//     is decremented exactly once.
//
// There is no join. Callers build their own completion signal from a Lock
// or a counter, or poll ActiveCount.
//
// Failure semantics:
//
// A work unit that returns a non-nil error or panics has an unhandled
// failure. The failure is reported to the sink with a stack trace, logged,
// and counted; it never propagates to the spawning goroutine and never
// crashes the process. ExitThread is not a failure.
//
// A panic is traced from the panicking frame. A returned error is traced
// from where it was created when it wraps a github.com/go-errors/errors
// error; a plain error has no trace of its own and the report names the
// entry function only.
package spawn
