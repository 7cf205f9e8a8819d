// Copyright 2025 The gothread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fork duplicates the process from inside a running thread.
//
// The Go runtime is always multi-threaded, so a raw fork(2) would leave the
// child with a copy of a scheduler whose other threads no longer exist. The
// boundary is instead crossed by re-executing the current binary with one
// named child routine selected. The child starts with no goroutines, locks
// or state of the parent beyond its standard streams and one pipe, which is
// the behaviour of a fork where only the calling thread survives.
//
// A program that wants to fork registers its child routines in an init
// function or at the top of main, and calls Init before doing anything else:
//
//	func init() {
//		fork.Register("ready", func(w io.Writer) int {
//			_, _ = io.WriteString(w, "OK")
//			return 0
//		})
//	}
//
//	func main() {
//		if fork.Init() {
//			return
//		}
//		...
//	}
//
// Test binaries do the same from TestMain. In a child process Init never
// returns: it runs the routine and terminates the process with its status
// without running deferred calls or finalizers.
//
// The capability needs inheritable file descriptors and is reported as
// unsupported on Windows, js/wasm and wasip1.
package fork
