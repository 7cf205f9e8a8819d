package stack

import "runtime"

// frameSize is the stack consumed by one growFrames call, excluding
// call overhead.
const frameSize = 1024

// Grow makes the calling goroutine's stack at least size bytes deep by
// recursing through fixed-size frames. The runtime grows the stack once to
// fit and keeps it until the garbage collector decides to shrink it.
//
// size <= 0 is a no-op.
func Grow(size int) {
	if size <= 0 {
		return
	}
	runtime.KeepAlive(growFrames(size / frameSize))
}

//go:noinline
func growFrames(n int) byte {
	var pad [frameSize]byte
	pad[n%frameSize] = byte(n)
	if n <= 1 {
		return pad[0]
	}
	return growFrames(n-1) ^ pad[n%frameSize]
}
