//go:build unix

package interrupt

import "golang.org/x/sys/unix"

func raiseSignal() error {
	return unix.Kill(unix.Getpid(), unix.SIGINT)
}
