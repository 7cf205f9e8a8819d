//go:build unix

package stack

import "golang.org/x/sys/unix"

func currentPlatform() Platform {
	return Platform{Supported: true, PageSize: unix.Getpagesize()}
}
