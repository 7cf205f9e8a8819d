//go:build !unix

package stack

import (
	"os"
	"runtime"
)

func currentPlatform() Platform {
	switch runtime.GOOS {
	case "js", "wasip1":
		// Single-threaded hosts: there is no native thread to size.
		return Platform{}
	default:
		return Platform{Supported: true, PageSize: os.Getpagesize()}
	}
}
