package thread

import (
	"runtime"

	"golang.org/x/mod/semver"

	"github.com/kolkov/gothread/internal/thread/fork"
	"github.com/kolkov/gothread/internal/thread/stack"
)

// Version information for gothread.
const (
	// Version is the current version of the library.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info describes the library and what the platform supports.
type Info struct {
	// Version is the library version string.
	Version string

	// GoVersion is the Go runtime the program was built with.
	GoVersion string

	// Platform is GOOS/GOARCH.
	Platform string

	// StackSizeSupported reports whether non-zero stack sizes can be set.
	StackSizeSupported bool

	// ForkSupported reports whether StartChild can work.
	ForkSupported bool
}

// GetInfo returns information about the library and the platform.
//
// Example:
//
//	info := thread.GetInfo()
//	fmt.Printf("gothread %s on %s\n", info.Version, info.Platform)
func GetInfo() Info {
	return Info{
		Version:            Version,
		GoVersion:          runtime.Version(),
		Platform:           runtime.GOOS + "/" + runtime.GOARCH,
		StackSizeSupported: stack.Current().Supported,
		ForkSupported:      fork.Supported(),
	}
}

// CompareVersion compares v with Version using semantic versioning and
// returns -1, 0 or +1. An invalid v is considered smaller than Version.
func CompareVersion(v string) int {
	return semver.Compare(canonical(v), canonical(Version))
}

// AtLeast reports whether Version is v or later.
func AtLeast(v string) bool {
	return semver.IsValid(canonical(v)) && CompareVersion(v) <= 0
}

func canonical(v string) string {
	if len(v) > 0 && v[0] != 'v' {
		v = "v" + v
	}
	return semver.Canonical(v)
}
