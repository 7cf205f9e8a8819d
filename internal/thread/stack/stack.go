// Package stack holds the process-wide stack size setting for new threads.
//
// Goroutine stacks start small and grow by copying. A configured size is
// applied to each new thread by pre-growing its stack to that size before
// the work unit runs, so a work unit known to need deep recursion does not
// pay for repeated stack copies. Threads already running are never affected
// by a later Set.
//
// A size of 0 means "platform default" (no pre-growth) and is accepted on
// every platform. Non-zero sizes must be at least MinStackSize and a
// multiple of the platform page size. Platforms where the runtime cannot
// honour a stack size reject every non-zero size as unsupported.
//
// The contract for Set is: either the value read back by Get equals the
// value set, or Set fails with a classified error. There is no third
// outcome.
package stack

import (
	"github.com/kolkov/gothread/internal/thread/errs"
	"github.com/kolkov/gothread/internal/thread/lockcheck"
)

// MinStackSize is the smallest non-zero stack size accepted (32 KiB).
const MinStackSize = 0x8000

// ErrInvalidSize matches every error Set returns for a size the platform
// could support but rejects.
var ErrInvalidSize = &errs.Error{Kind: errs.KindUsage, Op: "stack_size"}

// Platform describes what the host allows.
type Platform struct {
	// Supported is false when stack sizes cannot be changed at all.
	Supported bool

	// PageSize is the granularity non-zero sizes must respect.
	// 0 disables the check.
	PageSize int
}

// Current returns the Platform of the running process.
func Current() Platform {
	return currentPlatform()
}

// Config is the stack size setting. The zero value is not usable; use New.
type Config struct {
	mu       lockcheck.Mutex
	size     int
	platform Platform
}

// Option configures a Config.
type Option func(*Config)

// WithPlatform overrides the detected platform.
func WithPlatform(p Platform) Option {
	return func(c *Config) {
		c.platform = p
	}
}

// New creates a Config set to 0 (platform default).
func New(opts ...Option) *Config {
	c := &Config{platform: Current()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the current setting.
func (c *Config) Get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Set changes the setting for threads spawned afterwards and returns the
// previous value. On error the setting is unchanged.
func (c *Config) Set(size int) (int, error) {
	if err := c.validate(size); err != nil {
		return c.Get(), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.size
	c.size = size
	return old, nil
}

// Platform returns the platform the Config validates against.
func (c *Config) Platform() Platform {
	return c.platform
}

func (c *Config) validate(size int) error {
	switch {
	case size < 0:
		return errs.Usage("stack_size", "size must be 0 or a positive value")
	case size == 0:
		return nil
	case !c.platform.Supported:
		return errs.Unsupported("stack_size", "setting stack size not supported")
	case size < MinStackSize:
		return errs.Usage("stack_size", "size not valid: %d bytes", size)
	case c.platform.PageSize > 0 && size%c.platform.PageSize != 0:
		return errs.Usage("stack_size", "size not valid: %d bytes (not a multiple of page size %d)",
			size, c.platform.PageSize)
	}
	return nil
}
