//go:build !unix

package interrupt

import "github.com/kolkov/gothread/internal/thread/errs"

func raiseSignal() error {
	return errs.Unsupported("interrupt_main", "no process signals on this platform")
}
