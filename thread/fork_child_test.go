package thread

import (
	"fmt"
	"io"
	"time"

	"github.com/kolkov/gothread/internal/thread/lockcheck"
)

func init() {
	RegisterChild("ready", func(w io.Writer) int {
		_, _ = io.WriteString(w, "OK")
		return 0
	})

	// Runs in a fresh process so the first runtime decides detection.
	RegisterChild("deadlock-options", func(w io.Writer) int {
		before := lockcheck.Enabled()
		r, err := NewRuntime(Config{DeadlockTimeout: 123 * time.Millisecond})
		if err != nil {
			fmt.Fprintln(w, err)
			return 1
		}
		defer r.Close()
		fmt.Fprintf(w, "%t %t %s", before, lockcheck.Enabled(), lockcheck.Timeout())
		return 0
	})
}
