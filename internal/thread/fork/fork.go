package fork

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sort"

	"github.com/kolkov/gothread/internal/thread/errs"
	"github.com/kolkov/gothread/internal/thread/lockcheck"
)

// EnvChild names the environment variable selecting the child routine.
const EnvChild = "GOTHREAD_FORK_CHILD"

// childFD is the descriptor of the pipe's write end in the child
// (the first entry of exec.Cmd.ExtraFiles).
const childFD = 3

// ChildFunc is a routine run in the child process. It writes to w, which
// is connected to the parent's Child, and returns the exit status.
type ChildFunc func(w io.Writer) int

// ErrUnsupported is returned by Start on platforms without the capability.
var ErrUnsupported = errs.Unsupported("fork", "process duplication is not available on %s/%s", runtime.GOOS, runtime.GOARCH)

// ErrUnknownRoutine is wrapped by Start for names never registered.
var ErrUnknownRoutine = errs.Usage("fork", "unknown child routine")

var (
	mu       lockcheck.RWMutex
	routines = map[string]ChildFunc{}
)

// Register makes fn available to Start under name. It panics if name is
// empty, fn is nil, or name is already registered.
func Register(name string, fn ChildFunc) {
	if name == "" {
		panic("fork: Register with empty name")
	}
	if fn == nil {
		panic("fork: Register with nil routine")
	}

	mu.Lock()
	defer mu.Unlock()
	if _, dup := routines[name]; dup {
		panic("fork: Register called twice for " + name)
	}
	routines[name] = fn
}

// Routines returns the registered names in sorted order.
func Routines() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(routines))
	for name := range routines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(name string) ChildFunc {
	mu.RLock()
	defer mu.RUnlock()
	return routines[name]
}

// Supported reports whether Start can work on this platform.
func Supported() bool {
	return supported
}

// IsChild reports whether the current process was started by Start.
func IsChild() bool {
	return os.Getenv(EnvChild) != ""
}

// Init runs the selected child routine and exits when the process is a
// child. In the parent it returns false immediately.
func Init() bool {
	name := os.Getenv(EnvChild)
	if name == "" {
		return false
	}

	w := os.NewFile(childFD, "fork-pipe")
	code := runChild(name, w)
	if w != nil {
		_ = w.Close()
	}
	os.Exit(code)
	return true
}

// runChild runs the routine registered under name with w as its pipe.
func runChild(name string, w io.Writer) int {
	fn := lookup(name)
	if fn == nil {
		fmt.Fprintf(os.Stderr, "fork: unknown child routine %q\n", name)
		return 2
	}
	if w == nil {
		w = io.Discard
	}
	return fn(w)
}

// Child is a started child process.
type Child struct {
	cmd *exec.Cmd
	r   *os.File
}

// Start re-executes the current binary running the routine registered
// under name. The caller must eventually call Wait.
func Start(name string) (*Child, error) {
	if !supported {
		return nil, ErrUnsupported
	}
	if lookup(name) == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoutine, name)
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("fork: locate executable: %w", err)
	}

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("fork: pipe: %w", err)
	}

	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), EnvChild+"="+name)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{w}

	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return nil, fmt.Errorf("fork: start child: %w", err)
	}

	// Only the child keeps the write end, so reads see EOF once it exits.
	_ = w.Close()

	return &Child{cmd: cmd, r: r}, nil
}

// Pid returns the child's process id.
func (c *Child) Pid() int {
	return c.cmd.Process.Pid
}

// ReadReady reads exactly n bytes written by the child.
func (c *Child) ReadReady(n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := io.ReadFull(c.r, buf)
	if err != nil {
		return buf[:got], fmt.Errorf("fork: read from child %d: %w", c.Pid(), err)
	}
	return buf, nil
}

// Reader returns the read end of the child's pipe.
func (c *Child) Reader() io.Reader {
	return c.r
}

// Wait waits for the child to exit and returns its exit status.
// A non-zero status is not an error.
func (c *Child) Wait() (int, error) {
	defer c.r.Close()

	err := c.cmd.Wait()
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return -1, fmt.Errorf("fork: wait for child %d: %w", c.Pid(), err)
		}
	}
	return c.cmd.ProcessState.ExitCode(), nil
}
