package bridge

import (
	"fmt"
	"log"
	"os"
	"syscall"
)

// ExitRestartCode is the exit status used by ExitRestarter. It is
// EX_TEMPFAIL, which a systemd unit with Restart=always treats as a
// failure and restarts.
const ExitRestartCode = 75

// ExecRestarter re-executes the current binary in place. The new process
// keeps the PID, arguments and environment but starts with fresh protocol
// and discovery state.
type ExecRestarter struct {
	// Path defaults to /proc/self/exe.
	Path string
	Args []string
	Env  []string

	exec func(path string, args, env []string) error
}

// NewExecRestarter returns a restarter for the running process.
func NewExecRestarter() *ExecRestarter {
	return &ExecRestarter{
		Path: "/proc/self/exe",
		Args: os.Args,
		Env:  os.Environ(),
		exec: syscall.Exec,
	}
}

// Restart replaces the process image. It only returns on failure.
func (r *ExecRestarter) Restart(reason string) error {
	log.Printf("bridge: restarting (%s) via exec %s", reason, r.Path)
	if err := r.exec(r.Path, r.Args, r.Env); err != nil {
		return fmt.Errorf("exec %s: %w", r.Path, err)
	}
	return nil
}

// ExitRestarter exits the process and relies on the supervisor to start it
// again.
type ExitRestarter struct {
	Code int
	exit func(int)
}

// NewExitRestarter returns a restarter that exits with ExitRestartCode.
func NewExitRestarter() *ExitRestarter {
	return &ExitRestarter{Code: ExitRestartCode, exit: os.Exit}
}

// Restart exits the process.
func (r *ExitRestarter) Restart(reason string) error {
	log.Printf("bridge: restarting (%s) via exit %d", reason, r.Code)
	r.exit(r.Code)
	return nil
}

// FakeRestarter records restart calls for tests.
type FakeRestarter struct {
	Reasons []string
	Err     error
}

// Restart records reason.
func (f *FakeRestarter) Restart(reason string) error {
	f.Reasons = append(f.Reasons, reason)
	return f.Err
}
