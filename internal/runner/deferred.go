package runner

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/slok/runx/internal/model"
)

// Deferred launches a fire-and-forget command: a detached shell that sleeps
// for wait and then runs line. The child gets its own session and no stdio,
// so it survives the caller's exit. It is never awaited and reports nothing
// back. Useful for things like self-update or self-deletion of a running
// binary.
func (r *Runner) Deferred(line string, wait time.Duration) error {
	if strings.TrimSpace(line) == "" {
		return fmt.Errorf("command cannot be empty: %w", model.ErrNotValid)
	}
	if wait < 0 {
		return fmt.Errorf("defer time cannot be negative: %w", model.ErrNotValid)
	}

	argv := shellArgv(deferredLine(line, wait))
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = detachedProcAttrs()
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("could not launch deferred command: %w", err)
	}

	r.logger.Debugf("Deferred command %q launched, runs in %s (pid %d)", line, wait, cmd.Process.Pid)

	// Detach: the child is on its own from here.
	return cmd.Process.Release()
}
