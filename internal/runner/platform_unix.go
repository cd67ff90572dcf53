//go:build !windows

package runner

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// setProcAttrs places the child in its own process group so the whole tree
// can be signaled at once.
func setProcAttrs(cmd *exec.Cmd, hideWindow bool) {
	_ = hideWindow // Windows-only option.

	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// detachedProcAttrs gives a deferred child its own session so it survives the
// caller's exit and keeps no tie to its terminal.
func detachedProcAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

// shellArgv wraps a command line for shell interpretation.
func shellArgv(line string) []string {
	return []string{"/bin/sh", "-c", line}
}

// deferredLine prefixes a command line with a shell sleep timer.
func deferredLine(line string, wait time.Duration) string {
	return fmt.Sprintf("sleep %d; %s", int(wait.Seconds()), line)
}

// signalTree delivers sig to the child's process group. The group id matches
// the child pid because of setProcAttrs.
func signalTree(p *os.Process, sig syscall.Signal) error {
	// kill(-1)/kill(0) would signal way more than our tree, never risk it.
	if p == nil || p.Pid <= 1 {
		return nil
	}

	err := syscall.Kill(-p.Pid, sig)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}

	// Group already gone or never there, fall back to the direct process.
	return p.Signal(sig)
}

// terminateTree asks the child process tree to exit gracefully.
func terminateTree(p *os.Process) error { return signalTree(p, syscall.SIGTERM) }

// killTree forcefully ends the child process tree.
func killTree(p *os.Process) error { return signalTree(p, syscall.SIGKILL) }
