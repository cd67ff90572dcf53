//go:build windows

package runner

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"
)

const (
	createNoWindow        = 0x08000000
	createNewProcessGroup = 0x00000200
	detachedProcess       = 0x00000008
)

func setProcAttrs(cmd *exec.Cmd, hideWindow bool) {
	if !hideWindow {
		return
	}

	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= createNoWindow
}

func detachedProcAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: createNewProcessGroup | detachedProcess}
}

func shellArgv(line string) []string {
	return []string{"cmd.exe", "/C", line}
}

// deferredLine prefixes a command line with a timer. ping doubles as the
// sleep, it is present on virtually any windows box.
func deferredLine(line string, wait time.Duration) string {
	return fmt.Sprintf("ping 127.0.0.1 -n %d > NUL & %s", int(wait.Seconds())+1, line)
}

// taskkill walks and kills the process tree. Windows has no native child
// tracking, so the system utility does the walking for us.
func taskkill(pid int, force bool) error {
	args := []string{"/T", "/PID", strconv.Itoa(pid)}
	if force {
		args = append([]string{"/F"}, args...)
	}

	cmd := exec.Command("taskkill", args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run()
}

func terminateTree(p *os.Process) error {
	if p == nil {
		return nil
	}
	if err := taskkill(p.Pid, false); err != nil {
		return p.Kill()
	}
	return nil
}

func killTree(p *os.Process) error {
	if p == nil {
		return nil
	}
	_ = taskkill(p.Pid, true)
	return p.Kill()
}
