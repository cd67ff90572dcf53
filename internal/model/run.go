package model

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"
)

// Reserved exit codes used to signal supervisor-level conditions. They are
// negative so they can never collide with a real process exit status.
const (
	// ExitCodeInterrupted means the caller was interrupted while the command
	// was being supervised (e.g. SIGINT). The result output carries whatever
	// had been captured so far.
	ExitCodeInterrupted = -252
	// ExitCodeLaunchFailure means the executable was not found or the OS
	// rejected the spawn.
	ExitCodeLaunchFailure = -253
	// ExitCodeTimeout means the command outlived the configured timeout and
	// was killed.
	ExitCodeTimeout = -254
	// ExitCodeInternal means an unexpected failure inside the supervisor.
	ExitCodeInternal = -255
)

// IsSentinelExitCode returns true when the exit code is one of the reserved
// supervisor-level codes instead of a real process exit status.
func IsSentinelExitCode(code int) bool {
	switch code {
	case ExitCodeInterrupted, ExitCodeLaunchFailure, ExitCodeTimeout, ExitCodeInternal:
		return true
	}
	return false
}

// Command is the specification of what to execute: either an ordered argv
// (Args) or a single line (Line). A Line on a non-shell execution gets
// tokenized with POSIX word-splitting rules before spawning.
type Command struct {
	Args []string
	Line string
}

// Empty returns true when the command has nothing to execute.
func (c Command) Empty() bool {
	return len(c.Args) == 0 && strings.TrimSpace(c.Line) == ""
}

// String renders the command the way it will be logged and embedded in
// timeout/interrupt notices.
func (c Command) String() string {
	if len(c.Args) > 0 {
		return strings.Join(c.Args, " ")
	}
	return c.Line
}

// RunOptions configures a single supervised execution.
type RunOptions struct {
	// Timeout is the wall-clock budget for the command, 0 disables it.
	Timeout time.Duration
	// Shell runs the command through the platform shell instead of executing
	// it directly.
	Shell bool
	// Encoding is the charset used to decode the child output bytes. Empty
	// selects the platform default (cp437 on windows, utf-8 elsewhere).
	Encoding string
	// ValidExitCodes are the real exit codes considered a success for logging
	// purposes. Empty means {0}. Codes outside the set are logged as errors
	// but still returned verbatim.
	ValidExitCodes []int
	// StdoutPath redirects the child's stdout to a file as raw bytes,
	// bypassing decoding and accumulation.
	StdoutPath string
	// StderrPath redirects the child's stderr to its own file. Empty merges
	// stderr into the stdout stream.
	StderrPath string
	// LiveOutput echoes every decoded chunk to Stdout/Stderr as it arrives,
	// besides accumulating it.
	LiveOutput bool
	// HideWindow hides the console window of the child (windows only).
	HideWindow bool
	// NoDrainGoroutine makes the supervisor read the output pipe inline in
	// its poll loop instead of spawning a drain goroutine. The inline reads
	// are bounded with pipe deadlines so the timeout stays enforced; on
	// platforms where pipe deadlines are unsupported a read may block past
	// the timeout on a silent child.
	NoDrainGoroutine bool

	// Stdout is the live-echo destination, defaults to the process stdout.
	// There is no stderr counterpart: stderr either merges into the stdout
	// stream at pipe level or goes raw to StderrPath, never through the echo.
	Stdout io.Writer
}

// ExitCodeValid returns whether a real exit code belongs to the accepted set.
func (o RunOptions) ExitCodeValid(code int) bool {
	if len(o.ValidExitCodes) == 0 {
		return code == 0
	}
	for _, c := range o.ValidExitCodes {
		if c == code {
			return true
		}
	}
	return false
}

// DefaultEncoding returns the platform default charset. cp437 catches most of
// the special characters cmd.exe emits; everything else speaks utf-8.
func DefaultEncoding() string {
	if runtime.GOOS == "windows" {
		return "cp437"
	}
	return "utf-8"
}

// RunResult is the uniform outcome of a supervised execution: the real exit
// code of the child or one of the reserved sentinel codes, plus the captured
// output.
type RunResult struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// TimedOut returns whether the execution was killed by the timeout.
func (r RunResult) TimedOut() bool { return r.ExitCode == ExitCodeTimeout }

// Interrupted returns whether the execution was cut short by an interrupt.
func (r RunResult) Interrupted() bool { return r.ExitCode == ExitCodeInterrupted }

// Validate checks a command/options pair before spawning.
func Validate(cmd Command, opts RunOptions) error {
	if cmd.Empty() {
		return fmt.Errorf("command cannot be empty: %w", ErrNotValid)
	}
	if opts.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative: %w", ErrNotValid)
	}
	return nil
}
