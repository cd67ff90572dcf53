// Package runner launches external commands under supervision: wall-clock
// timeout with graceful then forceful tree termination, deadlock-free output
// capture and a uniform (exit code, output) result where reserved negative
// codes signal supervisor-level failures.
package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/slok/runx/internal/log"
	"github.com/slok/runx/internal/model"
	"github.com/slok/runx/internal/runner/encoding"
)

// Config is the Runner configuration.
type Config struct {
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "runner.Runner"})
	return nil
}

// Runner executes commands. Runners are stateless across calls: every Run
// owns its process, pipes and buffers and releases them before returning.
type Runner struct {
	logger log.Logger
}

// NewRunner creates a new command runner.
func NewRunner(cfg Config) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Runner{logger: cfg.Logger}, nil
}

// Run executes the command under supervision and blocks until it finishes, is
// killed or times out. An error is only returned for invalid input; every
// runtime failure is mapped to the result contract with a reserved exit code:
// interrupted -252, launch failure -253, timeout -254, internal failure -255.
func (r *Runner) Run(ctx context.Context, command model.Command, opts model.RunOptions) (result model.RunResult, err error) {
	if err := model.Validate(command, opts); err != nil {
		return model.RunResult{}, err
	}

	if opts.Encoding == "" {
		opts.Encoding = model.DefaultEncoding()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	dec, decErr := encoding.NewDecoder(opts.Encoding)
	if decErr != nil {
		return model.RunResult{}, decErr
	}

	// The caller always gets the result contract: whatever blows up during
	// supervision surfaces as an internal failure result, never as a panic.
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorf("Command %q failed for unknown reasons: %v", command, rec)
			result = model.RunResult{ExitCode: model.ExitCodeInternal, Output: fmt.Sprintf("%v", rec)}
			err = nil
		}
	}()

	start := time.Now()
	result = r.run(ctx, command, opts, dec)
	result.Duration = time.Since(start)

	switch {
	case model.IsSentinelExitCode(result.ExitCode):
		// Already logged on its failure path.
	case !opts.ExitCodeValid(result.ExitCode):
		r.logger.Errorf("Command %q failed with exit code %d. Command output was: %s", command, result.ExitCode, result.Output)
	default:
		r.logger.Debugf("Command %q returned with exit code %d", command, result.ExitCode)
	}

	return result, nil
}

func (r *Runner) run(ctx context.Context, command model.Command, opts model.RunOptions, dec *encoding.Decoder) model.RunResult {
	argv, err := buildArgv(command, opts.Shell)
	if err != nil {
		r.logger.Errorf("Command %q failed, could not build argv: %s", command, err)
		return model.RunResult{ExitCode: model.ExitCodeInternal, Output: err.Error()}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	setProcAttrs(cmd, opts.HideWindow)

	// File sinks are created up front (create/truncate at call start) and
	// closed on every exit path.
	var stdoutFile, stderrFile *os.File
	defer func() {
		if stdoutFile != nil {
			_ = stdoutFile.Close()
		}
		if stderrFile != nil {
			_ = stderrFile.Close()
		}
	}()

	if opts.StderrPath != "" {
		stderrFile, err = os.Create(opts.StderrPath)
		if err != nil {
			r.logger.Errorf("Command %q failed, could not open stderr file: %s", command, err)
			return model.RunResult{ExitCode: model.ExitCodeLaunchFailure, Output: err.Error()}
		}
		cmd.Stderr = stderrFile
	}

	var snk sink
	var pipeR, pipeW *os.File
	sup := &supervisor{cmd: cmd, timeout: opts.Timeout, logger: r.logger}

	if opts.StdoutPath != "" {
		// Raw redirection: bytes go straight to the file, no decoding, no
		// accumulation. The returned output stays empty except for the
		// timeout notice injected below.
		stdoutFile, err = os.Create(opts.StdoutPath)
		if err != nil {
			r.logger.Errorf("Command %q failed, could not open stdout file: %s", command, err)
			return model.RunResult{ExitCode: model.ExitCodeLaunchFailure, Output: err.Error()}
		}
		cmd.Stdout = stdoutFile
		if cmd.Stderr == nil {
			cmd.Stderr = stdoutFile
		}
		snk = newBufferSink()
	} else {
		pipeR, pipeW, err = os.Pipe()
		if err != nil {
			r.logger.Errorf("Command %q failed, could not create pipe: %s", command, err)
			return model.RunResult{ExitCode: model.ExitCodeInternal, Output: err.Error()}
		}
		// Merge stderr into the stdout stream at fd level unless it has its
		// own file, so interleaving matches what the child emitted.
		cmd.Stdout = pipeW
		if cmd.Stderr == nil {
			cmd.Stderr = pipeW
		}

		if opts.LiveOutput {
			snk = newLiveSink(opts.Stdout)
		} else {
			snk = newBufferSink()
		}

		sup.drainer = newDrainer(pipeR, dec)
		sup.inline = opts.NoDrainGoroutine
		sup.pipes = []*os.File{pipeR}
	}
	sup.sink = snk

	r.logger.Debugf("Running command %q", command)

	if err := cmd.Start(); err != nil {
		if pipeR != nil {
			_ = pipeR.Close()
			_ = pipeW.Close()
		}
		r.logger.Errorf("Command %q failed, could not launch: %s", command, err)
		return model.RunResult{ExitCode: model.ExitCodeLaunchFailure, Output: err.Error()}
	}

	// The child holds its own copy of the write end, drop ours so the drainer
	// sees EOF when the tree dies.
	if pipeW != nil {
		_ = pipeW.Close()
	}

	out := sup.supervise(ctx)

	switch {
	case out.interrupted:
		msg := fmt.Sprintf("Interrupted. Partial output was: %s", snk.Output())
		r.logger.Errorf("Command %q interrupted by the caller", command)
		return model.RunResult{ExitCode: model.ExitCodeInterrupted, Output: msg}

	case out.timedOut:
		msg := fmt.Sprintf("Timeout of %s expired for command %q execution. Original output was: %s", opts.Timeout, command, snk.Output())
		r.logger.Errorf("%s", msg)
		if stdoutFile != nil {
			_, _ = stdoutFile.WriteString(msg)
		}
		return model.RunResult{ExitCode: model.ExitCodeTimeout, Output: msg}

	default:
		return model.RunResult{ExitCode: out.exitCode, Output: snk.Output()}
	}
}

// buildArgv normalizes the command spec into the argv to spawn. Shell
// commands run through the platform shell, direct string commands get POSIX
// word splitting.
func buildArgv(command model.Command, shell bool) ([]string, error) {
	if shell {
		line := command.Line
		if line == "" {
			line = strings.Join(command.Args, " ")
		}
		return shellArgv(line), nil
	}

	if len(command.Args) > 0 {
		return command.Args, nil
	}

	args, err := shellwords.Parse(command.Line)
	if err != nil {
		return nil, fmt.Errorf("could not tokenize command line: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("command cannot be empty: %w", model.ErrNotValid)
	}

	return args, nil
}
