package runner

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/slok/runx/internal/log"
	"github.com/slok/runx/internal/model"
)

const (
	// pollInterval is the loop pace: how long the supervisor waits for output
	// before rechecking exit, timeout and interruption.
	pollInterval = 100 * time.Millisecond
	// terminateGrace is how long the child gets to exit after the graceful
	// termination request before being force-killed.
	terminateGrace = 500 * time.Millisecond
	// reapGrace bounds the wait for the exit status after a force kill.
	reapGrace = 2 * time.Second
	// finalDrainWait bounds the last flush of buffered output after exit.
	finalDrainWait = 10 * time.Second
)

// supervisor owns one child process from spawn to reap. Invariants: it never
// deadlocks on a full pipe buffer (the drainer keeps reading), it never loses
// buffered output (final drain after exit) and it releases pipes on every
// path.
type supervisor struct {
	cmd     *exec.Cmd
	drainer *drainer // Nil when output is redirected raw to a file.
	sink    sink
	inline  bool
	timeout time.Duration
	pipes   []*os.File
	logger  log.Logger

	eof bool
}

// outcome is what supervision reports back to the launcher. Partial output on
// timeout and interruption stays available through the sink.
type outcome struct {
	exitCode    int
	timedOut    bool
	interrupted bool
}

// supervise blocks until the child exits, the timeout expires or ctx is
// cancelled.
func (s *supervisor) supervise(ctx context.Context) outcome {
	start := time.Now()

	if s.drainer != nil && !s.inline {
		go s.drainer.drain()
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- s.cmd.Wait() }()

	var waitErr error
	timedOut := false

loop:
	for {
		s.drainOnce(pollInterval)

		select {
		case <-ctx.Done():
			s.logger.Debugf("Interrupted, force killing process tree")
			_ = killTree(s.cmd.Process)
			s.reap(waitCh)
			s.finalDrain()
			s.closeStreams()
			return outcome{exitCode: model.ExitCodeInterrupted, interrupted: true}
		default:
		}

		select {
		case waitErr = <-waitCh:
			break loop
		default:
		}

		if s.timeout > 0 && time.Since(start) > s.timeout {
			timedOut = true
			s.logger.Debugf("Timeout reached, terminating process tree")
			_ = terminateTree(s.cmd.Process)
			select {
			case waitErr = <-waitCh:
			case <-time.After(terminateGrace):
				_ = killTree(s.cmd.Process)
				waitErr = s.reap(waitCh)
			}
			break loop
		}
	}

	s.finalDrain()
	s.closeStreams()

	if timedOut {
		return outcome{exitCode: model.ExitCodeTimeout, timedOut: true}
	}

	return outcome{exitCode: s.exitCode(waitErr)}
}

// drainOnce moves at most one chunk from the drainer to the sink, waiting at
// most wait so the loop always regains control for its checks.
func (s *supervisor) drainOnce(wait time.Duration) {
	if s.drainer == nil || s.eof {
		time.Sleep(wait)
		return
	}

	if s.inline {
		chunk, eof := s.drainer.readBounded(wait)
		s.sink.WriteChunk(chunk)
		s.eof = eof
		return
	}

	select {
	case chunk, ok := <-s.drainer.chunks:
		if !ok {
			s.eof = true
			return
		}
		s.sink.WriteChunk(chunk)
	case <-time.After(wait):
	}
}

// finalDrain flushes whatever the drainer still buffers after the child died,
// bounded so a stuck stream cannot hold the call hostage.
func (s *supervisor) finalDrain() {
	if s.drainer == nil || s.eof {
		return
	}

	deadline := time.NewTimer(finalDrainWait)
	defer deadline.Stop()

	if s.inline {
		for !s.eof {
			select {
			case <-deadline.C:
				return
			default:
			}
			chunk, eof := s.drainer.readBounded(pollInterval)
			s.sink.WriteChunk(chunk)
			s.eof = eof
		}
		return
	}

	for {
		select {
		case chunk, ok := <-s.drainer.chunks:
			if !ok {
				s.eof = true
				return
			}
			s.sink.WriteChunk(chunk)
		case <-deadline.C:
			return
		}
	}
}

// reap waits for the exit status of an already killed child, bounded in case
// the process ignores even SIGKILL (unkillable states exist).
func (s *supervisor) reap(waitCh chan error) error {
	select {
	case err := <-waitCh:
		return err
	case <-time.After(reapGrace):
		s.logger.Warningf("Process did not exit after force kill, giving up on reaping")
		return nil
	}
}

// closeStreams closes the supervisor-owned pipe ends, tolerating streams that
// are already closed.
func (s *supervisor) closeStreams() {
	for _, p := range s.pipes {
		_ = p.Close()
	}
}

func (s *supervisor) exitCode(waitErr error) int {
	if waitErr == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}

	s.logger.Errorf("Could not obtain process exit status: %s", waitErr)
	return model.ExitCodeInternal
}
