// Package run contains the application service for supervised command
// execution: it runs the command through the runner and records the outcome
// in the execution history.
package run

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/runx/internal/log"
	"github.com/slok/runx/internal/model"
	"github.com/slok/runx/internal/storage"
)

// CommandRunner knows how to execute a command under supervision.
type CommandRunner interface {
	Run(ctx context.Context, command model.Command, opts model.RunOptions) (model.RunResult, error)
}

// ServiceConfig is the configuration for the run service.
type ServiceConfig struct {
	Runner CommandRunner
	// Repository is the execution history store. Optional: without it runs
	// are not recorded.
	Repository storage.Repository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Runner == nil {
		return fmt.Errorf("runner is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Run"})
	return nil
}

// Service executes commands and records their history.
type Service struct {
	runner CommandRunner
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new run service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		runner: cfg.Runner,
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request contains the parameters for executing a command.
type Request struct {
	Command model.Command
	Options model.RunOptions
	// SkipHistory leaves the run out of the execution history.
	SkipHistory bool
}

// Run executes the command and stores the outcome.
func (s *Service) Run(ctx context.Context, req Request) (*model.RunResult, error) {
	result, err := s.runner.Run(ctx, req.Command, req.Options)
	if err != nil {
		return nil, fmt.Errorf("could not execute command: %w", err)
	}

	s.logger.Debugf("Executed command %q: exit code %d", req.Command, result.ExitCode)

	if s.repo != nil && !req.SkipHistory {
		execution := model.Execution{
			ID:          ulid.Make().String(),
			Command:     req.Command.String(),
			Shell:       req.Options.Shell,
			ExitCode:    result.ExitCode,
			TimedOut:    result.TimedOut(),
			Interrupted: result.Interrupted(),
			Duration:    result.Duration,
			CreatedAt:   time.Now().UTC(),
		}
		// History is best effort, a failed save never fails the run itself.
		if err := s.repo.SaveExecution(ctx, execution); err != nil {
			s.logger.Warningf("Could not save execution in history: %s", err)
		}
	}

	return &result, nil
}
