package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/runx/internal/runner"
)

type DeferCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	line  string
	after time.Duration
}

// NewDeferCommand returns the defer command.
func NewDeferCommand(rootCmd *RootCommand, app *kingpin.Application) *DeferCommand {
	c := &DeferCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("defer", "Launch a detached command that runs after a delay, disconnected from this process.")
	c.Cmd.Arg("command", "Command line to execute through the shell.").Required().StringVar(&c.line)
	c.Cmd.Flag("after", "Delay before the command runs.").Short('a').Default("5m").DurationVar(&c.after)

	return c
}

func (c DeferCommand) Name() string { return c.Cmd.FullCommand() }

func (c DeferCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cmdRunner, err := runner.NewRunner(runner.Config{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create runner: %w", err)
	}

	if err := cmdRunner.Deferred(c.line, c.after); err != nil {
		return fmt.Errorf("could not schedule deferred command: %w", err)
	}

	logger.Infof("Deferred command scheduled, runs in %s", c.after)

	return nil
}
