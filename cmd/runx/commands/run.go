package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"

	apprun "github.com/slok/runx/internal/app/run"
	"github.com/slok/runx/internal/config"
	"github.com/slok/runx/internal/model"
	"github.com/slok/runx/internal/runner"
	"github.com/slok/runx/internal/storage"
	"github.com/slok/runx/internal/storage/sqlite"
)

// defaultTimeout bounds commands when neither flag nor config say otherwise.
const defaultTimeout = 30 * time.Minute

type RunCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	args           []string
	shell          bool
	timeout        string
	encoding       string
	validExitCodes []int
	stdoutPath     string
	stderrPath     string
	live           bool
	hideWindow     bool
	noDrain        bool
}

// NewRunCommand returns the run command.
func NewRunCommand(rootCmd *RootCommand, app *kingpin.Application) *RunCommand {
	c := &RunCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("run", "Run a command under supervision: timeout, tree kill and output capture.")
	c.Cmd.Arg("command", "Command to execute (use -- before the command).").Required().StringsVar(&c.args)
	c.Cmd.Flag("shell", "Run the command through the platform shell.").Short('s').BoolVar(&c.shell)
	c.Cmd.Flag("timeout", "Wall-clock timeout for the command, 0 disables it.").Short('t').StringVar(&c.timeout)
	c.Cmd.Flag("encoding", "Charset used to decode the command output.").StringVar(&c.encoding)
	c.Cmd.Flag("valid-exit-codes", "Exit codes treated as success. Can be repeated.").IntsVar(&c.validExitCodes)
	c.Cmd.Flag("stdout", "Redirect raw stdout bytes to a file.").StringVar(&c.stdoutPath)
	c.Cmd.Flag("stderr", "Redirect raw stderr bytes to its own file.").StringVar(&c.stderrPath)
	c.Cmd.Flag("live", "Echo output live while capturing it.").BoolVar(&c.live)
	c.Cmd.Flag("hide-window", "Hide the child console window (windows only).").BoolVar(&c.hideWindow)
	c.Cmd.Flag("no-drain-goroutine", "Read output inline in the supervision loop instead of a drain goroutine.").BoolVar(&c.noDrain)

	return c
}

func (c RunCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	opts, skipHistory, err := c.runOptions()
	if err != nil {
		return err
	}

	// History is optional, a broken database never blocks the run.
	var repo storage.Repository
	if !skipHistory {
		sqliteRepo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: c.rootCmd.DBPath,
			Logger: logger,
		})
		if err != nil {
			logger.Warningf("History disabled, could not open database: %s", err)
			skipHistory = true
		} else {
			repo = sqliteRepo
			defer sqliteRepo.Close()
		}
	}

	cmdRunner, err := runner.NewRunner(runner.Config{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create runner: %w", err)
	}

	svc, err := apprun.NewService(apprun.ServiceConfig{
		Runner:     cmdRunner,
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	result, err := svc.Run(ctx, apprun.Request{
		Command:     c.command(),
		Options:     opts,
		SkipHistory: skipHistory,
	})
	if err != nil {
		return fmt.Errorf("could not execute command: %w", err)
	}

	// Captured output goes to the caller unless it was already echoed live or
	// redirected to a file.
	if !opts.LiveOutput && opts.StdoutPath == "" {
		fmt.Fprint(c.rootCmd.Stdout, result.Output)
	}

	// Exit with the command's exit code. os.Exit skips defers, close the
	// history database first.
	if repo != nil {
		_ = repo.Close()
	}
	os.Exit(cliExitCode(result.ExitCode))
	return nil
}

// cliExitCode maps a run result exit code to the process exit status. The OS
// truncates negative statuses to their low byte (-254 would become 2), which
// would make the reserved codes indistinguishable from real small exit codes,
// so they surface as their positive counterparts: 252 interrupted, 253 launch
// failure, 254 timeout, 255 internal.
func cliExitCode(code int) int {
	if model.IsSentinelExitCode(code) {
		return -code
	}
	return code
}

// command normalizes the positional arguments into the command spec: joined
// into a single line for the shell, kept as argv otherwise. A single argument
// without shell is treated as a line so quoted full commands get tokenized.
func (c RunCommand) command() model.Command {
	if c.shell || len(c.args) == 1 {
		return model.Command{Line: strings.Join(c.args, " ")}
	}
	return model.Command{Args: c.args}
}

// runOptions builds the run options: the user defaults file is the base and
// explicit flags override it.
func (c RunCommand) runOptions() (opts model.RunOptions, skipHistory bool, err error) {
	defaults, err := config.Load(c.rootCmd.ConfigPath)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return model.RunOptions{}, false, fmt.Errorf("could not load defaults file: %w", err)
	}

	opts = model.RunOptions{
		Shell:            c.shell,
		Encoding:         defaults.Encoding,
		ValidExitCodes:   defaults.ValidExitCodes,
		LiveOutput:       defaults.LiveOutput || c.live,
		StdoutPath:       c.stdoutPath,
		StderrPath:       c.stderrPath,
		HideWindow:       c.hideWindow,
		NoDrainGoroutine: c.noDrain,
		Stdout:           c.rootCmd.Stdout,
	}

	switch {
	case c.timeout != "":
		d, err := time.ParseDuration(c.timeout)
		if err != nil {
			return model.RunOptions{}, false, fmt.Errorf("invalid --timeout value: %w: %w", err, model.ErrNotValid)
		}
		opts.Timeout = d
	case defaults.Timeout != 0:
		opts.Timeout = defaults.Timeout
	default:
		opts.Timeout = defaultTimeout
	}

	if c.encoding != "" {
		opts.Encoding = c.encoding
	}
	if len(c.validExitCodes) > 0 {
		opts.ValidExitCodes = c.validExitCodes
	}

	return opts, c.rootCmd.NoHistory || !defaults.History, nil
}
