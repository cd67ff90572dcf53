package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/runx/internal/printer"
	"github.com/slok/runx/internal/storage/sqlite"
)

type HistoryCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	limit  int
	output string
}

// NewHistoryCommand returns the history command.
func NewHistoryCommand(rootCmd *RootCommand, app *kingpin.Application) *HistoryCommand {
	c := &HistoryCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("history", "List past executions, most recent first.")
	c.Cmd.Flag("limit", "Maximum number of executions to list, 0 for all.").Default("20").IntVar(&c.limit)
	c.Cmd.Flag("output", "Output format.").Short('o').Default("table").EnumVar(&c.output, "table", "json")

	return c
}

func (c HistoryCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	executions, err := repo.ListExecutions(ctx, c.limit)
	if err != nil {
		return fmt.Errorf("could not list executions: %w", err)
	}

	var p printer.Printer
	switch c.output {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default:
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if len(executions) == 0 && c.output != "json" {
		return p.PrintMessage("No executions recorded.")
	}

	return p.PrintExecutions(executions)
}
