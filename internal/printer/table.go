package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/slok/runx/internal/model"
)

// TablePrinter prints execution information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintExecutions prints executions in a table format.
func (t *TablePrinter) PrintExecutions(executions []model.Execution) error {
	if len(executions) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tCOMMAND\tEXIT\tRESULT\tDURATION\tCREATED")

	for _, e := range executions {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", e.ID, e.Command, e.ExitCode, executionResult(e), e.Duration.Round(executionDurationPrecision), TimeAgo(e.CreatedAt))
	}

	return nil
}

// PrintMessage prints a simple message.
func (t *TablePrinter) PrintMessage(msg string) error {
	_, err := fmt.Fprintln(t.writer, msg)
	return err
}

func executionResult(e model.Execution) string {
	switch {
	case e.TimedOut:
		return "timeout"
	case e.Interrupted:
		return "interrupted"
	case e.ExitCode == 0:
		return "ok"
	default:
		return "failed"
	}
}
