package printer

import "github.com/slok/runx/internal/model"

// Printer knows how to print execution information in different formats.
type Printer interface {
	PrintExecutions(executions []model.Execution) error
	PrintMessage(msg string) error
}
