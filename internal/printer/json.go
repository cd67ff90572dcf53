package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/runx/internal/model"
)

// JSONPrinter prints execution information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// executionItem represents an execution in the list output.
type executionItem struct {
	ID          string    `json:"id"`
	Command     string    `json:"command"`
	Shell       bool      `json:"shell"`
	ExitCode    int       `json:"exit_code"`
	TimedOut    bool      `json:"timed_out"`
	Interrupted bool      `json:"interrupted"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintExecutions prints executions in JSON format.
func (j *JSONPrinter) PrintExecutions(executions []model.Execution) error {
	items := make([]executionItem, len(executions))
	for i, e := range executions {
		items[i] = executionItem{
			ID:          e.ID,
			Command:     e.Command,
			Shell:       e.Shell,
			ExitCode:    e.ExitCode,
			TimedOut:    e.TimedOut,
			Interrupted: e.Interrupted,
			DurationMS:  e.Duration.Milliseconds(),
			CreatedAt:   e.CreatedAt,
		}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(messageOutput{Message: msg})
}
