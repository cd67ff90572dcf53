package printer_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/runx/internal/model"
	"github.com/slok/runx/internal/printer"
)

func testExecutions() []model.Execution {
	return []model.Execution{
		{
			ID:        "01JXAMPLE0000000000000000A",
			Command:   "echo hi",
			ExitCode:  0,
			Duration:  42 * time.Millisecond,
			CreatedAt: time.Now().UTC().Add(-2 * time.Minute),
		},
		{
			ID:        "01JXAMPLE0000000000000000B",
			Command:   "sleep 60",
			Shell:     true,
			ExitCode:  model.ExitCodeTimeout,
			TimedOut:  true,
			Duration:  time.Second,
			CreatedAt: time.Now().UTC().Add(-1 * time.Hour),
		},
		{
			ID:          "01JXAMPLE0000000000000000C",
			Command:     "apt-get update",
			ExitCode:    model.ExitCodeInterrupted,
			Interrupted: true,
			Duration:    300 * time.Millisecond,
			CreatedAt:   time.Now().UTC().Add(-24 * time.Hour),
		},
		{
			ID:        "01JXAMPLE0000000000000000D",
			Command:   "false",
			ExitCode:  1,
			Duration:  5 * time.Millisecond,
			CreatedAt: time.Now().UTC(),
		},
	}
}

func TestTablePrinterPrintExecutions(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintExecutions(testExecutions())
	require.NoError(t, err)

	got := buf.String()

	assert.Contains(t, got, "ID")
	assert.Contains(t, got, "COMMAND")
	assert.Contains(t, got, "RESULT")
	assert.Contains(t, got, "echo hi")
	assert.Contains(t, got, "ok")
	assert.Contains(t, got, "timeout")
	assert.Contains(t, got, "interrupted")
	assert.Contains(t, got, "failed")
	assert.Contains(t, got, "42ms")
}

func TestTablePrinterPrintExecutionsEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintExecutions(nil)
	require.NoError(t, err)

	assert.Empty(t, buf.String())
}

func TestTablePrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintMessage("No executions recorded.")
	require.NoError(t, err)

	assert.Equal(t, "No executions recorded.\n", buf.String())
}

func TestJSONPrinterPrintExecutions(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintExecutions(testExecutions())
	require.NoError(t, err)

	var items []map[string]interface{}
	err = json.Unmarshal(buf.Bytes(), &items)
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, "01JXAMPLE0000000000000000A", items[0]["id"])
	assert.Equal(t, "echo hi", items[0]["command"])
	assert.Equal(t, float64(0), items[0]["exit_code"])
	assert.Equal(t, float64(42), items[0]["duration_ms"])

	assert.Equal(t, true, items[1]["shell"])
	assert.Equal(t, true, items[1]["timed_out"])
	assert.Equal(t, float64(model.ExitCodeTimeout), items[1]["exit_code"])

	assert.Equal(t, true, items[2]["interrupted"])
}

func TestJSONPrinterPrintExecutionsEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintExecutions(nil)
	require.NoError(t, err)

	// Empty history still renders a JSON array for machine consumers.
	assert.JSONEq(t, "[]", buf.String())
}

func TestJSONPrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintMessage("hello")
	require.NoError(t, err)

	assert.JSONEq(t, `{"message": "hello"}`, buf.String())
}

func TestTimeAgo(t *testing.T) {
	now := time.Now().UTC()

	tests := map[string]struct {
		t       time.Time
		expText string
	}{
		"Seconds ago":      {t: now.Add(-30 * time.Second), expText: "30 seconds ago (UTC)"},
		"A single minute":  {t: now.Add(-90 * time.Second), expText: "1 minute ago (UTC)"},
		"Minutes ago":      {t: now.Add(-10 * time.Minute), expText: "10 minutes ago (UTC)"},
		"Hours ago":        {t: now.Add(-3 * time.Hour), expText: "3 hours ago (UTC)"},
		"Days ago":         {t: now.Add(-49 * time.Hour), expText: "2 days ago (UTC)"},
		"Future timestamp": {t: now.Add(time.Hour), expText: "in the future (UTC)"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expText, printer.TimeAgo(test.t))
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	assert.Equal(t, "2025-03-14 15:09:26 UTC", printer.FormatTimestamp(ts))
}
