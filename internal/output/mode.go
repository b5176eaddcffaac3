package output

import (
	"fmt"
	"os"
	"sync/atomic"
	"text/tabwriter"
)

// OutputMode is the process-wide default output mode set from CLI flags.
type OutputMode string

const (
	OutputModeText OutputMode = "text"
	OutputModeJSON OutputMode = "json"
)

var outputMode atomic.Value

// SetOutputMode switches between text and JSON output globally.
func SetOutputMode(jsonMode bool) {
	if jsonMode {
		outputMode.Store(OutputModeJSON)
	} else {
		outputMode.Store(OutputModeText)
	}
}

// GetOutputMode returns the current mode, defaulting to text.
func GetOutputMode() OutputMode {
	if mode, ok := outputMode.Load().(OutputMode); ok {
		return mode
	}
	return OutputModeText
}

// IsJSON reports whether JSON output is active.
func IsJSON() bool {
	return GetOutputMode() == OutputModeJSON
}

// OutputTable prints an aligned table to stderr for human consumption.
func OutputTable(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stderr, 0, 4, 2, ' ', 0)
	printRow(w, headers)
	for _, row := range rows {
		printRow(w, row)
	}
	_ = w.Flush()
}

func printRow(w *tabwriter.Writer, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, cell)
	}
	fmt.Fprintln(w)
}

// OutputList prints items one per line to stderr.
func OutputList(items []string) {
	for _, item := range items {
		fmt.Fprintln(os.Stderr, item)
	}
}
