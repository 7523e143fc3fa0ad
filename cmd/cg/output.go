package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/matsen/citegraph/internal/graph"
	"github.com/matsen/citegraph/internal/notify"
)

// Human output styles.
var (
	headerStyle  = color.New(color.FgHiGreen, color.Bold)
	subtleStyle  = color.New(color.FgHiBlack)
	successStyle = color.New(color.FgGreen)
	errorStyle   = color.New(color.FgRed)
)

// Title truncation length for list output.
const ListTitleMaxLen = 60

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Sprint("error:"), msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse reports the notification a mutation produced.
type MessageResponse struct {
	Message string      `json:"message"`
	Kind    notify.Kind `json:"kind"`
	Stats   graph.Stats `json:"stats"`
}

// OutputResponse reports a file written by the command.
type OutputResponse struct {
	Output string `json:"output"`
	Bytes  int    `json:"bytes"`
}

// printNotification prints a success or error toast in human format.
func printNotification(n notify.Notification) {
	if n.Kind == notify.KindError {
		fmt.Println(errorStyle.Sprint(n.Message))
		return
	}
	fmt.Println(successStyle.Sprint(n.Message))
}

// printStatsHuman prints the four counters shown next to the graph.
func printStatsHuman(s graph.Stats) {
	fmt.Printf("%-10s %d\n", "Papers", s.Papers)
	fmt.Printf("%-10s %d\n", "Authors", s.Authors)
	fmt.Printf("%-10s %d\n", "Journals", s.Journals)
	fmt.Printf("%-10s %d\n", "Citations", s.Citations)
	subtleStyle.Printf("%d nodes, %d links\n", s.Nodes, s.Links)
}

// printTable prints rows aligned under a dimmed header.
func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var header, sep strings.Builder
	for i, h := range headers {
		fmt.Fprintf(&header, "%-*s  ", widths[i], h)
		sep.WriteString(strings.Repeat("-", widths[i]) + "  ")
	}
	subtleStyle.Println(strings.TrimRight(header.String(), " "))
	subtleStyle.Println(strings.TrimRight(sep.String(), " "))

	for _, row := range rows {
		var line strings.Builder
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(&line, "%-*s  ", widths[i], cell)
			}
		}
		fmt.Println(strings.TrimRight(line.String(), " "))
	}
}

// writeOutput writes content to path, or to stdout when path is empty.
func writeOutput(path string, content []byte) {
	if path == "" {
		os.Stdout.Write(content)
		return
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		exitWithError(ExitError, "writing output file: %v", err)
	}
	if humanOutput {
		fmt.Printf("%s %s\n", successStyle.Sprint("Wrote"), path)
	} else {
		outputJSON(OutputResponse{Output: path, Bytes: len(content)})
	}
}
