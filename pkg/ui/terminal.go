// Package ui prints the banner, per-item progress and run summaries of the
// command line tool.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ASCIILogo is printed at the start of every pass
const ASCIILogo = `
    ╔════════════════════════════════════════════════════════════════════╗
    ║ ████████╗██╗██╗  ██╗███████╗ ██████╗██████╗  █████╗ ██████╗ ███████╗║
    ║ ╚══██╔══╝██║██║ ██╔╝██╔════╝██╔════╝██╔══██╗██╔══██╗██╔══██╗██╔════╝║
    ║    ██║   ██║█████╔╝ ███████╗██║     ██████╔╝███████║██████╔╝█████╗  ║
    ║    ██║   ██║██╔═██╗ ╚════██║██║     ██╔══██╗██╔══██║██╔═══╝ ██╔══╝  ║
    ║    ██║   ██║██║  ██╗███████║╚██████╗██║  ██║██║  ██║██║     ███████╗║
    ║    ╚═╝   ╚═╝╚═╝  ╚═╝╚══════╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝     ╚══════╝║
    ║              PROFILE, VIDEO AND COMMENT INGESTION                 ║
    ╚════════════════════════════════════════════════════════════════════╝
`

// Output receives everything this package prints
var Output io.Writer = os.Stdout

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

func PrintLogo() {
	fmt.Fprint(Output, Cyan(ASCIILogo))
}

// PrintError prints msg in red, followed by err when given
func PrintError(msg string, err error) {
	if err != nil {
		msg += ": " + err.Error()
	}
	fmt.Fprintln(Output, Red(msg))
}

func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green(msg))
}

// PrintInfo prints a label: value pair
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", Cyan(label), Yellow(value))
}

func PrintWarning(msg string) {
	fmt.Fprintln(Output, Yellow(msg))
}

func PrintHighlight(msg string) {
	fmt.Fprintln(Output, Magenta(msg))
}

// Row is one label/value line of a table
type Row struct {
	Label string
	Value string
}

// PrintTable prints rows under a title with the labels aligned
func PrintTable(title string, rows []Row) {
	width := 0
	for _, r := range rows {
		if len(r.Label) > width {
			width = len(r.Label)
		}
	}

	fmt.Fprintln(Output)
	fmt.Fprintln(Output, Magenta(title))
	fmt.Fprintln(Output, Dim(strings.Repeat("─", width+24)))
	for _, r := range rows {
		fmt.Fprintf(Output, "%s  %s\n", Cyan(fmt.Sprintf("%-*s", width, r.Label)), Yellow(r.Value))
	}
}
