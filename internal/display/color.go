// Package display provides terminal styling and aligned tables for the CLI.
//
// Colors honour NO_COLOR (https://no-color.org/) and FORCE_COLOR, and are
// otherwise enabled only when stdout is a terminal.
package display

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI escape codes for styling.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
	fgGray = "\033[90m"
)

var enabled = detect(os.LookupEnv, os.Stdout.Fd())

// detect decides whether to color output written to fd.
func detect(lookup func(string) (string, bool), fd uintptr) bool {
	if _, ok := lookup("NO_COLOR"); ok {
		return false
	}
	if _, ok := lookup("FORCE_COLOR"); ok {
		return true
	}
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// SetEnabled overrides the detected color state, e.g. for --json output.
func SetEnabled(b bool) {
	enabled = b
}

// Enabled reports whether color output is currently active.
func Enabled() bool {
	return enabled
}

func wrap(code, text string) string {
	if !enabled {
		return text
	}
	return code + text + reset
}

// Bold returns text rendered in bold.
func Bold(text string) string { return wrap(bold, text) }

// Dim returns text rendered faint.
func Dim(text string) string { return wrap(dim, text) }

// Red returns text rendered in red.
func Red(text string) string { return wrap(red, text) }

// Green returns text rendered in green.
func Green(text string) string { return wrap(green, text) }

// Yellow returns text rendered in yellow.
func Yellow(text string) string { return wrap(yellow, text) }

// Cyan returns text rendered in cyan.
func Cyan(text string) string { return wrap(cyan, text) }

// Gray returns text rendered in gray.
func Gray(text string) string { return wrap(fgGray, text) }

// Accent marks the next prayer (bold cyan).
func Accent(text string) string { return wrap(bold+cyan, text) }

// Boldf formats and bolds a string.
func Boldf(format string, a ...interface{}) string {
	return Bold(fmt.Sprintf(format, a...))
}
