// Package notify holds the sinks a countdown driver fans resolutions out to.
package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/smokyabdulrahman/prayer-countdown/internal/prayer"
)

// Terminal rewrites a single status line in place.
type Terminal struct {
	mu      sync.Mutex
	w       io.Writer
	mode    string
	layout  string
	lastLen int
}

// NewTerminal writes lines rendered with prayer.FormatOutput(mode, layout) to w.
func NewTerminal(w io.Writer, mode, layout string) *Terminal {
	return &Terminal{w: w, mode: mode, layout: layout}
}

// Notify redraws the line.
func (t *Terminal) Notify(_ context.Context, r prayer.Resolution) error {
	line := prayer.FormatOutput(r, t.mode, t.layout)

	t.mu.Lock()
	defer t.mu.Unlock()

	pad := ""
	if n := t.lastLen - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	t.lastLen = len(line)

	_, err := fmt.Fprintf(t.w, "\r%s%s", line, pad)
	return err
}

// Close ends the line so the shell prompt starts on a fresh one.
func (t *Terminal) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastLen == 0 {
		return nil
	}
	_, err := fmt.Fprintln(t.w)
	return err
}
