package prayer

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Format constants for display modes.
const (
	FormatTimeRemaining      = "time-remaining"
	FormatNextPrayerTime     = "next-prayer-time"
	FormatNameAndTime        = "name-and-time"
	FormatNameAndRemaining   = "name-and-remaining"
	FormatShortNameAndTime   = "short-name-and-time"
	FormatShortNameAndRemain = "short-name-and-remaining"
	FormatFull               = "full"
)

// Placeholder printed when no next prayer could be resolved.
const Placeholder = "--:--"

// FormatData is the data passed to custom Go templates.
type FormatData struct {
	Name      string // Full prayer name, e.g. "Asr"
	ShortName string // Abbreviated name, e.g. "A"
	Time      string // Formatted prayer time, e.g. "15:02" or "3:02 PM"
	Remaining string // Countdown, e.g. "2h 15m 0s", or "now"
	Hours     int
	Minutes   int
	Seconds   int
	Due       bool
}

// FormatOutput renders a resolution for a status line according to mode.
// timeLayout should be "15:04" for 24h or "3:04 PM" for 12h.
//
// If mode contains "{{", it is treated as a custom Go template string.
// Available template fields: .Name, .ShortName, .Time, .Remaining, .Hours,
// .Minutes, .Seconds, .Due
//
// Example: "{{.Name}} in {{.Remaining}}" -> "Asr in 2h 15m 0s"
func FormatOutput(r Resolution, mode string, timeLayout string) string {
	if r.State == Undetermined {
		return Placeholder
	}

	remaining := r.RemainingDisplay()
	timeStr := r.At.Format(timeLayout)
	name := string(r.Name)
	short := ShortNames[r.Name]

	if strings.Contains(mode, "{{") {
		secs := int(r.Remaining / time.Second)
		return formatCustom(mode, FormatData{
			Name:      name,
			ShortName: short,
			Time:      timeStr,
			Remaining: remaining,
			Hours:     (secs / 3600) % 24,
			Minutes:   (secs / 60) % 60,
			Seconds:   secs % 60,
			Due:       r.State == Due,
		})
	}

	switch mode {
	case FormatTimeRemaining:
		return remaining
	case FormatNextPrayerTime:
		return timeStr
	case FormatNameAndTime:
		return fmt.Sprintf("%s %s", name, timeStr)
	case FormatNameAndRemaining:
		return fmt.Sprintf("%s %s", name, remaining)
	case FormatShortNameAndTime:
		return fmt.Sprintf("%s %s", short, timeStr)
	case FormatShortNameAndRemain:
		return fmt.Sprintf("%s %s", short, remaining)
	case FormatFull:
		return fmt.Sprintf("%s %s (%s)", name, timeStr, remaining)
	default:
		return fmt.Sprintf("%s %s", name, timeStr)
	}
}

// formatCustom executes a user-provided Go template string against the FormatData.
func formatCustom(tmpl string, data FormatData) string {
	t, err := template.New("custom").Parse(tmpl)
	if err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}

	return buf.String()
}
