package display

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Table renders an aligned text table.
type Table struct {
	headers []string
	rows    [][]string

	highlightRow int // typically today, -1 for none
	cellRow      int // typically the next prayer, -1 for none
	cellCol      int
}

// NewTable creates a new table with the given column headers.
func NewTable(headers []string) *Table {
	return &Table{
		headers:      headers,
		highlightRow: -1,
		cellRow:      -1,
		cellCol:      -1,
	}
}

// AddRow appends a row of values.
func (t *Table) AddRow(values []string) {
	t.rows = append(t.rows, values)
}

// SetHighlightRow sets which row index (0-based) is rendered bold.
func (t *Table) SetHighlightRow(idx int) {
	t.highlightRow = idx
}

// SetHighlightCell sets a single cell rendered with the accent color.
func (t *Table) SetHighlightCell(row, col int) {
	t.cellRow, t.cellCol = row, col
}

// Render produces the formatted table string with leading indent.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); i < len(widths) && n > widths[i] {
				widths[i] = n
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("  " + Bold(formatRow(t.headers, widths)) + "\n")

	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("─", w)
	}
	sb.WriteString(Dim("  "+strings.Join(sep, "  ")) + "\n")

	for i, row := range t.rows {
		cells := padCells(row, widths)
		for j := range cells {
			switch {
			case i == t.cellRow && j == t.cellCol:
				cells[j] = Accent(cells[j])
			case i == t.highlightRow:
				cells[j] = Bold(cells[j])
			}
		}
		sb.WriteString("  " + strings.Join(cells, "  ") + "\n")
	}

	return sb.String()
}

// padCells pads every cell to its column width. Styling is applied after
// padding so escape codes do not count towards the width.
func padCells(cells []string, widths []int) []string {
	out := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		out[i] = cell + strings.Repeat(" ", w-utf8.RuneCountInString(cell))
	}
	return out
}

// formatRow formats a row of cells using the given column widths.
func formatRow(cells []string, widths []int) string {
	return strings.Join(padCells(cells, widths), "  ")
}

// Section renders a bold title followed by an indented key/value list.
func Section(title string, pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		if n := utf8.RuneCountInString(p[0]); n > width {
			width = n
		}
	}

	var sb strings.Builder
	sb.WriteString(Bold(title) + "\n")
	for _, p := range pairs {
		fmt.Fprintf(&sb, "  %-*s  %s\n", width, p[0], p[1])
	}
	return sb.String()
}
