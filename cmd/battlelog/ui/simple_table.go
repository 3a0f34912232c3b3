package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// SimpleTable renders rows under a header with one optionally selected row.
type SimpleTable struct {
	Headers  []string
	Rows     [][]string
	Selected int // -1 for none
}

// NewSimpleTable creates a new SimpleTable with the given headers.
func NewSimpleTable(headers ...string) *SimpleTable {
	return &SimpleTable{
		Headers:  headers,
		Rows:     make([][]string, 0),
		Selected: -1,
	}
}

// AddRow adds a row to the table.
func (t *SimpleTable) AddRow(row ...string) {
	t.Rows = append(t.Rows, row)
}

// View renders the table. Rows beyond maxRows (when positive) are windowed
// so the selected row stays visible.
func (t *SimpleTable) View(styles Styles, maxRows int) string {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}
	// lipgloss Width includes padding
	for i := range widths {
		widths[i] += 2
	}

	headerStyle := styles.Bold.Padding(0, 1)
	rowStyle := styles.Body.Padding(0, 1)
	selStyle := styles.Selected.Padding(0, 1)
	sep := styles.Muted.Render("|")

	var sb strings.Builder
	sb.WriteString(renderRow(t.Headers, widths, headerStyle, sep))
	sb.WriteString("\n")

	total := len(widths) - 1
	for _, w := range widths {
		total += w
	}
	sb.WriteString(styles.Muted.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")

	start, end := window(len(t.Rows), t.Selected, maxRows)
	for i := start; i < end; i++ {
		style := rowStyle
		if i == t.Selected {
			style = selStyle
		}
		sb.WriteString(renderRow(t.Rows[i], widths, style, sep))
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderRow(cells []string, widths []int, style lipgloss.Style, sep string) string {
	parts := make([]string, 0, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		parts = append(parts, style.Width(w).Render(cell))
	}
	return strings.Join(parts, sep)
}

// window returns the [start, end) slice of n rows to show so that selected
// is inside it.
func window(n, selected, max int) (int, int) {
	if max <= 0 || n <= max {
		return 0, n
	}
	start := 0
	if selected >= max {
		start = selected - max + 1
	}
	return start, start + max
}
