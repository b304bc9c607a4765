package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// SimpleTable lays out pre-rendered cells in aligned columns. Cells may
// already carry styling; widths are measured with lipgloss so escape codes
// do not count.
type SimpleTable struct {
	Headers []string
	Rows    [][]string
}

// NewSimpleTable creates a new SimpleTable with the given headers.
func NewSimpleTable(headers []string) *SimpleTable {
	return &SimpleTable{
		Headers: headers,
		Rows:    make([][]string, 0),
	}
}

// AddRow adds a row to the table.
func (t *SimpleTable) AddRow(row ...string) {
	t.Rows = append(t.Rows, row)
}

// View renders the table using the provided styles. Headers are centered
// over their column.
func (t *SimpleTable) View(styles Styles) string {
	var sb strings.Builder

	colWidths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		colWidths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(colWidths) {
				if w := lipgloss.Width(cell); w > colWidths[i] {
					colWidths[i] = w
				}
			}
		}
	}

	// lipgloss Width includes padding
	for i := range colWidths {
		colWidths[i] += 2
	}

	headerStyle := styles.Emphasis.Copy().Padding(0, 1).Align(lipgloss.Center)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	sepStyle := styles.Muted

	for i, h := range t.Headers {
		sb.WriteString(headerStyle.Width(colWidths[i]).Render(h))
		if i < len(t.Headers)-1 {
			sb.WriteString(sepStyle.Render("│"))
		}
	}
	sb.WriteString("\n")

	totalWidth := len(t.Headers) - 1 // separators
	for _, w := range colWidths {
		totalWidth += w
	}
	sb.WriteString(sepStyle.Render(strings.Repeat("─", max(totalWidth, 0))) + "\n")

	for _, row := range t.Rows {
		for i := range t.Headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			sb.WriteString(cellStyle.Width(colWidths[i]).Render(cell))
			if i < len(t.Headers)-1 {
				sb.WriteString(sepStyle.Render("│"))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
