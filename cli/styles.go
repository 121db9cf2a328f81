package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	dimColor       = lipgloss.Color("7")
	accentColor    = lipgloss.Color("12")
	successColor   = lipgloss.Color("10")
	warningColor   = lipgloss.Color("11")
	dangerColor    = lipgloss.Color("9")
	highlightColor = lipgloss.Color("13")

	// Question header
	QuestionStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	// AI name above each answer
	AIStyle = lipgloss.NewStyle().
		Foreground(accentColor).
		Bold(true)

	// Timestamps, hints, secondary columns
	DimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	TitleStyle = lipgloss.NewStyle().
			Bold(true)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(dangerColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	HighlightStyle = lipgloss.NewStyle().
			Foreground(highlightColor).
			Bold(true)
)

// FormatHint formats alternating commands and descriptions.
// Usage: FormatHint("askai models add", "Add a model", "askai providers", "List providers")
func FormatHint(parts ...string) string {
	var lines []string
	for i := 0; i+1 < len(parts); i += 2 {
		lines = append(lines, "  "+parts[i]+"  "+DimStyle.Render(parts[i+1]))
	}
	return strings.Join(lines, "\n")
}

// truncate shortens s to at most width terminal cells.
func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// table prints aligned columns. Column widths are measured in terminal cells
// so CJK titles line up.
type table struct {
	headers []string
	rows    [][]string
	// max caps a column's width; 0 means unlimited.
	max []int
}

func newTable(headers ...string) *table {
	return &table{headers: headers, max: make([]int, len(headers))}
}

func (t *table) limit(col, width int) *table {
	t.max[col] = width
	return t
}

func (t *table) add(cells ...string) {
	row := make([]string, len(t.headers))
	for i := range row {
		if i < len(cells) {
			row[i] = truncate(cells[i], t.max[i])
		}
	}
	t.rows = append(t.rows, row)
}

func (t *table) widths() []int {
	w := make([]int, len(t.headers))
	for i, h := range t.headers {
		w[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if cw := runewidth.StringWidth(cell); cw > w[i] {
				w[i] = cw
			}
		}
	}
	return w
}

func (t *table) render(w io.Writer) {
	widths := t.widths()
	last := len(t.headers) - 1

	line := func(cells []string, style func(string) string) {
		var b strings.Builder
		for i, cell := range cells {
			if i < last {
				cell = runewidth.FillRight(cell, widths[i])
			}
			b.WriteString(style(cell))
			if i < last {
				b.WriteString("  ")
			}
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}

	line(t.headers, func(s string) string { return TitleStyle.Render(s) })
	for _, row := range t.rows {
		line(row, func(s string) string { return s })
	}
}
