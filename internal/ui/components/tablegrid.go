package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TableColumn is one column of a Grid. Width excludes separators. Flex
// marks the column that absorbs spare or missing width; money columns
// stay fixed so amounts never get cut.
type TableColumn struct {
	Header string
	Width  int
	Align  lipgloss.Position
	Flex   bool
}

// Grid is a header, a rule, the data rows and an optional footer (usually
// the totals line) below a second rule. Active is the highlighted row
// index, or -1.
type Grid struct {
	Columns []TableColumn
	Rows    [][]string
	Footer  []string
	Active  int
}

const gridLeftOffset = 2

var (
	gridActiveRowStyle = lipgloss.NewStyle().
				Foreground(colorText).
				Background(lipgloss.Color("#1f2630")).
				Bold(true)
	gridActiveSepStyle = ruleStyle.Background(lipgloss.Color("#1f2630"))
	gridFooterStyle    = lipgloss.NewStyle().Foreground(colorText).Bold(true)
)

// Render draws the grid exactly width columns wide.
func (g Grid) Render(width int) string {
	if width <= 0 {
		return ""
	}
	if len(g.Columns) == 0 {
		return padRight("", width)
	}

	border := lipgloss.RoundedBorder()
	cols := fitGridColumns(g.Columns, width)

	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Header
	}
	out := []string{
		renderGridRow(cols, headers, width, labelStyle, ruleStyle),
		renderGridRule(cols, border.Middle, border.Top, width),
	}
	for i, row := range g.Rows {
		if i == g.Active {
			out = append(out, renderGridRow(cols, row, width, gridActiveRowStyle, gridActiveSepStyle))
			continue
		}
		out = append(out, renderGridRow(cols, row, width, lipgloss.NewStyle(), ruleStyle))
	}
	if len(g.Footer) > 0 {
		out = append(out,
			renderGridRule(cols, border.Middle, border.Top, width),
			renderGridRow(cols, g.Footer, width, gridFooterStyle, ruleStyle),
		)
	}
	return strings.Join(out, "\n")
}

// fitGridColumns resizes the flex column (the last one when none is
// marked) so columns plus single-width separators fill the row.
func fitGridColumns(columns []TableColumn, width int) []TableColumn {
	fitted := make([]TableColumn, len(columns))
	copy(fitted, columns)

	flex := len(fitted) - 1
	used := len(fitted) - 1
	for i := range fitted {
		fitted[i].Width = max(fitted[i].Width, 1)
		used += fitted[i].Width
		if fitted[i].Flex {
			flex = i
		}
	}
	available := max(width-gridLeftOffset, len(fitted))
	fitted[flex].Width = max(fitted[flex].Width+available-used, 1)
	return fitted
}

// renderGridRow draws one row. Active rows paint their separators too so
// the highlight reads as one bar.
func renderGridRow(columns []TableColumn, cells []string, width int, style, sepStyle lipgloss.Style) string {
	sep := sepStyle.Inline(true).Render(lipgloss.RoundedBorder().Left)
	parts := make([]string, len(columns))
	for i, col := range columns {
		text := ""
		if i < len(cells) {
			text = cells[i]
		}
		parts[i] = style.Inline(true).Render(renderGridCell(text, col.Width, col.Align))
	}
	return padRight(strings.Repeat(" ", gridLeftOffset)+strings.Join(parts, sep), width)
}

func renderGridRule(columns []TableColumn, cross, horiz string, width int) string {
	segments := make([]string, len(columns))
	for i, col := range columns {
		segments[i] = strings.Repeat(horiz, col.Width)
	}
	line := strings.Repeat(" ", gridLeftOffset) + strings.Join(segments, cross)
	return ruleStyle.Inline(true).Render(padRight(line, width))
}

func renderGridCell(text string, width int, align lipgloss.Position) string {
	if width <= 0 {
		return ""
	}
	clamped := ClampTextWidth(text, width)
	switch align {
	case lipgloss.Right:
		return padLeft(clamped, width)
	case lipgloss.Center:
		left := (width - lipgloss.Width(clamped)) / 2
		return padRight(strings.Repeat(" ", left)+clamped, width)
	default:
		return padRight(clamped, width)
	}
}
