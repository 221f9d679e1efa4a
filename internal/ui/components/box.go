package components

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorBorder   = lipgloss.Color("#2b3945")
	colorTitle    = lipgloss.Color("#3d7fa6")
	colorLabel    = lipgloss.Color("#4f8a7a")
	colorText     = lipgloss.Color("#d7d9da")
	colorMuted    = lipgloss.Color("#8f97ad")
	colorErrEdge  = lipgloss.Color("#6e3540")
	colorErrTitle = lipgloss.Color("#c2616e")
	colorErrText  = lipgloss.Color("#d6b5b5")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(1, 2)

	panelTitleStyle = lipgloss.NewStyle().Foreground(colorTitle).Bold(true)
	labelStyle      = lipgloss.NewStyle().Foreground(colorLabel).Bold(true)
	valueStyle      = lipgloss.NewStyle().Foreground(colorText)
	ruleStyle       = lipgloss.NewStyle().Foreground(colorBorder)

	errorPanelStyle = panelStyle.BorderForeground(colorErrEdge)
	errorTitleStyle = lipgloss.NewStyle().Foreground(colorErrTitle).Bold(true)
	errorTextStyle  = lipgloss.NewStyle().Foreground(colorErrText)
)

// Panels take about 70% of the terminal, between 40 and 80 columns, and
// never more than the terminal itself.
const (
	panelPercent  = 70
	panelMinWidth = 40
	panelMaxWidth = 80
)

func boxWidth(width int) int {
	if width <= 0 {
		return 0
	}
	return min(max(width*panelPercent/100, panelMinWidth), panelMaxWidth)
}

func safeBoxWidth(width int) int {
	return min(boxWidth(width), max(width, 0))
}

// frame renders content in style so the outer edge, border included, is
// exactly the panel width for a terminal of the given width.
func frame(style lipgloss.Style, content string, width int) string {
	w := safeBoxWidth(width)
	if w > 0 {
		w = max(w-style.GetHorizontalBorderSize(), 1)
	}
	return style.Width(w).Render(content)
}

// BoxContentWidth is the room inside a panel once border and padding are
// taken off.
func BoxContentWidth(width int) int {
	w := safeBoxWidth(width)
	if w <= 0 {
		return 0
	}
	return max(w-panelStyle.GetHorizontalFrameSize(), 0)
}

// ClampTextWidth folds text onto one line and cuts it to width columns.
func ClampTextWidth(text string, width int) string {
	cleaned := SanitizeOneLine(text)
	if width <= 0 || lipgloss.Width(cleaned) <= width {
		return cleaned
	}
	return truncateRunes(cleaned, width)
}

// ClampTextWidthEllipsis is ClampTextWidth with a trailing "..." when text
// is cut.
func ClampTextWidthEllipsis(text string, width int) string {
	cleaned := SanitizeOneLine(text)
	if width <= 0 || lipgloss.Width(cleaned) <= width {
		return cleaned
	}
	if width <= 3 {
		return truncateRunes(cleaned, width)
	}
	return truncateRunes(cleaned, width-3) + "..."
}

// ErrorBox renders message in a red panel, title first.
func ErrorBox(title, message string, width int) string {
	body := errorTextStyle.Render(message)
	if title != "" {
		body = errorTitleStyle.Render(title) + "\n\n" + body
	}
	return frame(errorPanelStyle, body, width)
}

// TitledBox renders content in a panel with title set into the top border.
func TitledBox(title, content string, width int) string {
	boxed := frame(panelStyle, content, width)
	if title == "" {
		return boxed
	}
	lines := strings.Split(boxed, "\n")
	lineWidth := lipgloss.Width(lines[0])
	if lineWidth < 4 {
		return boxed
	}
	lines[0] = titledEdge(title, lineWidth)
	return strings.Join(lines, "\n")
}

// titledEdge draws a top border lineWidth wide with title centred in it.
func titledEdge(title string, lineWidth int) string {
	border := lipgloss.RoundedBorder()
	inner := lineWidth - 2
	label := fmt.Sprintf(" [ %s ] ", SanitizeOneLine(title))
	if lipgloss.Width(label) > inner {
		label = truncateRunes(label, inner)
	}
	left := (inner - lipgloss.Width(label)) / 2
	right := inner - lipgloss.Width(label) - left

	edge := ruleStyle.Render(border.TopLeft+strings.Repeat(border.Top, left)) +
		panelTitleStyle.Render(label) +
		ruleStyle.Render(strings.Repeat(border.Top, right)+border.TopRight)
	return edge
}

// TableRow is one line of a key-value Table. Amount right-aligns the value
// so money columns line up, Strong bolds the row (grand totals), and a row
// with neither label nor value draws a rule.
type TableRow struct {
	Label      string
	Value      string
	ValueColor string
	Amount     bool
	Strong     bool
}

func (r TableRow) isRule() bool {
	return r.Label == "" && r.Value == ""
}

// Table renders label/value rows in a panel with the labels aligned.
func Table(title string, rows []TableRow, width int) string {
	if len(rows) == 0 {
		return ""
	}

	longest := 0
	for _, r := range rows {
		longest = max(longest, lipgloss.Width(SanitizeOneLine(r.Label)))
	}
	content := BoxContentWidth(width)
	if content <= 0 {
		content = longest + 24
	}
	labelWidth := min(longest, 24, max(content/2, 4))
	valueWidth := max(content-labelWidth-2, 4)

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.isRule() {
			lines = append(lines, ruleStyle.Render(strings.Repeat("─", labelWidth+2+valueWidth)))
			continue
		}
		lines = append(lines, renderTableRow(r, labelWidth, valueWidth))
	}
	body := strings.Join(lines, "\n")

	if title != "" {
		return TitledBox(title, body, width)
	}
	return frame(panelStyle, body, width)
}

func renderTableRow(r TableRow, labelWidth, valueWidth int) string {
	ls, vs := labelStyle, valueStyle
	if r.ValueColor != "" {
		vs = vs.Foreground(lipgloss.Color(r.ValueColor))
	}
	if r.Strong {
		ls, vs = ls.Bold(true), vs.Bold(true)
	}
	value := ClampTextWidth(r.Value, valueWidth)
	if r.Amount {
		value = padLeft(value, valueWidth)
	}
	return ls.Render(padRight(ClampTextWidth(r.Label, labelWidth), labelWidth)) + "  " + vs.Render(value)
}

// Indent adds left padding to every line of a multi-line string.
func Indent(s string, spaces int) string {
	pad := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = pad + l
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func padLeft(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return strings.Repeat(" ", width-w) + s
	}
	return s
}
