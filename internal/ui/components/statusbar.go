package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	hintKeyStyle  = lipgloss.NewStyle().Foreground(colorTitle).Bold(true)
	hintDescStyle = lipgloss.NewStyle().Foreground(colorMuted)
	hintSep       = ruleStyle.Render(" │ ")
)

// Hint formats one key binding as "key desc".
func Hint(key, desc string) string {
	return hintKeyStyle.Render(key) + " " + hintDescStyle.Render(desc)
}

// StatusBar lays hints out on as few centred lines as width allows. A
// width of zero keeps everything on one line.
func StatusBar(hints []string, width int) string {
	if len(hints) == 0 {
		return ""
	}
	rows := wrapHints(hints, width)
	if width <= 0 {
		return rows[0]
	}
	for i, row := range rows {
		rows[i] = lipgloss.PlaceHorizontal(width, lipgloss.Center, row)
	}
	return strings.Join(rows, "\n")
}

// wrapHints packs hints greedily into rows no wider than width. A hint
// wider than width still gets a row of its own.
func wrapHints(hints []string, width int) []string {
	if width <= 0 {
		return []string{strings.Join(hints, hintSep)}
	}
	sepWidth := lipgloss.Width(hintSep)
	var rows []string
	var current []string
	used := 0
	for _, h := range hints {
		w := lipgloss.Width(h)
		if len(current) > 0 && used+sepWidth+w > width {
			rows = append(rows, strings.Join(current, hintSep))
			current, used = nil, 0
		}
		if len(current) > 0 {
			used += sepWidth
		}
		current = append(current, h)
		used += w
	}
	if len(current) > 0 {
		rows = append(rows, strings.Join(current, hintSep))
	}
	return rows
}
