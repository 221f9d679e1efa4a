package components

import "github.com/charmbracelet/lipgloss"

var (
	confirmStyle = panelStyle.BorderForeground(lipgloss.Color("#c78854"))
	confirmTitle = lipgloss.NewStyle().Foreground(lipgloss.Color("#c78854")).Bold(true)
)

// ConfirmDialog asks a yes/no question in an amber panel sized like the
// other panels for a terminal of the given width.
func ConfirmDialog(title, message string, width int) string {
	body := confirmTitle.Render(SanitizeOneLine(title)) + "\n\n" +
		valueStyle.Render(message) + "\n\n" +
		Hint("y", "confirm") + hintSep + Hint("n", "cancel")
	return frame(confirmStyle, body, width)
}
