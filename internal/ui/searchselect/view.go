package searchselect

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gravitrone/ledgerdesk/internal/ui/components"
)

var (
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#436b77")).Bold(true)
	inputStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#d7d9da"))
	placeholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ba0bf"))
	selectedRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f57b4")).Bold(true)
	rowStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#d7d9da"))
	detailStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ba0bf"))
	dropdownStyle    = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("#273540")).
				Padding(0, 1)
)

// syncList mirrors the dropdown rows and highlight into the list window.
func (m *Model[T]) syncList() {
	rows := make([]string, 0, len(m.filtered)+1)
	if m.schema.AllowUnassigned {
		rows = append(rows, m.schema.unassignedLabel())
	}
	for _, item := range m.filtered {
		rows = append(rows, m.rowText(item))
	}
	m.list.SetItems(rows)
	m.list.SetCursor(m.rowIndex(m.highlight))
}

// rowIndex maps a highlight position to its dropdown row.
func (m *Model[T]) rowIndex(highlight int) int {
	offset := 0
	if m.schema.AllowUnassigned {
		offset = 1
	}
	switch {
	case highlight == UnassignedIndex && m.schema.AllowUnassigned:
		return 0
	case highlight >= 0:
		return highlight + offset
	}
	return NoHighlight
}

func (m *Model[T]) rowText(item T) string {
	name := components.SanitizeOneLine(m.schema.Name(item))
	if m.schema.Detail == nil {
		return name
	}
	detail := components.SanitizeOneLine(m.schema.Detail(item))
	if detail == "" {
		return name
	}
	return name + "  " + detailStyle.Render(detail)
}

// View renders the input line and, when open, the dropdown.
func (m *Model[T]) View() string {
	var b strings.Builder

	label := m.schema.Label
	if label == "" {
		label = m.schema.Kind
	}
	b.WriteString(labelStyle.Render(label + ": "))

	switch {
	case m.query != "":
		b.WriteString(inputStyle.Render(components.SanitizeOneLine(m.query)))
	case m.schema.Scoped() && m.scopeID == "":
		b.WriteString(placeholderStyle.Render("Select a client first"))
	default:
		b.WriteString(placeholderStyle.Render(m.schema.Placeholder))
	}
	if m.focused {
		b.WriteString(selectedRowStyle.Render("▌"))
	}

	if !m.open {
		return b.String()
	}
	b.WriteString("\n")
	b.WriteString(m.dropdownView())
	return b.String()
}

func (m *Model[T]) dropdownView() string {
	var rows []string
	switch {
	case m.loading:
		rows = append(rows, placeholderStyle.Render("Loading..."))
	case len(m.list.Items) == 0:
		rows = append(rows, placeholderStyle.Render("No results."))
	default:
		for i, row := range m.list.Visible() {
			abs := m.list.RelToAbs(i)
			if m.list.IsSelected(abs) {
				rows = append(rows, selectedRowStyle.Render("> ")+selectedRowStyle.Render(row))
				continue
			}
			rows = append(rows, "  "+rowStyle.Render(row))
		}
		if hidden := len(m.list.Items) - len(m.list.Visible()); hidden > 0 {
			rows = append(rows, placeholderStyle.Render("  ..."))
		}
	}
	style := dropdownStyle
	if m.width > 4 {
		style = style.Width(m.width - 2)
	}
	return style.Render(strings.Join(rows, "\n"))
}
