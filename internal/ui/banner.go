package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const bannerArt = `
 _     _____ ____   ____ _____ ____  ____  _____ ____  _  __
| |   | ____|  _ \ / ___| ____|  _ \|  _ \| ____/ ___|| |/ /
| |   |  _| | | | | |  _|  _| | |_) | | | |  _| \___ \| ' /
| |___| |___| |_| | |_| | |___|  _ <| |_| | |___ ___) | . \
|_____|_____|____/ \____|_____|_| \_\____/|_____|____/|_|\_\`

const bannerSubtitle = "Invoices, quotes and tickets • Terminal client"

// RenderBanner returns the styled ASCII banner.
func RenderBanner() string {
	lines := strings.Split(bannerArt, "\n")
	baseStyle := lipgloss.NewStyle().Foreground(ColorPrimary)

	maxWidth := 0
	var rendered strings.Builder
	for _, line := range lines {
		if line == "" {
			continue
		}
		if w := lipgloss.Width(line); w > maxWidth {
			maxWidth = w
		}
		rendered.WriteString(baseStyle.Render(line) + "\n")
	}

	subtitleWidth := lipgloss.Width(bannerSubtitle)
	blockWidth := max(maxWidth, subtitleWidth)

	subtitle := lipgloss.NewStyle().
		Foreground(ColorMuted).
		Width(blockWidth).
		Align(lipgloss.Center).
		Render(bannerSubtitle)
	underline := lipgloss.NewStyle().
		Foreground(ColorBorder).
		Width(blockWidth).
		Align(lipgloss.Center).
		Render(strings.Repeat("─", subtitleWidth))

	return "\n" + rendered.String() + "\n" + subtitle + "\n" + underline + "\n"
}
