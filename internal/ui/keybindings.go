package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gravitrone/ledgerdesk/internal/ui/components"
)

// --- Key Helpers ---

func isKey(msg tea.KeyMsg, keys ...string) bool {
	return components.IsKey(msg, keys...)
}

func isQuit(msg tea.KeyMsg) bool {
	return components.IsQuit(msg)
}

func isBack(msg tea.KeyMsg) bool {
	return components.IsBack(msg)
}

func isUp(msg tea.KeyMsg) bool {
	return isKey(msg, "up")
}

func isDown(msg tea.KeyMsg) bool {
	return isKey(msg, "down")
}

func isEnter(msg tea.KeyMsg) bool {
	return components.IsEnter(msg)
}

func isNextField(msg tea.KeyMsg) bool {
	return isKey(msg, "tab")
}

func isPrevField(msg tea.KeyMsg) bool {
	return isKey(msg, "shift+tab")
}

func isSave(msg tea.KeyMsg) bool {
	return isKey(msg, "ctrl+s")
}

func isPalette(msg tea.KeyMsg) bool {
	return isKey(msg, "ctrl+k")
}
