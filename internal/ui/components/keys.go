package components

import tea "github.com/charmbracelet/bubbletea"

// --- Key Helpers ---

// IsKey reports whether msg matches any of the named keys.
func IsKey(msg tea.KeyMsg, keys ...string) bool {
	for _, k := range keys {
		if msg.String() == k {
			return true
		}
	}
	return false
}

func IsQuit(msg tea.KeyMsg) bool {
	return IsKey(msg, "ctrl+c")
}

func IsBack(msg tea.KeyMsg) bool {
	if msg.Type == tea.KeyEsc {
		return true
	}
	return IsKey(msg, "esc", "escape", "ctrl+[")
}

func IsUp(msg tea.KeyMsg) bool {
	return IsKey(msg, "up", "ctrl+p")
}

func IsDown(msg tea.KeyMsg) bool {
	return IsKey(msg, "down", "ctrl+n")
}

func IsEnter(msg tea.KeyMsg) bool {
	return IsKey(msg, "enter", "return")
}

func IsBackspace(msg tea.KeyMsg) bool {
	return IsKey(msg, "backspace", "delete")
}

// TypedText returns the printable text carried by msg, if any.
func TypedText(msg tea.KeyMsg) (string, bool) {
	switch msg.Type {
	case tea.KeyRunes:
		if msg.Alt || len(msg.Runes) == 0 {
			return "", false
		}
		return string(msg.Runes), true
	case tea.KeySpace:
		return " ", true
	}
	return "", false
}
