package components

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
)

// SanitizeText makes server-supplied strings (client names, ticket
// subjects, error bodies) safe to draw: escape sequences, bidi overrides
// and control characters other than newline and tab are dropped.
func SanitizeText(input string) string {
	if input == "" {
		return input
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case unicode.Is(unicode.Bidi_Control, r), unicode.IsControl(r):
			return -1
		}
		return r
	}, ansi.Strip(input))
}

// SanitizeOneLine is SanitizeText folded onto one line with runs of
// whitespace collapsed.
func SanitizeOneLine(input string) string {
	return strings.Join(strings.Fields(SanitizeText(input)), " ")
}
