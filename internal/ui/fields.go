package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gravitrone/ledgerdesk/internal/ui/searchselect"
)

// field is one focusable row of a form. Search selects satisfy it
// directly.
type field interface {
	ID() int
	View() string
	Focus()
	Blur()
	Update(msg tea.Msg) tea.Cmd
	HandlesKey(msg tea.KeyMsg) bool
}

var (
	fieldLabelStyle = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)
	fieldValueStyle = lipgloss.NewStyle().Foreground(ColorText)
	fieldCursor     = SelectedStyle.Render("▌")
)

// --- Text Field ---

type textField struct {
	id    int
	label string
	input textinput.Model
}

func newTextField(label, placeholder string, limit int) *textField {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.PlaceholderStyle = MutedStyle
	ti.TextStyle = fieldValueStyle
	return &textField{id: searchselect.NextFieldID(), label: label, input: ti}
}

func (f *textField) ID() int                    { return f.id }
func (f *textField) Value() string              { return strings.TrimSpace(f.input.Value()) }
func (f *textField) SetValue(v string)          { f.input.SetValue(v) }
func (f *textField) Focus()                     { f.input.Focus() }
func (f *textField) Blur()                      { f.input.Blur() }
func (f *textField) HandlesKey(tea.KeyMsg) bool { return false }

func (f *textField) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(tea.KeyMsg); !ok || !f.input.Focused() {
		return nil
	}
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return cmd
}

func (f *textField) View() string {
	return fieldLabelStyle.Render(f.label+": ") + f.input.View()
}

// --- Choice Field ---

// choiceField cycles through a fixed option list with left/right.
type choiceField struct {
	id      int
	label   string
	options []string
	index   int
	focused bool
}

func newChoiceField(label string, options ...string) *choiceField {
	return &choiceField{id: searchselect.NextFieldID(), label: label, options: options}
}

func (f *choiceField) ID() int                    { return f.id }
func (f *choiceField) Focus()                     { f.focused = true }
func (f *choiceField) Blur()                      { f.focused = false }
func (f *choiceField) HandlesKey(tea.KeyMsg) bool { return false }

func (f *choiceField) Value() string {
	if len(f.options) == 0 {
		return ""
	}
	return f.options[f.index]
}

// Set selects option v if present.
func (f *choiceField) Set(v string) {
	for i, o := range f.options {
		if o == v {
			f.index = i
			return
		}
	}
}

func (f *choiceField) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok || !f.focused || len(f.options) == 0 {
		return nil
	}
	switch {
	case isKey(key, "right", "l", " "):
		f.index = (f.index + 1) % len(f.options)
	case isKey(key, "left", "h"):
		f.index = (f.index - 1 + len(f.options)) % len(f.options)
	}
	return nil
}

func (f *choiceField) View() string {
	parts := make([]string, 0, len(f.options))
	for i, o := range f.options {
		if i == f.index {
			parts = append(parts, SelectedStyle.Render("["+o+"]"))
			continue
		}
		parts = append(parts, MutedStyle.Render(" "+o+" "))
	}
	line := fieldLabelStyle.Render(f.label+": ") + strings.Join(parts, "")
	if f.focused {
		line += " " + fieldCursor
	}
	return line
}

// --- Form ---

// form is an ordered set of fields with one focused at a time.
type form struct {
	fields []field
	focus  int
}

func newForm(fields ...field) *form {
	f := &form{fields: fields}
	if len(fields) > 0 {
		fields[0].Focus()
	}
	return f
}

func (f *form) focused() field {
	if len(f.fields) == 0 {
		return nil
	}
	return f.fields[f.focus]
}

func (f *form) setFocus(idx int) {
	if idx < 0 || idx >= len(f.fields) || idx == f.focus {
		return
	}
	f.fields[f.focus].Blur()
	f.focus = idx
	f.fields[f.focus].Focus()
}

func (f *form) next() {
	if len(f.fields) == 0 {
		return
	}
	f.setFocus((f.focus + 1) % len(f.fields))
}

func (f *form) prev() {
	if len(f.fields) == 0 {
		return
	}
	f.setFocus((f.focus - 1 + len(f.fields)) % len(f.fields))
}

// focusID focuses the field with the given id and reports whether it
// belongs to the form.
func (f *form) focusID(id int) bool {
	for i, fl := range f.fields {
		if fl.ID() == id {
			f.setFocus(i)
			return true
		}
	}
	return false
}

// handleKey routes a key to the focused field or moves focus.
func (f *form) handleKey(msg tea.KeyMsg) tea.Cmd {
	cur := f.focused()
	if cur == nil {
		return nil
	}
	if cur.HandlesKey(msg) {
		return cur.Update(msg)
	}
	_, isSelect := cur.(interface{ IsOpen() bool })
	switch {
	case isNextField(msg):
		f.next()
		return nil
	case isPrevField(msg):
		f.prev()
		return nil
	case isUp(msg):
		f.prev()
		return nil
	case isDown(msg) && !isSelect:
		f.next()
		return nil
	case isEnter(msg) && !isSelect:
		f.next()
		return nil
	}
	return cur.Update(msg)
}

// broadcast hands a non-key message to every field.
func (f *form) broadcast(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(f.fields))
	for _, fl := range f.fields {
		cmds = append(cmds, fl.Update(msg))
	}
	return tea.Batch(cmds...)
}

func (f *form) view() string {
	rows := make([]string, 0, len(f.fields))
	for _, fl := range f.fields {
		rows = append(rows, fl.View())
	}
	return strings.Join(rows, "\n")
}

// fieldAt returns the id of the field rendered at line y of view(), or
// searchselect.NoTarget.
func (f *form) fieldAt(y int) int {
	if y < 0 {
		return searchselect.NoTarget
	}
	top := 0
	for _, fl := range f.fields {
		h := lipgloss.Height(fl.View())
		if y < top+h {
			return fl.ID()
		}
		top += h
	}
	return searchselect.NoTarget
}
