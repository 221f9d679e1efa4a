// Package searchselect is the typeahead field used for clients, assets,
// contacts, users and products.
//
// A Model loads its whole candidate collection in one request (per scope
// for scoped schemas), filters it locally as the user types, and
// publishes bus.EntitySelected / bus.EntityCleared when the selection
// changes. Fetch failures never surface as errors: they are logged and
// leave the field with no candidates.
package searchselect

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gravitrone/ledgerdesk/internal/api"
	"github.com/gravitrone/ledgerdesk/internal/bus"
	"github.com/gravitrone/ledgerdesk/internal/logging"
	"github.com/gravitrone/ledgerdesk/internal/ui/components"
)

// Highlight positions outside the candidate range.
const (
	NoHighlight     = -1
	UnassignedIndex = -2
)

var instanceSeq atomic.Int64

// NextFieldID hands out session-unique field ids. Other form fields draw
// from the same sequence so Dispatcher targets never collide.
func NextFieldID() int {
	return int(instanceSeq.Add(1))
}

// FetchFunc loads the collection at path.
type FetchFunc[T any] func(path string) ([]T, error)

// NewFetcher adapts an API client into a FetchFunc.
func NewFetcher[T any](client *api.Client) FetchFunc[T] {
	return func(path string) ([]T, error) {
		return api.FetchList[T](client, path)
	}
}

// Options carries the session collaborators shared by every field.
type Options struct {
	Bus        *bus.Bus
	Dispatcher *Dispatcher
	Logger     *slog.Logger
	PageSize   int
}

type loadedMsg[T any] struct {
	source     int
	generation uint64
	path       string
	items      []T
	err        error
}

// Model is one search-select field.
type Model[T any] struct {
	id         int
	schema     Schema[T]
	fetch      FetchFunc[T]
	bus        *bus.Bus
	dispatcher *Dispatcher
	logger     *slog.Logger

	scopeID    string
	query      string
	candidates []T
	filtered   []T
	open       bool
	highlight  int
	selected   *T
	loading    bool
	generation uint64

	focused bool
	list    *components.List
	width   int
}

// New builds a field for schema. Every instance gets a session-unique id.
func New[T any](schema Schema[T], fetch FetchFunc[T], opts Options) *Model[T] {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 6
	}
	return &Model[T]{
		id:         NextFieldID(),
		schema:     schema,
		fetch:      fetch,
		bus:        opts.Bus,
		dispatcher: opts.Dispatcher,
		logger:     logging.OrDefault(opts.Logger).With("field", schema.Kind),
		highlight:  NoHighlight,
		list:       components.NewList(pageSize),
	}
}

// --- Accessors ---

func (m *Model[T]) ID() int            { return m.id }
func (m *Model[T]) Kind() string       { return m.schema.Kind }
func (m *Model[T]) Schema() Schema[T]  { return m.schema }
func (m *Model[T]) ScopeID() string    { return m.scopeID }
func (m *Model[T]) Query() string      { return m.query }
func (m *Model[T]) Candidates() []T    { return m.candidates }
func (m *Model[T]) Filtered() []T      { return m.filtered }
func (m *Model[T]) IsOpen() bool       { return m.open }
func (m *Model[T]) Highlighted() int   { return m.highlight }
func (m *Model[T]) Loading() bool      { return m.loading }
func (m *Model[T]) Focused() bool      { return m.focused }
func (m *Model[T]) SetWidth(width int) { m.width = width }

// Selected returns the committed entity.
func (m *Model[T]) Selected() (T, bool) {
	if m.selected == nil {
		var zero T
		return zero, false
	}
	return *m.selected, true
}

// SelectedID returns the committed entity's id, or "".
func (m *Model[T]) SelectedID() string {
	if m.selected == nil {
		return ""
	}
	return m.schema.ID(*m.selected)
}

// --- Scope & loading ---

// SetScope switches the parent scope. A new non-empty scope reloads the
// candidates; an empty one clears the field synchronously.
func (m *Model[T]) SetScope(scopeID string) tea.Cmd {
	scopeID = strings.TrimSpace(scopeID)
	if scopeID == "" {
		m.scopeID = ""
		// Responses for the old scope are now stale.
		m.generation++
		m.loading = false
		m.candidates = nil
		m.filtered = nil
		m.selected = nil
		m.query = ""
		m.Close()
		return nil
	}
	if scopeID == m.scopeID {
		return nil
	}
	m.scopeID = scopeID
	return m.reload()
}

// Load fetches the collection of an unscoped schema, or reloads the
// current scope of a scoped one.
func (m *Model[T]) Load() tea.Cmd {
	if m.schema.Scoped() && m.scopeID == "" {
		return nil
	}
	return m.reload()
}

func (m *Model[T]) reload() tea.Cmd {
	m.generation++
	m.loading = true
	return m.fetchCmd(m.schema.Path(m.scopeID), m.generation)
}

func (m *Model[T]) fetchCmd(path string, generation uint64) tea.Cmd {
	fetch := m.fetch
	source := m.id
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = loadedMsg[T]{
					source:     source,
					generation: generation,
					path:       path,
					err:        fmt.Errorf("fetch panic: %v", r),
				}
			}
		}()
		items, err := fetch(path)
		return loadedMsg[T]{
			source:     source,
			generation: generation,
			path:       path,
			items:      items,
			err:        err,
		}
	}
}

func (m *Model[T]) applyLoaded(msg loadedMsg[T]) tea.Cmd {
	if msg.generation != m.generation {
		m.logger.Debug("discarding stale collection response",
			"path", msg.path,
			"generation", msg.generation,
			"current", m.generation,
		)
		return nil
	}
	m.loading = false

	items := msg.items
	if msg.err != nil {
		m.logger.Warn("collection fetch failed", "path", msg.path, "err", msg.err)
		items = nil
	}
	if items == nil {
		items = []T{}
	}
	m.candidates = items
	m.filtered = Filter(m.candidates, m.query, m.schema.Fields)
	m.highlight = NoHighlight
	m.syncList()
	m.logger.Debug("collection loaded", "path", msg.path, "count", len(items))

	if m.selected != nil && !m.isCandidate(m.schema.ID(*m.selected)) {
		m.selected = nil
		m.query = ""
		m.filtered = Filter(m.candidates, "", m.schema.Fields)
		m.syncList()
		return m.bus.Publish(bus.EntityCleared{Source: m.id, Kind: m.schema.Kind})
	}
	return nil
}

func (m *Model[T]) isCandidate(id string) bool {
	for _, c := range m.candidates {
		if m.schema.ID(c) == id {
			return true
		}
	}
	return false
}

// SubscribeScope makes a scoped field follow scope broadcasts. It
// returns the combined unsubscribe function.
func (m *Model[T]) SubscribeScope() func() {
	if m.bus == nil || !m.schema.Scoped() {
		return func() {}
	}
	offSelected := bus.On(m.bus, func(e bus.ScopeSelected) tea.Cmd {
		return m.SetScope(e.Scope.ID)
	})
	offCleared := bus.On(m.bus, func(bus.ScopeCleared) tea.Cmd {
		return m.SetScope("")
	})
	return func() {
		offSelected()
		offCleared()
	}
}

// --- Query & highlight ---

// SetQuery filters the candidates and opens the dropdown.
func (m *Model[T]) SetQuery(text string) {
	m.query = text
	m.filtered = Filter(m.candidates, text, m.schema.Fields)
	m.highlight = NoHighlight
	if m.schema.HideWhenEmpty && len(m.filtered) == 0 && !m.schema.AllowUnassigned {
		m.Close()
		m.syncList()
		return
	}
	m.openDropdown()
}

// MoveHighlight opens a closed dropdown on a downward move; on an open
// one it steps the highlight by one position, clamped to the list.
func (m *Model[T]) MoveHighlight(direction int) {
	if !m.open {
		if direction > 0 {
			m.openDropdown()
		}
		return
	}
	last := len(m.filtered) - 1
	switch {
	case direction > 0:
		switch {
		case m.highlight == NoHighlight && m.schema.AllowUnassigned:
			m.highlight = UnassignedIndex
		case m.highlight == NoHighlight || m.highlight == UnassignedIndex:
			if last >= 0 {
				m.highlight = 0
			}
		case m.highlight < last:
			m.highlight++
		}
	case direction < 0:
		switch {
		case m.highlight > 0:
			m.highlight--
		case m.highlight == 0 && m.schema.AllowUnassigned:
			m.highlight = UnassignedIndex
		case m.highlight == 0:
			m.highlight = NoHighlight
		}
	}
	m.syncList()
}

// ConfirmSelection commits the highlighted entry. It does nothing unless
// the highlight points at a candidate or the Unassigned entry.
func (m *Model[T]) ConfirmSelection() tea.Cmd {
	if m.highlight == UnassignedIndex && m.schema.AllowUnassigned && m.open {
		return m.Clear()
	}
	if m.highlight < 0 || m.highlight >= len(m.filtered) {
		return nil
	}
	item := m.filtered[m.highlight]
	m.selected = &item
	m.query = m.schema.Name(item)
	m.filtered = Filter(m.candidates, m.query, m.schema.Fields)
	m.Close()
	m.logger.Debug("entity selected", "id", m.schema.ID(item))
	return m.bus.Publish(bus.EntitySelected{
		Source: m.id,
		Kind:   m.schema.Kind,
		ID:     m.schema.ID(item),
		Name:   m.schema.Name(item),
		Entity: item,
	})
}

// Clear drops the selection and resets the query.
func (m *Model[T]) Clear() tea.Cmd {
	m.selected = nil
	m.query = ""
	if m.schema.AllowUnassigned {
		m.query = m.schema.unassignedLabel()
	}
	m.filtered = Filter(m.candidates, "", m.schema.Fields)
	m.Close()
	return m.bus.Publish(bus.EntityCleared{Source: m.id, Kind: m.schema.Kind})
}

// Close hides the dropdown.
func (m *Model[T]) Close() {
	m.open = false
	m.highlight = NoHighlight
	m.dispatcher.Release(m)
	m.syncList()
}

func (m *Model[T]) openDropdown() {
	m.open = true
	m.dispatcher.Claim(m)
	m.syncList()
}

// --- Focus ---

// Focus routes key input to the field.
func (m *Model[T]) Focus() {
	m.focused = true
}

// Blur stops key input and closes the dropdown.
func (m *Model[T]) Blur() {
	m.focused = false
	if m.open {
		m.Close()
	}
}

// --- Update ---

// Update handles load results for this instance and, when focused, keys.
func (m *Model[T]) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case loadedMsg[T]:
		if msg.source != m.id {
			return nil
		}
		return m.applyLoaded(msg)
	case tea.KeyMsg:
		if !m.focused {
			return nil
		}
		return m.handleKey(msg)
	}
	return nil
}

func (m *Model[T]) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case components.IsBack(msg):
		m.Close()
	case components.IsKey(msg, "ctrl+u"):
		return m.Clear()
	case components.IsDown(msg):
		m.MoveHighlight(1)
	case components.IsUp(msg):
		m.MoveHighlight(-1)
	case components.IsEnter(msg):
		if !m.open {
			m.openDropdown()
			return nil
		}
		return m.ConfirmSelection()
	case components.IsBackspace(msg):
		if m.showingUnassigned() {
			m.SetQuery("")
		} else if m.query != "" {
			runes := []rune(m.query)
			m.SetQuery(string(runes[:len(runes)-1]))
		}
	default:
		text, ok := components.TypedText(msg)
		if !ok {
			return nil
		}
		query := m.query
		if m.showingUnassigned() {
			query = ""
		}
		m.SetQuery(query + text)
	}
	return nil
}

// showingUnassigned reports whether the query holds the sentinel label
// rather than user input.
func (m *Model[T]) showingUnassigned() bool {
	return m.selected == nil && m.schema.AllowUnassigned && m.query == m.schema.unassignedLabel()
}

// HandlesKey reports whether the field wants msg rather than the
// surrounding form (navigation keys while the dropdown is open).
func (m *Model[T]) HandlesKey(msg tea.KeyMsg) bool {
	if !m.open {
		return false
	}
	return components.IsUp(msg) || components.IsDown(msg) || components.IsEnter(msg) || components.IsBack(msg)
}
