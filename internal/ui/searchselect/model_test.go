package searchselect

import (
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitrone/ledgerdesk/internal/api"
	"github.com/gravitrone/ledgerdesk/internal/bus"
)

// --- Helpers ---

type recorder struct {
	mu      sync.Mutex
	events  []bus.Event
	paths   []string
	results map[string][]api.Asset
	err     error
}

func (r *recorder) fetchAssets(path string) ([]api.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	if r.err != nil {
		return nil, r.err
	}
	return r.results[path], nil
}

func (r *recorder) listen(b *bus.Bus) {
	record := func(e bus.Event) tea.Cmd {
		r.events = append(r.events, e)
		return nil
	}
	b.Subscribe(bus.TopicEntitySelected, record)
	b.Subscribe(bus.TopicEntityCleared, record)
}

func routerSwitch() []api.Asset {
	return []api.Asset{
		{ID: "1", Name: "Router A", Serial: "SN-100"},
		{ID: "2", Name: "Switch B", Model: "X200"},
	}
}

func newAssetField(t *testing.T, rec *recorder) (*Model[api.Asset], *bus.Bus) {
	t.Helper()
	b := bus.New(nil)
	rec.listen(b)
	m := New(AssetSchema(), rec.fetchAssets, Options{Bus: b, Dispatcher: NewDispatcher()})
	return m, b
}

// run executes cmd and feeds its message back into m.
func run[T any](m *Model[T], cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	return m.Update(cmd())
}

func loadedField(t *testing.T) (*Model[api.Asset], *recorder) {
	t.Helper()
	rec := &recorder{results: map[string][]api.Asset{"/clients/c-1/assets": routerSwitch()}}
	m, _ := newAssetField(t, rec)
	run(m, m.SetScope("c-1"))
	require.Len(t, m.Candidates(), 2)
	return m, rec
}

// feed flattens cmd (batches included) and delivers every message to m.
func feed[T any](m *Model[T], cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			feed(m, c)
		}
		return
	}
	if msg != nil {
		feed(m, m.Update(msg))
	}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// --- Loading ---

func TestSetScopeLoadsCandidates(t *testing.T) {
	rec := &recorder{results: map[string][]api.Asset{"/clients/c-1/assets": routerSwitch()}}
	m, _ := newAssetField(t, rec)

	cmd := m.SetScope("c-1")
	require.NotNil(t, cmd)
	assert.True(t, m.Loading())

	run(m, cmd)
	assert.False(t, m.Loading())
	assert.Equal(t, routerSwitch(), m.Candidates())
	assert.Equal(t, routerSwitch(), m.Filtered())
	assert.Equal(t, []string{"/clients/c-1/assets"}, rec.paths)
}

func TestSetScopeSameIDIsNoop(t *testing.T) {
	m, rec := loadedField(t)
	assert.Nil(t, m.SetScope("c-1"))
	assert.Len(t, rec.paths, 1)
}

func TestSetScopeEmptyClearsSynchronously(t *testing.T) {
	m, rec := loadedField(t)
	m.SetQuery("switch")
	m.MoveHighlight(1)
	run(m, m.ConfirmSelection())
	rec.events = nil

	assert.Nil(t, m.SetScope(""))
	assert.Empty(t, m.Candidates())
	assert.Empty(t, m.Filtered())
	assert.Empty(t, m.Query())
	assert.Empty(t, m.SelectedID())
	assert.False(t, m.IsOpen())
	assert.Equal(t, NoHighlight, m.Highlighted())
}

func TestFetchErrorResolvesToEmpty(t *testing.T) {
	rec := &recorder{err: errors.New("HTTP 500: boom")}
	m, _ := newAssetField(t, rec)

	run(m, m.SetScope("c-9"))
	assert.False(t, m.Loading())
	assert.NotNil(t, m.Candidates())
	assert.Empty(t, m.Candidates())

	m.SetQuery("router")
	assert.True(t, m.IsOpen())
	assert.Contains(t, m.View(), "No results.")
}

func TestFetchPanicResolvesToEmpty(t *testing.T) {
	b := bus.New(nil)
	m := New(AssetSchema(), func(string) ([]api.Asset, error) {
		panic("decoder exploded")
	}, Options{Bus: b})

	run(m, m.SetScope("c-1"))
	assert.False(t, m.Loading())
	assert.Empty(t, m.Candidates())
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	rec := &recorder{results: map[string][]api.Asset{
		"/clients/old/assets": {{ID: "9", Name: "Old Printer"}},
		"/clients/new/assets": routerSwitch(),
	}}
	m, _ := newAssetField(t, rec)

	oldCmd := m.SetScope("old")
	newCmd := m.SetScope("new")

	// The newer response resolves first, the older one last.
	run(m, newCmd)
	run(m, oldCmd)

	assert.Equal(t, routerSwitch(), m.Candidates())
	assert.False(t, m.Loading())
}

func TestResponseAfterScopeClearedIsDiscarded(t *testing.T) {
	rec := &recorder{results: map[string][]api.Asset{"/clients/c-1/assets": routerSwitch()}}
	m, _ := newAssetField(t, rec)

	cmd := m.SetScope("c-1")
	m.SetScope("")
	run(m, cmd)

	assert.Empty(t, m.Candidates())
}

func TestReloadDropsSelectionNoLongerPresent(t *testing.T) {
	rec := &recorder{results: map[string][]api.Asset{
		"/clients/c-1/assets": routerSwitch(),
		"/clients/c-2/assets": {{ID: "7", Name: "Firewall"}},
	}}
	m, _ := newAssetField(t, rec)
	run(m, m.SetScope("c-1"))
	m.SetQuery("router")
	m.MoveHighlight(1)
	run(m, m.ConfirmSelection())
	require.Equal(t, "1", m.SelectedID())
	rec.events = nil

	run(m, m.SetScope("c-2"))
	assert.Empty(t, m.SelectedID())
	assert.Empty(t, m.Query())
	require.Len(t, rec.events, 1)
	assert.Equal(t, bus.EntityCleared{Source: m.ID(), Kind: "asset"}, rec.events[0])
}

func TestLoadIgnoresMessagesForOtherInstances(t *testing.T) {
	rec := &recorder{results: map[string][]api.Asset{"/clients/c-1/assets": routerSwitch()}}
	a, _ := newAssetField(t, rec)
	b, _ := newAssetField(t, rec)

	msg := a.SetScope("c-1")()
	b.Update(msg)
	assert.Empty(t, b.Candidates())
	a.Update(msg)
	assert.Len(t, a.Candidates(), 2)
}

// --- Query & highlight ---

func TestSetQueryFiltersAndOpens(t *testing.T) {
	m, _ := loadedField(t)

	m.SetQuery("SN-1")
	assert.True(t, m.IsOpen())
	require.Len(t, m.Filtered(), 1)
	assert.Equal(t, "1", m.Filtered()[0].ID)
	assert.Equal(t, NoHighlight, m.Highlighted())

	m.SetQuery("   ")
	assert.Equal(t, m.Candidates(), m.Filtered())

	m.SetQuery("nothing matches")
	assert.True(t, m.IsOpen())
	assert.Empty(t, m.Filtered())
}

func TestMoveHighlightOpensWhenClosed(t *testing.T) {
	m, _ := loadedField(t)

	m.MoveHighlight(-1)
	assert.False(t, m.IsOpen())

	m.MoveHighlight(1)
	assert.True(t, m.IsOpen())
	assert.Equal(t, NoHighlight, m.Highlighted())
}

func TestMoveHighlightClamps(t *testing.T) {
	m, _ := loadedField(t)
	m.SetQuery("")

	m.MoveHighlight(1)
	assert.Equal(t, 0, m.Highlighted())
	m.MoveHighlight(1)
	assert.Equal(t, 1, m.Highlighted())
	m.MoveHighlight(1)
	assert.Equal(t, 1, m.Highlighted())

	m.MoveHighlight(-1)
	m.MoveHighlight(-1)
	assert.Equal(t, NoHighlight, m.Highlighted())
	m.MoveHighlight(-1)
	assert.Equal(t, NoHighlight, m.Highlighted())
}

func TestMoveHighlightOnEmptyResults(t *testing.T) {
	m, _ := loadedField(t)
	m.SetQuery("zzz")
	m.MoveHighlight(1)
	assert.Equal(t, NoHighlight, m.Highlighted())
}

func TestCloseResetsHighlight(t *testing.T) {
	m, _ := loadedField(t)
	m.SetQuery("")
	m.MoveHighlight(1)
	m.Close()
	assert.False(t, m.IsOpen())
	assert.Equal(t, NoHighlight, m.Highlighted())
}

// --- Confirm & clear ---

func TestSwitchScenario(t *testing.T) {
	m, rec := loadedField(t)

	m.SetQuery("switch")
	require.Len(t, m.Filtered(), 1)
	assert.Equal(t, "2", m.Filtered()[0].ID)

	m.MoveHighlight(1)
	assert.Equal(t, 0, m.Highlighted())

	run(m, m.ConfirmSelection())
	assert.Equal(t, "2", m.SelectedID())
	assert.Equal(t, "Switch B", m.Query())
	assert.False(t, m.IsOpen())

	require.Len(t, rec.events, 1)
	selected, ok := rec.events[0].(bus.EntitySelected)
	require.True(t, ok)
	assert.Equal(t, "2", selected.ID)
	assert.Equal(t, "asset", selected.Kind)
	assert.Equal(t, routerSwitch()[1], selected.Entity)
}

func TestConfirmWithoutHighlightIsNoop(t *testing.T) {
	m, rec := loadedField(t)
	m.SetQuery("router")

	assert.Nil(t, m.ConfirmSelection())
	assert.True(t, m.IsOpen())
	assert.Equal(t, "router", m.Query())
	assert.Empty(t, m.SelectedID())
	assert.Empty(t, rec.events)

	m.Close()
	assert.Nil(t, m.ConfirmSelection())
	assert.Empty(t, rec.events)
}

func TestClearIsIdempotent(t *testing.T) {
	m, rec := loadedField(t)
	m.SetQuery("switch")
	m.MoveHighlight(1)
	run(m, m.ConfirmSelection())

	m.Clear()
	once := snapshot(m)
	m.Clear()
	assert.Equal(t, once, snapshot(m))
	assert.Empty(t, m.SelectedID())
	assert.Equal(t, "", m.Query())

	cleared := 0
	for _, e := range rec.events {
		if _, ok := e.(bus.EntityCleared); ok {
			cleared++
		}
	}
	assert.Equal(t, 2, cleared)
}

type state struct {
	query     string
	filtered  int
	open      bool
	highlight int
	selected  string
}

func snapshot(m *Model[api.Asset]) state {
	return state{
		query:     m.Query(),
		filtered:  len(m.Filtered()),
		open:      m.IsOpen(),
		highlight: m.Highlighted(),
		selected:  m.SelectedID(),
	}
}

// --- Unassigned sentinel ---

func userField(t *testing.T) (*Model[api.User], *[]bus.Event) {
	t.Helper()
	b := bus.New(nil)
	var events []bus.Event
	record := func(e bus.Event) tea.Cmd {
		events = append(events, e)
		return nil
	}
	b.Subscribe(bus.TopicEntitySelected, record)
	b.Subscribe(bus.TopicEntityCleared, record)

	users := []api.User{{ID: "u1", Name: "Ana"}, {ID: "u2", Name: "Ben"}}
	m := New(UserSchema(), func(string) ([]api.User, error) { return users, nil }, Options{Bus: b})
	run(m, m.SetScope("c-1"))
	return m, &events
}

func TestUnassignedSentinelNavigation(t *testing.T) {
	m, _ := userField(t)
	m.SetQuery("")

	m.MoveHighlight(1)
	assert.Equal(t, UnassignedIndex, m.Highlighted())
	m.MoveHighlight(1)
	assert.Equal(t, 0, m.Highlighted())
	m.MoveHighlight(-1)
	assert.Equal(t, UnassignedIndex, m.Highlighted())
	m.MoveHighlight(-1)
	assert.Equal(t, UnassignedIndex, m.Highlighted())
}

func TestConfirmUnassignedClears(t *testing.T) {
	m, events := userField(t)
	m.SetQuery("ben")
	m.MoveHighlight(1)
	m.MoveHighlight(1)
	run(m, m.ConfirmSelection())
	require.Equal(t, "u2", m.SelectedID())

	m.SetQuery("")
	m.MoveHighlight(1)
	require.Equal(t, UnassignedIndex, m.Highlighted())
	run(m, m.ConfirmSelection())

	assert.Empty(t, m.SelectedID())
	assert.Equal(t, "Unassigned", m.Query())
	assert.False(t, m.IsOpen())
	require.Len(t, *events, 2)
	assert.IsType(t, bus.EntityCleared{}, (*events)[1])
}

func TestTypingReplacesUnassignedLabel(t *testing.T) {
	m, _ := userField(t)
	m.Clear()
	m.Focus()

	m.Update(keyRunes("a"))
	assert.Equal(t, "a", m.Query())
}

func TestBackspaceClearsUnassignedLabel(t *testing.T) {
	m, _ := userField(t)
	m.Clear()
	m.Focus()
	require.Equal(t, "Unassigned", m.Query())

	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Empty(t, m.Query())
	assert.Len(t, m.Filtered(), 2)

	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Empty(t, m.Query())
}

// --- Keys ---

func TestKeysDriveOperations(t *testing.T) {
	m, rec := loadedField(t)
	m.Focus()

	for _, r := range "rout" {
		m.Update(keyRunes(string(r)))
	}
	assert.Equal(t, "rout", m.Query())
	assert.True(t, m.IsOpen())

	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "rou", m.Query())

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	run(m, m.Update(tea.KeyMsg{Type: tea.KeyEnter}))
	assert.Equal(t, "1", m.SelectedID())
	require.Len(t, rec.events, 1)

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.IsOpen())
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.IsOpen())

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlU})
	assert.Empty(t, m.SelectedID())
}

func TestUnfocusedIgnoresKeys(t *testing.T) {
	m, _ := loadedField(t)
	m.Update(keyRunes("x"))
	assert.Empty(t, m.Query())
}

// --- Scope subscription & dispatcher ---

func TestScopeEventsDriveScopedFields(t *testing.T) {
	rec := &recorder{results: map[string][]api.Asset{"/clients/c-1/assets": routerSwitch()}}
	m, b := newAssetField(t, rec)
	off := m.SubscribeScope()
	defer off()

	cmd := b.Publish(bus.ScopeSelected{Scope: bus.Scope{ID: "c-1", Name: "Acme"}})
	require.NotNil(t, cmd)
	feed(m, cmd)
	assert.Len(t, m.Candidates(), 2)

	b.Publish(bus.ScopeCleared{})
	assert.Empty(t, m.Candidates())
	assert.Empty(t, m.ScopeID())
}

func TestOnlyOneDropdownOpen(t *testing.T) {
	d := NewDispatcher()
	b := bus.New(nil)
	fetch := func(string) ([]api.Asset, error) { return routerSwitch(), nil }
	first := New(AssetSchema(), fetch, Options{Bus: b, Dispatcher: d})
	second := New(AssetSchema(), fetch, Options{Bus: b, Dispatcher: d})

	first.SetQuery("r")
	assert.True(t, first.IsOpen())
	second.SetQuery("s")
	assert.False(t, first.IsOpen())
	assert.True(t, second.IsOpen())

	id, ok := d.Open()
	require.True(t, ok)
	assert.Equal(t, second.ID(), id)

	assert.False(t, d.PointerDown(second.ID()))
	assert.True(t, second.IsOpen())
	assert.True(t, d.PointerDown(NoTarget))
	assert.False(t, second.IsOpen())
	_, ok = d.Open()
	assert.False(t, ok)
}

func TestProductHidesEmptyDropdown(t *testing.T) {
	products := []api.Product{{ID: "p1", Name: "Backup plan", SKU: "BK-1"}}
	m := New(ProductSchema(), func(string) ([]api.Product, error) { return products, nil }, Options{})
	run(m, m.Load())

	m.SetQuery("bk-")
	assert.True(t, m.IsOpen())
	m.SetQuery("firewall")
	assert.False(t, m.IsOpen())
}

func TestUnscopedLoadPath(t *testing.T) {
	var got string
	m := New(ClientSchema(), func(path string) ([]api.ClientRecord, error) {
		got = path
		return nil, nil
	}, Options{})
	run(m, m.Load())
	assert.Equal(t, "/clients", got)

	scoped := New(AssetSchema(), func(string) ([]api.Asset, error) { return nil, nil }, Options{})
	assert.Nil(t, scoped.Load())
}

func TestViewShowsSentinelAndHighlight(t *testing.T) {
	m, _ := userField(t)
	m.SetQuery("")
	m.MoveHighlight(1)

	view := m.View()
	assert.Contains(t, view, "Assignee")
	assert.Contains(t, view, "Unassigned")
	assert.Contains(t, view, "Ana")
	assert.Contains(t, view, ">")
}
