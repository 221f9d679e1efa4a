package ui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitrone/ledgerdesk/internal/bus"
	"github.com/gravitrone/ledgerdesk/internal/config"
	"github.com/gravitrone/ledgerdesk/internal/document"
)

type appHarness struct {
	app App
	srv *fakeServer
}

func newAppHarness(t *testing.T) *appHarness {
	t.Helper()
	srv := newFakeServer()
	_, client := testClient(t, srv.ServeHTTP)
	h := &appHarness{app: NewApp(client, &config.Config{APIKey: "test-key", Currency: "EUR"}, nil), srv: srv}
	h.update(tea.WindowSizeMsg{Width: 120, Height: 60})
	return h
}

func (h *appHarness) update(msg tea.Msg) tea.Cmd {
	model, cmd := h.app.Update(msg)
	h.app = model.(App)
	return cmd
}

func (h *appHarness) send(msg tea.Msg) {
	drain(h.update, h.update(msg))
}

func isQuitCmd(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestFilterPalette(t *testing.T) {
	items := []paletteAction{
		{ID: "tab:tickets", Label: "Tickets", Desc: "Support"},
		{ID: "doc:quote", Label: "New quote", Desc: "Start a quote"},
	}
	filtered := filterPalette(items, "QUO")

	require.Len(t, filtered, 1)
	assert.Equal(t, "doc:quote", filtered[0].ID)
	assert.Len(t, filterPalette(items, ""), 2)
}

func TestTabIndexForKey(t *testing.T) {
	idx, ok := tabIndexForKey("3")
	assert.True(t, ok)
	assert.Equal(t, tabTickets, idx)

	_, ok = tabIndexForKey("5")
	assert.False(t, ok)
	_, ok = tabIndexForKey("x")
	assert.False(t, ok)
}

func TestHelpToggle(t *testing.T) {
	app := NewApp(nil, &config.Config{}, nil)
	model, _ := app.Update(keyRunes("?"))
	updated := model.(App)
	assert.True(t, updated.helpOpen)
	assert.Contains(t, updated.View(), "Help")

	model, _ = updated.Update(keyEsc)
	updated = model.(App)
	assert.False(t, updated.helpOpen)
}

func TestQuitWithoutUnsavedExits(t *testing.T) {
	app := NewApp(nil, &config.Config{}, nil)
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, isQuitCmd(cmd))
}

func TestQuitConfirmWhenUnsaved(t *testing.T) {
	app := NewApp(nil, &config.Config{}, nil)
	app.wizard.Document().ClientID = "c-1"

	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	updated := model.(App)
	assert.Nil(t, cmd)
	assert.True(t, updated.quitConfirm)
	assert.Contains(t, updated.View(), "unsaved changes")

	model, _ = updated.Update(keyRunes("n"))
	updated = model.(App)
	assert.False(t, updated.quitConfirm)

	model, _ = updated.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	updated = model.(App)
	_, cmd = updated.Update(keyRunes("y"))
	assert.True(t, isQuitCmd(cmd))
}

func TestTabSwitchingInitializesOnce(t *testing.T) {
	h := newAppHarness(t)

	h.send(keyRunes("3"))
	assert.Equal(t, tabTickets, h.app.tab)
	assert.True(t, h.app.tabNav)
	assert.Len(t, h.app.tickets.clients.Candidates(), 2)

	assert.Nil(t, h.update(keyRunes("1")))
	assert.Nil(t, h.update(keyRunes("3")), "a tab loads its data once")

	h.update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, tabProducts, h.app.tab)
	h.update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, tabHome, h.app.tab, "tabs wrap")
	h.update(tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, tabProducts, h.app.tab)
}

func TestEnterContentAndEscapeBack(t *testing.T) {
	h := newAppHarness(t)
	h.send(keyRunes("3"))

	h.update(keyDown)
	require.False(t, h.app.tabNav)

	h.send(keyRunes("a"))
	require.True(t, h.app.tickets.clients.IsOpen())

	h.update(keyEsc)
	assert.False(t, h.app.tickets.clients.IsOpen(), "first esc closes the dropdown")
	assert.False(t, h.app.tabNav)

	h.update(keyEsc)
	assert.True(t, h.app.tabNav)
}

func TestTypingInTabNavEntersForm(t *testing.T) {
	h := newAppHarness(t)
	h.send(keyRunes("3"))

	h.send(keyRunes("g"))

	assert.False(t, h.app.tabNav)
	assert.Equal(t, "g", h.app.tickets.clients.Query())
}

func TestPaletteOpensAndRunsQuote(t *testing.T) {
	h := newAppHarness(t)

	h.update(keyRunes("/"))
	require.True(t, h.app.paletteOpen)
	for _, r := range "quote" {
		h.update(keyRunes(string(r)))
	}
	require.NotEmpty(t, h.app.paletteFiltered)
	assert.Equal(t, "doc:quote", h.app.paletteFiltered[0].ID)

	h.send(keyEnter)

	assert.False(t, h.app.paletteOpen)
	assert.Equal(t, tabDocuments, h.app.tab)
	assert.False(t, h.app.tabNav)
	assert.Equal(t, document.KindQuote, h.app.wizard.Document().Kind)
	assert.Len(t, h.app.wizard.clients.Candidates(), 2)
}

func TestPaletteCtrlKToggles(t *testing.T) {
	h := newAppHarness(t)
	ctrlK := tea.KeyMsg{Type: tea.KeyCtrlK}

	h.update(ctrlK)
	assert.True(t, h.app.paletteOpen)
	h.update(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Len(t, h.app.paletteFiltered, len(defaultPaletteActions()))
	h.update(ctrlK)
	assert.False(t, h.app.paletteOpen)
}

func TestActivityFeedFollowsSessionBuses(t *testing.T) {
	h := newAppHarness(t)

	h.app.tickets.Bus().Publish(bus.EntitySelected{Source: -1, Kind: "client", ID: "c-1", Name: "Acme Corp"})
	h.app.wizard.Bus().Publish(bus.PreviewUpdated{URL: "https://cdn.test/p.pdf"})

	entries := h.app.activity.Items()
	require.Len(t, entries, 2)
	assert.Equal(t, "tickets", entries[0].Session)
	assert.Equal(t, "client selected: Acme Corp", entries[0].Text)
	assert.Equal(t, "documents", entries[1].Session)

	view := h.app.renderHome()
	assert.Contains(t, view, "Recent Activity")
	assert.Contains(t, view, "preview ready")
}

func TestPreviewFailureRaisesToast(t *testing.T) {
	h := newAppHarness(t)

	cmd := h.app.wizard.Bus().Publish(bus.PreviewFailed{Err: errors.New("renderer offline")})
	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	h.update(msgs[0])

	require.NotNil(t, h.app.toast)
	assert.Equal(t, "error", h.app.toast.level)
	assert.Equal(t, "renderer offline", h.app.toast.text)
}

func TestStartupCheckReportsHealthy(t *testing.T) {
	h := newAppHarness(t)

	msgs := collect(h.app.Init())
	require.Len(t, msgs, 1)
	h.update(msgs[0])

	assert.Equal(t, "ok", h.app.startup.API)
	assert.Equal(t, "ok", h.app.startup.Auth)
	require.NotNil(t, h.app.toast)
	assert.Equal(t, "success", h.app.toast.level)
}

func TestStartupClassification(t *testing.T) {
	assert.Equal(t, "ok", classifyStartupAPI(""))
	assert.Equal(t, "timeout", classifyStartupAPI("context deadline exceeded"))
	assert.Equal(t, "down", classifyStartupAPI("connection refused"))

	assert.Equal(t, "missing", classifyStartupAuth("", &config.Config{}))
	assert.Equal(t, "invalid", classifyStartupAuth("401", &config.Config{APIKey: "k"}))
	assert.Equal(t, "ok", classifyStartupAuth("", &config.Config{APIKey: "k"}))

	level, _ := startupToastCopy(startupSummary{API: "down", Auth: "missing"})
	assert.Equal(t, "error", level)
	level, text := startupToastCopy(startupSummary{API: "ok", Auth: "invalid"})
	assert.Equal(t, "warning", level)
	assert.Contains(t, text, "configure")
}

func TestCreatedMessagesToast(t *testing.T) {
	h := newAppHarness(t)
	h.update(ticketCreatedMsg{})
	require.NotNil(t, h.app.toast)
	assert.Equal(t, "Ticket opened.", h.app.toast.text)

	h.update(clearToastMsg{})
	assert.Nil(t, h.app.toast)
}

// --- Pointer routing ---

func ticketRowY(h *appHarness, target field) int {
	y := h.app.contentTop() + 2 + h.app.tickets.headerLines()
	for _, f := range h.app.tickets.form.fields {
		if f == target {
			return y
		}
		y += lipgloss.Height(f.View())
	}
	return -1
}

func TestPointerDownOutsideClosesDropdown(t *testing.T) {
	h := newAppHarness(t)
	h.send(keyRunes("3"))
	h.update(keyDown)
	h.send(keyRunes("a"))
	require.True(t, h.app.tickets.clients.IsOpen())

	h.update(tea.MouseMsg{X: 1, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})

	assert.False(t, h.app.tickets.clients.IsOpen())
}

func TestPointerDownOnFieldFocusesIt(t *testing.T) {
	h := newAppHarness(t)
	h.send(keyRunes("3"))
	h.update(keyDown)

	y := ticketRowY(h, h.app.tickets.subject)
	require.Positive(t, y)
	h.update(tea.MouseMsg{X: 10, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})

	assert.Equal(t, field(h.app.tickets.subject), h.app.tickets.form.focused())
}

func TestPointerDownInsideOpenDropdownKeepsIt(t *testing.T) {
	h := newAppHarness(t)
	h.send(keyRunes("3"))
	h.update(keyDown)
	h.send(keyRunes("a"))
	require.True(t, h.app.tickets.clients.IsOpen())

	y := ticketRowY(h, h.app.tickets.clients)
	h.update(tea.MouseMsg{X: 10, Y: y + 1, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})

	assert.True(t, h.app.tickets.clients.IsOpen())
}

func TestMouseReleaseIsIgnored(t *testing.T) {
	h := newAppHarness(t)
	h.send(keyRunes("3"))
	h.update(keyDown)
	h.send(keyRunes("a"))

	h.update(tea.MouseMsg{X: 1, Y: 0, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})

	assert.True(t, h.app.tickets.clients.IsOpen())
}
