package ui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gravitrone/ledgerdesk/internal/api"
	"github.com/gravitrone/ledgerdesk/internal/bus"
	"github.com/gravitrone/ledgerdesk/internal/config"
	"github.com/gravitrone/ledgerdesk/internal/document"
	"github.com/gravitrone/ledgerdesk/internal/logging"
	"github.com/gravitrone/ledgerdesk/internal/preview"
	"github.com/gravitrone/ledgerdesk/internal/ui/components"
	"github.com/gravitrone/ledgerdesk/internal/ui/searchselect"
)

// --- Tab Constants ---

const (
	tabHome      = 0
	tabDocuments = 1
	tabTickets   = 2
	tabProducts  = 3
	tabCount     = 4
)

var tabNames = []string{"Home", "Documents", "Tickets", "Products"}

const activityLimit = 50

// --- Messages ---

type errMsg struct{ err error }
type clearToastMsg struct{}
type startupCheckedMsg struct {
	apiErr  string
	authErr string
}
type previewFailedMsg struct{ err error }

type paletteAction struct {
	ID    string
	Label string
	Desc  string
}

type startupSummary struct {
	API  string
	Auth string
	Done bool
}

type appToast struct {
	level string
	text  string
}

// activityEntry is one line of the home screen's recent activity.
type activityEntry struct {
	At      time.Time
	Session string
	Text    string
}

// --- Forms ---

// pointerForm is a tab body whose fields can be hit by mouse presses.
type pointerForm interface {
	formView() *form
	headerLines() int
}

// --- App Model ---

// App is the root TUI model that routes between tabs.
type App struct {
	client      *api.Client
	config      *config.Config
	logger      *slog.Logger
	dispatcher  *searchselect.Dispatcher
	tab         int
	tabNav      bool
	width       int
	height      int
	err         string
	helpOpen    bool
	quitConfirm bool
	inited      [tabCount]bool

	startupChecking bool
	startup         startupSummary
	toast           *appToast
	activity        *preview.Ring[activityEntry]

	paletteOpen     bool
	paletteQuery    string
	paletteIndex    int
	paletteActions  []paletteAction
	paletteFiltered []paletteAction

	wizard   *WizardModel
	tickets  *TicketForm
	products *ProductForm
}

// NewApp creates the root application model.
func NewApp(client *api.Client, cfg *config.Config, logger *slog.Logger) App {
	if cfg == nil {
		cfg = config.Default()
	}
	logger = logging.OrDefault(logger)
	dispatcher := searchselect.NewDispatcher()

	a := App{
		client:          client,
		config:          cfg,
		logger:          logger,
		dispatcher:      dispatcher,
		tab:             tabHome,
		tabNav:          true,
		startupChecking: client != nil,
		startup:         startupSummary{API: "checking", Auth: "checking"},
		activity:        preview.NewRing[activityEntry](activityLimit),
		paletteActions:  defaultPaletteActions(),
		wizard: NewWizardModel(client, dispatcher, logger, WizardOptions{
			Currency: cfg.Currency,
			Preview:  preview.ConfigOptions(cfg.Preview),
		}),
		tickets:  NewTicketForm(client, dispatcher, logger),
		products: NewProductForm(client, dispatcher, logger),
	}
	a.watch("documents", a.wizard.Bus())
	a.watch("tickets", a.tickets.Bus())
	a.watch("products", a.products.Bus())
	return a
}

// watch mirrors a session bus into the activity feed.
func (a App) watch(name string, b *bus.Bus) {
	activity := a.activity
	record := func(text string) {
		activity.Push(activityEntry{At: time.Now(), Session: name, Text: text})
	}
	bus.On(b, func(e bus.EntitySelected) tea.Cmd {
		record(fmt.Sprintf("%s selected: %s", e.Kind, e.Name))
		return nil
	})
	bus.On(b, func(e bus.ScopeSelected) tea.Cmd {
		record("client scope: " + e.Scope.Name)
		return nil
	})
	bus.On(b, func(e bus.PreviewUpdated) tea.Cmd {
		record("preview ready")
		return nil
	})
	bus.On(b, func(e bus.PreviewFailed) tea.Cmd {
		record("preview failed")
		err := e.Err
		return func() tea.Msg { return previewFailedMsg{err} }
	})
}

func (a App) Init() tea.Cmd {
	if a.startupChecking {
		return a.runStartupCheckCmd()
	}
	return nil
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.wizard.SetWidth(msg.Width)
		a.tickets.SetWidth(msg.Width)
		a.products.SetWidth(msg.Width)
		return a, nil

	case errMsg:
		a.err = msg.err.Error()
		return a, nil
	case clearToastMsg:
		a.toast = nil
		return a, nil
	case startupCheckedMsg:
		a.startupChecking = false
		a.startup.Done = true
		a.startup.API = classifyStartupAPI(msg.apiErr)
		if a.startup.API == "ok" {
			a.startup.Auth = classifyStartupAuth(msg.authErr, a.config)
		} else {
			a.startup.Auth = "missing"
		}
		a.logger.Info("startup checks", "api", a.startup.API, "auth", a.startup.Auth)
		level, text := startupToastCopy(a.startup)
		return a, a.setToast(level, text)
	case previewFailedMsg:
		a.logger.Warn("preview failed", "err", msg.err)
		return a, a.setToast("error", msg.err.Error())

	case tea.MouseMsg:
		return a.handleMouse(msg)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	cmd := tea.Batch(a.wizard.Update(msg), a.tickets.Update(msg), a.products.Update(msg))
	return a, tea.Batch(cmd, a.toastCmdForMsg(msg))
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.quitConfirm {
		switch {
		case isKey(msg, "y"):
			return a, tea.Quit
		case isKey(msg, "n"), isBack(msg):
			a.quitConfirm = false
		}
		return a, nil
	}
	if a.helpOpen {
		if isBack(msg) || isKey(msg, "?") {
			a.helpOpen = false
		}
		return a, nil
	}
	if a.paletteOpen {
		return a.handlePaletteKeys(msg)
	}
	a.err = ""

	// Global keys
	if isQuit(msg) {
		if a.hasUnsaved() {
			a.quitConfirm = true
			return a, nil
		}
		return a, tea.Quit
	}
	if isPalette(msg) || (isKey(msg, "/") && (a.tabNav || a.tab == tabHome)) {
		a.openPalette()
		return a, nil
	}

	if a.tabNav || a.tab == tabHome {
		if isKey(msg, "?") {
			a.helpOpen = true
			return a, nil
		}
		if idx, ok := tabIndexForKey(msg.String()); ok {
			return a.switchTab(idx)
		}
		switch {
		case isKey(msg, "left"):
			return a.switchTab((a.tab - 1 + tabCount) % tabCount)
		case isKey(msg, "right"):
			return a.switchTab((a.tab + 1) % tabCount)
		case isDown(msg), isEnter(msg):
			if a.tab != tabHome {
				a.tabNav = false
			}
			return a, nil
		}
		if a.tab == tabHome {
			return a, nil
		}
		// Any other key exits tab nav so the active tab can handle it.
		a.tabNav = false
	} else if isBack(msg) {
		if _, open := a.dispatcher.Open(); !open {
			a.tabNav = true
			return a, nil
		}
	}

	var cmd tea.Cmd
	switch a.tab {
	case tabDocuments:
		cmd = a.wizard.Update(msg)
	case tabTickets:
		cmd = a.tickets.Update(msg)
	case tabProducts:
		cmd = a.products.Update(msg)
	}
	return a, cmd
}

// handleMouse routes a press to the dispatcher with the field under the
// pointer, closing any dropdown the press landed outside of.
func (a App) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return a, nil
	}
	target := searchselect.NoTarget
	var f *form
	if pf := a.activePointerForm(); pf != nil {
		f = pf.formView()
		if f != nil {
			// The form box starts with a border line and a padding line.
			relY := msg.Y - a.contentTop() - 2 - pf.headerLines()
			target = f.fieldAt(relY)
		}
	}
	a.dispatcher.PointerDown(target)
	if target != searchselect.NoTarget && f.focusID(target) {
		a.tabNav = false
	}
	return a, nil
}

func (a App) activePointerForm() pointerForm {
	switch a.tab {
	case tabDocuments:
		return a.wizard
	case tabTickets:
		return a.tickets
	case tabProducts:
		return a.products
	}
	return nil
}

func (a App) View() string {
	header := a.renderHeader()

	var content string
	switch a.tab {
	case tabHome:
		content = a.renderHome()
	case tabDocuments:
		content = a.wizard.View()
	case tabTickets:
		content = a.tickets.View()
	case tabProducts:
		content = a.products.View()
	}
	content = centerBlockUniform(content, a.width)

	if a.quitConfirm {
		content = centerBlockUniform(a.renderQuitConfirm(), a.width)
	} else if a.helpOpen {
		content = centerBlockUniform(a.renderHelp(), a.width)
	} else if a.paletteOpen {
		content = centerBlockUniform(a.renderPalette(), a.width)
	}

	hints := components.StatusBar(a.statusHints(), a.width)

	feedback := ""
	if a.err != "" {
		feedback = "\n\n" + centerBlockUniform(components.ErrorBox("Error", a.err, a.width), a.width)
	} else if a.toast != nil {
		feedback = "\n\n" + centerBlockUniform(a.renderToast(), a.width)
	}

	return fmt.Sprintf("%s\n\n%s\n\n\n%s%s", header, content, hints, feedback)
}

// renderHeader is everything above the tab body.
func (a App) renderHeader() string {
	banner := centerBlockUniform(RenderBanner(), a.width)
	tabs := centerBlockUniform(a.renderTabs(), a.width)
	return banner + "\n" + tabs
}

// contentTop is the screen row where the tab body starts.
func (a App) contentTop() int {
	return lipgloss.Height(a.renderHeader()) + 1
}

func (a *App) switchTab(newTab int) (App, tea.Cmd) {
	a.tab = newTab
	a.dispatcher.Escape()
	if a.inited[newTab] {
		return *a, nil
	}
	a.inited[newTab] = true
	return *a, a.initTab(newTab)
}

func (a App) initTab(tab int) tea.Cmd {
	switch tab {
	case tabDocuments:
		return a.wizard.Init()
	case tabTickets:
		return a.tickets.Init()
	case tabProducts:
		return a.products.Init()
	}
	return nil
}

func (a App) renderTabs() string {
	segments := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		if i == a.tab {
			segments = append(segments, TabActiveStyle.Render(name))
		} else {
			segments = append(segments, TabInactiveStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, segments...)
}

func (a App) renderHome() string {
	sections := []string{a.renderStartupPanel()}

	entries := a.activity.Items()
	var b strings.Builder
	if len(entries) == 0 {
		b.WriteString(MutedStyle.Render("Nothing yet. Press 2 to start an invoice."))
	}
	// Newest first.
	for i := len(entries) - 1; i >= 0 && i >= len(entries)-8; i-- {
		e := entries[i]
		b.WriteString(MutedStyle.Render(e.At.Format("15:04:05")+" ") +
			AccentStyle.Render(e.Session) + " " +
			NormalStyle.Render(components.SanitizeOneLine(e.Text)))
		if i > 0 && i > len(entries)-8 {
			b.WriteString("\n")
		}
	}
	sections = append(sections, components.TitledBox("Recent Activity", b.String(), a.width))
	return strings.Join(sections, "\n")
}

func (a App) statusHints() []string {
	if a.quitConfirm {
		return []string{
			components.Hint("y", "Confirm"),
			components.Hint("n", "Cancel"),
		}
	}
	if a.helpOpen {
		return []string{
			components.Hint("esc", "Back"),
		}
	}
	if a.paletteOpen {
		return []string{
			components.Hint("↑/↓", "Select"),
			components.Hint("enter", "Run"),
			components.Hint("esc", "Close"),
		}
	}
	return a.statusHintsForTab()
}

func (a App) statusHintsForTab() []string {
	base := []string{
		components.Hint("1-4", "Tabs"),
		components.Hint("ctrl+k", "Command"),
		components.Hint("?", "Help"),
		components.Hint("ctrl+c", "Quit"),
	}
	if a.tabNav && a.tab != tabHome {
		return append(base, components.Hint("↓", "Enter form"))
	}

	switch a.tab {
	case tabDocuments:
		hints := append(base,
			components.Hint("tab", "Fields"),
			components.Hint("ctrl+←/→", "Step"),
		)
		switch a.wizard.Step() {
		case document.StepItems:
			return append(hints,
				components.Hint("enter", "Add line"),
				components.Hint("pgup/pgdn", "Lines"),
				components.Hint("ctrl+d", "Remove"),
			)
		case document.StepReview:
			return append(hints,
				components.Hint("+/-", "Zoom"),
				components.Hint("g", "Grid"),
				components.Hint("f", "Format"),
				components.Hint("r", "Refresh"),
				components.Hint("ctrl+s", "Create"),
			)
		}
		return hints
	case tabTickets, tabProducts:
		return append(base,
			components.Hint("tab", "Fields"),
			components.Hint("←/→", "Cycle"),
			components.Hint("ctrl+s", "Save"),
			components.Hint("esc", "Tabs"),
		)
	}
	return append(base, components.Hint("←/→", "Tabs"))
}

func (a App) renderHelp() string {
	hints := a.statusHintsForTab()
	lines := make([]string, 0, len(hints)+2)
	lines = append(lines, MutedStyle.Render("esc to close"))
	lines = append(lines, "")
	for _, hint := range hints {
		lines = append(lines, "  "+hint)
	}
	body := strings.Join(lines, "\n")
	return components.Indent(components.TitledBox("Help", body, a.width), 1)
}

func (a App) renderQuitConfirm() string {
	body := "You have unsaved changes. Quit anyway?"
	return components.Indent(components.ConfirmDialog("Quit", body, a.width), 1)
}

func (a App) runStartupCheckCmd() tea.Cmd {
	checkClient := a.client.WithTimeout(700 * time.Millisecond)
	return func() tea.Msg {
		msg := startupCheckedMsg{}
		if _, err := checkClient.Health(); err != nil {
			msg.apiErr = err.Error()
			return msg
		}
		if _, err := checkClient.ListClients(); err != nil {
			msg.authErr = err.Error()
		}
		return msg
	}
}

func (a *App) setToast(level, text string) tea.Cmd {
	a.toast = &appToast{
		level: level,
		text:  components.SanitizeOneLine(text),
	}
	return tea.Tick(2500*time.Millisecond, func(time.Time) tea.Msg {
		return clearToastMsg{}
	})
}

func (a App) renderToast() string {
	if a.toast == nil {
		return ""
	}
	title := "Info"
	switch a.toast.level {
	case "success":
		title = "Success"
	case "warning":
		title = "Warning"
	case "error":
		return components.ErrorBox("Error", a.toast.text, a.width)
	}
	return components.TitledBox(title, a.toast.text, a.width)
}

func (a App) renderStartupPanel() string {
	rows := []components.TableRow{
		{Label: "API", Value: a.startup.API, ValueColor: startupStatusColor(a.startup.API)},
		{Label: "Auth", Value: a.startup.Auth, ValueColor: startupStatusColor(a.startup.Auth)},
	}
	if a.client != nil {
		rows = append(rows, components.TableRow{Label: "Server", Value: a.client.BaseURL()})
	}
	return components.Table("Startup Checks", rows, a.width)
}

func (a *App) toastCmdForMsg(msg tea.Msg) tea.Cmd {
	var level, text string
	switch msg := msg.(type) {
	case documentCreatedMsg:
		level, text = "success", "Document created."
		if msg.record != nil && msg.record.Number != "" {
			text = fmt.Sprintf("%s %s created.", kindLabel(msg.record.Kind), msg.record.Number)
		}
	case ticketCreatedMsg:
		level, text = "success", "Ticket opened."
	case productCreatedMsg:
		level, text = "success", "Product added."
	}
	if text == "" {
		return nil
	}
	return a.setToast(level, text)
}

func kindLabel(kind string) string {
	switch document.Kind(kind) {
	case document.KindQuote:
		return "Quote"
	case document.KindInvoice:
		return "Invoice"
	}
	return "Document"
}

func classifyStartupAPI(errText string) string {
	if strings.TrimSpace(errText) == "" {
		return "ok"
	}
	lower := strings.ToLower(errText)
	if strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded") {
		return "timeout"
	}
	return "down"
}

func classifyStartupAuth(errText string, cfg *config.Config) string {
	if cfg == nil || strings.TrimSpace(cfg.APIKey) == "" {
		return "missing"
	}
	if strings.TrimSpace(errText) == "" {
		return "ok"
	}
	return "invalid"
}

func startupToastCopy(summary startupSummary) (string, string) {
	if summary.API == "ok" && summary.Auth == "ok" {
		return "success", "Startup checks passed: API and auth are healthy."
	}
	if summary.API != "ok" {
		return "error", fmt.Sprintf("Startup checks failed: API is %s.", summary.API)
	}
	return "warning", fmt.Sprintf("Startup checks: auth=%s. Run ledgerdesk configure.", summary.Auth)
}

func startupStatusColor(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "ok":
		return string(ColorSuccess)
	case "missing", "timeout":
		return string(ColorWarning)
	case "invalid", "down":
		return string(ColorError)
	default:
		return string(ColorMuted)
	}
}

// --- Command Palette ---

func (a *App) openPalette() {
	a.paletteOpen = true
	a.paletteQuery = ""
	a.paletteIndex = 0
	a.paletteFiltered = filterPalette(a.paletteActions, "")
	a.dispatcher.Escape()
}

func (a App) renderPalette() string {
	var b strings.Builder
	b.WriteString("  > " + components.SanitizeOneLine(a.paletteQuery))
	b.WriteString(AccentStyle.Render("█"))
	b.WriteString("\n\n")

	items := a.paletteFiltered
	if len(items) == 0 {
		b.WriteString(MutedStyle.Render("No matches."))
	} else {
		for i, item := range items {
			line := fmt.Sprintf("%s  %s", components.SanitizeOneLine(item.Label), MutedStyle.Render(item.Desc))
			if i == a.paletteIndex {
				b.WriteString(SelectedStyle.Render("  > " + line))
			} else {
				b.WriteString(NormalStyle.Render("    " + line))
			}
			if i < len(items)-1 {
				b.WriteString("\n")
			}
		}
	}

	return components.TitledBox("Command Palette", b.String(), a.width)
}

func (a *App) refreshPaletteFiltered() {
	a.paletteFiltered = filterPalette(a.paletteActions, a.paletteQuery)
	if a.paletteIndex >= len(a.paletteFiltered) {
		a.paletteIndex = 0
	}
}

func (a App) handlePaletteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case isBack(msg), isPalette(msg):
		a.paletteOpen = false
		return a, nil
	case isEnter(msg):
		if len(a.paletteFiltered) == 0 {
			return a, nil
		}
		action := a.paletteFiltered[a.paletteIndex]
		a.paletteOpen = false
		a.paletteQuery = ""
		return a.runPaletteAction(action)
	case isUp(msg):
		if a.paletteIndex > 0 {
			a.paletteIndex--
		}
	case isDown(msg):
		if a.paletteIndex < len(a.paletteFiltered)-1 {
			a.paletteIndex++
		}
	case components.IsBackspace(msg):
		if a.paletteQuery != "" {
			runes := []rune(a.paletteQuery)
			a.paletteQuery = string(runes[:len(runes)-1])
			a.refreshPaletteFiltered()
		}
	default:
		if text, ok := components.TypedText(msg); ok {
			a.paletteQuery += text
			a.refreshPaletteFiltered()
		}
	}
	return a, nil
}

func (a *App) runPaletteAction(action paletteAction) (tea.Model, tea.Cmd) {
	a.tabNav = true
	switch action.ID {
	case "tab:home":
		return a.switchTab(tabHome)
	case "tab:documents":
		return a.switchTab(tabDocuments)
	case "tab:tickets":
		return a.switchTab(tabTickets)
	case "tab:products":
		return a.switchTab(tabProducts)
	case "doc:invoice", "doc:quote":
		kind := document.KindInvoice
		if action.ID == "doc:quote" {
			kind = document.KindQuote
		}
		app, cmd := a.switchTab(tabDocuments)
		app.tabNav = false
		return app, tea.Batch(cmd, app.wizard.SetKind(kind))
	case "preview:refresh":
		app, cmd := a.switchTab(tabDocuments)
		return app, tea.Batch(cmd, app.wizard.Scheduler().Refresh())
	case "preview:clear":
		a.wizard.Scheduler().ClearErrors()
		return *a, a.setToast("info", "Preview error log cleared.")
	case "quit":
		if a.hasUnsaved() {
			a.quitConfirm = true
			return *a, nil
		}
		return *a, tea.Quit
	}
	return *a, nil
}

func (a App) hasUnsaved() bool {
	return a.wizard.Dirty() || a.tickets.Dirty() || a.products.Dirty()
}

func defaultPaletteActions() []paletteAction {
	return []paletteAction{
		{ID: "tab:home", Label: "Home", Desc: "Startup checks and activity"},
		{ID: "tab:documents", Label: "Documents", Desc: "Document wizard"},
		{ID: "doc:invoice", Label: "New invoice", Desc: "Start an invoice"},
		{ID: "doc:quote", Label: "New quote", Desc: "Start a quote"},
		{ID: "tab:tickets", Label: "Tickets", Desc: "Open a support ticket"},
		{ID: "tab:products", Label: "Products", Desc: "Add a catalog product"},
		{ID: "preview:refresh", Label: "Refresh preview", Desc: "Render the document now"},
		{ID: "preview:clear", Label: "Clear preview errors", Desc: "Empty the preview error log"},
		{ID: "quit", Label: "Quit", Desc: "Exit ledgerdesk"},
	}
}

func filterPalette(items []paletteAction, query string) []paletteAction {
	if query == "" {
		return items
	}
	q := strings.ToLower(strings.TrimSpace(query))
	filtered := make([]paletteAction, 0, len(items))
	for _, item := range items {
		label := strings.ToLower(item.Label)
		desc := strings.ToLower(item.Desc)
		if strings.Contains(label, q) || strings.Contains(desc, q) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// --- Layout ---

func centerBlockUniform(s string, width int) string {
	if width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	maxWidth := 0
	for _, line := range lines {
		if w := lipgloss.Width(line); w > maxWidth {
			maxWidth = w
		}
	}
	if maxWidth <= 0 || maxWidth >= width {
		return s
	}
	pad := (width - maxWidth) / 2
	if pad <= 0 {
		return s
	}
	prefix := strings.Repeat(" ", pad)
	for i := range lines {
		if lines[i] != "" {
			lines[i] = prefix + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

func tabIndexForKey(key string) (int, bool) {
	if len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return 0, false
	}
	idx := int(key[0] - '1')
	if idx >= tabCount {
		return 0, false
	}
	return idx, true
}
