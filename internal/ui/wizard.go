package ui

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gravitrone/ledgerdesk/internal/api"
	"github.com/gravitrone/ledgerdesk/internal/bus"
	"github.com/gravitrone/ledgerdesk/internal/document"
	"github.com/gravitrone/ledgerdesk/internal/preview"
	"github.com/gravitrone/ledgerdesk/internal/ui/components"
	"github.com/gravitrone/ledgerdesk/internal/ui/searchselect"
)

// --- Messages ---

type documentCreatedMsg struct{ record *api.DocumentRecord }
type documentFailedMsg struct{ err error }

const defaultDueDays = 30

// WizardOptions tunes the document wizard.
type WizardOptions struct {
	Currency string
	Preview  preview.Options
	// Render defaults to the API preview endpoint.
	Render preview.RenderFunc
	Now    func() time.Time
}

// --- Wizard Model ---

// WizardModel builds an invoice or quote in three steps. Every edit to
// the document is published as bus.DocumentChanged, which drives the
// live preview.
type WizardModel struct {
	session *session
	doc     *document.Document
	step    document.Step
	now     func() time.Time

	// details
	kind     *choiceField
	clients  *searchselect.Model[api.ClientRecord]
	contacts *searchselect.Model[api.Contact]
	assets   *searchselect.Model[api.Asset]
	issue    *textField
	due      *textField
	currency *textField
	notes    *textField
	details  *form

	// items
	products  *searchselect.Model[api.Product]
	desc      *textField
	qty       *textField
	price     *textField
	tax       *textField
	items     *form
	productID string
	cursor    int

	scheduler *preview.Scheduler
	pane      *PreviewPane
	signature string

	saving     bool
	errText    string
	validation *document.ValidationError
	saved      *api.DocumentRecord
	width      int
}

func NewWizardModel(client *api.Client, dispatcher *searchselect.Dispatcher, logger *slog.Logger, opts WizardOptions) *WizardModel {
	s := newSession("wizard", client, dispatcher, logger)
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	if opts.Render == nil {
		opts.Render = preview.ClientRenderer(client)
	}
	opts.Preview.Bus = s.bus
	opts.Preview.Logger = s.logger

	kinds := make([]string, 0, len(document.Kinds))
	for _, k := range document.Kinds {
		kinds = append(kinds, string(k))
	}

	m := &WizardModel{
		session:   s,
		now:       opts.Now,
		kind:      newChoiceField("Type", kinds...),
		clients:   newSelect(s, searchselect.ClientSchema()),
		contacts:  newSelect(s, searchselect.ContactSchema()),
		assets:    newSelect(s, searchselect.AssetSchema()),
		issue:     newTextField("Issue date", document.DateLayout, 10),
		due:       newTextField("Due date", document.DateLayout, 10),
		currency:  newTextField("Currency", "USD", 3),
		notes:     newTextField("Notes", "Optional", 500),
		products:  newSelect(s, searchselect.ProductSchema()),
		desc:      newTextField("Description", "What is being billed", 200),
		qty:       newTextField("Quantity", "1", 10),
		price:     newTextField("Unit price", "0.00", 16),
		tax:       newTextField("Tax %", "0", 6),
		scheduler: preview.NewScheduler(opts.Render, opts.Preview),
	}
	m.pane = NewPreviewPane(m.scheduler)
	m.details = newForm(m.kind, m.clients, m.contacts, m.assets, m.issue, m.due, m.currency, m.notes)
	m.items = newForm(m.products, m.desc, m.qty, m.price, m.tax)

	s.bindScope(m.clients)
	on(s, func(e bus.EntitySelected) tea.Cmd {
		if e.Source == m.products.ID() {
			if p, ok := e.Entity.(api.Product); ok {
				m.applyProduct(p)
			}
		}
		return nil
	})
	s.unsubs = append(s.unsubs, m.scheduler.Subscribe(s.bus))

	m.resetDocument(opts.Currency)
	return m
}

func (m *WizardModel) Init() tea.Cmd {
	return tea.Batch(m.clients.Load(), m.products.Load())
}

func (m *WizardModel) Bus() *bus.Bus                 { return m.session.bus }
func (m *WizardModel) Step() document.Step           { return m.step }
func (m *WizardModel) Document() *document.Document  { return m.doc }
func (m *WizardModel) Scheduler() *preview.Scheduler { return m.scheduler }

// SetKind switches the document type.
func (m *WizardModel) SetKind(kind document.Kind) tea.Cmd {
	m.kind.Set(string(kind))
	return m.publishIfChanged()
}

func (m *WizardModel) Dirty() bool {
	return m.doc.ClientID != "" || len(m.doc.Items) > 0
}

func (m *WizardModel) SetWidth(width int) {
	m.width = width
	inner := components.BoxContentWidth(width)
	for _, sel := range []interface{ SetWidth(int) }{m.clients, m.contacts, m.assets, m.products} {
		sel.SetWidth(inner)
	}
	m.pane.SetWidth(width)
}

// resetDocument starts a fresh document without announcing it.
func (m *WizardModel) resetDocument(currency string) {
	today := m.now()
	m.doc = document.New(document.KindInvoice, currency)
	m.kind.Set(string(document.KindInvoice))
	m.issue.SetValue(today.Format(document.DateLayout))
	m.due.SetValue(today.AddDate(0, 0, defaultDueDays).Format(document.DateLayout))
	m.currency.SetValue(m.doc.Currency)
	m.notes.SetValue("")
	m.clearLineInputs()
	m.step = document.StepDetails
	m.cursor = 0
	m.validation = nil
	m.syncDetails()
	m.signature = m.snapshotSignature()
}

// --- Update ---

func (m *WizardModel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case documentCreatedMsg:
		m.saving = false
		m.saved = msg.record
		cmd = m.clients.Clear()
		m.resetDocument(m.doc.Currency)
		return cmd
	case documentFailedMsg:
		m.saving = false
		m.errText = msg.err.Error()
		return nil
	case tea.KeyMsg:
		cmd = m.handleKey(msg)
	default:
		cmd = tea.Batch(m.details.broadcast(msg), m.items.broadcast(msg), m.pane.Update(msg))
	}
	return tea.Batch(cmd, m.publishIfChanged())
}

func (m *WizardModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case isSave(msg):
		return m.submit()
	case isKey(msg, "ctrl+right"):
		return m.nextStep()
	case isKey(msg, "ctrl+left"):
		m.prevStep()
		return nil
	}
	m.saved = nil

	switch m.step {
	case document.StepDetails:
		return m.details.handleKey(msg)
	case document.StepItems:
		return m.handleItemKeys(msg)
	default:
		if m.pane.HandlesKey(msg) {
			return m.pane.Update(msg)
		}
	}
	return nil
}

func (m *WizardModel) handleItemKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case isKey(msg, "pgdown"):
		if m.cursor < len(m.doc.Items)-1 {
			m.cursor++
		}
		return nil
	case isKey(msg, "pgup"):
		if m.cursor > 0 {
			m.cursor--
		}
		return nil
	case isKey(msg, "ctrl+d"):
		if m.doc.RemoveItem(m.cursor) && m.cursor >= len(m.doc.Items) {
			m.cursor = max(len(m.doc.Items)-1, 0)
		}
		return nil
	case isEnter(msg) && m.items.focused() == field(m.tax):
		return m.addLine()
	}
	return m.items.handleKey(msg)
}

// --- Steps ---

func (m *WizardModel) nextStep() tea.Cmd {
	if m.step == document.StepReview {
		return nil
	}
	m.syncDetails()
	if err := m.doc.ValidateStep(m.step); err != nil {
		m.setValidation(err)
		return nil
	}
	m.validation = nil
	m.errText = ""
	m.step++
	m.dispatcherEscape()
	if m.step == document.StepReview {
		return tea.Batch(m.publishIfChanged(), m.pane.Refresh())
	}
	return nil
}

func (m *WizardModel) prevStep() {
	if m.step == document.StepDetails {
		return
	}
	m.step--
	m.validation = nil
	m.dispatcherEscape()
}

func (m *WizardModel) dispatcherEscape() {
	m.session.dispatcher.Escape()
}

func (m *WizardModel) setValidation(err error) {
	var verr *document.ValidationError
	if errors.As(err, &verr) {
		m.validation = verr
		return
	}
	m.errText = err.Error()
}

// --- Details ---

// syncDetails copies the detail fields into the document.
func (m *WizardModel) syncDetails() {
	d := m.doc
	d.Kind = document.Kind(m.kind.Value())
	d.ClientID, d.ClientName = "", ""
	if c, ok := m.clients.Selected(); ok {
		d.ClientID, d.ClientName = c.ID, c.Name
	}
	d.ContactID, d.ContactName = "", ""
	if c, ok := m.contacts.Selected(); ok {
		d.ContactID, d.ContactName = c.ID, c.Name
	}
	d.AssetIDs = nil
	if id := m.assets.SelectedID(); id != "" {
		d.AssetIDs = []string{id}
	}
	d.IssueDate = m.issue.Value()
	d.DueDate = m.due.Value()
	d.Currency = strings.ToUpper(m.currency.Value())
	d.Notes = m.notes.Value()
}

// --- Items ---

func (m *WizardModel) applyProduct(p api.Product) {
	m.productID = p.ID
	m.desc.SetValue(p.Name)
	m.price.SetValue(document.FormatMoney(p.Price, ""))
	if m.qty.Value() == "" {
		m.qty.SetValue("1")
	}
	m.items.setFocus(2)
}

func (m *WizardModel) addLine() tea.Cmd {
	line, err := m.parseLine()
	if err != nil {
		m.errText = err.Error()
		return nil
	}
	m.errText = ""
	m.doc.AddItem(line)
	m.cursor = len(m.doc.Items) - 1
	cmd := m.products.Clear()
	m.clearLineInputs()
	m.items.setFocus(0)
	return cmd
}

func (m *WizardModel) parseLine() (document.LineItem, error) {
	line := document.LineItem{ProductID: m.productID, Description: m.desc.Value(), Quantity: 1}
	if line.Description == "" {
		return line, fmt.Errorf("description is required")
	}
	if raw := m.qty.Value(); raw != "" {
		qty, err := strconv.ParseFloat(raw, 64)
		if err != nil || qty <= 0 {
			return line, fmt.Errorf("quantity must be a positive number")
		}
		line.Quantity = qty
	}
	price, err := document.ParseMoney(m.price.Value())
	if err != nil {
		return line, fmt.Errorf("unit price: %w", err)
	}
	if price < 0 {
		return line, fmt.Errorf("unit price must not be negative")
	}
	line.UnitPrice = price
	if raw := strings.TrimSuffix(m.tax.Value(), "%"); raw != "" {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil || rate < 0 || rate > 100 {
			return line, fmt.Errorf("tax rate must be between 0 and 100")
		}
		line.TaxRate = rate
	}
	return line, nil
}

func (m *WizardModel) clearLineInputs() {
	m.productID = ""
	m.desc.SetValue("")
	m.qty.SetValue("")
	m.price.SetValue("")
	m.tax.SetValue("")
}

// --- Change tracking ---

func (m *WizardModel) snapshotSignature() string {
	data, err := json.Marshal(m.doc.Snapshot())
	if err != nil {
		return ""
	}
	return string(data)
}

// publishIfChanged announces the document when its content moved since
// the last announcement.
func (m *WizardModel) publishIfChanged() tea.Cmd {
	m.syncDetails()
	sig := m.snapshotSignature()
	if sig == m.signature {
		return nil
	}
	m.signature = sig
	return m.session.bus.Publish(bus.DocumentChanged{Payload: m.doc.Snapshot()})
}

// --- Submit ---

func (m *WizardModel) submit() tea.Cmd {
	if m.saving {
		return nil
	}
	m.syncDetails()
	if err := m.doc.Validate(); err != nil {
		m.setValidation(err)
		return nil
	}
	m.validation = nil
	m.errText = ""
	m.saving = true

	client := m.session.client
	kind := string(m.doc.Kind)
	snapshot := m.doc.Snapshot()
	return func() tea.Msg {
		record, err := client.CreateDocument(kind, snapshot)
		if err != nil {
			return documentFailedMsg{err}
		}
		return documentCreatedMsg{record}
	}
}

// --- View ---

func (m *WizardModel) View() string {
	var b strings.Builder
	b.WriteString(m.renderSteps())
	b.WriteString("\n\n")

	switch m.step {
	case document.StepDetails:
		b.WriteString(m.details.view())
	case document.StepItems:
		b.WriteString(m.items.view())
		b.WriteString("\n\n")
		b.WriteString(m.renderItems())
	case document.StepReview:
		b.WriteString(m.renderReview())
	}

	switch {
	case m.saving:
		b.WriteString("\n\n" + MutedStyle.Render("Saving..."))
	case m.validation != nil:
		for _, msg := range m.validation.Messages() {
			b.WriteString("\n" + ErrorStyle.Render(msg))
		}
	case m.errText != "":
		b.WriteString("\n\n" + ErrorStyle.Render(m.errText))
	case m.saved != nil:
		label := m.saved.Number
		if label == "" {
			label = m.saved.ID
		}
		b.WriteString("\n\n" + SuccessStyle.Render(fmt.Sprintf("Created %s %s.", m.saved.Kind, label)))
	}

	body := components.TitledBox(kindTitle(m.doc.Kind), b.String(), m.width)
	if m.step != document.StepReview {
		return body
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, body, " ", m.pane.View())
}

func kindTitle(kind document.Kind) string {
	switch kind {
	case document.KindQuote:
		return "New Quote"
	case document.KindInvoice:
		return "New Invoice"
	}
	return "New Document"
}

func (m *WizardModel) renderSteps() string {
	steps := []document.Step{document.StepDetails, document.StepItems, document.StepReview}
	parts := make([]string, 0, len(steps))
	for _, s := range steps {
		label := fmt.Sprintf("%d %s", int(s)+1, s)
		if s == m.step {
			parts = append(parts, TabActiveStyle.Render(label))
			continue
		}
		parts = append(parts, TabInactiveStyle.Render(label))
	}
	return strings.Join(parts, MutedStyle.Render(" › "))
}

var itemColumns = []components.TableColumn{
	{Header: "#", Width: 3, Align: lipgloss.Right},
	{Header: "Description", Width: 24, Flex: true},
	{Header: "Qty", Width: 6, Align: lipgloss.Right},
	{Header: "Price", Width: 12, Align: lipgloss.Right},
	{Header: "Tax", Width: 6, Align: lipgloss.Right},
	{Header: "Total", Width: 12, Align: lipgloss.Right},
	{Header: "Running", Width: 12, Align: lipgloss.Right},
}

func (m *WizardModel) renderItems() string {
	if len(m.doc.Items) == 0 {
		return MutedStyle.Render("No line items yet. Fill the fields and press enter on Tax %.")
	}
	currency := m.doc.Currency
	running := m.doc.RunningTotals()
	rows := make([][]string, 0, len(m.doc.Items))
	for i, li := range m.doc.Items {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			li.Description,
			strconv.FormatFloat(li.Quantity, 'f', -1, 64),
			document.FormatMoney(li.UnitPrice, currency),
			strconv.FormatFloat(li.TaxRate, 'f', -1, 64) + "%",
			document.FormatMoney(li.Total(), currency),
			document.FormatMoney(running[i], currency),
		})
	}
	width := components.BoxContentWidth(m.width)
	if width <= 0 {
		width = 90
	}
	totals := m.doc.Totals()
	grid := components.Grid{
		Columns: itemColumns,
		Rows:    rows,
		Footer:  []string{"", "Total", "", "", "", document.FormatMoney(totals.Total, currency), ""},
		Active:  m.cursor,
	}
	return grid.Render(width)
}

func (m *WizardModel) renderReview() string {
	d := m.doc
	totals := d.Totals()
	rows := []components.TableRow{
		{Label: "Type", Value: string(d.Kind)},
		{Label: "Client", Value: d.ClientName},
		{Label: "Contact", Value: d.ContactName},
		{Label: "Issue date", Value: d.IssueDate},
		{Label: "Due date", Value: d.DueDate},
		{Label: "Lines", Value: strconv.Itoa(len(d.Items))},
		{},
		{Label: "Subtotal", Value: document.FormatMoney(totals.Subtotal, d.Currency), Amount: true},
		{Label: "Tax", Value: document.FormatMoney(totals.Tax, d.Currency), Amount: true},
		{Label: "Total", Value: document.FormatMoney(totals.Total, d.Currency), Amount: true, Strong: true},
	}
	return components.Table("Summary", rows, m.width) + "\n" + m.renderItems()
}

// formView is the form on the current step, if any.
func (m *WizardModel) formView() *form {
	switch m.step {
	case document.StepDetails:
		return m.details
	case document.StepItems:
		return m.items
	}
	return nil
}

// headerLines covers the step indicator and the blank line after it.
func (m *WizardModel) headerLines() int { return 2 }
