package ui

import (
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gravitrone/ledgerdesk/internal/api"
	"github.com/gravitrone/ledgerdesk/internal/bus"
	"github.com/gravitrone/ledgerdesk/internal/ui/components"
	"github.com/gravitrone/ledgerdesk/internal/ui/searchselect"
)

// --- Messages ---

type ticketCreatedMsg struct{ ticket *api.Ticket }
type ticketFailedMsg struct{ err error }

var ticketPriorities = []string{"low", "normal", "high", "urgent"}

// --- Ticket Form ---

// TicketForm opens a support ticket for a client. Contact, asset and
// assignee pickers follow the selected client.
type TicketForm struct {
	session *session

	clients  *searchselect.Model[api.ClientRecord]
	contacts *searchselect.Model[api.Contact]
	assets   *searchselect.Model[api.Asset]
	assignee *searchselect.Model[api.User]
	subject  *textField
	details  *textField
	priority *choiceField
	form     *form

	scope   bus.Scope
	saving  bool
	errText string
	saved   *api.Ticket
	width   int
}

// NewTicketForm builds the ticket form on its own session bus.
func NewTicketForm(client *api.Client, dispatcher *searchselect.Dispatcher, logger *slog.Logger) *TicketForm {
	s := newSession("ticket", client, dispatcher, logger)
	m := &TicketForm{
		session:  s,
		clients:  newSelect(s, searchselect.ClientSchema()),
		contacts: newSelect(s, searchselect.ContactSchema()),
		assets:   newSelect(s, searchselect.AssetSchema()),
		assignee: newSelect(s, searchselect.UserSchema()),
		subject:  newTextField("Subject", "Short summary", 200),
		details:  newTextField("Details", "What happened?", 2000),
		priority: newChoiceField("Priority", ticketPriorities...),
	}
	m.priority.Set("normal")
	s.bindScope(m.clients)
	on(s, func(e bus.ScopeSelected) tea.Cmd {
		m.scope = e.Scope
		return nil
	})
	on(s, func(bus.ScopeCleared) tea.Cmd {
		m.scope = bus.Scope{}
		return nil
	})
	m.form = newForm(m.clients, m.contacts, m.assets, m.assignee, m.subject, m.details, m.priority)
	return m
}

func (m *TicketForm) Init() tea.Cmd {
	return m.clients.Load()
}

// Bus exposes the form's session bus.
func (m *TicketForm) Bus() *bus.Bus {
	return m.session.bus
}

// Dirty reports whether the form holds unsaved input.
func (m *TicketForm) Dirty() bool {
	return m.clients.SelectedID() != "" || m.subject.Value() != "" || m.details.Value() != ""
}

func (m *TicketForm) SetWidth(width int) {
	m.width = width
	inner := components.BoxContentWidth(width)
	m.clients.SetWidth(inner)
	m.contacts.SetWidth(inner)
	m.assets.SetWidth(inner)
	m.assignee.SetWidth(inner)
}

func (m *TicketForm) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case ticketCreatedMsg:
		m.saving = false
		m.saved = msg.ticket
		return m.reset()
	case ticketFailedMsg:
		m.saving = false
		m.errText = msg.err.Error()
		return nil
	case tea.KeyMsg:
		if isSave(msg) {
			return m.submit()
		}
		m.saved = nil
		return m.form.handleKey(msg)
	}
	return m.form.broadcast(msg)
}

func (m *TicketForm) submit() tea.Cmd {
	if m.saving {
		return nil
	}
	clientID := m.clients.SelectedID()
	if clientID == "" {
		m.errText = "Client is required"
		return nil
	}
	subject := m.subject.Value()
	if subject == "" {
		m.errText = "Subject is required"
		return nil
	}
	input := api.CreateTicketInput{
		ClientID:  clientID,
		ContactID: m.contacts.SelectedID(),
		AssetID:   m.assets.SelectedID(),
		Subject:   subject,
		Details:   m.details.Value(),
		Priority:  m.priority.Value(),
	}
	if id := m.assignee.SelectedID(); id != "" {
		input.AssigneeID = &id
	}

	m.saving = true
	m.errText = ""
	client := m.session.client
	return func() tea.Msg {
		ticket, err := client.CreateTicket(input)
		if err != nil {
			return ticketFailedMsg{err}
		}
		return ticketCreatedMsg{ticket}
	}
}

// reset clears the form. Clearing the client cascades through the
// scoped pickers.
func (m *TicketForm) reset() tea.Cmd {
	cmd := m.clients.Clear()
	m.subject.SetValue("")
	m.details.SetValue("")
	m.priority.Set("normal")
	m.form.setFocus(0)
	return cmd
}

func (m *TicketForm) View() string {
	var b strings.Builder
	if m.scope.ID != "" {
		b.WriteString(MutedStyle.Render("Raising for "+components.SanitizeOneLine(m.scope.Name)) + "\n\n")
	}
	b.WriteString(m.form.view())
	switch {
	case m.saving:
		b.WriteString("\n\n" + MutedStyle.Render("Saving..."))
	case m.errText != "":
		b.WriteString("\n\n" + ErrorStyle.Render(m.errText))
	case m.saved != nil:
		label := m.saved.Number
		if label == "" {
			label = m.saved.ID
		}
		b.WriteString("\n\n" + SuccessStyle.Render(fmt.Sprintf("Ticket %s opened.", label)))
	}
	return components.TitledBox("New Ticket", b.String(), m.width)
}

// formView exposes the form for pointer hit-testing.
func (m *TicketForm) formView() *form { return m.form }

// headerLines is how many lines precede the form inside the box body.
func (m *TicketForm) headerLines() int {
	if m.scope.ID != "" {
		return 2
	}
	return 0
}
