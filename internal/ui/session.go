package ui

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gravitrone/ledgerdesk/internal/api"
	"github.com/gravitrone/ledgerdesk/internal/bus"
	"github.com/gravitrone/ledgerdesk/internal/logging"
	"github.com/gravitrone/ledgerdesk/internal/ui/searchselect"
)

// session is the scope of one editing form: its own bus plus the
// dispatcher shared by every form in the app.
type session struct {
	name       string
	client     *api.Client
	bus        *bus.Bus
	dispatcher *searchselect.Dispatcher
	logger     *slog.Logger
	unsubs     []func()
}

func newSession(name string, client *api.Client, dispatcher *searchselect.Dispatcher, logger *slog.Logger) *session {
	logger = logging.OrDefault(logger).With("session", name)
	return &session{
		name:       name,
		client:     client,
		bus:        bus.New(logger),
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (s *session) selectOptions() searchselect.Options {
	return searchselect.Options{Bus: s.bus, Dispatcher: s.dispatcher, Logger: s.logger}
}

// newSelect builds a search field on s and, for scoped schemas, makes it
// follow the session's client scope.
func newSelect[T any](s *session, schema searchselect.Schema[T]) *searchselect.Model[T] {
	m := searchselect.New(schema, searchselect.NewFetcher[T](s.client), s.selectOptions())
	s.unsubs = append(s.unsubs, m.SubscribeScope())
	return m
}

// bindScope turns selections on the client field into scope broadcasts.
func (s *session) bindScope(clients *searchselect.Model[api.ClientRecord]) {
	offSelected := bus.On(s.bus, func(e bus.EntitySelected) tea.Cmd {
		if e.Source != clients.ID() {
			return nil
		}
		return s.bus.Publish(bus.ScopeSelected{Scope: bus.Scope{ID: e.ID, Name: e.Name}})
	})
	offCleared := bus.On(s.bus, func(e bus.EntityCleared) tea.Cmd {
		if e.Source != clients.ID() {
			return nil
		}
		return s.bus.Publish(bus.ScopeCleared{})
	})
	s.unsubs = append(s.unsubs, offSelected, offCleared)
}

// on registers a handler that is dropped with the session.
func on[T bus.Event](s *session, handler func(T) tea.Cmd) {
	s.unsubs = append(s.unsubs, bus.On(s.bus, handler))
}

func (s *session) close() {
	for _, off := range s.unsubs {
		off()
	}
	s.unsubs = nil
}
