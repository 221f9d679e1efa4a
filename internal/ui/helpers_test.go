package ui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gravitrone/ledgerdesk/internal/api"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *api.Client) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, api.NewClient(srv.URL, "test-key")
}

// fakeServer answers the collection endpoints from a fixed table and
// records every write.
type fakeServer struct {
	mu     sync.Mutex
	lists  map[string]any
	writes map[string][]map[string]any
	reply  map[string]any
	fail   map[string]int
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		lists: map[string]any{
			"/clients": []api.ClientRecord{
				{ID: "c-1", Name: "Acme Corp", Email: "ops@acme.test"},
				{ID: "c-2", Name: "Globex", Email: "it@globex.test"},
			},
			"/clients/c-1/contacts": []api.Contact{{ID: "p-1", Name: "Jane Roe", Email: "jane@acme.test"}},
			"/clients/c-1/assets":   []api.Asset{{ID: "a-1", Name: "Router A", Serial: "SN-100"}},
			"/clients/c-1/users":    []api.User{{ID: "u-1", Name: "Sam Tech"}},
			"/products": []api.Product{
				{ID: "prod-1", Name: "Managed Backup", SKU: "MB-1", Price: 4999},
			},
		},
		writes: map[string][]map[string]any{},
		reply: map[string]any{
			"/tickets":  map[string]any{"id": "t-1", "number": "T-1001", "subject": "Printer down"},
			"/products": map[string]any{"id": "prod-9", "name": "Onsite Hour", "price": 12000},
			"/invoices": map[string]any{"id": "d-1", "number": "INV-0001", "kind": "invoice", "total": 12345},
			"/quotes":   map[string]any{"id": "d-2", "number": "Q-0001", "kind": "quote", "total": 100},
		},
		fail: map[string]int{},
	}
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if code, ok := f.fail[r.URL.Path]; ok {
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": "FAILED", "message": "boom"}})
		return
	}
	switch r.Method {
	case http.MethodGet:
		if r.URL.Path == "/health" {
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
			return
		}
		items, ok := f.lists[r.URL.Path]
		if !ok {
			items = []any{}
		}
		_ = json.NewEncoder(w).Encode(items)
	case http.MethodPost:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.writes[r.URL.Path] = append(f.writes[r.URL.Path], body)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": f.reply[r.URL.Path]})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeServer) written(path string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[path]
}

func (f *fakeServer) failPath(path string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[path] = code
}

// settleWindow bounds how long drain waits on one command. Timer commands
// outlive it and are dropped.
const settleWindow = 300 * time.Millisecond

// drain runs cmd and feeds every resulting message back through update
// until the chain settles.
func drain(update func(tea.Msg) tea.Cmd, cmd tea.Cmd) {
	drainDepth(update, cmd, 0)
}

func drainDepth(update func(tea.Msg) tea.Cmd, cmd tea.Cmd, depth int) {
	if cmd == nil || depth > 64 {
		return
	}
	msg, ok := runCmd(cmd)
	if !ok || msg == nil {
		return
	}
	switch msg := msg.(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			drainDepth(update, c, depth+1)
		}
		return
	case spinner.TickMsg:
		return
	}
	drainDepth(update, update(msg), depth+1)
}

func runCmd(cmd tea.Cmd) (tea.Msg, bool) {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg, true
	case <-time.After(settleWindow):
		return nil, false
	}
}

// collect runs cmd and returns every message it produces without feeding
// them anywhere.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg, ok := runCmd(cmd)
	if !ok || msg == nil {
		return nil
	}
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(update func(tea.Msg) tea.Cmd, s string) {
	for _, r := range s {
		drain(update, update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}))
	}
}

var (
	keyTab      = tea.KeyMsg{Type: tea.KeyTab}
	keyShiftTab = tea.KeyMsg{Type: tea.KeyShiftTab}
	keyEnter    = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc      = tea.KeyMsg{Type: tea.KeyEsc}
	keyDown     = tea.KeyMsg{Type: tea.KeyDown}
	keyUp       = tea.KeyMsg{Type: tea.KeyUp}
	keySave     = tea.KeyMsg{Type: tea.KeyCtrlS}
)
