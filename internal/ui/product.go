package ui

import (
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gravitrone/ledgerdesk/internal/api"
	"github.com/gravitrone/ledgerdesk/internal/bus"
	"github.com/gravitrone/ledgerdesk/internal/document"
	"github.com/gravitrone/ledgerdesk/internal/ui/components"
	"github.com/gravitrone/ledgerdesk/internal/ui/searchselect"
)

// --- Messages ---

type productCreatedMsg struct{ product *api.Product }
type productFailedMsg struct{ err error }

// --- Product Form ---

// ProductForm adds a catalog product. Picking an existing product from
// the catalog search copies it into the fields as a template.
type ProductForm struct {
	session *session

	catalog     *searchselect.Model[api.Product]
	name        *textField
	sku         *textField
	price       *textField
	description *textField
	form        *form

	saving  bool
	errText string
	saved   *api.Product
	width   int
}

func NewProductForm(client *api.Client, dispatcher *searchselect.Dispatcher, logger *slog.Logger) *ProductForm {
	s := newSession("product", client, dispatcher, logger)
	m := &ProductForm{
		session:     s,
		catalog:     newSelect(s, searchselect.ProductSchema()),
		name:        newTextField("Name", "Product name", 120),
		sku:         newTextField("SKU", "Optional", 64),
		price:       newTextField("Price", "0.00", 16),
		description: newTextField("Description", "Optional", 500),
	}
	on(s, func(e bus.EntitySelected) tea.Cmd {
		if e.Source != m.catalog.ID() {
			return nil
		}
		if p, ok := e.Entity.(api.Product); ok {
			m.applyTemplate(p)
		}
		return nil
	})
	m.form = newForm(m.catalog, m.name, m.sku, m.price, m.description)
	return m
}

func (m *ProductForm) Init() tea.Cmd {
	return m.catalog.Load()
}

func (m *ProductForm) Bus() *bus.Bus {
	return m.session.bus
}

func (m *ProductForm) Dirty() bool {
	return m.name.Value() != "" || m.price.Value() != ""
}

func (m *ProductForm) SetWidth(width int) {
	m.width = width
	m.catalog.SetWidth(components.BoxContentWidth(width))
}

func (m *ProductForm) applyTemplate(p api.Product) {
	m.name.SetValue(p.Name)
	m.sku.SetValue(p.SKU)
	m.price.SetValue(document.FormatMoney(p.Price, ""))
	m.description.SetValue(p.Description)
}

func (m *ProductForm) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case productCreatedMsg:
		m.saving = false
		m.saved = msg.product
		return tea.Batch(m.reset(), m.catalog.Load())
	case productFailedMsg:
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

func (m *ProductForm) submit() tea.Cmd {
	if m.saving {
		return nil
	}
	name := m.name.Value()
	if name == "" {
		m.errText = "Name is required"
		return nil
	}
	price, err := document.ParseMoney(m.price.Value())
	if err != nil {
		m.errText = "Price: " + err.Error()
		return nil
	}
	if price < 0 {
		m.errText = "Price must not be negative"
		return nil
	}
	input := api.CreateProductInput{
		Name:        name,
		SKU:         m.sku.Value(),
		Price:       price,
		Description: m.description.Value(),
	}

	m.saving = true
	m.errText = ""
	client := m.session.client
	return func() tea.Msg {
		product, err := client.CreateProduct(input)
		if err != nil {
			return productFailedMsg{err}
		}
		return productCreatedMsg{product}
	}
}

func (m *ProductForm) reset() tea.Cmd {
	cmd := m.catalog.Clear()
	m.name.SetValue("")
	m.sku.SetValue("")
	m.price.SetValue("")
	m.description.SetValue("")
	m.form.setFocus(1)
	return cmd
}

func (m *ProductForm) View() string {
	var b strings.Builder
	b.WriteString(m.form.view())
	switch {
	case m.saving:
		b.WriteString("\n\n" + MutedStyle.Render("Saving..."))
	case m.errText != "":
		b.WriteString("\n\n" + ErrorStyle.Render(m.errText))
	case m.saved != nil:
		b.WriteString("\n\n" + SuccessStyle.Render(fmt.Sprintf("Added %s.", components.SanitizeOneLine(m.saved.Name))))
	}
	return components.TitledBox("New Product", b.String(), m.width)
}

func (m *ProductForm) formView() *form  { return m.form }
func (m *ProductForm) headerLines() int { return 0 }
