// Package document models invoices and quotes: line items, totals in
// minor currency units and step-wise validation for the wizard.
package document

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the document type.
type Kind string

const (
	KindInvoice Kind = "invoice"
	KindQuote   Kind = "quote"
)

// Kinds lists the supported kinds in display order.
var Kinds = []Kind{KindInvoice, KindQuote}

// DateLayout is the wire and input format for dates.
const DateLayout = "2006-01-02"

// LineItem is one billable line. UnitPrice is in minor units and
// TaxRate is a percentage.
type LineItem struct {
	ProductID   string  `json:"product_id,omitempty" yaml:"product_id,omitempty"`
	Description string  `json:"description" yaml:"description"`
	Quantity    float64 `json:"quantity" yaml:"quantity"`
	UnitPrice   int64   `json:"unit_price" yaml:"unit_price"`
	TaxRate     float64 `json:"tax_rate" yaml:"tax_rate"`
}

// Document is an invoice or quote being edited.
type Document struct {
	Kind        Kind       `json:"kind" yaml:"kind"`
	Number      string     `json:"number,omitempty" yaml:"number,omitempty"`
	ClientID    string     `json:"client_id" yaml:"client_id"`
	ClientName  string     `json:"client_name,omitempty" yaml:"client_name,omitempty"`
	ContactID   string     `json:"contact_id,omitempty" yaml:"contact_id,omitempty"`
	ContactName string     `json:"contact_name,omitempty" yaml:"contact_name,omitempty"`
	AssetIDs    []string   `json:"asset_ids,omitempty" yaml:"asset_ids,omitempty"`
	Currency    string     `json:"currency" yaml:"currency"`
	IssueDate   string     `json:"issue_date,omitempty" yaml:"issue_date,omitempty"`
	DueDate     string     `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	Notes       string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	Items       []LineItem `json:"items" yaml:"items"`
}

// Totals are the document sums in minor units.
type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

// Snapshot is the immutable payload sent to the preview renderer and
// the create endpoints.
type Snapshot struct {
	Document
	Totals Totals `json:"totals"`
}

// New returns an empty document of kind in currency.
func New(kind Kind, currency string) *Document {
	return &Document{Kind: kind, Currency: strings.ToUpper(currency), Items: []LineItem{}}
}

// --- Line math ---

// Net is quantity times unit price, rounded half away from zero.
func (li LineItem) Net() int64 {
	return round(li.Quantity * float64(li.UnitPrice))
}

// Tax is the line's tax on Net, rounded half away from zero.
func (li LineItem) Tax() int64 {
	return round(float64(li.Net()) * li.TaxRate / 100)
}

// Total is Net plus Tax.
func (li LineItem) Total() int64 {
	return li.Net() + li.Tax()
}

func round(v float64) int64 {
	return int64(math.Round(v))
}

// --- Document math ---

// Totals sums every line.
func (d *Document) Totals() Totals {
	var t Totals
	for _, li := range d.Items {
		t.Subtotal += li.Net()
		t.Tax += li.Tax()
	}
	t.Total = t.Subtotal + t.Tax
	return t
}

// RunningTotals returns the cumulative total after each line.
func (d *Document) RunningTotals() []int64 {
	out := make([]int64, len(d.Items))
	var sum int64
	for i, li := range d.Items {
		sum += li.Total()
		out[i] = sum
	}
	return out
}

// --- Editing ---

// AddItem appends li.
func (d *Document) AddItem(li LineItem) {
	d.Items = append(d.Items, li)
}

// RemoveItem drops the line at idx. Out of range indexes are ignored.
func (d *Document) RemoveItem(idx int) bool {
	if idx < 0 || idx >= len(d.Items) {
		return false
	}
	d.Items = append(d.Items[:idx], d.Items[idx+1:]...)
	return true
}

// Snapshot copies the document with its totals. Later edits do not
// show through.
func (d *Document) Snapshot() Snapshot {
	cp := *d
	cp.Items = append([]LineItem(nil), d.Items...)
	cp.AssetIDs = append([]string(nil), d.AssetIDs...)
	return Snapshot{Document: cp, Totals: d.Totals()}
}

// --- Files ---

// Parse decodes a YAML or JSON document.
func Parse(data []byte) (*Document, error) {
	var d Document
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	d.Kind = Kind(strings.ToLower(string(d.Kind)))
	d.Currency = strings.ToUpper(strings.TrimSpace(d.Currency))
	if d.Items == nil {
		d.Items = []LineItem{}
	}
	return &d, nil
}

// LoadFile reads and parses the document at path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Parse(data)
}
