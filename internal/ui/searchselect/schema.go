package searchselect

import (
	"strings"

	"github.com/gravitrone/ledgerdesk/internal/api"
)

// Schema describes one searchable entity type: where its collection
// lives, how to name it and which fields a query matches against.
type Schema[T any] struct {
	Kind  string
	Label string

	// ScopeCollection and Plural form the fetch path
	// /{ScopeCollection}/{scopeID}/{Plural}. An empty ScopeCollection
	// makes the field unscoped: it loads /{Plural} once.
	ScopeCollection string
	Plural          string

	ID     func(T) string
	Name   func(T) string
	Fields func(T) []string

	// Detail is optional secondary text shown next to the name.
	Detail func(T) string

	// AllowUnassigned adds the "Unassigned" pseudo-entry above the
	// candidates; confirming it clears the selection.
	AllowUnassigned bool
	UnassignedLabel string

	// HideWhenEmpty closes the dropdown instead of showing "No results".
	HideWhenEmpty bool

	Placeholder string
}

// Scoped reports whether the collection depends on a parent scope.
func (s Schema[T]) Scoped() bool {
	return s.ScopeCollection != ""
}

// Path renders the collection endpoint for scopeID.
func (s Schema[T]) Path(scopeID string) string {
	return api.ScopedPath(s.ScopeCollection, scopeID, s.Plural)
}

func (s Schema[T]) unassignedLabel() string {
	if s.UnassignedLabel == "" {
		return "Unassigned"
	}
	return s.UnassignedLabel
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " · ")
}

// --- Built-in schemas ---

// ClientSchema picks the scope itself, so it is unscoped.
func ClientSchema() Schema[api.ClientRecord] {
	return Schema[api.ClientRecord]{
		Kind:        "client",
		Label:       "Client",
		Plural:      "clients",
		ID:          func(c api.ClientRecord) string { return c.ID },
		Name:        func(c api.ClientRecord) string { return c.Name },
		Fields:      func(c api.ClientRecord) []string { return []string{c.Name, c.Email} },
		Detail:      func(c api.ClientRecord) string { return c.Email },
		Placeholder: "Search clients...",
	}
}

func AssetSchema() Schema[api.Asset] {
	return Schema[api.Asset]{
		Kind:            "asset",
		Label:           "Asset",
		ScopeCollection: "clients",
		Plural:          "assets",
		ID:              func(a api.Asset) string { return a.ID },
		Name:            func(a api.Asset) string { return a.Name },
		Fields: func(a api.Asset) []string {
			return []string{a.Name, a.Serial, a.Model, a.Make}
		},
		Detail:      func(a api.Asset) string { return joinNonEmpty(a.Make, a.Model, a.Serial) },
		Placeholder: "Search assets by name, serial or model...",
	}
}

func ContactSchema() Schema[api.Contact] {
	return Schema[api.Contact]{
		Kind:            "contact",
		Label:           "Contact",
		ScopeCollection: "clients",
		Plural:          "contacts",
		ID:              func(c api.Contact) string { return c.ID },
		Name:            func(c api.Contact) string { return c.Name },
		Fields: func(c api.Contact) []string {
			return []string{c.Name, c.Email, c.Phone, c.Title}
		},
		Detail:      func(c api.Contact) string { return joinNonEmpty(c.Title, c.Email) },
		Placeholder: "Search contacts...",
	}
}

// UserSchema is the assignee picker; it offers an explicit Unassigned entry.
func UserSchema() Schema[api.User] {
	return Schema[api.User]{
		Kind:            "user",
		Label:           "Assignee",
		ScopeCollection: "clients",
		Plural:          "users",
		ID:              func(u api.User) string { return u.ID },
		Name:            func(u api.User) string { return u.Name },
		Fields:          func(u api.User) []string { return []string{u.Name, u.Email} },
		Detail:          func(u api.User) string { return u.Email },
		AllowUnassigned: true,
		UnassignedLabel: "Unassigned",
		Placeholder:     "Search users...",
	}
}

func ProductSchema() Schema[api.Product] {
	return Schema[api.Product]{
		Kind:          "product",
		Label:         "Product",
		Plural:        "products",
		ID:            func(p api.Product) string { return p.ID },
		Name:          func(p api.Product) string { return p.Name },
		Fields:        func(p api.Product) []string { return []string{p.Name, p.SKU} },
		Detail:        func(p api.Product) string { return p.SKU },
		HideWhenEmpty: true,
		Placeholder:   "Search products...",
	}
}
