package api

import "time"

// --- API Response Envelope ---

type apiResponse[T any] struct {
	Data  T       `json:"data"`
	Error *apiErr `json:"error,omitempty"`
}

type apiErr struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// QueryParams is a set of query string parameters; empty values are dropped.
type QueryParams map[string]string

// --- Client ---

// ClientRecord is the parent entity that scopes assets, contacts and users.
type ClientRecord struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// --- Scoped collections ---

// Asset is a piece of client equipment.
type Asset struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type,omitempty"`
	Make   string `json:"make,omitempty"`
	Model  string `json:"model,omitempty"`
	Serial string `json:"serial,omitempty"`
}

// Contact is a person at a client.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// User is a staff account that can be assigned work.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// --- Products ---

// Product is a billable catalog item. Price is in minor currency units.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SKU         string `json:"sku,omitempty"`
	Price       int64  `json:"price"`
	Description string `json:"description,omitempty"`
}

// CreateProductInput defines the fields required to create a product.
type CreateProductInput struct {
	Name        string `json:"name"`
	SKU         string `json:"sku,omitempty"`
	Price       int64  `json:"price"`
	Description string `json:"description,omitempty"`
}

// --- Tickets ---

// Ticket is a support request raised for a client.
type Ticket struct {
	ID         string    `json:"id"`
	Number     string    `json:"number,omitempty"`
	Subject    string    `json:"subject"`
	Status     string    `json:"status,omitempty"`
	Priority   string    `json:"priority,omitempty"`
	ClientID   string    `json:"client_id"`
	ContactID  string    `json:"contact_id,omitempty"`
	AssetID    string    `json:"asset_id,omitempty"`
	AssigneeID *string   `json:"assignee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateTicketInput defines the fields for opening a ticket. A nil
// AssigneeID leaves the ticket unassigned.
type CreateTicketInput struct {
	ClientID   string  `json:"client_id"`
	ContactID  string  `json:"contact_id,omitempty"`
	AssetID    string  `json:"asset_id,omitempty"`
	AssigneeID *string `json:"assignee_id"`
	Subject    string  `json:"subject"`
	Details    string  `json:"details,omitempty"`
	Priority   string  `json:"priority"`
}

// --- Financial documents ---

// DocumentRecord is the server's answer to a created invoice or quote.
type DocumentRecord struct {
	ID     string `json:"id"`
	Number string `json:"number,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Total  int64  `json:"total"`
}

// --- Preview ---

// PreviewOptions are the viewer settings sent along with a preview request.
type PreviewOptions struct {
	Zoom     int    `json:"zoom"`
	ShowGrid bool   `json:"show_grid"`
	Format   string `json:"format"`
}

// PreviewRenderRequest is the body of POST /preview/pdf.
type PreviewRenderRequest struct {
	Document  any            `json:"document"`
	Options   PreviewOptions `json:"preview_options"`
	Timestamp time.Time      `json:"timestamp"`
}

// PreviewRenderResponse carries the URL of the rendered artifact.
type PreviewRenderResponse struct {
	PreviewURL string `json:"preview_url"`
}
