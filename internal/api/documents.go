package api

import "fmt"

// CreateDocument posts an invoice or quote body to /invoices or /quotes.
func (c *Client) CreateDocument(kind string, body any) (*DocumentRecord, error) {
	var path string
	switch kind {
	case "invoice":
		path = "/invoices"
	case "quote":
		path = "/quotes"
	default:
		return nil, fmt.Errorf("unknown document kind %q", kind)
	}
	data, err := c.post(path, body)
	if err != nil {
		return nil, err
	}
	return decodeOne[DocumentRecord](data)
}
