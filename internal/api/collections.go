package api

import (
	"fmt"
	"net/url"
)

// ScopedPath renders /{scopeCollection}/{scopeID}/{plural}. An empty
// scopeCollection yields the unscoped /{plural}.
func ScopedPath(scopeCollection, scopeID, plural string) string {
	if scopeCollection == "" {
		return "/" + plural
	}
	return fmt.Sprintf("/%s/%s/%s", scopeCollection, url.PathEscape(scopeID), plural)
}

// --- Collection Methods ---

func (c *Client) ListClients() ([]ClientRecord, error) {
	return FetchList[ClientRecord](c, "/clients")
}

func (c *Client) ListClientAssets(clientID string) ([]Asset, error) {
	return FetchList[Asset](c, ScopedPath("clients", clientID, "assets"))
}

func (c *Client) ListClientContacts(clientID string) ([]Contact, error) {
	return FetchList[Contact](c, ScopedPath("clients", clientID, "contacts"))
}

func (c *Client) ListClientUsers(clientID string) ([]User, error) {
	return FetchList[User](c, ScopedPath("clients", clientID, "users"))
}

func (c *Client) ListProducts(params QueryParams) ([]Product, error) {
	return FetchList[Product](c, buildQuery("/products", params))
}
