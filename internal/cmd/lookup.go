package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gravitrone/ledgerdesk/internal/api"
	"github.com/gravitrone/ledgerdesk/internal/logging"
	"github.com/gravitrone/ledgerdesk/internal/ui/searchselect"
)

// LookupMatch is one entity that matched a lookup query.
type LookupMatch struct {
	Kind   string
	ID     string
	Name   string
	Detail string
}

// LookupResult groups matches by collection in a fixed order.
type LookupResult struct {
	Contacts []LookupMatch
	Assets   []LookupMatch
	Users    []LookupMatch
}

// Lookup fetches a client's contacts, assets and users concurrently and
// filters each with the same matcher the TUI dropdowns use. The first
// failing fetch cancels the rest.
func Lookup(ctx context.Context, client *api.Client, clientID, query string) (*LookupResult, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, fmt.Errorf("client id is required")
	}

	var res LookupResult
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := fetchScoped(ctx, func() ([]api.Contact, error) { return client.ListClientContacts(clientID) })
		if err != nil {
			return fmt.Errorf("contacts: %w", err)
		}
		res.Contacts = match(searchselect.ContactSchema(), items, query)
		return nil
	})
	g.Go(func() error {
		items, err := fetchScoped(ctx, func() ([]api.Asset, error) { return client.ListClientAssets(clientID) })
		if err != nil {
			return fmt.Errorf("assets: %w", err)
		}
		res.Assets = match(searchselect.AssetSchema(), items, query)
		return nil
	})
	g.Go(func() error {
		items, err := fetchScoped(ctx, func() ([]api.User, error) { return client.ListClientUsers(clientID) })
		if err != nil {
			return fmt.Errorf("users: %w", err)
		}
		res.Users = match(searchselect.UserSchema(), items, query)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &res, nil
}

// fetchScoped skips the request when a sibling fetch already failed.
func fetchScoped[T any](ctx context.Context, fetch func() ([]T, error)) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fetch()
}

func match[T any](schema searchselect.Schema[T], items []T, query string) []LookupMatch {
	filtered := searchselect.Filter(items, query, schema.Fields)
	out := make([]LookupMatch, 0, len(filtered))
	for _, item := range filtered {
		m := LookupMatch{Kind: schema.Kind, ID: schema.ID(item), Name: schema.Name(item)}
		if schema.Detail != nil {
			m.Detail = schema.Detail(item)
		}
		out = append(out, m)
	}
	return out
}

// Print writes the grouped matches.
func (r *LookupResult) Print(w io.Writer) {
	groups := []struct {
		title   string
		matches []LookupMatch
	}{
		{"contacts", r.Contacts},
		{"assets", r.Assets},
		{"users", r.Users},
	}
	for _, g := range groups {
		fmt.Fprintf(w, "%s (%d)\n", g.title, len(g.matches))
		for _, m := range g.matches {
			line := fmt.Sprintf("  %s  %s", m.ID, m.Name)
			if m.Detail != "" {
				line += "  (" + m.Detail + ")"
			}
			fmt.Fprintln(w, line)
		}
	}
}

// LookupCmd returns the `ledgerdesk lookup` command.
func LookupCmd() *cobra.Command {
	var clientID string
	cmd := &cobra.Command{
		Use:   "lookup [query]",
		Short: "Search a client's contacts, assets and users",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, client, err := loadClient()
			if err != nil {
				return err
			}
			logger := logging.Text(c.ErrOrStderr(), cfg.LogLevel)

			query := ""
			if len(args) > 0 {
				query = args[0]
			}
			logger.Debug("lookup", "client", clientID, "query", query)
			res, err := Lookup(c.Context(), client, clientID, query)
			if err != nil {
				return fmt.Errorf("lookup: %w", err)
			}
			res.Print(c.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVarP(&clientID, "client", "c", "", "client id to search within")
	_ = cmd.MarkFlagRequired("client")
	return cmd
}
