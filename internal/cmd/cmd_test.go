package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitrone/ledgerdesk/internal/api"
	"github.com/gravitrone/ledgerdesk/internal/config"
	"github.com/gravitrone/ledgerdesk/internal/logging"
	"github.com/gravitrone/ledgerdesk/internal/preview"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *api.Client) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, api.NewClient(srv.URL, "test-key")
}

// --- configure ---

func TestRunConfigureWritesConfig(t *testing.T) {
	srv, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		assert.Equal(t, "Bearer ldk_test", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})
	path := filepath.Join(t.TempDir(), "config")
	in := strings.NewReader(srv.URL + "\nldk_test\neur\n")
	var out bytes.Buffer

	require.NoError(t, RunConfigure(in, &out, path))

	cfg, err := config.LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, srv.URL, cfg.APIURL)
	assert.Equal(t, "ldk_test", cfg.APIKey)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Contains(t, out.String(), "config saved to "+path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestRunConfigureKeepsExistingValues(t *testing.T) {
	srv, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})
	path := filepath.Join(t.TempDir(), "config")
	existing := config.Default()
	existing.APIURL = srv.URL
	existing.APIKey = "ldk_old_key"
	existing.Currency = "GBP"
	require.NoError(t, existing.SaveTo(path))

	var out bytes.Buffer
	require.NoError(t, RunConfigure(strings.NewReader("\n\n\n"), &out, path))

	cfg, err := config.LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "ldk_old_key", cfg.APIKey)
	assert.Equal(t, "GBP", cfg.Currency)
	assert.Contains(t, out.String(), "api key [ldk_...]")
}

func TestRunConfigureRejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")

	err := RunConfigure(strings.NewReader("http://localhost:1\n\n\n"), &bytes.Buffer{}, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key is required")

	err = RunConfigure(strings.NewReader("http://localhost:1\nkey\neuro\n"), &bytes.Buffer{}, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3-letter")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing is written on failure")
}

func TestRunConfigureFailsWhenServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	path := filepath.Join(t.TempDir(), "config")

	err := RunConfigure(strings.NewReader(url+"\nkey\nusd\n"), &bytes.Buffer{}, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check server")
	assert.ErrorIs(t, err, api.ErrNetwork)
}

// --- lookup ---

func lookupServer(t *testing.T) *api.Client {
	_, client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/clients/c-1/contacts":
			_ = json.NewEncoder(w).Encode([]api.Contact{
				{ID: "p-1", Name: "Jane Roe", Email: "jane@acme.test"},
				{ID: "p-2", Name: "Rick Router", Email: "rick@acme.test"},
			})
		case "/clients/c-1/assets":
			_ = json.NewEncoder(w).Encode([]api.Asset{
				{ID: "a-1", Name: "Router A", Serial: "SN-100"},
				{ID: "a-2", Name: "Switch B", Model: "X200"},
			})
		case "/clients/c-1/users":
			_ = json.NewEncoder(w).Encode(map[string]any{"data": []api.User{{ID: "u-1", Name: "Sam Tech"}}})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": "NOT_FOUND", "message": "unknown client"}})
		}
	})
	return client
}

func TestLookupFiltersEveryCollection(t *testing.T) {
	client := lookupServer(t)

	res, err := Lookup(context.Background(), client, "c-1", "router")
	require.NoError(t, err)

	require.Len(t, res.Contacts, 1)
	assert.Equal(t, "p-2", res.Contacts[0].ID)
	require.Len(t, res.Assets, 1)
	assert.Equal(t, "a-1", res.Assets[0].ID)
	assert.Equal(t, "SN-100", res.Assets[0].Detail)
	assert.Empty(t, res.Users)

	var out bytes.Buffer
	res.Print(&out)
	assert.Contains(t, out.String(), "contacts (1)")
	assert.Contains(t, out.String(), "a-1  Router A  (SN-100)")
	assert.Contains(t, out.String(), "users (0)")
}

func TestLookupEmptyQueryReturnsAll(t *testing.T) {
	client := lookupServer(t)

	res, err := Lookup(context.Background(), client, "c-1", "")
	require.NoError(t, err)
	assert.Len(t, res.Contacts, 2)
	assert.Len(t, res.Assets, 2)
	assert.Len(t, res.Users, 1)
}

func TestLookupPropagatesFetchError(t *testing.T) {
	client := lookupServer(t)

	_, err := Lookup(context.Background(), client, "c-404", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown client")

	_, err = Lookup(context.Background(), client, " ", "")
	assert.EqualError(t, err, "client id is required")
}

func TestLookupCmdRequiresClientFlag(t *testing.T) {
	cmd := LookupCmd()
	cmd.SetArgs([]string{"router"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client")
}

// --- preview ---

const invoiceYAML = `kind: invoice
client_id: c-1
currency: usd
issue_date: "2026-03-01"
due_date: "2026-03-31"
items:
  - description: Managed Backup
    quantity: 2
    unit_price: 4999
    tax_rate: 10
`

func writeDoc(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoice.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestPreviewFileRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	var got map[string]any
	_, client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/preview/pdf", r.URL.Path)
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{"preview_url": "https://cdn.test/inv.pdf"})
	})

	url, err := PreviewFile(context.Background(), client, writeDoc(t, invoiceYAML),
		api.PreviewOptions{Zoom: 100, Format: "a4"},
		preview.RetryPolicy(time.Millisecond, 3), logging.Discard())

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/inv.pdf", url)
	assert.Equal(t, int32(3), calls.Load())

	doc, ok := got["document"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "USD", doc["currency"])
	totals := doc["totals"].(map[string]any)
	assert.EqualValues(t, 10998, totals["total"])
	opts := got["preview_options"].(map[string]any)
	assert.Equal(t, "a4", opts["format"])
}

func TestPreviewFileGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	_, client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := PreviewFile(context.Background(), client, writeDoc(t, invoiceYAML),
		api.PreviewOptions{}, preview.RetryPolicy(time.Millisecond, 2), logging.Discard())

	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "one attempt plus two retries")
}

func TestPreviewFileDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	_, client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	_, err := PreviewFile(context.Background(), client, writeDoc(t, invoiceYAML),
		api.PreviewOptions{}, preview.RetryPolicy(time.Millisecond, 3), logging.Discard())

	require.Error(t, err)
	var httpErr *api.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnprocessableEntity, httpErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPreviewFileValidatesBeforeRendering(t *testing.T) {
	var calls atomic.Int32
	_, client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := PreviewFile(context.Background(), client, writeDoc(t, "kind: invoice\ncurrency: usd\n"),
		api.PreviewOptions{}, preview.RetryPolicy(time.Millisecond, 3), logging.Discard())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "client")
	assert.Zero(t, calls.Load())
}

func TestPreviewCmdNotConfigured(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LEDGERDESK_API_KEY", "")

	cmd := PreviewCmd()
	cmd.SetArgs([]string{"invoice.yaml"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
