package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/gravitrone/ledgerdesk/internal/api"
	"github.com/gravitrone/ledgerdesk/internal/document"
	"github.com/gravitrone/ledgerdesk/internal/logging"
	"github.com/gravitrone/ledgerdesk/internal/preview"
)

// PreviewFile renders the document at path once, retrying transient
// failures on policy. Client errors (4xx) are not retried.
func PreviewFile(ctx context.Context, client *api.Client, path string, opts api.PreviewOptions, policy backoff.BackOff, logger *slog.Logger) (string, error) {
	logger = logging.OrDefault(logger)
	doc, err := document.LoadFile(path)
	if err != nil {
		return "", err
	}
	if err := doc.Validate(); err != nil {
		return "", err
	}

	req := api.PreviewRenderRequest{
		Document:  doc.Snapshot(),
		Options:   opts,
		Timestamp: time.Now(),
	}
	var url string
	op := func() error {
		resp, err := client.RenderPreview(req)
		if err != nil {
			var httpErr *api.HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode < http.StatusInternalServerError {
				return backoff.Permanent(err)
			}
			return err
		}
		url = resp.PreviewURL
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("preview render failed, retrying", "err", err, "wait", wait)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(policy, ctx), notify); err != nil {
		return "", fmt.Errorf("render preview: %w", err)
	}
	return url, nil
}

// PreviewCmd returns the `ledgerdesk preview` command.
func PreviewCmd() *cobra.Command {
	var (
		zoom   int
		format string
		grid   bool
	)
	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Render a YAML or JSON invoice/quote through the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, client, err := loadClient()
			if err != nil {
				return err
			}
			logger := logging.Text(c.ErrOrStderr(), cfg.LogLevel)
			policy := preview.RetryPolicy(cfg.Preview.RetryStep(), cfg.Preview.Retries())
			opts := api.PreviewOptions{Zoom: zoom, ShowGrid: grid, Format: format}

			url, err := PreviewFile(c.Context(), client, args[0], opts, policy, logger)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), url)
			return nil
		},
	}
	cmd.Flags().IntVar(&zoom, "zoom", preview.DefaultZoom, "zoom percent")
	cmd.Flags().StringVar(&format, "format", preview.Formats[0], "page format (a4, letter, legal)")
	cmd.Flags().BoolVar(&grid, "grid", false, "overlay the layout grid")
	return cmd
}
