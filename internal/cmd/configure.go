package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gravitrone/ledgerdesk/internal/api"
	"github.com/gravitrone/ledgerdesk/internal/config"
)

// RunConfigure prompts for the server, key and currency, checks the
// server answers, and writes the config to path. Empty answers keep the
// current value.
func RunConfigure(in io.Reader, out io.Writer, path string) error {
	cfg, err := config.LoadFrom(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		cfg = config.Default()
	}
	reader := bufio.NewReader(in)

	cfg.APIURL = prompt(reader, out, "api url", cfg.APIURL)
	cfg.APIKey = prompt(reader, out, "api key", cfg.APIKey)
	cfg.Currency = strings.ToUpper(prompt(reader, out, "currency", cfg.Currency))

	if cfg.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	if len(cfg.Currency) != 3 {
		return fmt.Errorf("currency must be a 3-letter code")
	}

	client := api.NewClient(cfg.APIURL, cfg.APIKey, cfg.Timeout())
	if _, err := client.Health(); err != nil {
		return fmt.Errorf("check server: %w", err)
	}

	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Fprintf(out, "connected to %s\n", cfg.APIURL)
	fmt.Fprintf(out, "config saved to %s\n", path)
	return nil
}

func prompt(reader *bufio.Reader, out io.Writer, label, current string) string {
	shown := current
	if label == "api key" && current != "" {
		shown = maskKey(current)
	}
	if shown != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, shown)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}
	line, _ := reader.ReadString('\n')
	if line = strings.TrimSpace(line); line != "" {
		return line
	}
	return current
}

func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "..."
}

// ConfigureCmd returns the `ledgerdesk configure` command.
func ConfigureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Point ledgerdesk at a server and store the API key",
		RunE: func(c *cobra.Command, _ []string) error {
			return RunConfigure(c.InOrStdin(), c.OutOrStdout(), config.Path())
		},
	}
}

// loadClient builds an API client from the config file and environment.
func loadClient() (*config.Config, *api.Client, error) {
	cfg, err := config.LoadOrDefault()
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, nil, fmt.Errorf("not configured: run 'ledgerdesk configure' first")
	}
	return cfg, api.NewClient(cfg.APIURL, cfg.APIKey, cfg.Timeout()), nil
}
