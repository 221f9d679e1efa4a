package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/gravitrone/ledgerdesk/internal/api"
	"github.com/gravitrone/ledgerdesk/internal/cmd"
	"github.com/gravitrone/ledgerdesk/internal/config"
	"github.com/gravitrone/ledgerdesk/internal/logging"
	"github.com/gravitrone/ledgerdesk/internal/ui"
)

var errNotConfigured = errors.New("not configured")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ledgerdesk",
		Short: "ledgerdesk - invoices, quotes and tickets from the terminal",
		Long:  "ledgerdesk: build invoices and quotes with a live preview, open support tickets, and manage the product catalog.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runTUI()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(cmd.ConfigureCmd())
	root.AddCommand(cmd.LookupCmd())
	root.AddCommand(cmd.PreviewCmd())
	return root
}

func init() {
	// Force truecolor so hex colors render correctly
	// Must be set before any lipgloss style initialization
	os.Setenv("COLORTERM", "truecolor")
}

func runTUI() error {
	cfg, err := config.LoadOrDefault()
	if err != nil {
		return err
	}
	if cfg.APIKey == "" && (!isInteractiveTerminal(os.Stdin) || !isInteractiveTerminal(os.Stdout)) {
		fmt.Println("not configured. run 'ledgerdesk configure' first.")
		return errNotConfigured
	}

	logger, closeLog, err := logging.OpenFile(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()
	logger.Info("starting tui", "api_url", cfg.APIURL)

	client := api.NewClient(cfg.APIURL, cfg.APIKey, cfg.Timeout())
	app := ui.NewApp(client, cfg, logger)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		logger.Error("tui exited", "err", err)
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

func isInteractiveTerminal(file *os.File) bool {
	if file == nil {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
