// Package cli implements sitectl, the operator tool for the site database,
// uploads and search index.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"grahalia-estates/internal/app"
	"grahalia-estates/internal/config"
	"grahalia-estates/internal/logging"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// NewRootCmd builds the sitectl command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sitectl",
		Short: "Operate the Grahalia Estates site",
		Long: `sitectl runs maintenance tasks against the site configured by
CONFIG_PATH and the environment.

Examples:

  sitectl migrate
  sitectl cleanup --dry-run
  sitectl reindex
  sitectl export-leads --status new --out leads.csv
  sitectl hash-password 's3cret'
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newMigrateCmd())
	root.AddCommand(newCleanupCmd())
	root.AddCommand(newReindexCmd())
	root.AddCommand(newExportLeadsCmd())
	root.AddCommand(newHashPasswordCmd())
	root.AddCommand(newMaintenanceCmd())
	return root
}

// Execute runs sitectl with the process arguments
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		red.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

// withApp loads config, opens the application and runs fn with it. Logs go
// to stderr so command output can be piped.
func withApp(fn func(a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, closeLog, err := logging.Setup(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printField(w io.Writer, name string, value interface{}) {
	cyan.Fprintf(w, "   %-22s", name+":")
	fmt.Fprintln(w, value)
}
