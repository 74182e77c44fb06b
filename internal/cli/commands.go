package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"grahalia-estates/internal/app"
	"grahalia-estates/internal/auth"
	"grahalia-estates/internal/cleanup"
	"grahalia-estates/internal/leads"
	"grahalia-estates/internal/search"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and seed the feature catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				out := cmd.OutOrStdout()
				green.Fprintln(out, "✅ Schema is up to date")
				printField(out, "driver", a.DB.Driver())
				return nil
			})
		},
	}
}

func newCleanupCmd() *cobra.Command {
	cfg := cleanup.DefaultSweepConfig()
	var retention time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove orphan upload files and old rate limit rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()

				if !cfg.DryRun {
					n, err := a.Services.Cleanup.PurgeRateLimits(ctx, retention)
					if err != nil {
						return err
					}
					printField(out, "rate limit rows purged", n)
				}

				result, err := a.Services.Cleanup.SweepOrphanUploads(ctx, cfg)
				if err != nil {
					return err
				}
				if result.DryRun {
					yellow.Fprintln(out, "⚠️  Dry run, nothing was deleted")
					for _, f := range result.DeletedFiles {
						fmt.Fprintln(out, "   -", f)
					}
				}
				printField(out, "files scanned", result.ScannedCount)
				printField(out, "orphans found", result.TargetCount)
				printField(out, "files deleted", result.DeletedCount)
				if result.ErrorCount > 0 {
					red.Fprintf(out, "❌ %d files could not be removed\n", result.ErrorCount)
					for _, e := range result.Errors {
						fmt.Fprintln(out, "   -", e)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&cfg.DryRun, "dry-run", false, "List orphan files without deleting them")
	cmd.Flags().DurationVar(&cfg.MinAge, "min-age", cfg.MinAge, "Ignore files newer than this")
	cmd.Flags().IntVar(&cfg.MaxDeletionCount, "max", cfg.MaxDeletionCount, "Abort when more files than this would be deleted")
	cmd.Flags().DurationVar(&retention, "rate-limit-retention", 24*time.Hour, "Keep rate limit rows newer than this")
	return cmd
}

func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from published listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				svc := a.Services.Search
				if !svc.Enabled() {
					return search.ErrDisabled
				}
				if err := svc.Init(); err != nil {
					return fmt.Errorf("failed to initialize index: %w", err)
				}
				n, err := svc.Reindex(cmd.Context())
				if err != nil {
					return err
				}
				green.Fprintf(cmd.OutOrStdout(), "✅ Indexed %d listings\n", n)
				return nil
			})
		},
	}
}

func newExportLeadsCmd() *cobra.Command {
	var status, q, outPath string

	cmd := &cobra.Command{
		Use:   "export-leads",
		Short: "Write leads as CSV",
		Long: `Write leads matching the filters as CSV. Without --out the file is
named leads-YYYY-MM-DD.csv in the current directory; --out - writes to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				var buf bytes.Buffer
				exp, err := a.Services.Leads.ExportCSV(cmd.Context(), leads.ParseFilter(status, q), &buf)
				if err != nil {
					return err
				}
				if outPath == "-" {
					_, err := cmd.OutOrStdout().Write(buf.Bytes())
					return err
				}
				if outPath == "" {
					outPath = exp.Filename
				}
				if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", outPath, err)
				}
				green.Fprintf(cmd.OutOrStdout(), "✅ Exported %d leads to %s\n", exp.Rows, outPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "Lead status: new, processed or all")
	cmd.Flags().StringVarP(&q, "query", "q", "", "Search text")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return errors.New("password must not be empty")
			}
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newMaintenanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maintenance",
		Short: "Run the daily maintenance job once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				report, err := a.Services.Scheduler.RunNow(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(report.Errors) > 0 {
					yellow.Fprintln(out, "⚠️  Maintenance finished with errors")
					for _, e := range report.Errors {
						fmt.Fprintln(out, "   -", e)
					}
				} else {
					green.Fprintln(out, "✅ Maintenance finished")
				}
				printField(out, "duration", report.Duration)
				printField(out, "rate limits purged", report.RateLimitsPurged)
				printField(out, "notifications purged", report.NotificationsPurged)
				printField(out, "reindexed", report.Reindexed)
				if report.Sweep != nil {
					printField(out, "orphan files deleted", report.Sweep.DeletedCount)
				}
				return nil
			})
		},
	}
}
