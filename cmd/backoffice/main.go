// Command backoffice imports restaurant financial data files and reconciles
// them into the ledger.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/resto-backoffice/internal/domain/ledger"
	"github.com/FACorreiaa/resto-backoffice/internal/domain/reconcile"
	"github.com/FACorreiaa/resto-backoffice/internal/domain/sales"
	"github.com/FACorreiaa/resto-backoffice/internal/domain/staging"
	"github.com/FACorreiaa/resto-backoffice/internal/ingest/service"
	"github.com/FACorreiaa/resto-backoffice/pkg/config"
	"github.com/FACorreiaa/resto-backoffice/pkg/cron"
	"github.com/FACorreiaa/resto-backoffice/pkg/db"
	"github.com/FACorreiaa/resto-backoffice/pkg/observability"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "backoffice",
		Short: "Restaurant back-office data import and reconciliation",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newReconcileCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newServeCommand())

	return rootCmd
}

// deps holds the wiring shared by all subcommands
type deps struct {
	cfg    *config.Config
	db     *db.DB
	logger *slog.Logger
}

func setup(ctx context.Context) (*deps, error) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	database, err := db.New(ctx, db.Config{DSN: cfg.Database.DSN()})
	if err != nil {
		return nil, err
	}

	return &deps{cfg: cfg, db: database, logger: logger}, nil
}

func (d *deps) importService() *service.ImportService {
	pool := d.db.Pool
	return service.NewImportService(staging.NewPostgresRepository(pool), d.logger).
		WithSales(sales.NewPostgresRepository(pool), sales.NewPostgresDirectory(pool)).
		WithBatchSize(d.cfg.Import.BatchSize).
		WithMaxRowErrors(d.cfg.Import.MaxRowErrors)
}

func (d *deps) reconcileEngine() *reconcile.Engine {
	pool := d.db.Pool
	return reconcile.NewEngine(
		staging.NewPostgresRepository(pool),
		ledger.NewPostgresRepository(pool),
		d.logger,
	).WithBatchSize(d.cfg.Reconcile.BatchSize)
}

func newImportCommand() *cobra.Command {
	var (
		formatCode  string
		filePath    string
		accountHint string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import one data file into staging or sales storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			d, err := setup(ctx)
			if err != nil {
				return err
			}
			defer d.db.Close()

			store := service.NewPostgresFormatStore(d.db.Pool)
			desc, err := store.GetByCode(ctx, formatCode)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("failed to read input file: %w", err)
			}

			svc := d.importService()
			if accountHint != "" {
				svc = svc.WithAccountHint(accountHint)
			}

			summary, err := svc.ImportFile(ctx, desc, data, filePath)
			if err != nil {
				return err
			}

			fmt.Printf("imported %s: accepted=%d rejected=%d duplicates=%d\n",
				filePath, summary.Accepted, summary.Rejected, summary.Duplicates)
			for currency, total := range summary.TotalsByCurrency {
				fmt.Printf("  total %s: %s\n", currency, total)
			}
			for _, e := range summary.Errors {
				fmt.Printf("  %s\n", e)
			}
			if summary.ErrorOverflow > 0 {
				fmt.Printf("  ... and %d more errors\n", summary.ErrorOverflow)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&formatCode, "format", "", "import format code (e.g. bank-delimited)")
	cmd.Flags().StringVar(&filePath, "file", "", "path of the file to import")
	cmd.Flags().StringVar(&accountHint, "account-hint", "", "account token for files without an account column")
	_ = cmd.MarkFlagRequired("format")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newReconcileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile staged rows into ledger movements",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, err := setup(ctx)
			if err != nil {
				return err
			}
			defer d.db.Close()

			engine := d.reconcileEngine().WithProgress(func(p reconcile.Progress) {
				fmt.Printf("batch %d/%d: %d/%d rows\n",
					p.BatchIndex+1, p.BatchCount, p.RowsDone, p.RowsTotal)
			})

			summary, err := engine.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("reconciled: inserted=%d duplicates=%d unmatched=%d batch_errors=%d\n",
				summary.Inserted, summary.Duplicates, summary.Unmatched, summary.BatchErrors)
			return nil
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			d, err := setup(ctx)
			if err != nil {
				return err
			}
			defer d.db.Close()

			if err := d.db.MigrateUp(ctx); err != nil {
				return err
			}
			d.logger.Info("migrations applied")
			return nil
		},
	}
}

// serve keeps the process alive for the nightly reconciliation schedule
// and the metrics listener.
func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and metrics listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, err := setup(ctx)
			if err != nil {
				return err
			}
			defer d.db.Close()

			if d.cfg.Observability.MetricsEnabled {
				go func() {
					if err := observability.Serve(d.cfg.Observability.MetricsPort); err != nil {
						d.logger.Error("metrics listener stopped", slog.Any("error", err))
					}
				}()
			}

			scheduler := cron.NewScheduler(d.reconcileEngine(), d.cfg.Reconcile.Schedule, d.logger)
			if err := scheduler.Start(); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-ctx.Done()
			<-scheduler.Stop().Done()
			return nil
		},
	}
}
