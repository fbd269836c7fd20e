package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"fintrack/internal/analytics"
	"fintrack/internal/config"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
	"fintrack/internal/worker"
)

const (
	FormatHuman = "human"
	FormatJSON  = "json"

	maxExportRounds = 100
)

// RootOptions are the persistent flags of the admin tool.
type RootOptions struct {
	Output string
	DBPath string

	cfg    *config.Config
	logger *applog.Logger
	repo   *storage.SQLiteRepository
}

// NewRootCmd builds the fintrack-admin command tree. cfg supplies flag
// defaults and the export settings.
func NewRootCmd(cfg *config.Config, logger *applog.Logger) *cobra.Command {
	opts := &RootOptions{
		Output: FormatHuman,
		DBPath: cfg.SQLiteDBPath,
		cfg:    cfg,
		logger: logger,
	}

	cmd := &cobra.Command{
		Use:           "fintrack-admin",
		Short:         "Administrative tasks for the fintrack database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.Output = strings.ToLower(strings.TrimSpace(opts.Output))
			if opts.Output != FormatHuman && opts.Output != FormatJSON {
				return fmt.Errorf("invalid --output value %q: supported values are %s|%s", opts.Output, FormatHuman, FormatJSON)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.repo != nil {
				if err := opts.repo.Close(); err != nil {
					return fmt.Errorf("close sqlite db: %w", err)
				}
				opts.repo = nil
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Output, "output", FormatHuman, "Output format: human|json")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db-path", opts.DBPath, "SQLite database path")

	cmd.AddCommand(
		newMigrateCmd(opts),
		newSeedCategoriesCmd(opts),
		newDashboardCmd(opts),
		newExportCmd(opts),
	)

	return cmd
}

// open lazily opens the repository so commands that only migrate do not
// seed.
func (o *RootOptions) open(cmd *cobra.Command) (*storage.SQLiteRepository, error) {
	if o.repo != nil {
		return o.repo, nil
	}
	repo, err := InitSQLite(cmd.Context(), o.logger, o.DBPath)
	if err != nil {
		return nil, err
	}
	o.repo = repo
	return repo, nil
}

func (o *RootOptions) print(w io.Writer, human string, payload any) error {
	if o.Output == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}
	_, err := fmt.Fprintln(w, human)
	return err
}

func newMigrateCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.RunMigrations(opts.DBPath); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			version, dirty, err := storage.MigrationVersion(opts.DBPath)
			if err != nil {
				return fmt.Errorf("read migration version: %w", err)
			}
			return opts.print(cmd.OutOrStdout(),
				fmt.Sprintf("schema at version %d (dirty=%t)", version, dirty),
				map[string]any{"version": version, "dirty": dirty})
		},
	}
}

func newSeedCategoriesCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-categories",
		Short: "Insert the default categories when missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.open(cmd)
			if err != nil {
				return err
			}

			n, err := services.NewCategoryService(repo).CreateDefaults(cmd.Context())
			if core.IsValidation(err) {
				return opts.print(cmd.OutOrStdout(), "default categories already present",
					map[string]any{"created": 0, "alreadyPresent": true})
			}
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), fmt.Sprintf("created %d default categories", n),
				map[string]any{"created": n, "alreadyPresent": false})
		},
	}
}

func newDashboardCmd(opts *RootOptions) *cobra.Command {
	var email, periodType, date string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print a user's analytics dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return errors.New("--email is required")
			}
			repo, err := opts.open(cmd)
			if err != nil {
				return err
			}

			u, err := repo.GetUserByEmail(cmd.Context(), strings.ToLower(strings.TrimSpace(email)))
			if errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("no user with email %s", email)
			}
			if err != nil {
				return err
			}

			d, err := analytics.NewService(repo, repo).Dashboard(cmd.Context(), u.ID, analytics.Query{PeriodType: periodType, Date: date})
			if err != nil {
				return err
			}

			s := d.Summary
			human := fmt.Sprintf("%s %s..%s  income %.2f  expense %.2f  savings %.2f  balance %.2f  (%d transactions)",
				s.PeriodType, s.RangeStart, s.RangeEnd, s.Income, s.Expense, s.Savings, s.Balance, s.TransactionCount)
			return opts.print(cmd.OutOrStdout(), human, d)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the dashboard owner")
	cmd.Flags().StringVar(&periodType, "period", "monthly", "Period type: daily|weekly|monthly|yearly")
	cmd.Flags().StringVar(&date, "date", "", "Anchor date (ISO 8601), defaults to now")
	return cmd
}

func newExportCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export-pending",
		Short: "Export every transaction changed since its last export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.open(cmd)
			if err != nil {
				return err
			}
			exporter, err := NewExporter(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}

			batch := opts.cfg.ExportBatchSize
			if batch <= 0 {
				batch = config.DefaultExportBatchSize
			}
			w := worker.NewExportWorker(repo, repo, exporter, batch)

			// a full batch may mean more are pending
			total := 0
			for round := 0; round < maxExportRounds; round++ {
				n, err := w.ProcessPending(cmd.Context())
				total += n
				if err != nil {
					return err
				}
				if n < batch {
					break
				}
			}
			return opts.print(cmd.OutOrStdout(), fmt.Sprintf("exported %d transactions", total),
				map[string]any{"exported": total, "backend": opts.cfg.ExportBackend})
		},
	}
}
