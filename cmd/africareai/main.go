package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/emmanuel-123tech/africareai/internal/config"
	"github.com/emmanuel-123tech/africareai/internal/domain/dataset"
	"github.com/emmanuel-123tech/africareai/internal/domain/forecast"
	"github.com/emmanuel-123tech/africareai/internal/domain/triage"
	"github.com/emmanuel-123tech/africareai/internal/platform/db"
	"github.com/emmanuel-123tech/africareai/migrations"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "africareai",
		Short:        "Synthetic forecasting and rule-based triage for public-health decision support",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(facilitiesCmd())
	rootCmd.AddCommand(triageCmd())
	rootCmd.AddCommand(analyseCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	var schema, dir string
	cmd.PersistentFlags().StringVar(&schema, "schema", db.DefaultSchema, "Target schema for migrations")
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "Read migrations from this directory instead of the embedded set")

	withMigrator := func(ctx context.Context, fn func(*db.Migrator) error) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if !cfg.HasDatabase() {
			return fmt.Errorf("DATABASE_URL is required for migrations")
		}
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
			MaxConns:        2,
			ApplicationName: "africareai-migrate",
		})
		if err != nil {
			return err
		}
		defer pool.Close()

		m := db.NewMigratorFS(pool, migrations.FS)
		if dir != "" {
			m = db.NewMigrator(pool, dir)
		}
		return fn(m)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withMigrator(ctx, func(m *db.Migrator) error {
				count, err := m.Up(ctx, schema)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) to schema %s.\n", count, schema)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withMigrator(ctx, func(m *db.Migrator) error {
				statuses, err := m.Status(ctx, schema)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printStatuses(cmd.OutOrStdout(), schema, statuses)
				return nil
			})
		},
	})

	return cmd
}

func printStatuses(w io.Writer, schema string, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "Migration status for schema: %s\n", schema)
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		status, appliedAt := "pending", ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

// cliLogger keeps service debug output off stdout so command output stays
// valid JSON.
func cliLogger(cmd *cobra.Command) zerolog.Logger {
	return zerolog.New(cmd.ErrOrStderr()).Level(zerolog.WarnLevel)
}

func forecastCmd() *cobra.Command {
	var (
		seed       forecast.Seed
		scenario   string
		lastActual float64
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Print a synthetic monthly forecast series as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed.Scenario = forecast.Scenario(scenario)
			if cmd.Flags().Changed("last-actual") {
				seed.LastActual = &lastActual
			}
			svc := forecast.NewService(forecast.NewRunRepoMemory(), forecast.NewEngine(), cliLogger(cmd))
			run, err := svc.CreateRun(cmd.Context(), seed, "cli")
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), run.Series)
		},
	}
	cmd.Flags().StringVar(&seed.Disease, "disease", forecast.DefaultDisease, "Disease profile")
	cmd.Flags().StringVar(&seed.Location, "location", "", "LGA name, e.g. IKEJA or KANO-MUNICIPAL (case-insensitive)")
	cmd.Flags().IntVar(&seed.Horizon, "horizon", 12, "Months to project (minimum 6)")
	cmd.Flags().StringVar(&scenario, "scenario", string(forecast.ScenarioBaseline), "Scenario")
	cmd.Flags().Float64Var(&lastActual, "last-actual", 0, "Most recent observed monthly value")
	return cmd
}

func facilitiesCmd() *cobra.Command {
	var disease, scenario string
	cmd := &cobra.Command{
		Use:   "facilities",
		Short: "Print projected facility loads as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), forecast.ForecastFacilityLoads(disease, forecast.Scenario(scenario)))
		},
	}
	cmd.Flags().StringVar(&disease, "disease", forecast.DefaultDisease, "Disease profile")
	cmd.Flags().StringVar(&scenario, "scenario", string(forecast.ScenarioBaseline), "Scenario")
	return cmd
}

func triageCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Triage a patient presentation read from a JSON file (- for stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			var in triage.Input
			if err := json.Unmarshal(raw, &in); err != nil {
				return fmt.Errorf("decode triage input: %w", err)
			}
			svc := triage.NewService(triage.NewAssessmentRepoMemory(), cliLogger(cmd))
			a, err := svc.Assess(cmd.Context(), in, "cli")
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), a.Result)
		},
	}
	cmd.Flags().StringVar(&file, "file", "-", "Path to the input JSON")
	return cmd
}

func analyseCmd() *cobra.Command {
	var file, disease, scenario string
	cmd := &cobra.Command{
		Use:   "analyse",
		Short: "Analyse a monthly CSV dataset and print insights as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			svc := dataset.NewService(dataset.NewAnalyzer(forecast.NewEngine()), cliLogger(cmd))
			analysis, err := svc.AnalyseText(cmd.Context(), string(raw), disease, forecast.Scenario(scenario))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), analysis)
		},
	}
	cmd.Flags().StringVar(&file, "file", "-", "Path to the CSV file (- for stdin)")
	cmd.Flags().StringVar(&disease, "disease", "", "Disease profile for the continuation forecast")
	cmd.Flags().StringVar(&scenario, "scenario", string(forecast.ScenarioBaseline), "Scenario")
	return cmd
}

func readInput(cmd *cobra.Command, file string) ([]byte, error) {
	if file == "-" || file == "" {
		return io.ReadAll(cmd.InOrStdin())
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return raw, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
