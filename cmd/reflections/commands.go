package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/platform/migrations"
	"github.com/phrazzld/reflections-api/internal/reflection"
	"github.com/phrazzld/reflections-api/internal/service/auth"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "reflections",
	Short: "Weekly reflection batch orchestrator",
	Long: `Submits one batch of reflection requests per week to the external batch API,
polls submitted batches until they finish, stores the generated reflections
and reports progress to the operator.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.yaml)")
	rootCmd.AddCommand(submitCmd, pollCmd, cleanupCmd, serveCmd, migrateCmd, tokenCmd)
}

// --- submit ---

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit the reflection batch for a week",
	Long: `Submit the reflection batch for a week. Without flags the week that ended at
the most recent scheduled submission is used.

Examples:
  reflections submit
  reflections submit --year 2024 --week 42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		year, _ := cmd.Flags().GetInt("year")
		week, _ := cmd.Flags().GetInt("week")
		if (year == 0) != (week == 0) {
			return fmt.Errorf("--year and --week must be given together")
		}

		app, err := openApplication(cmd.Context(), configPath)
		if err != nil {
			return err
		}
		defer app.close()

		target, err := selectWeek(app.window, app.now(), year, week)
		if err != nil {
			return err
		}

		result, err := app.submitter.Submit(cmd.Context(), target)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	submitCmd.Flags().Int("year", 0, "ISO year of the week to submit")
	submitCmd.Flags().Int("week", 0, "ISO week number to submit")
}

// selectWeek returns the explicitly requested week, or the window's target
// week when none is given.
func selectWeek(window reflection.Window, now time.Time, year, week int) (domain.Week, error) {
	if year == 0 && week == 0 {
		return window.TargetWeek(now), nil
	}
	return domain.NewWeek(year, week)
}

// --- poll ---

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Advance every outstanding batch job once",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApplication(cmd.Context(), configPath)
		if err != nil {
			return err
		}
		defer app.close()

		summary, err := app.poller.Run(cmd.Context(), app.now())
		if summary != nil {
			if werr := writeJSON(cmd.OutOrStdout(), summary); werr != nil && err == nil {
				err = werr
			}
		}
		return err
	},
}

// --- cleanup ---

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete finished jobs older than the retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApplication(cmd.Context(), configPath)
		if err != nil {
			return err
		}
		defer app.close()

		return writeJSON(cmd.OutOrStdout(), app.cleaner.Cleanup(cmd.Context(), app.now()))
	},
}

// --- serve ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the admin API and run submissions and polling on schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, l, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		db, err := setupDatabase(ctx, cfg, l)
		if err != nil {
			return err
		}

		if cfg.Database.AutoMigrate {
			if err := migrations.Up(ctx, db, l); err != nil {
				_ = db.Close()
				return err
			}
		}

		app, err := newApplication(ctx, cfg, l, db)
		if err != nil {
			_ = db.Close()
			return err
		}
		defer app.close()

		return app.serve(ctx)
	},
}

// --- migrate ---

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down|status|version|redo|reset] [args...]",
	Short: "Manage the database schema",
	Long: `Manage the database schema with the migrations embedded in the binary.
The command defaults to "up".`,
	Args: validateMigrateArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		command := "up"
		if len(args) > 0 {
			command, args = args[0], args[1:]
		}

		cfg, l, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		db, err := setupDatabase(cmd.Context(), cfg, l)
		if err != nil {
			return err
		}
		defer db.Close()

		return migrations.Run(cmd.Context(), db, l, command, args...)
	},
}

func validateMigrateArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	if !slices.Contains(migrations.Commands, args[0]) {
		return fmt.Errorf("unknown migration command %q (want one of %v)", args[0], migrations.Commands)
	}
	return nil
}

// --- token ---

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a bearer token for the admin API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, l, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		jwtService, err := auth.NewJWTService(cfg.Auth)
		if err != nil {
			return err
		}

		token, expiresAt, err := jwtService.GenerateToken(cmd.Context(), cfg.Auth.AdminUserID)
		if err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}

		l.Info("admin token issued", "expires_at", expiresAt.UTC().Format(time.RFC3339))
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
