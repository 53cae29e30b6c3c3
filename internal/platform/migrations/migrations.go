// Package migrations embeds the database schema and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var files embed.FS

// Dir is the directory inside the embedded filesystem holding the migrations.
const Dir = "sql"

// Commands supported by Run.
var Commands = []string{"up", "down", "status", "version", "redo", "reset"}

// slogGooseLogger adapts the goose logger interface to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

// Printf forwards goose progress messages at info level.
func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

// Fatalf logs at error level without exiting; Run returns the error instead.
func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

// Run executes a goose command against db using the embedded migrations.
func Run(ctx context.Context, db *sql.DB, logger *slog.Logger, command string, args ...string) error {
	if !isSupported(command) {
		return fmt.Errorf("unsupported migration command %q", command)
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "migrations", "command", command)

	goose.SetBaseFS(files)
	goose.SetLogger(&slogGooseLogger{logger: logger})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	logger.Info("running migrations")
	if err := goose.RunContext(ctx, command, db, Dir, args...); err != nil {
		logger.Error("migration failed", "error", err)
		return fmt.Errorf("goose %s failed: %w", command, err)
	}
	logger.Info("migrations finished")

	return nil
}

// Up applies all pending migrations.
func Up(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	return Run(ctx, db, logger, "up")
}

func isSupported(command string) bool {
	for _, c := range Commands {
		if c == command {
			return true
		}
	}
	return false
}
