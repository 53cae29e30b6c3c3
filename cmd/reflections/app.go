package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/phrazzld/reflections-api/internal/config"
	"github.com/phrazzld/reflections-api/internal/platform/archive"
	"github.com/phrazzld/reflections-api/internal/platform/batchapi"
	"github.com/phrazzld/reflections-api/internal/platform/logger"
	"github.com/phrazzld/reflections-api/internal/platform/postgres"
	"github.com/phrazzld/reflections-api/internal/platform/sendgrid"
	"github.com/phrazzld/reflections-api/internal/reflection"
	"github.com/phrazzld/reflections-api/internal/service/auth"
	"github.com/phrazzld/reflections-api/internal/store"
)

// application holds the shared dependencies of every command and closes them
// on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	jobs       store.JobStore
	jwtService auth.JWTService
	window     reflection.Window

	submitter *reflection.Submitter
	poller    *reflection.Poller
	cleaner   *reflection.Cleaner

	now func() time.Time
}

// logOutput receives structured logs. Command results go to stdout.
var logOutput io.Writer = os.Stderr

// loadConfig reads the configuration and sets up the process logger.
func loadConfig(path string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.SetupWithWriter(cfg.Server, logOutput)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Debug("configuration loaded",
		"log_level", cfg.Server.LogLevel,
		"email_enabled", cfg.Notify.EmailEnabled(),
		"archive_enabled", cfg.Archive.Enabled())

	return cfg, l, nil
}

// setupDatabase opens the connection pool and checks that the database is
// reachable.
func setupDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established")
	return db, nil
}

// openApplication loads configuration, connects to the database and wires
// every component.
func openApplication(ctx context.Context, configPath string) (*application, error) {
	cfg, l, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	db, err := setupDatabase(ctx, cfg, l)
	if err != nil {
		return nil, err
	}

	app, err := newApplication(ctx, cfg, l, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

// newApplication wires the orchestration components over an open database.
func newApplication(ctx context.Context, cfg *config.Config, l *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: l,
		db:     db,
		now:    time.Now,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.window, err = reflection.NewWindow(
		cfg.Schedule.SubmitWeekday,
		cfg.Schedule.SubmitHour,
		cfg.Schedule.PollWindow,
	)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}

	prompts, err := reflection.LoadPrompts(cfg.Reflection.SystemPromptPath, cfg.Reflection.UserPromptPath)
	if err != nil {
		return nil, err
	}

	notifier, err := newNotifier(cfg.Notify, l)
	if err != nil {
		return nil, err
	}

	archiver, err := newArchiver(ctx, cfg.Archive, l)
	if err != nil {
		return nil, err
	}

	jobs := postgres.NewPostgresJobStore(db, l)
	reflections := postgres.NewPostgresReflectionStore(db, l)
	activity := postgres.NewPostgresActivitySource(db, l)
	app.jobs = jobs

	api := batchapi.NewClient(batchapi.Config{
		BaseURL:          cfg.BatchAPI.BaseURL,
		APIKey:           cfg.BatchAPI.APIKey,
		Endpoint:         cfg.BatchAPI.Endpoint,
		CompletionWindow: cfg.BatchAPI.CompletionWindow,
		Timeout:          cfg.BatchAPI.RequestTimeout,
		MaxRetries:       cfg.BatchAPI.MaxRetries,
	}, l)

	resolver := reflection.NewEligibilityResolver(activity, l)
	builder := reflection.NewRequestBuilder(activity, prompts, reflection.BuilderConfig{
		Model:     cfg.Reflection.Model,
		MaxTokens: cfg.Reflection.MaxTokens,
		Endpoint:  cfg.BatchAPI.Endpoint,
	}, l)
	ingestor := reflection.NewIngestor(api, archiver, activity, reflections, l)

	app.cleaner = reflection.NewCleaner(jobs, cfg.Poller.Retention(), l)
	app.submitter = reflection.NewSubmitter(jobs, resolver, builder, api, notifier, l)
	app.poller = reflection.NewPoller(jobs, api, ingestor, app.cleaner, notifier, app.window,
		reflection.PollerConfig{
			InvocationBudget: cfg.Poller.InvocationBudget,
			PerJobTimeout:    cfg.Poller.PerJobTimeout,
		}, l)

	return app, nil
}

// newNotifier always logs and additionally emails the operator when SendGrid
// is configured.
func newNotifier(cfg config.NotifyConfig, l *slog.Logger) (reflection.Notifier, error) {
	notifiers := reflection.MultiNotifier{reflection.NewLogNotifier(l)}
	if !cfg.EmailEnabled() {
		return notifiers, nil
	}

	client, err := sendgrid.New(sendgrid.Config{
		APIKey:     cfg.SendGridAPIKey,
		BaseURL:    cfg.SendGridBaseURL,
		FromEmail:  cfg.FromEmail,
		FromName:   "Weekly Reflections",
		MaxRetries: 2,
	}, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize email notifier: %w", err)
	}

	return append(notifiers, sendgrid.NewNotifier(client, strings.Split(cfg.ToEmail, ","), cfg.Verbose)), nil
}

// newArchiver returns nil when archiving is disabled.
func newArchiver(ctx context.Context, cfg config.ArchiveConfig, l *slog.Logger) (reflection.Archiver, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	archiver, err := archive.NewS3Archiver(ctx, archive.Config{
		Bucket:          cfg.Bucket,
		Prefix:          cfg.Prefix,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		UsePathStyle:    cfg.UsePathStyle,
	}, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize output archive: %w", err)
	}
	return archiver, nil
}

// close releases the database connection.
func (app *application) close() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
	app.logger.Debug("application shutdown completed")
}
