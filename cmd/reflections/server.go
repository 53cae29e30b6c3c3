package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/reflections-api/internal/api"
)

const shutdownTimeout = 10 * time.Second

// serve runs the admin API and the in-process schedule until ctx is done or
// the server fails.
func (app *application) serve(ctx context.Context) error {
	router := api.NewRouter(api.RouterDeps{
		Jobs:         app.jobs,
		JWT:          app.jwtService,
		AdminSubject: app.config.Auth.AdminUserID,
		DB:           app.db,
		Logger:       app.logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	scheduler, err := app.newScheduler(gctx)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return gctx
		},
	}

	g.Go(func() error {
		app.logger.Info("starting server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()
		app.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		stopped := scheduler.Stop()
		err := server.Shutdown(shutdownCtx)

		select {
		case <-stopped.Done():
		case <-shutdownCtx.Done():
			app.logger.Warn("scheduled run still in progress at shutdown")
		}

		if err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// newScheduler registers the weekly submission at the window's opening
// instant and the recurring poll. Runs of the same entry never overlap.
func (app *application) newScheduler(ctx context.Context) (*cron.Cron, error) {
	cl := cronLogger{logger: app.logger.With(slog.String("component", "scheduler"))}
	scheduler := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	submitSpec := app.window.CronSpec()
	if _, err := scheduler.AddFunc(submitSpec, func() { app.submitScheduled(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid submit schedule %q: %w", submitSpec, err)
	}
	if _, err := scheduler.AddFunc(app.config.Schedule.PollCron, func() { app.pollScheduled(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid poll schedule %q: %w", app.config.Schedule.PollCron, err)
	}

	return scheduler, nil
}

func (app *application) submitScheduled(ctx context.Context) {
	week := app.window.TargetWeek(app.now())
	result, err := app.submitter.Submit(ctx, week)
	if err != nil {
		// The submitter has already logged and notified.
		return
	}
	app.logger.Info("scheduled submission finished",
		"week", week.String(),
		"skipped", result.Skipped,
		"job_id", result.JobID)
}

func (app *application) pollScheduled(ctx context.Context) {
	summary, err := app.poller.Run(ctx, app.now())
	if err != nil {
		return
	}
	if !summary.Skipped {
		app.logger.Info("scheduled poll finished",
			"completed", summary.Completed,
			"failed", summary.Failed,
			"waiting", summary.Waiting,
			"errored", summary.Errored,
			"deferred", summary.Deferred)
	}
}

// cronLogger adapts slog to the cron.Logger interface. Scheduler chatter is
// logged at debug level.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
