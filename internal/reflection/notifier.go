package reflection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/redact"
)

// LogNotifier writes every notification to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. If logger is nil, a default logger will be used.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With(slog.String("component", "notifier"))}
}

func (n *LogNotifier) NotifyAttempt(ctx context.Context, pendingCount int, scheduledAt time.Time) error {
	n.logger.InfoContext(ctx, "polling attempt started",
		"pending_jobs", pendingCount,
		"scheduled_at", scheduledAt.UTC())
	return nil
}

func (n *LogNotifier) NotifySuccess(
	ctx context.Context,
	jobID string,
	counts domain.JobCounts,
	errs []domain.RecordError,
) error {
	n.logger.InfoContext(ctx, "batch job completed",
		"job_id", jobID,
		"total", counts.Total,
		"success", counts.Success,
		"errors", counts.Error)
	for _, e := range errs {
		n.logger.WarnContext(ctx, "record failed",
			"job_id", jobID,
			"record_id", e.RecordID,
			"message", redact.String(e.Message))
	}
	return nil
}

func (n *LogNotifier) NotifyError(ctx context.Context, subject string, details string) error {
	n.logger.ErrorContext(ctx, subject, "details", redact.String(details))
	return nil
}

func (n *LogNotifier) NotifyStillProcessing(ctx context.Context, jobID string, externalStatus string) error {
	n.logger.InfoContext(ctx, "batch job still processing",
		"job_id", jobID,
		"external_status", externalStatus)
	return nil
}

// MultiNotifier fans every notification out to all of its notifiers and
// joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) NotifyAttempt(ctx context.Context, pendingCount int, scheduledAt time.Time) error {
	return m.each(func(n Notifier) error { return n.NotifyAttempt(ctx, pendingCount, scheduledAt) })
}

func (m MultiNotifier) NotifySuccess(
	ctx context.Context,
	jobID string,
	counts domain.JobCounts,
	errs []domain.RecordError,
) error {
	return m.each(func(n Notifier) error { return n.NotifySuccess(ctx, jobID, counts, errs) })
}

func (m MultiNotifier) NotifyError(ctx context.Context, subject string, details string) error {
	return m.each(func(n Notifier) error { return n.NotifyError(ctx, subject, details) })
}

func (m MultiNotifier) NotifyStillProcessing(ctx context.Context, jobID string, externalStatus string) error {
	return m.each(func(n Notifier) error { return n.NotifyStillProcessing(ctx, jobID, externalStatus) })
}

func (m MultiNotifier) each(fn func(Notifier) error) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := fn(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SafeNotifier wraps a Notifier so that errors and panics are logged and
// swallowed. Its methods never return an error.
type SafeNotifier struct {
	next   Notifier
	logger *slog.Logger
}

// NewSafeNotifier wraps next. A nil next yields a notifier that only logs.
func NewSafeNotifier(next Notifier, logger *slog.Logger) *SafeNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if next == nil {
		next = NewLogNotifier(logger)
	}
	return &SafeNotifier{next: next, logger: logger.With(slog.String("component", "notifier"))}
}

func (s *SafeNotifier) NotifyAttempt(ctx context.Context, pendingCount int, scheduledAt time.Time) error {
	s.guard(ctx, "attempt", func() error { return s.next.NotifyAttempt(ctx, pendingCount, scheduledAt) })
	return nil
}

func (s *SafeNotifier) NotifySuccess(
	ctx context.Context,
	jobID string,
	counts domain.JobCounts,
	errs []domain.RecordError,
) error {
	s.guard(ctx, "success", func() error { return s.next.NotifySuccess(ctx, jobID, counts, errs) })
	return nil
}

func (s *SafeNotifier) NotifyError(ctx context.Context, subject string, details string) error {
	s.guard(ctx, "error", func() error { return s.next.NotifyError(ctx, subject, details) })
	return nil
}

func (s *SafeNotifier) NotifyStillProcessing(ctx context.Context, jobID string, externalStatus string) error {
	s.guard(ctx, "still_processing", func() error { return s.next.NotifyStillProcessing(ctx, jobID, externalStatus) })
	return nil
}

func (s *SafeNotifier) guard(ctx context.Context, kind string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "notifier panicked",
				"notification", kind,
				"panic", redact.String(fmt.Sprint(r)))
		}
	}()

	if err := fn(); err != nil {
		s.logger.WarnContext(ctx, "notification failed",
			"notification", kind,
			"error", redact.Error(err))
	}
}
