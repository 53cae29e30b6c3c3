package reflection

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/redact"
	"github.com/phrazzld/reflections-api/internal/store"
)

// CleanupResult counts the jobs a cleanup pass removed or failed to remove.
type CleanupResult struct {
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// Cleaner deletes terminal jobs older than the retention period.
type Cleaner struct {
	jobs      store.JobStore
	retention time.Duration
	logger    *slog.Logger
}

// NewCleaner creates a Cleaner.
func NewCleaner(jobs store.JobStore, retention time.Duration, logger *slog.Logger) *Cleaner {
	if jobs == nil {
		panic("job store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		jobs:      jobs,
		retention: retention,
		logger:    logger.With(slog.String("component", "cleaner")),
	}
}

// Cleanup deletes completed, failed and cancelled jobs submitted more than
// the retention period before now. Non-terminal jobs are never touched.
// Failures are logged and counted, never returned.
func (c *Cleaner) Cleanup(ctx context.Context, now time.Time) CleanupResult {
	var result CleanupResult

	jobs, err := c.jobs.ListByStatus(ctx, domain.TerminalStatuses)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to list terminal jobs for cleanup",
			slog.String("error", redact.Error(err)))
		return result
	}

	for _, job := range jobs {
		if !job.IsExpired(now, c.retention) {
			continue
		}
		if err := c.jobs.Delete(ctx, job.ID); err != nil {
			if store.IsNotFoundError(err) {
				continue
			}
			c.logger.WarnContext(ctx, "failed to delete expired job",
				slog.String("job_id", job.ID),
				slog.String("error", redact.Error(err)))
			result.Failed++
			continue
		}
		result.Deleted++
	}

	if result.Deleted > 0 || result.Failed > 0 {
		c.logger.InfoContext(ctx, "cleaned up expired jobs",
			slog.Int("deleted", result.Deleted),
			slog.Int("failed", result.Failed))
	}
	return result
}
