package reflection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/platform/batchapi"
	"github.com/phrazzld/reflections-api/internal/redact"
	"github.com/phrazzld/reflections-api/internal/store"
)

const revertTimeout = 5 * time.Second

// PollerConfig bounds one polling invocation.
type PollerConfig struct {
	InvocationBudget time.Duration
	PerJobTimeout    time.Duration
}

// RunSummary reports what one polling invocation did.
type RunSummary struct {
	Skipped   bool          `json:"skipped"`
	Pending   int           `json:"pending"`
	Waiting   int           `json:"waiting"`
	Completed int           `json:"completed"`
	Failed    int           `json:"failed"`
	Errored   int           `json:"errored"`
	Deferred  int           `json:"deferred"`
	Cleanup   CleanupResult `json:"cleanup"`
}

// Poller advances every non-terminal batch job through its lifecycle.
type Poller struct {
	jobs     store.JobStore
	api      BatchAPI
	ingestor *Ingestor
	cleaner  *Cleaner
	notifier Notifier
	window   Window
	cfg      PollerConfig
	logger   *slog.Logger
}

// NewPoller creates a Poller. The notifier is wrapped so its failures never
// affect polling.
func NewPoller(
	jobs store.JobStore,
	api BatchAPI,
	ingestor *Ingestor,
	cleaner *Cleaner,
	notifier Notifier,
	window Window,
	cfg PollerConfig,
	logger *slog.Logger,
) *Poller {
	if jobs == nil || api == nil || ingestor == nil || cleaner == nil {
		panic("poller dependencies cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		jobs:     jobs,
		api:      api,
		ingestor: ingestor,
		cleaner:  cleaner,
		notifier: NewSafeNotifier(notifier, logger),
		window:   window,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "poller")),
	}
}

type outcome int

const (
	outcomeWaiting outcome = iota
	outcomeCompleted
	outcomeFailed
	outcomeErrored
)

// Run performs one polling invocation at now. Outside the polling window it
// returns immediately without touching any dependency. Jobs are processed
// one at a time; an error or panic in one job never stops the others. The
// only error returned is a failure to list pending jobs.
func (p *Poller) Run(ctx context.Context, now time.Time) (*RunSummary, error) {
	summary := &RunSummary{}

	if !p.window.IsEligibleToRun(now) {
		p.logger.DebugContext(ctx, "outside polling window", slog.Time("now", now.UTC()))
		summary.Skipped = true
		return summary, nil
	}

	if p.cfg.InvocationBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.InvocationBudget)
		defer cancel()
	}

	jobs, err := p.jobs.ListByStatus(ctx, domain.NonTerminalStatuses)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to list pending jobs", slog.String("error", redact.Error(err)))
		_ = p.notifier.NotifyError(ctx, "Reflection polling failed", fmt.Sprintf("failed to list pending jobs: %v", err))
		return summary, fmt.Errorf("failed to list pending jobs: %w", err)
	}

	summary.Pending = len(jobs)
	if len(jobs) == 0 {
		p.logger.InfoContext(ctx, "no pending jobs")
		summary.Cleanup = p.cleaner.Cleanup(ctx, now)
		return summary, nil
	}

	_ = p.notifier.NotifyAttempt(ctx, len(jobs), now)

	for idx, job := range jobs {
		if ctx.Err() != nil {
			summary.Deferred = len(jobs) - idx
			p.logger.WarnContext(ctx, "invocation budget exhausted, deferring remaining jobs",
				slog.Int("deferred", summary.Deferred))
			break
		}

		switch p.processSafely(ctx, job, now) {
		case outcomeWaiting:
			summary.Waiting++
		case outcomeCompleted:
			summary.Completed++
		case outcomeFailed:
			summary.Failed++
		case outcomeErrored:
			summary.Errored++
		}
	}

	if ctx.Err() != nil {
		p.logger.WarnContext(ctx, "skipping cleanup, invocation budget exhausted")
	} else {
		summary.Cleanup = p.cleaner.Cleanup(ctx, now)
	}

	p.logger.InfoContext(ctx, "polling invocation finished",
		slog.Int("pending", summary.Pending),
		slog.Int("waiting", summary.Waiting),
		slog.Int("completed", summary.Completed),
		slog.Int("failed", summary.Failed),
		slog.Int("errored", summary.Errored),
		slog.Int("deferred", summary.Deferred))

	return summary, nil
}

func (p *Poller) processSafely(ctx context.Context, job *domain.BatchJob, now time.Time) (result outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorContext(ctx, "panic while processing job",
				slog.String("job_id", job.ID),
				slog.String("panic", redact.String(fmt.Sprint(r))),
				slog.String("stack", string(debug.Stack())))
			result = outcomeErrored
		}
	}()

	if p.cfg.PerJobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.PerJobTimeout)
		defer cancel()
	}

	return p.processJob(ctx, job, now)
}

func (p *Poller) processJob(ctx context.Context, job *domain.BatchJob, now time.Time) outcome {
	log := p.logger.With(slog.String("job_id", job.ID), slog.String("status", string(job.Status)))

	remote, err := p.api.Status(ctx, job.ID)
	if err != nil {
		log.WarnContext(ctx, "failed to fetch batch status",
			slog.Bool("transient", batchapi.IsTransient(err)),
			slog.String("error", redact.Error(err)))
		if errors.Is(err, batchapi.ErrPermanent) {
			_ = p.notifier.NotifyError(ctx, "Reflection batch status check failed",
				fmt.Sprintf("job %s: %v", job.ID, err))
		}
		return outcomeErrored
	}

	t := Decide(job.Status, remote)
	log.DebugContext(ctx, "decided transition",
		slog.String("external_status", string(remote.Status)),
		slog.String("action", t.Action.String()),
		slog.String("next", string(t.Next)))

	switch t.Action {
	case ActionWait:
		return p.wait(ctx, log, job, remote, t)
	case ActionFail:
		return p.fail(ctx, log, job, remote, t, now)
	case ActionIngest:
		return p.ingest(ctx, log, job, remote, now)
	default:
		return outcomeWaiting
	}
}

func (p *Poller) wait(
	ctx context.Context,
	log *slog.Logger,
	job *domain.BatchJob,
	remote *batchapi.Batch,
	t Transition,
) outcome {
	external := string(remote.Status)
	if t.Next != job.Status || external != job.ExternalStatus {
		update := domain.JobUpdate{ExternalStatus: &external}
		if t.Next != job.Status {
			update.Status = &t.Next
		}
		if err := p.jobs.Update(ctx, job.ID, update); err != nil {
			log.WarnContext(ctx, "failed to update job status", slog.String("error", redact.Error(err)))
			return outcomeErrored
		}
	}

	_ = p.notifier.NotifyStillProcessing(ctx, job.ID, external)
	return outcomeWaiting
}

func (p *Poller) fail(
	ctx context.Context,
	log *slog.Logger,
	job *domain.BatchJob,
	remote *batchapi.Batch,
	t Transition,
	now time.Time,
) outcome {
	external := string(remote.Status)
	completedAt := now.UTC()
	err := p.jobs.Update(ctx, job.ID, domain.JobUpdate{
		Status:         &t.Next,
		ExternalStatus: &external,
		CompletedAt:    &completedAt,
	})
	if err != nil {
		log.WarnContext(ctx, "failed to record terminal failure", slog.String("error", redact.Error(err)))
		return outcomeErrored
	}

	details := fmt.Sprintf("job %s ended with external status %q", job.ID, external)
	if summary := remote.ErrorSummary(); summary != "" {
		details += ": " + summary
	}
	log.WarnContext(ctx, "batch job failed", slog.String("external_status", external))
	_ = p.notifier.NotifyError(ctx, "Reflection batch failed", details)
	return outcomeFailed
}

func (p *Poller) ingest(
	ctx context.Context,
	log *slog.Logger,
	job *domain.BatchJob,
	remote *batchapi.Batch,
	now time.Time,
) outcome {
	entries, err := p.ingestor.Download(ctx, job.ID, remote.OutputFileID, remote.ErrorFileID)
	if err != nil {
		log.WarnContext(ctx, "failed to download batch results", slog.String("error", redact.Error(err)))
		return outcomeErrored
	}

	processing := domain.JobStatusProcessing
	external := string(remote.Status)
	err = p.jobs.Update(ctx, job.ID, domain.JobUpdate{
		Status:         &processing,
		ExternalStatus: &external,
		OutputFileID:   &remote.OutputFileID,
		ErrorFileID:    &remote.ErrorFileID,
	})
	if err != nil {
		log.WarnContext(ctx, "failed to mark job processing", slog.String("error", redact.Error(err)))
		return outcomeErrored
	}

	// Until completion is recorded, any exit, including a panic, restores
	// the job as it was before this invocation.
	completedWritten := false
	defer func() {
		if !completedWritten {
			p.revert(ctx, log, job)
		}
	}()

	result, err := p.ingestor.Apply(ctx, entries, now)
	if err != nil {
		log.WarnContext(ctx, "ingestion interrupted", slog.String("error", redact.Error(err)))
		return outcomeErrored
	}

	if clamped, cut := result.Clamp(job.TotalRequests); cut {
		log.WarnContext(ctx, "ingested counts exceed total requests",
			slog.Int("total_requests", job.TotalRequests),
			slog.Int("success", result.SuccessCount),
			slog.Int("errors", result.ErrorCount))
		result = clamped
	}

	completed := domain.JobStatusCompleted
	completedAt := now.UTC()
	err = p.jobs.Update(ctx, job.ID, domain.JobUpdate{
		Status:       &completed,
		CompletedAt:  &completedAt,
		SuccessCount: &result.SuccessCount,
		ErrorCount:   &result.ErrorCount,
		Errors:       &result.Errors,
	})
	if err != nil {
		log.WarnContext(ctx, "failed to mark job completed", slog.String("error", redact.Error(err)))
		return outcomeErrored
	}
	completedWritten = true

	counts := domain.JobCounts{Total: job.TotalRequests, Success: result.SuccessCount, Error: result.ErrorCount}
	log.InfoContext(ctx, "batch job completed",
		slog.Int("total", counts.Total),
		slog.Int("success", counts.Success),
		slog.Int("errors", counts.Error))
	_ = p.notifier.NotifySuccess(ctx, job.ID, counts, result.Errors)
	return outcomeCompleted
}

// revert restores the fields a job had before this invocation moved it to
// processing. It runs even when ctx is already done.
func (p *Poller) revert(ctx context.Context, log *slog.Logger, job *domain.BatchJob) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), revertTimeout)
	defer cancel()

	status := job.Status
	external := job.ExternalStatus
	outputFileID := job.OutputFileID
	errorFileID := job.ErrorFileID
	err := p.jobs.Update(ctx, job.ID, domain.JobUpdate{
		Status:         &status,
		ExternalStatus: &external,
		OutputFileID:   &outputFileID,
		ErrorFileID:    &errorFileID,
	})
	if err != nil {
		log.ErrorContext(ctx, "failed to restore job status", slog.String("error", redact.Error(err)))
	}
}
