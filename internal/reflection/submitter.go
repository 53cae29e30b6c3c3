package reflection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/redact"
	"github.com/phrazzld/reflections-api/internal/store"
)

// Reasons a submission was skipped.
const (
	SkipReasonExists     = "job already exists for week"
	SkipReasonNoRequests = "no eligible users with completed todos"
)

// ErrNoRequestsBuilt is returned when users were eligible but none of their
// requests could be built.
var ErrNoRequestsBuilt = errors.New("no batch requests could be built")

// SubmitResult describes the outcome of one submission attempt.
type SubmitResult struct {
	Week    domain.Week      `json:"week"`
	Skipped bool             `json:"skipped"`
	Reason  string           `json:"reason,omitempty"`
	JobID   string           `json:"job_id,omitempty"`
	Status  domain.JobStatus `json:"status,omitempty"`
	Stats   BuildStats       `json:"stats"`
}

// Submitter submits at most one reflection batch per week.
type Submitter struct {
	jobs     store.JobStore
	resolver *EligibilityResolver
	builder  *RequestBuilder
	api      BatchAPI
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewSubmitter creates a Submitter. The notifier is wrapped so its failures
// never affect submission.
func NewSubmitter(
	jobs store.JobStore,
	resolver *EligibilityResolver,
	builder *RequestBuilder,
	api BatchAPI,
	notifier Notifier,
	logger *slog.Logger,
) *Submitter {
	if jobs == nil || resolver == nil || builder == nil || api == nil {
		panic("submitter dependencies cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{
		jobs:     jobs,
		resolver: resolver,
		builder:  builder,
		api:      api,
		notifier: NewSafeNotifier(notifier, logger),
		logger:   logger.With(slog.String("component", "submitter")),
		now:      time.Now,
	}
}

// Submit builds and submits the reflection batch for week unless a job for
// the week already exists. A failed or cancelled job for the week is
// replaced.
func (s *Submitter) Submit(ctx context.Context, week domain.Week) (*SubmitResult, error) {
	if err := week.Validate(); err != nil {
		return nil, err
	}

	key := domain.WeeklyReflectionKey(week)
	log := s.logger.With(slog.String("logical_key", key.String()))
	result := &SubmitResult{Week: week}

	existing, err := s.jobs.FindByLogicalKey(ctx, key)
	switch {
	case err == nil && (existing.Status == domain.JobStatusFailed || existing.Status == domain.JobStatusCancelled):
		log.InfoContext(ctx, "replacing terminal job",
			slog.String("job_id", existing.ID),
			slog.String("status", string(existing.Status)))
		if err := s.jobs.Delete(ctx, existing.ID); err != nil && !store.IsNotFoundError(err) {
			return nil, s.fail(ctx, key, "failed to delete previous job", err)
		}
	case err == nil:
		log.InfoContext(ctx, "job already exists, skipping submission",
			slog.String("job_id", existing.ID),
			slog.String("status", string(existing.Status)))
		result.Skipped = true
		result.Reason = SkipReasonExists
		result.JobID = existing.ID
		result.Status = existing.Status
		return result, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, s.fail(ctx, key, "failed to look up existing job", err)
	}

	users, err := s.resolver.Resolve(ctx, week)
	if err != nil {
		return nil, s.fail(ctx, key, "failed to resolve eligible users", err)
	}

	requests, stats := s.builder.Build(ctx, week, users)
	result.Stats = stats
	if err := ctx.Err(); err != nil {
		return nil, s.fail(ctx, key, "building requests interrupted", err)
	}
	if len(requests) == 0 && stats.Failed > 0 {
		return nil, s.fail(ctx, key, "failed to build requests",
			fmt.Errorf("%w: %d of %d eligible users failed", ErrNoRequestsBuilt, stats.Failed, stats.Eligible))
	}
	if len(requests) == 0 {
		log.InfoContext(ctx, "no requests to submit", slog.Int("eligible", stats.Eligible))
		result.Skipped = true
		result.Reason = SkipReasonNoRequests
		return result, nil
	}

	batch, err := s.api.Submit(ctx, requests, map[string]string{
		"job_type": key.JobType,
		"week":     week.String(),
	})
	if err != nil {
		return nil, s.fail(ctx, key, "failed to submit batch", err)
	}

	job, err := domain.NewBatchJob(batch.ID, key, MapRemoteStatus(batch.Status), len(requests), s.now())
	if err != nil {
		return nil, s.fail(ctx, key, "invalid batch job", err)
	}
	job.InputFileID = batch.InputFileID
	job.ExternalStatus = string(batch.Status)

	if err := s.jobs.Create(ctx, job); err != nil {
		if store.IsDuplicateError(err) {
			err = fmt.Errorf("batch %s submitted but a job for %s already exists: %w", batch.ID, key, err)
		}
		return nil, s.fail(ctx, key, "failed to record batch job", err)
	}

	log.InfoContext(ctx, "submitted reflection batch",
		slog.String("job_id", job.ID),
		slog.String("status", string(job.Status)),
		slog.Int("total_requests", job.TotalRequests))

	result.JobID = job.ID
	result.Status = job.Status
	return result, nil
}

func (s *Submitter) fail(ctx context.Context, key domain.LogicalKey, msg string, err error) error {
	s.logger.ErrorContext(ctx, msg,
		slog.String("logical_key", key.String()),
		slog.String("error", redact.Error(err)))
	_ = s.notifier.NotifyError(ctx, "Reflection batch submission failed", fmt.Sprintf("%s: %s: %v", key, msg, err))
	return fmt.Errorf("%s: %w", msg, err)
}
