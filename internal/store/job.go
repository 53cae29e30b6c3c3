package store

import (
	"context"

	"github.com/phrazzld/reflections-api/internal/domain"
)

// JobStore defines the interface for batch job persistence.
// Writes are last-write-wins on the provided fields; a single logical writer
// mutates a given job at a time, so no optimistic locking is applied.
type JobStore interface {
	// Create saves a new batch job.
	// Returns ErrDuplicate if a job with the same ID or logical key exists.
	Create(ctx context.Context, job *domain.BatchJob) error

	// Get retrieves a job by its external ID.
	// Returns ErrJobNotFound if the job does not exist.
	Get(ctx context.Context, id string) (*domain.BatchJob, error)

	// FindByLogicalKey retrieves the job recorded for a cycle.
	// Returns ErrJobNotFound if no job exists for the key.
	FindByLogicalKey(ctx context.Context, key domain.LogicalKey) (*domain.BatchJob, error)

	// ListByStatus returns all jobs in any of the given statuses,
	// oldest submission first.
	ListByStatus(ctx context.Context, statuses []domain.JobStatus) ([]*domain.BatchJob, error)

	// ListRecent returns at most limit jobs, most recent submission first.
	ListRecent(ctx context.Context, limit int) ([]*domain.BatchJob, error)

	// Update applies a field-level partial update. Fields left nil are not written.
	// Returns ErrJobNotFound if the job does not exist.
	Update(ctx context.Context, id string, update domain.JobUpdate) error

	// Delete removes a job.
	// Returns ErrJobNotFound if the job does not exist.
	Delete(ctx context.Context, id string) error
}
