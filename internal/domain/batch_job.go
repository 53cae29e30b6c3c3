package domain

import (
	"fmt"
	"time"
)

// JobStatus represents the lifecycle state of a batch job.
type JobStatus string

// Possible batch job status values
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusValidating JobStatus = "validating"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// JobTypeWeeklyReflection is the only job type produced by this service.
const JobTypeWeeklyReflection = "weekly_reflection"

// Common validation errors for BatchJob
var (
	ErrEmptyJobID         = fmt.Errorf("%w: batch job ID cannot be empty", ErrValidation)
	ErrEmptyJobType       = fmt.Errorf("%w: batch job type cannot be empty", ErrValidation)
	ErrInvalidJobStatus   = fmt.Errorf("%w: invalid batch job status", ErrValidation)
	ErrInvalidJobWeek     = fmt.Errorf("%w: invalid batch job week", ErrValidation)
	ErrNegativeJobCount   = fmt.Errorf("%w: batch job counts cannot be negative", ErrValidation)
	ErrJobCountsExceeded  = fmt.Errorf("%w: success and error counts exceed total requests", ErrValidation)
	ErrCompletedAtMissing = fmt.Errorf("%w: terminal batch job must have a completion time", ErrValidation)
)

// NonTerminalStatuses are the statuses that still represent live external work.
var NonTerminalStatuses = []JobStatus{
	JobStatusPending,
	JobStatusValidating,
	JobStatusInProgress,
	JobStatusProcessing,
}

// TerminalStatuses are the statuses a job never leaves.
var TerminalStatuses = []JobStatus{
	JobStatusCompleted,
	JobStatusFailed,
	JobStatusCancelled,
}

// IsValid reports whether s is one of the known statuses.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusValidating, JobStatusInProgress, JobStatusProcessing,
		JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether s is completed, failed or cancelled.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// LogicalKey identifies one cycle's intended batch independently of the
// external job ID.
type LogicalKey struct {
	JobType string `json:"job_type"`
	Week    int    `json:"week"`
	Year    int    `json:"year"`
}

// WeeklyReflectionKey returns the logical key of the reflection batch for w.
func WeeklyReflectionKey(w Week) LogicalKey {
	return LogicalKey{JobType: JobTypeWeeklyReflection, Week: w.Week, Year: w.Year}
}

// String renders the key as "type/year-Www".
func (k LogicalKey) String() string {
	return fmt.Sprintf("%s/%d-W%02d", k.JobType, k.Year, k.Week)
}

// RecordError describes a single failed record within a batch.
type RecordError struct {
	RecordID string `json:"record_id"`
	Message  string `json:"message"`
}

// JobCounts summarizes the outcome of an ingestion pass.
type JobCounts struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Error   int `json:"error"`
}

// Counts returns the job's current totals.
func (j *BatchJob) Counts() JobCounts {
	return JobCounts{Total: j.TotalRequests, Success: j.SuccessCount, Error: j.ErrorCount}
}

// BatchJob is the durable record of one submission to the external batch API.
type BatchJob struct {
	ID             string        `json:"id"`
	Key            LogicalKey    `json:"logical_key"`
	Status         JobStatus     `json:"status"`
	ExternalStatus string        `json:"external_status,omitempty"`
	SubmittedAt    time.Time     `json:"submitted_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	TotalRequests  int           `json:"total_requests"`
	SuccessCount   int           `json:"success_count"`
	ErrorCount     int           `json:"error_count"`
	Errors         []RecordError `json:"errors"`
	InputFileID    string        `json:"input_file_id,omitempty"`
	OutputFileID   string        `json:"output_file_id,omitempty"`
	ErrorFileID    string        `json:"error_file_id,omitempty"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// NewBatchJob creates a job record for a freshly submitted batch.
func NewBatchJob(id string, key LogicalKey, status JobStatus, totalRequests int, submittedAt time.Time) (*BatchJob, error) {
	job := &BatchJob{
		ID:            id,
		Key:           key,
		Status:        status,
		SubmittedAt:   submittedAt.UTC(),
		TotalRequests: totalRequests,
		Errors:        []RecordError{},
		UpdatedAt:     submittedAt.UTC(),
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks the job's fields and the count invariant
// SuccessCount + ErrorCount <= TotalRequests.
func (j *BatchJob) Validate() error {
	if j.ID == "" {
		return ErrEmptyJobID
	}

	if j.Key.JobType == "" {
		return ErrEmptyJobType
	}

	if j.Key.Week < 1 || j.Key.Week > 53 || j.Key.Year < 1 {
		return ErrInvalidJobWeek
	}

	if !j.Status.IsValid() {
		return ErrInvalidJobStatus
	}

	if j.TotalRequests < 0 || j.SuccessCount < 0 || j.ErrorCount < 0 {
		return ErrNegativeJobCount
	}

	if j.SuccessCount+j.ErrorCount > j.TotalRequests {
		return ErrJobCountsExceeded
	}

	if j.Status.IsTerminal() && j.CompletedAt == nil {
		return ErrCompletedAtMissing
	}

	return nil
}

// IsExpired reports whether a terminal job was submitted before now-retention.
// Non-terminal jobs never expire.
func (j *BatchJob) IsExpired(now time.Time, retention time.Duration) bool {
	if !j.Status.IsTerminal() {
		return false
	}
	return j.SubmittedAt.Before(now.Add(-retention))
}

// JobUpdate is a field-level partial update of a BatchJob. Nil fields are left
// untouched by the store.
type JobUpdate struct {
	Status         *JobStatus
	ExternalStatus *string
	CompletedAt    *time.Time
	SuccessCount   *int
	ErrorCount     *int
	Errors         *[]RecordError
	OutputFileID   *string
	ErrorFileID    *string
}

// IsEmpty reports whether the update carries no fields.
func (u JobUpdate) IsEmpty() bool {
	return u.Status == nil && u.ExternalStatus == nil && u.CompletedAt == nil &&
		u.SuccessCount == nil && u.ErrorCount == nil && u.Errors == nil &&
		u.OutputFileID == nil && u.ErrorFileID == nil
}

// Apply returns a copy of job with the update's fields applied.
func (u JobUpdate) Apply(job BatchJob) BatchJob {
	if u.Status != nil {
		job.Status = *u.Status
	}
	if u.ExternalStatus != nil {
		job.ExternalStatus = *u.ExternalStatus
	}
	if u.CompletedAt != nil {
		t := u.CompletedAt.UTC()
		job.CompletedAt = &t
	}
	if u.SuccessCount != nil {
		job.SuccessCount = *u.SuccessCount
	}
	if u.ErrorCount != nil {
		job.ErrorCount = *u.ErrorCount
	}
	if u.Errors != nil {
		job.Errors = append([]RecordError(nil), (*u.Errors)...)
	}
	if u.OutputFileID != nil {
		job.OutputFileID = *u.OutputFileID
	}
	if u.ErrorFileID != nil {
		job.ErrorFileID = *u.ErrorFileID
	}
	return job
}
