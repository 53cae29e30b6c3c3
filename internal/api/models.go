package api

import (
	"time"

	"github.com/phrazzld/reflections-api/internal/domain"
)

// JobSummary is one row of the job listing.
type JobSummary struct {
	ID             string     `json:"id"`
	JobType        string     `json:"job_type"`
	Week           string     `json:"week"`
	Status         string     `json:"status"`
	ExternalStatus string     `json:"external_status,omitempty"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	TotalRequests  int        `json:"total_requests"`
	SuccessCount   int        `json:"success_count"`
	ErrorCount     int        `json:"error_count"`
}

// JobDetail is the full view of one job including its per-record errors.
type JobDetail struct {
	JobSummary
	InputFileID  string               `json:"input_file_id,omitempty"`
	OutputFileID string               `json:"output_file_id,omitempty"`
	ErrorFileID  string               `json:"error_file_id,omitempty"`
	Errors       []domain.RecordError `json:"errors"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// JobListResponse is the body of GET /api/admin/jobs.
type JobListResponse struct {
	Jobs  []JobSummary `json:"jobs"`
	Limit int          `json:"limit"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func newJobSummary(job *domain.BatchJob) JobSummary {
	return JobSummary{
		ID:             job.ID,
		JobType:        job.Key.JobType,
		Week:           domain.Week{Year: job.Key.Year, Week: job.Key.Week}.String(),
		Status:         string(job.Status),
		ExternalStatus: job.ExternalStatus,
		SubmittedAt:    job.SubmittedAt,
		CompletedAt:    job.CompletedAt,
		TotalRequests:  job.TotalRequests,
		SuccessCount:   job.SuccessCount,
		ErrorCount:     job.ErrorCount,
	}
}

func newJobDetail(job *domain.BatchJob) JobDetail {
	errs := job.Errors
	if errs == nil {
		errs = []domain.RecordError{}
	}
	return JobDetail{
		JobSummary:   newJobSummary(job),
		InputFileID:  job.InputFileID,
		OutputFileID: job.OutputFileID,
		ErrorFileID:  job.ErrorFileID,
		Errors:       errs,
		UpdatedAt:    job.UpdatedAt,
	}
}
