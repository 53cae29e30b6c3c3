package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/reflections-api/internal/api/shared"
	"github.com/phrazzld/reflections-api/internal/platform/logger"
	"github.com/phrazzld/reflections-api/internal/store"
)

// JobHandler serves the read-only admin view of batch jobs.
type JobHandler struct {
	jobs   store.JobStore
	logger *slog.Logger
}

// NewJobHandler creates a JobHandler.
func NewJobHandler(jobs store.JobStore, logger *slog.Logger) *JobHandler {
	if jobs == nil {
		panic("job store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JobHandler{jobs: jobs, logger: logger.With(slog.String("component", "job_handler"))}
}

// ListJobs handles GET /api/admin/jobs?limit=N, newest submission first.
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	jobs, err := h.jobs.ListRecent(r.Context(), limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list batch jobs")
		return
	}

	resp := JobListResponse{Jobs: make([]JobSummary, 0, len(jobs)), Limit: limit}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, newJobSummary(job))
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("listed batch jobs",
		slog.Int("count", len(resp.Jobs)),
		slog.Int("limit", limit))
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetJob handles GET /api/admin/jobs/{id}.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newJobDetail(job))
}
