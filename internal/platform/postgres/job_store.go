package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/store"
)

const jobColumns = `id, job_type, week, year, status, external_status, submitted_at, completed_at,
	total_requests, success_count, error_count, errors, input_file_id, output_file_id,
	error_file_id, updated_at`

// PostgresJobStore implements the store.JobStore interface
// using a PostgreSQL database as the storage backend.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

// NewPostgresJobStore creates a new PostgreSQL implementation of the JobStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ensure PostgresJobStore implements store.JobStore interface
var _ store.JobStore = (*PostgresJobStore)(nil)

// Create implements store.JobStore.Create
func (s *PostgresJobStore) Create(ctx context.Context, job *domain.BatchJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	errorsJSON, err := marshalRecordErrors(job.Errors)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	updatedAt := job.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}

	query := `
		INSERT INTO batch_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = s.db.ExecContext(ctx, query,
		job.ID,
		job.Key.JobType,
		job.Key.Week,
		job.Key.Year,
		string(job.Status),
		job.ExternalStatus,
		job.SubmittedAt.UTC(),
		nullTime(job.CompletedAt),
		job.TotalRequests,
		job.SuccessCount,
		job.ErrorCount,
		errorsJSON,
		job.InputFileID,
		job.OutputFileID,
		job.ErrorFileID,
		updatedAt.UTC(),
	)
	if err != nil {
		s.logger.Error("failed to create batch job",
			"job_id", job.ID,
			"logical_key", job.Key.String(),
			"error", err)
		return MapUniqueViolation(err, store.ErrJobExists)
	}

	s.logger.Debug("batch job created",
		"job_id", job.ID,
		"logical_key", job.Key.String(),
		"status", job.Status)
	return nil
}

// Get implements store.JobStore.Get
func (s *PostgresJobStore) Get(ctx context.Context, id string) (*domain.BatchJob, error) {
	query := `SELECT ` + jobColumns + ` FROM batch_jobs WHERE id = $1`

	job, err := s.scanJob(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		s.logger.Error("failed to get batch job", "job_id", id, "error", err)
		return nil, MapError(err)
	}
	return job, nil
}

// FindByLogicalKey implements store.JobStore.FindByLogicalKey
func (s *PostgresJobStore) FindByLogicalKey(ctx context.Context, key domain.LogicalKey) (*domain.BatchJob, error) {
	query := `SELECT ` + jobColumns + ` FROM batch_jobs WHERE job_type = $1 AND week = $2 AND year = $3`

	job, err := s.scanJob(s.db.QueryRowContext(ctx, query, key.JobType, key.Week, key.Year))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		s.logger.Error("failed to find batch job by logical key",
			"logical_key", key.String(),
			"error", err)
		return nil, MapError(err)
	}
	return job, nil
}

// ListByStatus implements store.JobStore.ListByStatus
func (s *PostgresJobStore) ListByStatus(ctx context.Context, statuses []domain.JobStatus) ([]*domain.BatchJob, error) {
	if len(statuses) == 0 {
		return []*domain.BatchJob{}, nil
	}

	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = string(status)
	}

	query := `SELECT ` + jobColumns + ` FROM batch_jobs
		WHERE status IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY submitted_at ASC, id ASC`

	return s.queryJobs(ctx, query, args...)
}

// ListRecent implements store.JobStore.ListRecent
func (s *PostgresJobStore) ListRecent(ctx context.Context, limit int) ([]*domain.BatchJob, error) {
	if limit <= 0 {
		return []*domain.BatchJob{}, nil
	}

	query := `SELECT ` + jobColumns + ` FROM batch_jobs
		ORDER BY submitted_at DESC, id DESC
		LIMIT $1`

	return s.queryJobs(ctx, query, limit)
}

// Update implements store.JobStore.Update
func (s *PostgresJobStore) Update(ctx context.Context, id string, update domain.JobUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	if update.Status != nil && !update.Status.IsValid() {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, domain.ErrInvalidJobStatus)
	}

	query, args, err := buildJobUpdate(id, update, s.now())
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("failed to update batch job", "job_id", id, "error", err)
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrJobNotFound)
}

// Delete implements store.JobStore.Delete
func (s *PostgresJobStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM batch_jobs WHERE id = $1`, id)
	if err != nil {
		s.logger.Error("failed to delete batch job", "job_id", id, "error", err)
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrJobNotFound)
}

func (s *PostgresJobStore) queryJobs(ctx context.Context, query string, args ...any) ([]*domain.BatchJob, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("failed to query batch jobs", "error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	jobs := []*domain.BatchJob{}
	for rows.Next() {
		job, err := s.scanJob(rows)
		if err != nil {
			s.logger.Error("failed to scan batch job row", "error", err)
			return nil, fmt.Errorf("failed to scan batch job row: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		s.logger.Error("error iterating batch job rows", "error", err)
		return nil, fmt.Errorf("error iterating batch job rows: %w", err)
	}

	return jobs, nil
}

// buildJobUpdate renders a partial UPDATE touching only the fields set in
// update, plus updated_at.
func buildJobUpdate(id string, update domain.JobUpdate, now time.Time) (string, []any, error) {
	sets := make([]string, 0, 9)
	args := make([]any, 0, 10)

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if update.Status != nil {
		add("status", string(*update.Status))
	}
	if update.ExternalStatus != nil {
		add("external_status", *update.ExternalStatus)
	}
	if update.CompletedAt != nil {
		add("completed_at", update.CompletedAt.UTC())
	}
	if update.SuccessCount != nil {
		add("success_count", *update.SuccessCount)
	}
	if update.ErrorCount != nil {
		add("error_count", *update.ErrorCount)
	}
	if update.Errors != nil {
		data, err := marshalRecordErrors(*update.Errors)
		if err != nil {
			return "", nil, err
		}
		add("errors", data)
	}
	if update.OutputFileID != nil {
		add("output_file_id", *update.OutputFileID)
	}
	if update.ErrorFileID != nil {
		add("error_file_id", *update.ErrorFileID)
	}
	add("updated_at", now.UTC())

	args = append(args, id)
	query := "UPDATE batch_jobs SET " + strings.Join(sets, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args))

	return query, args, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanJob reads one job row. Undecodable record errors are logged and
// dropped so the job itself stays readable.
func (s *PostgresJobStore) scanJob(row rowScanner) (*domain.BatchJob, error) {
	var (
		job         domain.BatchJob
		status      string
		completedAt sql.NullTime
		errorsJSON  []byte
	)

	err := row.Scan(
		&job.ID,
		&job.Key.JobType,
		&job.Key.Week,
		&job.Key.Year,
		&status,
		&job.ExternalStatus,
		&job.SubmittedAt,
		&completedAt,
		&job.TotalRequests,
		&job.SuccessCount,
		&job.ErrorCount,
		&errorsJSON,
		&job.InputFileID,
		&job.OutputFileID,
		&job.ErrorFileID,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = domain.JobStatus(status)
	job.SubmittedAt = job.SubmittedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		job.CompletedAt = &t
	}

	job.Errors = []domain.RecordError{}
	if len(errorsJSON) > 0 {
		if err := json.Unmarshal(errorsJSON, &job.Errors); err != nil {
			s.logger.Warn("ignoring undecodable job errors",
				"job_id", job.ID,
				"error", err)
			job.Errors = []domain.RecordError{}
		}
	}

	return &job, nil
}

func marshalRecordErrors(errs []domain.RecordError) (string, error) {
	if errs == nil {
		errs = []domain.RecordError{}
	}
	data, err := json.Marshal(errs)
	if err != nil {
		return "", fmt.Errorf("failed to encode job errors: %w", err)
	}
	return string(data), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
