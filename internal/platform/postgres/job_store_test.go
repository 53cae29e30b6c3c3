//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/platform/postgres"
	"github.com/phrazzld/reflections-api/internal/store"
	"github.com/phrazzld/reflections-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJob(t *testing.T, week domain.Week, status domain.JobStatus, submittedAt time.Time) *domain.BatchJob {
	t.Helper()

	job, err := domain.NewBatchJob(
		"batch_"+uuid.NewString(),
		domain.WeeklyReflectionKey(week),
		status,
		3,
		submittedAt,
	)
	require.NoError(t, err)
	return job
}

func TestPostgresJobStore_CreateAndGet(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		jobs := postgres.NewPostgresJobStore(tx, nil)
		submitted := time.Date(2024, 2, 18, 20, 0, 0, 0, time.UTC)
		job := newJob(t, domain.Week{Year: 2024, Week: 7}, domain.JobStatusPending, submitted)
		job.InputFileID = "file-in"

		require.NoError(t, jobs.Create(ctx, job))

		got, err := jobs.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
		assert.Equal(t, job.Key, got.Key)
		assert.Equal(t, domain.JobStatusPending, got.Status)
		assert.True(t, submitted.Equal(got.SubmittedAt))
		assert.Nil(t, got.CompletedAt)
		assert.Equal(t, 3, got.TotalRequests)
		assert.Equal(t, "file-in", got.InputFileID)
		assert.Empty(t, got.Errors)

		byKey, err := jobs.FindByLogicalKey(ctx, job.Key)
		require.NoError(t, err)
		assert.Equal(t, job.ID, byKey.ID)
	})
}

func TestPostgresJobStore_DuplicateLogicalKey(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		jobs := postgres.NewPostgresJobStore(tx, nil)
		week := domain.Week{Year: 2023, Week: 40}
		now := time.Now().UTC()

		require.NoError(t, jobs.Create(ctx, newJob(t, week, domain.JobStatusPending, now)))
		err := jobs.Create(ctx, newJob(t, week, domain.JobStatusPending, now))

		assert.ErrorIs(t, err, store.ErrDuplicate)
	})
}

func TestPostgresJobStore_NotFound(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		jobs := postgres.NewPostgresJobStore(tx, nil)

		_, err := jobs.Get(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrJobNotFound)

		status := domain.JobStatusFailed
		assert.ErrorIs(t, jobs.Update(ctx, "missing", domain.JobUpdate{Status: &status}), store.ErrNotFound)
		assert.ErrorIs(t, jobs.Delete(ctx, "missing"), store.ErrNotFound)
	})
}

func TestPostgresJobStore_PartialUpdate(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		jobs := postgres.NewPostgresJobStore(tx, nil)
		job := newJob(t, domain.Week{Year: 2022, Week: 3}, domain.JobStatusInProgress, time.Now().UTC())
		require.NoError(t, jobs.Create(ctx, job))

		processing := domain.JobStatusProcessing
		out := "file-out"
		require.NoError(t, jobs.Update(ctx, job.ID, domain.JobUpdate{Status: &processing, OutputFileID: &out}))

		completed := domain.JobStatusCompleted
		completedAt := time.Now().UTC().Truncate(time.Microsecond)
		success, failed := 2, 1
		errs := []domain.RecordError{{RecordID: "u3_2022_3", Message: "empty content"}}
		require.NoError(t, jobs.Update(ctx, job.ID, domain.JobUpdate{
			Status:       &completed,
			CompletedAt:  &completedAt,
			SuccessCount: &success,
			ErrorCount:   &failed,
			Errors:       &errs,
		}))

		got, err := jobs.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCompleted, got.Status)
		assert.Equal(t, "file-out", got.OutputFileID, "untouched fields keep their value")
		require.NotNil(t, got.CompletedAt)
		assert.True(t, completedAt.Equal(*got.CompletedAt))
		assert.Equal(t, 2, got.SuccessCount)
		assert.Equal(t, 1, got.ErrorCount)
		assert.Equal(t, errs, got.Errors)
	})
}

func TestPostgresJobStore_RejectsCountOverflow(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		jobs := postgres.NewPostgresJobStore(tx, nil)
		job := newJob(t, domain.Week{Year: 2022, Week: 4}, domain.JobStatusProcessing, time.Now().UTC())
		require.NoError(t, jobs.Create(ctx, job))

		success, failed := 3, 1
		err := jobs.Update(ctx, job.ID, domain.JobUpdate{SuccessCount: &success, ErrorCount: &failed})

		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})
}

func TestPostgresJobStore_ListByStatusAndRecent(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		jobs := postgres.NewPostgresJobStore(tx, nil)

		// Isolate from rows committed by other runs.
		_, err := tx.ExecContext(ctx, "DELETE FROM batch_jobs")
		require.NoError(t, err)

		base := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
		older := newJob(t, domain.Week{Year: 2021, Week: 20}, domain.JobStatusPending, base)
		newer := newJob(t, domain.Week{Year: 2021, Week: 21}, domain.JobStatusInProgress, base.Add(7*24*time.Hour))
		done := newJob(t, domain.Week{Year: 2021, Week: 22}, domain.JobStatusPending, base.Add(14*24*time.Hour))
		for _, j := range []*domain.BatchJob{newer, done, older} {
			require.NoError(t, jobs.Create(ctx, j))
		}
		failed := domain.JobStatusFailed
		completedAt := base.Add(15 * 24 * time.Hour)
		require.NoError(t, jobs.Update(ctx, done.ID, domain.JobUpdate{Status: &failed, CompletedAt: &completedAt}))

		live, err := jobs.ListByStatus(ctx, domain.NonTerminalStatuses)
		require.NoError(t, err)
		require.Len(t, live, 2)
		assert.Equal(t, older.ID, live[0].ID)
		assert.Equal(t, newer.ID, live[1].ID)

		terminal, err := jobs.ListByStatus(ctx, domain.TerminalStatuses)
		require.NoError(t, err)
		require.Len(t, terminal, 1)
		assert.Equal(t, done.ID, terminal[0].ID)

		recent, err := jobs.ListRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, done.ID, recent[0].ID)
		assert.Equal(t, newer.ID, recent[1].ID)

		require.NoError(t, jobs.Delete(ctx, done.ID))
		_, err = jobs.Get(ctx, done.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
