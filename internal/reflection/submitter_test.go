package reflection_test

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/mocks"
	"github.com/phrazzld/reflections-api/internal/platform/batchapi"
	"github.com/phrazzld/reflections-api/internal/reflection"
	"github.com/phrazzld/reflections-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submitFixture struct {
	jobs      *mocks.MockJobStore
	activity  *mocks.MockActivitySource
	api       *mocks.MockBatchAPI
	notifier  *mocks.MockNotifier
	submitter *reflection.Submitter
}

func newSubmitFixture(t *testing.T, activity *mocks.MockActivitySource, existing ...*domain.BatchJob) *submitFixture {
	t.Helper()
	f := &submitFixture{
		jobs:     mocks.NewMockJobStore(existing...),
		activity: activity,
		api:      mocks.NewMockBatchAPI(),
		notifier: &mocks.MockNotifier{},
	}
	logger := testLogger()
	f.submitter = reflection.NewSubmitter(
		f.jobs,
		reflection.NewEligibilityResolver(activity, logger),
		reflection.NewRequestBuilder(activity, nil, builderConfig, logger),
		f.api,
		f.notifier,
		logger,
	)
	return f
}

func TestSubmitterSubmit(t *testing.T) {
	f := newSubmitFixture(t, activityFor("bob", "alice"))

	result, err := f.submitter.Submit(context.Background(), targetWeek)
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.Equal(t, "batch_1", result.JobID)
	assert.Equal(t, domain.JobStatusValidating, result.Status)
	assert.Equal(t, reflection.BuildStats{Eligible: 2, Included: 2}, result.Stats)

	require.Len(t, f.api.SubmitCalls, 1)
	ids := []string{f.api.SubmitCalls[0][0].CustomID, f.api.SubmitCalls[0][1].CustomID}
	assert.Equal(t, []string{"alice_2024_42", "bob_2024_42"}, ids)

	job := f.jobs.Job("batch_1")
	require.NotNil(t, job)
	assert.Equal(t, domain.WeeklyReflectionKey(targetWeek), job.Key)
	assert.Equal(t, 2, job.TotalRequests)
	assert.Equal(t, 0, job.SuccessCount)
	assert.Equal(t, "file_in_1", job.InputFileID)
	assert.Equal(t, "validating", job.ExternalStatus)
	assert.Nil(t, job.CompletedAt)

	assert.Empty(t, f.notifier.Calls())
}

func TestSubmitterSkipsExistingJob(t *testing.T) {
	for _, status := range []domain.JobStatus{
		domain.JobStatusPending,
		domain.JobStatusValidating,
		domain.JobStatusInProgress,
		domain.JobStatusProcessing,
		domain.JobStatusCompleted,
	} {
		t.Run(string(status), func(t *testing.T) {
			existing := submittedJob(t, "batch_old", targetWeek, status, 3, sundayEvening)
			f := newSubmitFixture(t, activityFor("alice"), existing)

			result, err := f.submitter.Submit(context.Background(), targetWeek)
			require.NoError(t, err)
			assert.True(t, result.Skipped)
			assert.Equal(t, reflection.SkipReasonExists, result.Reason)
			assert.Equal(t, "batch_old", result.JobID)

			assert.Equal(t, 0, f.api.CallCount())
			assert.Equal(t, 1, f.jobs.Len())
		})
	}
}

func TestSubmitterReplacesFailedJob(t *testing.T) {
	for _, status := range []domain.JobStatus{domain.JobStatusFailed, domain.JobStatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			existing := submittedJob(t, "batch_old", targetWeek, status, 3, sundayEvening)
			f := newSubmitFixture(t, activityFor("alice"), existing)

			result, err := f.submitter.Submit(context.Background(), targetWeek)
			require.NoError(t, err)
			assert.False(t, result.Skipped)

			assert.Equal(t, []string{"batch_old"}, f.jobs.DeleteCalls)
			assert.Nil(t, f.jobs.Job("batch_old"))
			assert.NotNil(t, f.jobs.Job(result.JobID))
			assert.Equal(t, 1, f.jobs.Len())
		})
	}
}

func TestSubmitterNoRequests(t *testing.T) {
	activity := activityFor("alice")
	activity.Completed["alice"] = nil
	f := newSubmitFixture(t, activity)

	result, err := f.submitter.Submit(context.Background(), targetWeek)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, reflection.SkipReasonNoRequests, result.Reason)
	assert.Equal(t, 1, result.Stats.Skipped)

	assert.Empty(t, f.api.SubmitCalls)
	assert.Equal(t, 0, f.jobs.Len())
}

func TestSubmitterActivityOutage(t *testing.T) {
	activity := activityFor("alice", "bob")
	activity.WeeklyActivityFn = func(ctx context.Context, userID string, week domain.Week) (*domain.WeeklyActivity, error) {
		return nil, errors.New("connection refused")
	}
	f := newSubmitFixture(t, activity)

	result, err := f.submitter.Submit(context.Background(), targetWeek)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, reflection.ErrNoRequestsBuilt)

	assert.Empty(t, f.api.SubmitCalls)
	assert.Equal(t, 0, f.jobs.Len())
	errs := f.notifier.Calls(mocks.NotifyError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Details, "2 of 2 eligible users failed")
}

func TestSubmitterPartialActivityFailureStillSubmits(t *testing.T) {
	activity := activityFor("alice", "bob")
	activity.WeeklyActivityFn = func(ctx context.Context, userID string, week domain.Week) (*domain.WeeklyActivity, error) {
		if userID == "bob" {
			return nil, errors.New("connection refused")
		}
		return &domain.WeeklyActivity{UserID: userID, Week: week, Completed: completedTodos("Ship it")}, nil
	}
	f := newSubmitFixture(t, activity)

	result, err := f.submitter.Submit(context.Background(), targetWeek)
	require.NoError(t, err)
	assert.Equal(t, reflection.BuildStats{Eligible: 2, Included: 1, Failed: 1}, result.Stats)
	require.Len(t, f.api.SubmitCalls, 1)
	assert.Len(t, f.api.SubmitCalls[0], 1)
	assert.Empty(t, f.notifier.Calls(mocks.NotifyError))
}

func TestSubmitterCancelledWhileBuilding(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	activity := activityFor("alice", "bob")
	activity.WeeklyActivityFn = func(ctx context.Context, userID string, week domain.Week) (*domain.WeeklyActivity, error) {
		cancel()
		return nil, ctx.Err()
	}
	f := newSubmitFixture(t, activity)

	_, err := f.submitter.Submit(ctx, targetWeek)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.api.SubmitCalls)
	assert.Equal(t, 0, f.jobs.Len())
}

func TestSubmitterSubmitFailure(t *testing.T) {
	f := newSubmitFixture(t, activityFor("alice"))
	f.api.SubmitErr = &batchapi.APIError{Op: "create batch", StatusCode: 400, Message: "invalid endpoint"}

	_, err := f.submitter.Submit(context.Background(), targetWeek)
	require.Error(t, err)
	assert.ErrorIs(t, err, batchapi.ErrPermanent)

	assert.Equal(t, 0, f.jobs.Len())
	errs := f.notifier.Calls(mocks.NotifyError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Details, "invalid endpoint")
}

func TestSubmitterLostRace(t *testing.T) {
	f := newSubmitFixture(t, activityFor("alice"))
	f.jobs.CreateFn = func(ctx context.Context, job *domain.BatchJob) error {
		return store.ErrJobExists
	}

	_, err := f.submitter.Submit(context.Background(), targetWeek)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrDuplicate)
	assert.Len(t, f.notifier.Calls(mocks.NotifyError), 1)
}

func TestSubmitterLookupFailure(t *testing.T) {
	f := newSubmitFixture(t, activityFor("alice"))
	f.jobs.FindByLogicalKeyFn = func(ctx context.Context, key domain.LogicalKey) (*domain.BatchJob, error) {
		return nil, errors.New("connection reset")
	}

	_, err := f.submitter.Submit(context.Background(), targetWeek)
	require.Error(t, err)
	assert.Equal(t, 0, f.api.CallCount())
	assert.Len(t, f.notifier.Calls(mocks.NotifyError), 1)
}

func TestSubmitterInvalidWeek(t *testing.T) {
	f := newSubmitFixture(t, activityFor("alice"))
	_, err := f.submitter.Submit(context.Background(), domain.Week{Year: 2024, Week: 60})
	assert.ErrorIs(t, err, domain.ErrInvalidWeek)
}

func TestSubmitterNotifierFailureDoesNotMask(t *testing.T) {
	f := newSubmitFixture(t, activityFor("alice"))
	f.notifier.Panic = "mail server exploded"
	f.api.SubmitErr = errors.New("network down")

	assert.NotPanics(t, func() {
		_, err := f.submitter.Submit(context.Background(), targetWeek)
		assert.Error(t, err)
	})
}
