package reflection_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/mocks"
	"github.com/phrazzld/reflections-api/internal/reflection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiNotifierFansOut(t *testing.T) {
	ctx := context.Background()
	first := &mocks.MockNotifier{}
	second := &mocks.MockNotifier{Err: errors.New("smtp down")}
	multi := reflection.MultiNotifier{first, nil, second}

	err := multi.NotifySuccess(ctx, "batch_1", domain.JobCounts{Total: 3, Success: 2, Error: 1}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")

	require.Len(t, first.Calls(mocks.NotifySuccess), 1)
	require.Len(t, second.Calls(mocks.NotifySuccess), 1)
	assert.Equal(t, 2, first.Calls()[0].Counts.Success)

	assert.NoError(t, reflection.MultiNotifier{first}.NotifyAttempt(ctx, 2, sundayEvening))
}

func TestSafeNotifierSwallowsFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("error", func(t *testing.T) {
		inner := &mocks.MockNotifier{Err: errors.New("boom")}
		safe := reflection.NewSafeNotifier(inner, testLogger())

		assert.NoError(t, safe.NotifyError(ctx, "subject", "details"))
		assert.NoError(t, safe.NotifyStillProcessing(ctx, "batch_1", "in_progress"))
		assert.Len(t, inner.Calls(), 2)
	})

	t.Run("panic", func(t *testing.T) {
		inner := &mocks.MockNotifier{Panic: "notifier exploded"}
		safe := reflection.NewSafeNotifier(inner, testLogger())

		assert.NotPanics(t, func() {
			assert.NoError(t, safe.NotifyAttempt(ctx, 1, time.Now()))
		})
		assert.Len(t, inner.Calls(mocks.NotifyAttempt), 1)
	})

	t.Run("nil inner logs only", func(t *testing.T) {
		safe := reflection.NewSafeNotifier(nil, testLogger())
		assert.NoError(t, safe.NotifySuccess(ctx, "batch_1", domain.JobCounts{}, []domain.RecordError{
			{RecordID: "u_2024_42", Message: "failed"},
		}))
	})
}

func TestLogNotifierNeverFails(t *testing.T) {
	ctx := context.Background()
	n := reflection.NewLogNotifier(testLogger())

	assert.NoError(t, n.NotifyAttempt(ctx, 3, sundayEvening))
	assert.NoError(t, n.NotifySuccess(ctx, "batch_1", domain.JobCounts{Total: 1, Success: 1}, nil))
	assert.NoError(t, n.NotifyError(ctx, "failed", "postgres://user:secret@db/app"))
	assert.NoError(t, n.NotifyStillProcessing(ctx, "batch_1", "validating"))
}
