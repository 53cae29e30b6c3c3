//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/platform/postgres"
	"github.com/phrazzld/reflections-api/internal/store"
	"github.com/phrazzld/reflections-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresReflectionStore_UpsertIsIdempotent(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		reflections := postgres.NewPostgresReflectionStore(tx, nil)
		week := domain.Week{Year: 2024, Week: 7}
		first := time.Date(2024, 2, 19, 1, 0, 0, 0, time.UTC)

		activity := &domain.WeeklyActivity{
			UserID: "user_with_underscores",
			Week:   week,
			Completed: []domain.TodoSnapshot{
				{ID: "t1", Title: "Ship it", CompletedAt: first.Add(-24 * time.Hour)},
			},
			IncompleteCount: 2,
		}

		record, err := domain.NewReflectionRecord(activity, "A good week.", first)
		require.NoError(t, err)
		require.NoError(t, reflections.Upsert(ctx, record))

		second := first.Add(2 * time.Hour)
		again, err := domain.NewReflectionRecord(activity, "A better summary.", second)
		require.NoError(t, err)
		require.NoError(t, reflections.Upsert(ctx, again))

		got, err := reflections.Get(ctx, domain.ReflectionID("user_with_underscores", week))
		require.NoError(t, err)
		assert.Equal(t, "A better summary.", got.Summary)
		assert.True(t, first.Equal(got.GeneratedAt), "generated_at keeps the first ingestion")
		assert.True(t, second.Equal(got.UpdatedAt))
		assert.Equal(t, int(time.February), got.Month)
		require.Len(t, got.CompletedTodos, 1)
		assert.Equal(t, "Ship it", got.CompletedTodos[0].Title)

		all, err := reflections.ListForWeek(ctx, week)
		require.NoError(t, err)
		count := 0
		for _, r := range all {
			if r.ID == got.ID {
				count++
			}
		}
		assert.Equal(t, 1, count, "no duplicate records")
	})
}

func TestPostgresReflectionStore_NotFound(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		_, err := postgres.NewPostgresReflectionStore(tx, nil).Get(context.Background(), "nobody_2024_1")
		assert.ErrorIs(t, err, store.ErrReflectionNotFound)
	})
}

func TestPostgresActivitySource(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		week := domain.Week{Year: 2024, Week: 7} // Mon 12 Feb - Sun 18 Feb
		inWeek := week.Start().Add(36 * time.Hour)

		_, err := tx.ExecContext(ctx, `
			INSERT INTO subscriptions (id, user_id, status, current_period_end) VALUES
				('s-active', 'act-user-a', 'active', NULL),
				('s-expired', 'act-user-b', 'active', '2024-01-01T00:00:00Z'),
				('s-cancelled', 'act-user-c', 'cancelled', NULL)`)
		require.NoError(t, err)

		_, err = tx.ExecContext(ctx, `
			INSERT INTO todos (id, user_id, title, notes, created_at, completed_at) VALUES
				('td-1', 'act-user-a', 'Write report', 'draft first', $1, $2),
				('td-2', 'act-user-a', 'Old task', NULL, $1, $3),
				('td-3', 'act-user-a', 'Still open', NULL, $1, NULL)`,
			week.Start().Add(-48*time.Hour), inWeek, week.Start().Add(-time.Hour))
		require.NoError(t, err)

		source := postgres.NewPostgresActivitySource(tx, nil)

		ids, err := source.ActiveSubscriberIDs(ctx, week)
		require.NoError(t, err)
		assert.Contains(t, ids, "act-user-a")
		assert.NotContains(t, ids, "act-user-b")
		assert.NotContains(t, ids, "act-user-c")

		activity, err := source.WeeklyActivity(ctx, "act-user-a", week)
		require.NoError(t, err)
		require.Len(t, activity.Completed, 1)
		assert.Equal(t, "Write report", activity.Completed[0].Title)
		assert.Equal(t, "draft first", activity.Completed[0].Notes)
		assert.Equal(t, 1, activity.IncompleteCount)
	})
}
