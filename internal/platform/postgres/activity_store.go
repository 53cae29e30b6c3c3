package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/store"
)

// PostgresActivitySource implements store.ActivitySource over the todo
// application's subscriptions and todos tables. It never writes.
type PostgresActivitySource struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresActivitySource creates a read-only activity source.
// If logger is nil, a default logger will be used.
func NewPostgresActivitySource(db store.DBTX, logger *slog.Logger) *PostgresActivitySource {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresActivitySource{
		db:     db,
		logger: logger.With(slog.String("component", "activity_source")),
	}
}

// Ensure PostgresActivitySource implements store.ActivitySource interface
var _ store.ActivitySource = (*PostgresActivitySource)(nil)

// ActiveSubscriberIDs implements store.ActivitySource.ActiveSubscriberIDs
// A subscription counts when it is active and its period overlaps the week.
func (s *PostgresActivitySource) ActiveSubscriberIDs(ctx context.Context, week domain.Week) ([]string, error) {
	query := `
		SELECT DISTINCT user_id
		FROM subscriptions
		WHERE status = 'active'
		  AND (current_period_end IS NULL OR current_period_end >= $1)
		ORDER BY user_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, week.Start())
	if err != nil {
		s.logger.Error("failed to query active subscribers", "week", week.String(), "error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber row: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriber rows: %w", err)
	}

	return ids, nil
}

// WeeklyActivity implements store.ActivitySource.WeeklyActivity
// Completed todos are those completed inside [week start, week end). The
// incomplete count is taken over todos still open at the end of the week.
func (s *PostgresActivitySource) WeeklyActivity(
	ctx context.Context,
	userID string,
	week domain.Week,
) (*domain.WeeklyActivity, error) {
	start, end := week.Start(), week.End()

	completedQuery := `
		SELECT id, title, COALESCE(notes, ''), completed_at
		FROM todos
		WHERE user_id = $1
		  AND completed_at >= $2
		  AND completed_at < $3
		ORDER BY completed_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, completedQuery, userID, start, end)
	if err != nil {
		s.logger.Error("failed to query completed todos",
			"user_id", userID,
			"week", week.String(),
			"error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	activity := &domain.WeeklyActivity{
		UserID:    userID,
		Week:      week,
		Completed: []domain.TodoSnapshot{},
	}

	for rows.Next() {
		var todo domain.TodoSnapshot
		if err := rows.Scan(&todo.ID, &todo.Title, &todo.Notes, &todo.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan todo row: %w", err)
		}
		todo.CompletedAt = todo.CompletedAt.UTC()
		activity.Completed = append(activity.Completed, todo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating todo rows: %w", err)
	}

	incompleteQuery := `
		SELECT COUNT(*)
		FROM todos
		WHERE user_id = $1
		  AND created_at < $2
		  AND (completed_at IS NULL OR completed_at >= $2)
	`

	var incomplete sql.NullInt64
	if err := s.db.QueryRowContext(ctx, incompleteQuery, userID, end).Scan(&incomplete); err != nil {
		s.logger.Error("failed to count incomplete todos",
			"user_id", userID,
			"week", week.String(),
			"error", err)
		return nil, MapError(err)
	}
	activity.IncompleteCount = int(incomplete.Int64)

	return activity, nil
}
