package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/store"
)

const reflectionColumns = `id, user_id, year, week, month, completed_todos, incomplete_count,
	summary, generated_at, updated_at`

// PostgresReflectionStore implements the store.ReflectionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresReflectionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReflectionStore creates a new PostgreSQL implementation of the ReflectionStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresReflectionStore(db store.DBTX, logger *slog.Logger) *PostgresReflectionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReflectionStore{
		db:     db,
		logger: logger.With(slog.String("component", "reflection_store")),
	}
}

// Ensure PostgresReflectionStore implements store.ReflectionStore interface
var _ store.ReflectionStore = (*PostgresReflectionStore)(nil)

// Upsert implements store.ReflectionStore.Upsert
// On conflict the content columns and updated_at are overwritten while
// generated_at keeps the value from the first insert.
func (s *PostgresReflectionStore) Upsert(ctx context.Context, record *domain.ReflectionRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	todos := record.CompletedTodos
	if todos == nil {
		todos = []domain.TodoSnapshot{}
	}
	todosJSON, err := json.Marshal(todos)
	if err != nil {
		return fmt.Errorf("%w: failed to encode completed todos: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO weekly_reflections (` + reflectionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			month = EXCLUDED.month,
			completed_todos = EXCLUDED.completed_todos,
			incomplete_count = EXCLUDED.incomplete_count,
			summary = EXCLUDED.summary,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		record.Year,
		record.Week,
		record.Month,
		string(todosJSON),
		record.IncompleteCount,
		record.Summary,
		record.GeneratedAt.UTC(),
		record.UpdatedAt.UTC(),
	)
	if err != nil {
		s.logger.Error("failed to upsert reflection",
			"reflection_id", record.ID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// Get implements store.ReflectionStore.Get
func (s *PostgresReflectionStore) Get(ctx context.Context, id string) (*domain.ReflectionRecord, error) {
	query := `SELECT ` + reflectionColumns + ` FROM weekly_reflections WHERE id = $1`

	record, err := scanReflection(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrReflectionNotFound
		}
		s.logger.Error("failed to get reflection", "reflection_id", id, "error", err)
		return nil, MapError(err)
	}
	return record, nil
}

// ListForWeek implements store.ReflectionStore.ListForWeek
func (s *PostgresReflectionStore) ListForWeek(ctx context.Context, week domain.Week) ([]*domain.ReflectionRecord, error) {
	query := `SELECT ` + reflectionColumns + ` FROM weekly_reflections
		WHERE year = $1 AND week = $2
		ORDER BY user_id ASC`

	rows, err := s.db.QueryContext(ctx, query, week.Year, week.Week)
	if err != nil {
		s.logger.Error("failed to list reflections", "week", week.String(), "error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	records := []*domain.ReflectionRecord{}
	for rows.Next() {
		record, err := scanReflection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reflection row: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reflection rows: %w", err)
	}

	return records, nil
}

func scanReflection(row rowScanner) (*domain.ReflectionRecord, error) {
	var (
		record    domain.ReflectionRecord
		todosJSON []byte
	)

	err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.Year,
		&record.Week,
		&record.Month,
		&todosJSON,
		&record.IncompleteCount,
		&record.Summary,
		&record.GeneratedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.GeneratedAt = record.GeneratedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	record.CompletedTodos = []domain.TodoSnapshot{}
	if len(todosJSON) > 0 {
		if err := json.Unmarshal(todosJSON, &record.CompletedTodos); err != nil {
			return nil, fmt.Errorf("failed to decode completed todos: %w", err)
		}
	}

	return &record, nil
}
