package store

import (
	"context"

	"github.com/phrazzld/reflections-api/internal/domain"
)

// ReflectionStore persists generated weekly reflections.
type ReflectionStore interface {
	// Upsert inserts the record or, if a record with the same ID exists,
	// overwrites its content and UpdatedAt while keeping GeneratedAt.
	Upsert(ctx context.Context, record *domain.ReflectionRecord) error

	// Get retrieves a reflection by its deterministic ID.
	// Returns ErrReflectionNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.ReflectionRecord, error)

	// ListForWeek returns all reflections of one ISO week.
	ListForWeek(ctx context.Context, week domain.Week) ([]*domain.ReflectionRecord, error)
}
