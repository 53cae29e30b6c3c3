package store

import (
	"context"

	"github.com/phrazzld/reflections-api/internal/domain"
)

// ActivitySource is the read-only view of subscription and todo data owned by
// the todo application.
type ActivitySource interface {
	// ActiveSubscriberIDs returns the IDs of users whose subscription is
	// active for the given week.
	ActiveSubscriberIDs(ctx context.Context, week domain.Week) ([]string, error)

	// WeeklyActivity returns a user's completed todos and incomplete count
	// for the given week.
	WeeklyActivity(ctx context.Context, userID string, week domain.Week) (*domain.WeeklyActivity, error)
}
