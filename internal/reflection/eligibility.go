package reflection

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/store"
)

// EligibilityResolver determines which users receive a reflection for a week.
type EligibilityResolver struct {
	source store.ActivitySource
	logger *slog.Logger
}

// NewEligibilityResolver creates a resolver over the given activity source.
func NewEligibilityResolver(source store.ActivitySource, logger *slog.Logger) *EligibilityResolver {
	if source == nil {
		panic("activity source cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EligibilityResolver{
		source: source,
		logger: logger.With(slog.String("component", "eligibility_resolver")),
	}
}

// Resolve returns the sorted, de-duplicated IDs of users with an active
// subscription during week.
func (r *EligibilityResolver) Resolve(ctx context.Context, week domain.Week) ([]string, error) {
	ids, err := r.source.ActiveSubscriberIDs(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("failed to list active subscribers for %s: %w", week, err)
	}

	seen := make(map[string]struct{}, len(ids))
	users := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		users = append(users, id)
	}
	sort.Strings(users)

	r.logger.DebugContext(ctx, "resolved eligible users",
		slog.String("week", week.String()),
		slog.Int("count", len(users)))

	return users, nil
}
