package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/store"
)

// MockActivitySource implements store.ActivitySource over fixed data.
type MockActivitySource struct {
	ActiveSubscriberIDsFn func(ctx context.Context, week domain.Week) ([]string, error)
	WeeklyActivityFn      func(ctx context.Context, userID string, week domain.Week) (*domain.WeeklyActivity, error)

	// Default data
	Subscribers []string
	Completed   map[string][]domain.TodoSnapshot
	Incomplete  map[string]int
	Err         error

	mu                  sync.Mutex
	WeeklyActivityCalls []string
}

var _ store.ActivitySource = (*MockActivitySource)(nil)

// ActiveSubscriberIDs implements store.ActivitySource.
func (m *MockActivitySource) ActiveSubscriberIDs(ctx context.Context, week domain.Week) ([]string, error) {
	if m.ActiveSubscriberIDsFn != nil {
		return m.ActiveSubscriberIDsFn(ctx, week)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]string(nil), m.Subscribers...), nil
}

// WeeklyActivity implements store.ActivitySource.
func (m *MockActivitySource) WeeklyActivity(
	ctx context.Context,
	userID string,
	week domain.Week,
) (*domain.WeeklyActivity, error) {
	m.mu.Lock()
	m.WeeklyActivityCalls = append(m.WeeklyActivityCalls, userID)
	m.mu.Unlock()

	if m.WeeklyActivityFn != nil {
		return m.WeeklyActivityFn(ctx, userID, week)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &domain.WeeklyActivity{
		UserID:          userID,
		Week:            week,
		Completed:       append([]domain.TodoSnapshot(nil), m.Completed[userID]...),
		IncompleteCount: m.Incomplete[userID],
	}, nil
}
