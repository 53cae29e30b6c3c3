package mocks

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/store"
)

// JobUpdateCall records one call to MockJobStore.Update.
type JobUpdateCall struct {
	ID     string
	Update domain.JobUpdate
}

// MockJobStore is an in-memory store.JobStore. It enforces unique IDs and
// logical keys and validates every stored job, so tests observe the same
// invariants the database enforces.
type MockJobStore struct {
	// Function fields for customizable behavior
	CreateFn           func(ctx context.Context, job *domain.BatchJob) error
	GetFn              func(ctx context.Context, id string) (*domain.BatchJob, error)
	FindByLogicalKeyFn func(ctx context.Context, key domain.LogicalKey) (*domain.BatchJob, error)
	ListByStatusFn     func(ctx context.Context, statuses []domain.JobStatus) ([]*domain.BatchJob, error)
	ListRecentFn       func(ctx context.Context, limit int) ([]*domain.BatchJob, error)
	UpdateFn           func(ctx context.Context, id string, update domain.JobUpdate) error
	DeleteFn           func(ctx context.Context, id string) error

	mu   sync.Mutex
	jobs map[string]domain.BatchJob

	// Call tracking for verification
	CreateCalls       []*domain.BatchJob
	UpdateCalls       []JobUpdateCall
	DeleteCalls       []string
	ListByStatusCalls int
}

var _ store.JobStore = (*MockJobStore)(nil)

// NewMockJobStore creates a store holding copies of the given jobs.
func NewMockJobStore(jobs ...*domain.BatchJob) *MockJobStore {
	m := &MockJobStore{jobs: make(map[string]domain.BatchJob)}
	for _, job := range jobs {
		m.jobs[job.ID] = *job
	}
	return m
}

// Job returns a copy of the stored job, or nil.
func (m *MockJobStore) Job(id string) *domain.BatchJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	return &job
}

// Len returns the number of stored jobs.
func (m *MockJobStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// Create implements store.JobStore.
func (m *MockJobStore) Create(ctx context.Context, job *domain.BatchJob) error {
	m.mu.Lock()
	m.CreateCalls = append(m.CreateCalls, job)
	m.mu.Unlock()

	if m.CreateFn != nil {
		return m.CreateFn(ctx, job)
	}

	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[job.ID]; exists {
		return store.ErrJobExists
	}
	for _, existing := range m.jobs {
		if existing.Key == job.Key {
			return store.ErrJobExists
		}
	}
	m.jobs[job.ID] = *job
	return nil
}

// Get implements store.JobStore.
func (m *MockJobStore) Get(ctx context.Context, id string) (*domain.BatchJob, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}
	if job := m.Job(id); job != nil {
		return job, nil
	}
	return nil, store.ErrJobNotFound
}

// FindByLogicalKey implements store.JobStore.
func (m *MockJobStore) FindByLogicalKey(ctx context.Context, key domain.LogicalKey) (*domain.BatchJob, error) {
	if m.FindByLogicalKeyFn != nil {
		return m.FindByLogicalKeyFn(ctx, key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		job := job
		if job.Key == key {
			return &job, nil
		}
	}
	return nil, store.ErrJobNotFound
}

// ListByStatus implements store.JobStore.
func (m *MockJobStore) ListByStatus(ctx context.Context, statuses []domain.JobStatus) ([]*domain.BatchJob, error) {
	m.mu.Lock()
	m.ListByStatusCalls++
	m.mu.Unlock()

	if m.ListByStatusFn != nil {
		return m.ListByStatusFn(ctx, statuses)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	result := []*domain.BatchJob{}
	for _, job := range m.jobs {
		job := job
		if slices.Contains(statuses, job.Status) {
			result = append(result, &job)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SubmittedAt.Equal(result[j].SubmittedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].SubmittedAt.Before(result[j].SubmittedAt)
	})
	return result, nil
}

// ListRecent implements store.JobStore.
func (m *MockJobStore) ListRecent(ctx context.Context, limit int) ([]*domain.BatchJob, error) {
	if m.ListRecentFn != nil {
		return m.ListRecentFn(ctx, limit)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	result := []*domain.BatchJob{}
	for _, job := range m.jobs {
		job := job
		result = append(result, &job)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SubmittedAt.Equal(result[j].SubmittedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].SubmittedAt.After(result[j].SubmittedAt)
	})
	if limit >= 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Update implements store.JobStore.
func (m *MockJobStore) Update(ctx context.Context, id string, update domain.JobUpdate) error {
	m.mu.Lock()
	m.UpdateCalls = append(m.UpdateCalls, JobUpdateCall{ID: id, Update: update})
	m.mu.Unlock()

	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, update)
	}
	return m.ApplyUpdate(id, update)
}

// ApplyUpdate is the default Update behavior, for UpdateFn overrides that
// only intercept some calls.
func (m *MockJobStore) ApplyUpdate(id string, update domain.JobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return store.ErrJobNotFound
	}
	updated := update.Apply(job)
	if err := updated.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	m.jobs[id] = updated
	return nil
}

// Delete implements store.JobStore.
func (m *MockJobStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	m.DeleteCalls = append(m.DeleteCalls, id)
	m.mu.Unlock()

	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return store.ErrJobNotFound
	}
	delete(m.jobs, id)
	return nil
}

// UpdatesFor returns the updates applied to one job, in call order.
func (m *MockJobStore) UpdatesFor(id string) []domain.JobUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updates []domain.JobUpdate
	for _, call := range m.UpdateCalls {
		if call.ID == id {
			updates = append(updates, call.Update)
		}
	}
	return updates
}
