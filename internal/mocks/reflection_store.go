package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/store"
)

// MockReflectionStore is an in-memory store.ReflectionStore with upsert
// semantics matching the database: GeneratedAt survives an overwrite.
type MockReflectionStore struct {
	UpsertFn func(ctx context.Context, record *domain.ReflectionRecord) error

	mu      sync.Mutex
	records map[string]domain.ReflectionRecord

	UpsertCalls int
}

var _ store.ReflectionStore = (*MockReflectionStore)(nil)

// NewMockReflectionStore creates an empty store.
func NewMockReflectionStore() *MockReflectionStore {
	return &MockReflectionStore{records: make(map[string]domain.ReflectionRecord)}
}

// Upsert implements store.ReflectionStore.
func (m *MockReflectionStore) Upsert(ctx context.Context, record *domain.ReflectionRecord) error {
	m.mu.Lock()
	m.UpsertCalls++
	m.mu.Unlock()

	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, record)
	}

	if err := record.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *record
	if existing, ok := m.records[record.ID]; ok {
		stored.GeneratedAt = existing.GeneratedAt
	}
	m.records[record.ID] = stored
	return nil
}

// Get implements store.ReflectionStore.
func (m *MockReflectionStore) Get(ctx context.Context, id string) (*domain.ReflectionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok {
		return nil, store.ErrReflectionNotFound
	}
	return &record, nil
}

// ListForWeek implements store.ReflectionStore.
func (m *MockReflectionStore) ListForWeek(ctx context.Context, week domain.Week) ([]*domain.ReflectionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []*domain.ReflectionRecord{}
	for _, record := range m.records {
		record := record
		if record.Year == week.Year && record.Week == week.Week {
			result = append(result, &record)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

// Len returns the number of stored records.
func (m *MockReflectionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
