package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/phrazzld/reflections-api/internal/domain"
)

// Notification is one recorded call to MockNotifier.
type Notification struct {
	Kind           string
	PendingCount   int
	ScheduledAt    time.Time
	JobID          string
	Counts         domain.JobCounts
	RecordErrors   []domain.RecordError
	Subject        string
	Details        string
	ExternalStatus string
}

// Notification kinds recorded by MockNotifier.
const (
	NotifyAttempt         = "attempt"
	NotifySuccess         = "success"
	NotifyError           = "error"
	NotifyStillProcessing = "still_processing"
)

// MockNotifier records every notification. Err is returned from every call
// and Panic, when set, is raised instead.
type MockNotifier struct {
	Err   error
	Panic any

	mu    sync.Mutex
	calls []Notification
}

func (m *MockNotifier) record(n Notification) error {
	m.mu.Lock()
	m.calls = append(m.calls, n)
	m.mu.Unlock()
	if m.Panic != nil {
		panic(m.Panic)
	}
	return m.Err
}

// NotifyAttempt records an attempt notification.
func (m *MockNotifier) NotifyAttempt(ctx context.Context, pendingCount int, scheduledAt time.Time) error {
	return m.record(Notification{Kind: NotifyAttempt, PendingCount: pendingCount, ScheduledAt: scheduledAt})
}

// NotifySuccess records a success notification.
func (m *MockNotifier) NotifySuccess(
	ctx context.Context,
	jobID string,
	counts domain.JobCounts,
	errs []domain.RecordError,
) error {
	return m.record(Notification{Kind: NotifySuccess, JobID: jobID, Counts: counts, RecordErrors: errs})
}

// NotifyError records an error notification.
func (m *MockNotifier) NotifyError(ctx context.Context, subject string, details string) error {
	return m.record(Notification{Kind: NotifyError, Subject: subject, Details: details})
}

// NotifyStillProcessing records a still-processing notification.
func (m *MockNotifier) NotifyStillProcessing(ctx context.Context, jobID string, externalStatus string) error {
	return m.record(Notification{Kind: NotifyStillProcessing, JobID: jobID, ExternalStatus: externalStatus})
}

// Calls returns the recorded notifications, optionally filtered by kind.
func (m *MockNotifier) Calls(kinds ...string) []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for _, n := range m.calls {
		if len(kinds) == 0 {
			out = append(out, n)
			continue
		}
		for _, k := range kinds {
			if n.Kind == k {
				out = append(out, n)
				break
			}
		}
	}
	return out
}
