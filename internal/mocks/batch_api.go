package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/phrazzld/reflections-api/internal/platform/batchapi"
)

// MockBatchAPI implements the external batch service for testing.
type MockBatchAPI struct {
	// Function fields for customizable behavior
	SubmitFn   func(ctx context.Context, requests []batchapi.Request, metadata map[string]string) (*batchapi.Batch, error)
	StatusFn   func(ctx context.Context, batchID string) (*batchapi.Batch, error)
	DownloadFn func(ctx context.Context, fileID string) ([]byte, error)

	// Default response values
	Batches   map[string]*batchapi.Batch
	Files     map[string][]byte
	SubmitErr error

	// Call tracking for verification
	mu            sync.Mutex
	SubmitCalls   [][]batchapi.Request
	StatusCalls   []string
	DownloadCalls []string
}

// NewMockBatchAPI creates a mock with empty batch and file tables.
func NewMockBatchAPI() *MockBatchAPI {
	return &MockBatchAPI{
		Batches: make(map[string]*batchapi.Batch),
		Files:   make(map[string][]byte),
	}
}

// Submit records the requests and returns a validating batch.
func (m *MockBatchAPI) Submit(
	ctx context.Context,
	requests []batchapi.Request,
	metadata map[string]string,
) (*batchapi.Batch, error) {
	m.mu.Lock()
	m.SubmitCalls = append(m.SubmitCalls, requests)
	n := len(m.SubmitCalls)
	m.mu.Unlock()

	if m.SubmitFn != nil {
		return m.SubmitFn(ctx, requests, metadata)
	}
	if m.SubmitErr != nil {
		return nil, m.SubmitErr
	}

	batch := &batchapi.Batch{
		ID:            fmt.Sprintf("batch_%d", n),
		Status:        batchapi.StatusValidating,
		InputFileID:   fmt.Sprintf("file_in_%d", n),
		Metadata:      metadata,
		RequestCounts: batchapi.RequestCounts{Total: len(requests)},
	}
	m.mu.Lock()
	if m.Batches == nil {
		m.Batches = make(map[string]*batchapi.Batch)
	}
	m.Batches[batch.ID] = batch
	m.mu.Unlock()
	return batch, nil
}

// Status returns the batch registered under batchID.
func (m *MockBatchAPI) Status(ctx context.Context, batchID string) (*batchapi.Batch, error) {
	m.mu.Lock()
	m.StatusCalls = append(m.StatusCalls, batchID)
	m.mu.Unlock()

	if m.StatusFn != nil {
		return m.StatusFn(ctx, batchID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	batch, ok := m.Batches[batchID]
	if !ok {
		return nil, &batchapi.APIError{Op: "status", StatusCode: 404, Message: "batch not found"}
	}
	return batch, nil
}

// Download returns the file registered under fileID.
func (m *MockBatchAPI) Download(ctx context.Context, fileID string) ([]byte, error) {
	m.mu.Lock()
	m.DownloadCalls = append(m.DownloadCalls, fileID)
	m.mu.Unlock()

	if m.DownloadFn != nil {
		return m.DownloadFn(ctx, fileID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Files[fileID]
	if !ok {
		return nil, &batchapi.APIError{Op: "download", StatusCode: 404, Message: "file not found"}
	}
	return data, nil
}

// CallCount returns the total number of calls made to the mock.
func (m *MockBatchAPI) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SubmitCalls) + len(m.StatusCalls) + len(m.DownloadCalls)
}
