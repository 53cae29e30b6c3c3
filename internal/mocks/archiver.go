package mocks

import (
	"context"
	"path"
	"sync"
)

// MockArchiver keeps archived files in memory.
type MockArchiver struct {
	Err error

	mu      sync.Mutex
	Objects map[string][]byte
}

// Archive stores a copy of data under "jobID/kind.jsonl".
func (m *MockArchiver) Archive(ctx context.Context, jobID, kind string, data []byte) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Objects == nil {
		m.Objects = make(map[string][]byte)
	}
	key := path.Join(jobID, kind+".jsonl")
	m.Objects[key] = append([]byte(nil), data...)
	return key, nil
}
