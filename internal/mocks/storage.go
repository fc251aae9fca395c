package mocks

import (
	"context"
	"io"
	"sync"
)

// MockFileStorage keeps uploaded bytes in memory
type MockFileStorage struct {
	mu       sync.Mutex
	Files    map[string][]byte
	PutError error
}

func NewMockFileStorage() *MockFileStorage {
	return &MockFileStorage{Files: make(map[string][]byte)}
}

func (m *MockFileStorage) Put(ctx context.Context, filename, contentType string, body io.Reader) error {
	if m.PutError != nil {
		return m.PutError
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Files[filename] = data
	return nil
}

func (m *MockFileStorage) Delete(ctx context.Context, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Files, filename)
	return nil
}

// Has reports whether filename was stored
func (m *MockFileStorage) Has(filename string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Files[filename]
	return ok
}
