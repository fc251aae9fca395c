package mocks

import (
	"context"
	"sync"

	"github.com/article-generation-api/internal/events"
)

// MockPublisher records every published event
type MockPublisher struct {
	mu           sync.Mutex
	Events       []events.Event
	PublishError error
	Closed       bool
}

func (m *MockPublisher) Publish(ctx context.Context, event events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PublishError != nil {
		return m.PublishError
	}
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Types returns the event types published so far, in order
func (m *MockPublisher) Types() []events.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]events.EventType, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Type
	}
	return out
}
