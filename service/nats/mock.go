package nats

import (
	"context"
	"sync"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu              sync.RWMutex
	publishedEvents []*PositionEvent
	publishError    error
	closed          bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		publishedEvents: make([]*PositionEvent, 0),
	}
}

// PublishPositionEvent records the event and returns any configured error.
func (m *MockPublisher) PublishPositionEvent(ctx context.Context, event *PositionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.publishedEvents = append(m.publishedEvents, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetPublishError configures the error returned by PublishPositionEvent.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// PublishedEvents returns a copy of all published events.
func (m *MockPublisher) PublishedEvents() []*PositionEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*PositionEvent, len(m.publishedEvents))
	copy(events, m.publishedEvents)
	return events
}

// Closed reports whether Close was called.
func (m *MockPublisher) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
