package nats

import (
	"context"
	"sync"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu           sync.RWMutex
	swapEvents   []*SwapEvent
	poolEvents   []*PoolCreatedEvent
	publishError error
	closed       bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		swapEvents: make([]*SwapEvent, 0),
		poolEvents: make([]*PoolCreatedEvent, 0),
	}
}

// PublishSwap records the event and returns any configured error.
func (m *MockPublisher) PublishSwap(ctx context.Context, event *SwapEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.swapEvents = append(m.swapEvents, event)
	return nil
}

// PublishPoolCreated records the event and returns any configured error.
func (m *MockPublisher) PublishPoolCreated(ctx context.Context, event *PoolCreatedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.poolEvents = append(m.poolEvents, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetSwapEvents returns all published swap events (for testing).
func (m *MockPublisher) GetSwapEvents() []*SwapEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to avoid race conditions
	events := make([]*SwapEvent, len(m.swapEvents))
	copy(events, m.swapEvents)
	return events
}

// GetPoolEvents returns all published pool-creation events (for testing).
func (m *MockPublisher) GetPoolEvents() []*PoolCreatedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*PoolCreatedEvent, len(m.poolEvents))
	copy(events, m.poolEvents)
	return events
}

// SetPublishError configures the mock to return an error on publish.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// Reset clears all published events and errors.
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swapEvents = make([]*SwapEvent, 0)
	m.poolEvents = make([]*PoolCreatedEvent, 0)
	m.publishError = nil
	m.closed = false
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
