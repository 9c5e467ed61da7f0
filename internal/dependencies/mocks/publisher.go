package mocks

import (
	"context"
	"sync"

	"github.com/mcoot/fourinarow/internal/events"
)

// PublishedEvent is a single call recorded by MockPublisher
type PublishedEvent struct {
	Topic string
	Event any
}

// MockPublisher records published events for assertions
type MockPublisher struct {
	mu        sync.Mutex
	published []PublishedEvent

	// Err, when set, is returned from every Publish call
	Err error
}

// Ensure MockPublisher implements Publisher
var _ events.Publisher = (*MockPublisher)(nil)

// NewMockPublisher creates a new MockPublisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish records the event
func (p *MockPublisher) Publish(_ context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, PublishedEvent{Topic: topic, Event: event})
	return p.Err
}

// Close is a no-op
func (p *MockPublisher) Close() error {
	return nil
}

// Events returns a copy of every recorded event
func (p *MockPublisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedEvent(nil), p.published...)
}

// Topics returns the recorded topics in publish order
func (p *MockPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	topics := make([]string, 0, len(p.published))
	for _, e := range p.published {
		topics = append(topics, e.Topic)
	}
	return topics
}

// Count returns how many events were published to topic
func (p *MockPublisher) Count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.published {
		if e.Topic == topic {
			n++
		}
	}
	return n
}
