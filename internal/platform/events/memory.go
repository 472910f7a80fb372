package events

import (
	"context"
	"sync"
)

// MemoryPublisher records events in memory. Used in tests and when no
// brokers are configured.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []RefreshEvent
}

// NewMemoryPublisher creates an empty in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, event RefreshEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a snapshot of everything published so far.
func (p *MemoryPublisher) Events() []RefreshEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]RefreshEvent, len(p.events))
	copy(out, p.events)
	return out
}

func (p *MemoryPublisher) Close() error {
	return nil
}
