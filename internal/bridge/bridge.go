// Package bridge carries terminal job outcomes from the worker pool to
// interested processes over a single shared broadcast channel. Delivery
// is at-most-once with no replay: a subscriber joining after a message
// was published never sees it, which is why polling stays the fallback
// of record.
package bridge

import (
	"context"
	"sync"

	"server/internal/domain"
)

// JobEvent is the message published for each terminal job transition.
// Exactly one message is produced per completed or failed attempt;
// processing transitions are never published.
type JobEvent struct {
	JobID            string           `json:"job_id"`
	ContentID        string           `json:"content_id"`
	Status           domain.JobStatus `json:"status"`
	GeneratedContent string           `json:"generated_content,omitempty"`
	Error            string           `json:"error,omitempty"`
}

// Bridge is the shared publish channel. Publish never blocks on slow
// subscribers; messages for a single job id arrive in publish order,
// ordering across jobs is unspecified.
type Bridge interface {
	Publish(ctx context.Context, ev JobEvent) error
	// Subscribe returns a channel of events. The channel is closed when
	// ctx is cancelled. Events that arrive while the subscriber is not
	// keeping up are dropped.
	Subscribe(ctx context.Context) (<-chan JobEvent, error)
}

const subscriberBuffer = 16

// Memory is an in-process Bridge for tests and single-process runs.
type Memory struct {
	mu   sync.Mutex
	subs map[chan JobEvent]struct{}
}

// NewMemory creates an in-process bridge.
func NewMemory() *Memory {
	return &Memory{subs: make(map[chan JobEvent]struct{})}
}

// Publish fans the event out to current subscribers, dropping it for
// any subscriber whose buffer is full.
func (m *Memory) Publish(_ context.Context, ev JobEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx is cancelled.
func (m *Memory) Subscribe(ctx context.Context) (<-chan JobEvent, error) {
	ch := make(chan JobEvent, subscriberBuffer)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, ch)
		m.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}
