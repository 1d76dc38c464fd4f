package bridge

import (
	"context"
	"testing"
	"time"

	"server/internal/domain"
)

func TestMemoryDeliversToActiveSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewMemory()
	events, err := m.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	want := JobEvent{
		JobID:            "content-c1",
		ContentID:        "c1",
		Status:           domain.JobStatusCompleted,
		GeneratedContent: "body",
	}
	if err := m.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-events:
		if got != want {
			t.Fatalf("event = %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestMemoryLateSubscriberSeesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewMemory()
	if err := m.Publish(ctx, JobEvent{JobID: "content-c1", Status: domain.JobStatusFailed}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	events, err := m.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	select {
	case ev := <-events:
		t.Fatalf("late subscriber received %+v, want nothing", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryPreservesPerJobOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewMemory()
	events, err := m.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	statuses := []domain.JobStatus{domain.JobStatusFailed, domain.JobStatusFailed, domain.JobStatusCompleted}
	for _, s := range statuses {
		if err := m.Publish(ctx, JobEvent{JobID: "content-c1", Status: s}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	for i, want := range statuses {
		got := <-events
		if got.Status != want {
			t.Fatalf("event %d status = %q, want %q", i, got.Status, want)
		}
	}
}

func TestMemoryDropsOnFullBuffer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewMemory()
	events, err := m.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// Fill the buffer without draining, then overflow it.
	for i := 0; i < subscriberBuffer+5; i++ {
		if err := m.Publish(ctx, JobEvent{JobID: "content-c1"}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	received := 0
	for {
		select {
		case <-events:
			received++
			continue
		default:
		}
		break
	}
	if received != subscriberBuffer {
		t.Fatalf("received %d events, want %d buffered", received, subscriberBuffer)
	}
}

func TestMemorySubscriberClosedOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewMemory()
	events, err := m.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected closed channel, got event")
		}
	case <-time.After(time.Second):
		t.Fatal("channel was not closed after cancel")
	}
}
