package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/bridge"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/queue"
)

// opLog records the order of collaborator calls across fakes so tests
// can assert write-before-publish ordering.
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) add(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

func (l *opLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ops...)
}

type fakeStore struct {
	log           *opLog
	processingErr error
	completedErr  error
}

func (s *fakeStore) MarkProcessing(_ context.Context, jobID string) error {
	s.log.add("mark_processing")
	return s.processingErr
}

func (s *fakeStore) MarkCompleted(_ context.Context, jobID, generated string) error {
	s.log.add("mark_completed")
	return s.completedErr
}

func (s *fakeStore) MarkFailed(_ context.Context, jobID string) error {
	s.log.add("mark_failed")
	return nil
}

type fakeGen struct {
	log  *opLog
	text string
	err  error
}

func (g *fakeGen) Generate(_ context.Context, _ domain.ContentType, _ string) (string, error) {
	g.log.add("generate")
	return g.text, g.err
}

type fakeBridge struct {
	log    *opLog
	events []bridge.JobEvent
}

func (b *fakeBridge) Publish(_ context.Context, ev bridge.JobEvent) error {
	b.log.add("publish")
	b.events = append(b.events, ev)
	return nil
}

func (b *fakeBridge) Subscribe(ctx context.Context) (<-chan bridge.JobEvent, error) {
	return nil, errors.New("not implemented")
}

type fakeQueue struct {
	log         *opLog
	completeErr error
	retrying    bool
	failCause   error
}

func (q *fakeQueue) Claim(ctx context.Context) (*domain.Job, error) {
	return nil, queue.ErrNoJobReady
}

func (q *fakeQueue) Complete(_ context.Context, jobID, returnValue string) error {
	q.log.add("queue_complete")
	return q.completeErr
}

func (q *fakeQueue) Fail(_ context.Context, job *domain.Job, cause error) (bool, error) {
	q.log.add("queue_fail")
	q.failCause = cause
	return q.retrying, nil
}

func testLogger() infra.Logger {
	return zerolog.New(io.Discard)
}

func testJob() *domain.Job {
	return &domain.Job{
		ID:          "content-c1",
		ContentID:   "c1",
		OwnerID:     "u1",
		ContentType: domain.ContentTypeArticle,
		Topic:       "T",
		MaxAttempts: 3,
	}
}

func newTestPool(q JobQueue, s ContentStore, b bridge.Bridge, g Generator) *Pool {
	return New(q, s, b, g, testLogger(), Options{PollInterval: 5 * time.Millisecond})
}

func TestExecuteSuccessWritesStoreBeforePublish(t *testing.T) {
	log := &opLog{}
	q := &fakeQueue{log: log}
	b := &fakeBridge{log: log}
	p := newTestPool(q, &fakeStore{log: log}, b, &fakeGen{log: log, text: "body"})

	if err := p.execute(context.Background(), testJob()); err != nil {
		t.Fatalf("execute: %v", err)
	}

	want := []string{"mark_processing", "generate", "mark_completed", "publish", "queue_complete"}
	got := log.snapshot()
	if len(got) != len(want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("op %d = %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}

	ev := b.events[0]
	if ev.Status != domain.JobStatusCompleted || ev.GeneratedContent != "body" {
		t.Fatalf("event = %+v", ev)
	}
	if ev.JobID != "content-c1" || ev.ContentID != "c1" {
		t.Fatalf("event ids = %+v", ev)
	}
}

func TestExecuteGenerationFailureRecordsAttempt(t *testing.T) {
	log := &opLog{}
	q := &fakeQueue{log: log, retrying: true}
	b := &fakeBridge{log: log}
	genErr := errors.New("model down")
	p := newTestPool(q, &fakeStore{log: log}, b, &fakeGen{log: log, err: genErr})

	if err := p.execute(context.Background(), testJob()); err != nil {
		t.Fatalf("execute: %v", err)
	}

	want := []string{"mark_processing", "generate", "mark_failed", "publish", "queue_fail"}
	got := log.snapshot()
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("ops = %v, want %v", got, want)
		}
	}
	if q.failCause != genErr {
		t.Fatalf("queue.Fail cause = %v, want %v", q.failCause, genErr)
	}
	ev := b.events[0]
	if ev.Status != domain.JobStatusFailed || ev.Error != "model down" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestExecuteMissingRecordIsAttemptFailure(t *testing.T) {
	log := &opLog{}
	q := &fakeQueue{log: log}
	p := newTestPool(q, &fakeStore{log: log, processingErr: domain.ErrNotFound}, &fakeBridge{log: log}, &fakeGen{log: log})

	if err := p.execute(context.Background(), testJob()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, op := range log.snapshot() {
		if op == "generate" {
			t.Fatal("generator invoked for a missing content record")
		}
	}
	if !errors.Is(q.failCause, domain.ErrNotFound) {
		t.Fatalf("queue.Fail cause = %v, want ErrNotFound", q.failCause)
	}
}

func TestExecuteQueueCompleteErrorIsFatal(t *testing.T) {
	log := &opLog{}
	queueErr := errors.New("connection lost")
	q := &fakeQueue{log: log, completeErr: queueErr}
	p := newTestPool(q, &fakeStore{log: log}, &fakeBridge{log: log}, &fakeGen{log: log, text: "body"})

	if err := p.execute(context.Background(), testJob()); !errors.Is(err, queueErr) {
		t.Fatalf("execute err = %v, want %v", err, queueErr)
	}
}

func TestRunStopsCleanlyOnCancel(t *testing.T) {
	log := &opLog{}
	p := newTestPool(&fakeQueue{log: log}, &fakeStore{log: log}, &fakeBridge{log: log}, &fakeGen{log: log})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil on cancel", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
