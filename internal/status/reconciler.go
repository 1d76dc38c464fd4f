// Package status merges the transient queue view of a job with the
// durable content record into one client-facing status.
package status

import (
	"context"
	"errors"
	"fmt"

	"server/internal/domain"
)

// ContentSource looks up durable content records by job id.
type ContentSource interface {
	GetByJobID(ctx context.Context, jobID string) (*domain.Content, error)
}

// QueueSource looks up transient job state.
type QueueSource interface {
	Status(ctx context.Context, jobID string) (*domain.JobStatusView, error)
}

// View is the merged status served to polling clients. Queue is nil
// when the queue entry has been pruned; the content record's job
// status is then authoritative on its own.
type View struct {
	JobID   string
	Queue   *domain.JobStatusView
	Content *domain.Content
}

// State returns the authoritative lifecycle state: the durable record
// decides whether the job is done even if the queue is momentarily
// inconsistent.
func (v *View) State() domain.QueueState {
	switch v.Content.JobStatus {
	case domain.JobStatusCompleted:
		return domain.QueueStateCompleted
	case domain.JobStatusFailed:
		return domain.QueueStateFailed
	}
	if v.Queue != nil {
		return v.Queue.State
	}
	switch v.Content.JobStatus {
	case domain.JobStatusProcessing:
		return domain.QueueStateRunning
	default:
		return domain.QueueStatePending
	}
}

// Reconciler serves point-in-time job status.
type Reconciler struct {
	contents ContentSource
	queue    QueueSource
}

// New creates a reconciler over the two stores.
func New(contents ContentSource, queue QueueSource) *Reconciler {
	return &Reconciler{contents: contents, queue: queue}
}

// GetStatus merges both stores for a job owned by requesterID. An
// absent record and an ownership mismatch are reported identically as
// not found, so existence is never leaked. A job id missing from the
// queue (pruned after completion) falls back to the durable record
// alone instead of failing the request.
func (r *Reconciler) GetStatus(ctx context.Context, jobID, requesterID string) (*View, error) {
	content, err := r.contents.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if content.OwnerID != requesterID {
		return nil, domain.ErrNotFound
	}

	qs, err := r.queue.Status(ctx, jobID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("queue status %s: %w", jobID, err)
		}
		qs = nil
	}

	return &View{JobID: jobID, Queue: qs, Content: content}, nil
}
