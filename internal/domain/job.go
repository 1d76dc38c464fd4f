package domain

import "time"

// QueueState enumerates transient queue-side job states. Backing queue
// vocabularies richer than this are collapsed at the adapter boundary.
type QueueState string

const (
	QueueStatePending   QueueState = "pending"
	QueueStateRunning   QueueState = "running"
	QueueStateCompleted QueueState = "completed"
	QueueStateFailed    QueueState = "failed"
)

// Terminal reports whether no further automatic transition can occur.
func (s QueueState) Terminal() bool {
	return s == QueueStateCompleted || s == QueueStateFailed
}

// Job is a queued generation task. Its identity is derived from the
// content item it belongs to, so a content item has at most one
// addressable job.
type Job struct {
	ID           string
	ContentID    string
	OwnerID      string
	ContentType  ContentType
	Topic        string
	State        QueueState
	AttemptsMade int
	MaxAttempts  int
	Progress     int
	FailedReason string
	ReturnValue  string
	RunAt        time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// JobStatusView is the point-in-time queue view of a job, served to
// pollers alongside the durable content record.
type JobStatusView struct {
	State        QueueState
	Progress     int
	AttemptsMade int
	FailedReason string
	RunAt        time.Time
}
