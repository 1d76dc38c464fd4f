// Package queue implements the durable delayed job queue backing the
// generation pipeline. Jobs live in Postgres; submission applies a
// fixed delay once, failures are retried with exponential backoff up
// to a maximum attempt count, and terminal records may be pruned after
// a retention window.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// ErrNoJobReady is returned by Claim when no job is eligible yet.
var ErrNoJobReady = errors.New("queue: no job ready")

// Payload identifies the work a job carries.
type Payload struct {
	ContentID   string
	OwnerID     string
	ContentType domain.ContentType
	Topic       string
}

// Options configures scheduling and retry behaviour.
type Options struct {
	// Delay is applied once at submission; a job is never claimable
	// before it elapses.
	Delay time.Duration
	// MaxAttempts bounds total execution attempts before the job is
	// terminally failed.
	MaxAttempts int
	// Backoff spaces retry attempts after failures.
	Backoff Backoff
}

// Queue is a Postgres-backed delayed job queue.
type Queue struct {
	sql    infra.SQLExecutor
	logger infra.Logger
	opts   Options
}

// New creates a queue. Zero option fields get the pipeline defaults:
// 60s delay, 3 attempts, exponential backoff from 2s.
func New(sql infra.SQLExecutor, logger infra.Logger, opts Options) *Queue {
	if opts.Delay <= 0 {
		opts.Delay = time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff == nil {
		opts.Backoff = NewExponential(2*time.Second, 0)
	}
	return &Queue{sql: sql, logger: logger, opts: opts}
}

// Submit enqueues a job for the payload's content item. The job id is
// derived deterministically from the content id; resubmitting while a
// job with that id still exists is rejected with ErrDuplicateJob
// rather than silently replacing it.
func (q *Queue) Submit(ctx context.Context, p Payload) (string, error) {
	jobID := domain.JobIDFor(p.ContentID)
	_, err := q.sql.Exec(ctx, sqlinline.QSubmitJob,
		jobID,
		p.ContentID,
		p.OwnerID,
		string(p.ContentType),
		p.Topic,
		q.opts.MaxAttempts,
		q.opts.Delay.Milliseconds(),
	)
	if err != nil {
		if infra.IsUniqueViolation(err) {
			return "", fmt.Errorf("job %s: %w", jobID, domain.ErrDuplicateJob)
		}
		return "", fmt.Errorf("submit job %s: %w", jobID, err)
	}
	q.logger.Info().Str("job_id", jobID).Dur("delay", q.opts.Delay).Msg("queue: job submitted")
	return jobID, nil
}

// Claim atomically takes the oldest ready job and marks it running.
// It returns ErrNoJobReady when nothing is eligible.
func (q *Queue) Claim(ctx context.Context) (*domain.Job, error) {
	row := q.sql.QueryRow(ctx, sqlinline.QClaimJob)
	var j domain.Job
	if err := row.Scan(
		&j.ID,
		&j.ContentID,
		&j.OwnerID,
		&j.ContentType,
		&j.Topic,
		&j.AttemptsMade,
		&j.MaxAttempts,
		&j.RunAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, ErrNoJobReady
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}
	j.State = domain.QueueStateRunning
	return &j, nil
}

// Complete marks a job terminally completed and stores its return value.
func (q *Queue) Complete(ctx context.Context, jobID, returnValue string) error {
	if _, err := q.sql.Exec(ctx, sqlinline.QCompleteJob, jobID, returnValue); err != nil {
		return fmt.Errorf("complete job %s: %w", jobID, err)
	}
	return nil
}

// Fail records a failed attempt for a claimed job. While attempts
// remain it re-enqueues the job with exponential backoff and reports
// retrying=true; after the final attempt the job is terminally failed.
func (q *Queue) Fail(ctx context.Context, job *domain.Job, cause error) (retrying bool, err error) {
	attempts := job.AttemptsMade + 1
	reason := cause.Error()

	if attempts >= q.opts.MaxAttempts {
		if _, err := q.sql.Exec(ctx, sqlinline.QFailJob, job.ID, attempts, reason); err != nil {
			return false, fmt.Errorf("fail job %s: %w", job.ID, err)
		}
		q.logger.Warn().Str("job_id", job.ID).Int("attempts", attempts).Msg("queue: job terminally failed")
		return false, nil
	}

	delay := q.opts.Backoff.Delay(attempts)
	if _, err := q.sql.Exec(ctx, sqlinline.QRetryJob, job.ID, attempts, reason, delay.Milliseconds()); err != nil {
		return false, fmt.Errorf("retry job %s: %w", job.ID, err)
	}
	q.logger.Info().Str("job_id", job.ID).Int("attempts", attempts).Dur("backoff", delay).Msg("queue: job retry scheduled")
	return true, nil
}

// Status returns the transient queue view of a job. Pruned or unknown
// ids yield domain.ErrNotFound; callers must tolerate this for jobs
// whose durable record outlives the queue entry.
func (q *Queue) Status(ctx context.Context, jobID string) (*domain.JobStatusView, error) {
	row := q.sql.QueryRow(ctx, sqlinline.QSelectJobStatus, jobID)
	var v domain.JobStatusView
	if err := row.Scan(&v.State, &v.Progress, &v.AttemptsMade, &v.FailedReason, &v.RunAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("job status %s: %w", jobID, err)
	}
	return &v, nil
}

// Prune removes terminal job records older than the retention window.
func (q *Queue) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	hours := int64(retention.Hours())
	if hours < 1 {
		hours = 1
	}
	tag, err := q.sql.Exec(ctx, sqlinline.QPruneJobs, hours)
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}
