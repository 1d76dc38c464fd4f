// Package worker runs the bounded-concurrency consumer of the job
// queue. Executors claim ready jobs, invoke the generation collaborator
// and record the outcome: durable content writes always happen before
// the matching event is published, so a subscriber reacting to an event
// reads consistent data.
package worker

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"server/internal/bridge"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/queue"
)

// Generator is the external collaborator turning a content type and a
// topic into generated text. Failures are retryable by the queue.
type Generator interface {
	Generate(ctx context.Context, contentType domain.ContentType, topic string) (string, error)
}

// ContentStore is the durable store the pool writes job outcomes to.
type ContentStore interface {
	MarkProcessing(ctx context.Context, jobID string) error
	MarkCompleted(ctx context.Context, jobID, generated string) error
	MarkFailed(ctx context.Context, jobID string) error
}

// JobQueue is the queue surface the pool consumes.
type JobQueue interface {
	Claim(ctx context.Context) (*domain.Job, error)
	Complete(ctx context.Context, jobID, returnValue string) error
	Fail(ctx context.Context, job *domain.Job, cause error) (bool, error)
}

// Options configures a Pool.
type Options struct {
	// Concurrency is the number of executor goroutines. Default 5.
	Concurrency int
	// RateLimit and RateWindow cap aggregate dispatches across all
	// executors: at most RateLimit dispatches per RateWindow.
	// Defaults: 10 per 60s.
	RateLimit  int
	RateWindow time.Duration
	// PollInterval is the idle sleep between empty claims. Default 2s.
	PollInterval time.Duration
}

// Pool is a bounded pool of job executors sharing one global rate
// limiter. The limiter caps throughput regardless of concurrency.
type Pool struct {
	queue        JobQueue
	contents     ContentStore
	bridge       bridge.Bridge
	gen          Generator
	logger       infra.Logger
	concurrency  int
	limiter      *rate.Limiter
	pollInterval time.Duration
}

// New creates a worker pool. The generator is injected explicitly;
// there is no lazily initialized client state.
func New(q JobQueue, contents ContentStore, b bridge.Bridge, gen Generator, logger infra.Logger, opts Options) *Pool {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	limit := rate.Limit(float64(opts.RateLimit) / opts.RateWindow.Seconds())
	return &Pool{
		queue:        q,
		contents:     contents,
		bridge:       b,
		gen:          gen,
		logger:       logger,
		concurrency:  opts.Concurrency,
		limiter:      rate.NewLimiter(limit, opts.RateLimit),
		pollInterval: opts.PollInterval,
	}
}

// Run blocks until ctx is cancelled or a queue infrastructure error
// occurs. Infrastructure errors are fatal: the process should exit and
// rely on external supervision for restart.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info().Int("concurrency", p.concurrency).Msg("worker: pool started")
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.concurrency; i++ {
		g.Go(func() error { return p.claimLoop(ctx) })
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *Pool) claimLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := p.queue.Claim(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrNoJobReady) {
				p.sleep(ctx)
				continue
			}
			return err
		}

		// Global dispatch budget, shared across executors.
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}

		if err := p.execute(ctx, job); err != nil {
			return err
		}
	}
}

// execute runs a single claimed job to a terminal attempt outcome. The
// returned error is nil unless a queue or cancellation failure makes
// continuing unsafe; collaborator errors are absorbed into the retry
// bookkeeping.
func (p *Pool) execute(ctx context.Context, job *domain.Job) error {
	p.logger.Info().
		Str("job_id", job.ID).
		Str("content_type", string(job.ContentType)).
		Int("attempts_made", job.AttemptsMade).
		Msg("worker: picked job")

	// A missing content record (deleted mid-flight) is an attempt
	// failure like any collaborator error.
	if err := p.contents.MarkProcessing(ctx, job.ID); err != nil {
		return p.failAttempt(ctx, job, err)
	}

	text, err := p.gen.Generate(ctx, job.ContentType, job.Topic)
	if err != nil {
		return p.failAttempt(ctx, job, err)
	}

	if err := p.contents.MarkCompleted(ctx, job.ID, text); err != nil {
		return p.failAttempt(ctx, job, err)
	}
	p.publish(ctx, bridge.JobEvent{
		JobID:            job.ID,
		ContentID:        job.ContentID,
		Status:           domain.JobStatusCompleted,
		GeneratedContent: text,
	})
	if err := p.queue.Complete(ctx, job.ID, text); err != nil {
		return err
	}
	p.logger.Info().Str("job_id", job.ID).Msg("worker: job completed")
	return nil
}

func (p *Pool) failAttempt(ctx context.Context, job *domain.Job, cause error) error {
	p.logger.Error().Err(cause).Str("job_id", job.ID).Msg("worker: attempt failed")

	// The durable failed status is visible on every attempt, not only
	// the final one; a poller mid-retry observes failed while the
	// queue may still retry.
	if err := p.contents.MarkFailed(ctx, job.ID); err != nil {
		p.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: mark failed write lost")
	}
	p.publish(ctx, bridge.JobEvent{
		JobID:     job.ID,
		ContentID: job.ContentID,
		Status:    domain.JobStatusFailed,
		Error:     cause.Error(),
	})

	retrying, err := p.queue.Fail(ctx, job, cause)
	if err != nil {
		return err
	}
	if !retrying {
		p.logger.Warn().Str("job_id", job.ID).Msg("worker: job exhausted retries")
	}
	return nil
}

func (p *Pool) publish(ctx context.Context, ev bridge.JobEvent) {
	if err := p.bridge.Publish(ctx, ev); err != nil {
		// Push delivery is best-effort; polling remains authoritative.
		p.logger.Warn().Err(err).Str("job_id", ev.JobID).Msg("worker: event publish failed")
	}
}

func (p *Pool) sleep(ctx context.Context) {
	t := time.NewTimer(p.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
