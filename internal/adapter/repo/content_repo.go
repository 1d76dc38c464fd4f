package repo

import (
	"context"
	"fmt"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// ContentRepositoryPG is the durable content store. All mutations keyed
// by job id are single atomic find-and-update statements, so concurrent
// worker and request-path writes need no external lock.
type ContentRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewContentRepository creates a content repository backed by PostgreSQL.
func NewContentRepository(sql infra.SQLExecutor) *ContentRepositoryPG {
	return &ContentRepositoryPG{sql: sql}
}

// Create inserts a new content record with its derived prompt and
// deterministic job id. The record starts in job status queued.
func (r *ContentRepositoryPG) Create(ctx context.Context, id, ownerID, topic string, contentType domain.ContentType) (*domain.Content, error) {
	prompt := domain.BuildPrompt(contentType, topic)
	jobID := domain.JobIDFor(id)
	row := r.sql.QueryRow(ctx, sqlinline.QInsertContent, id, ownerID, topic, string(contentType), prompt, jobID)
	return scanContent(row)
}

// GetByID fetches a content record for its owner. A record owned by
// someone else is reported as not found.
func (r *ContentRepositoryPG) GetByID(ctx context.Context, id, ownerID string) (*domain.Content, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectContentByID, id)
	c, err := scanContent(row)
	if err != nil {
		return nil, err
	}
	if c.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

// GetByJobID fetches a content record by its job id without an
// ownership check. Callers that serve users must compare OwnerID
// themselves and fold a mismatch into not-found.
func (r *ContentRepositoryPG) GetByJobID(ctx context.Context, jobID string) (*domain.Content, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectContentByJobID, jobID)
	return scanContent(row)
}

// Update applies the user-writable field set: topic and the working
// copy. Generated content and job status are not reachable through
// this statement.
func (r *ContentRepositoryPG) Update(ctx context.Context, id, ownerID string, topic, content *string) (*domain.Content, error) {
	if topic != nil {
		if err := domain.ValidateTopic(*topic); err != nil {
			return nil, err
		}
	}
	row := r.sql.QueryRow(ctx, sqlinline.QUpdateContentFields, id, ownerID, topic, content)
	return scanContent(row)
}

// MarkProcessing records that a worker picked up the record's job.
func (r *ContentRepositoryPG) MarkProcessing(ctx context.Context, jobID string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkContentProcessing, jobID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("content for job %s: %w", jobID, domain.ErrNotFound)
	}
	return nil
}

// MarkCompleted records a successful generation attempt: the generated
// text is overwritten, the working copy is seeded only if it is still
// empty, and the job status becomes completed. The write is idempotent:
// re-applying it with the same text yields the same final state.
func (r *ContentRepositoryPG) MarkCompleted(ctx context.Context, jobID, generated string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkContentCompleted, jobID, generated)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("content for job %s: %w", jobID, domain.ErrNotFound)
	}
	return nil
}

// MarkFailed records a failed generation attempt. It is applied on
// every failed attempt, not only the final one, so pollers observe the
// failure while the queue may still retry.
func (r *ContentRepositoryPG) MarkFailed(ctx context.Context, jobID string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkContentFailed, jobID)
	return err
}

// Rollback restores the working copy from the generated text. It fails
// with ErrInvalidState when no generation has completed yet.
func (r *ContentRepositoryPG) Rollback(ctx context.Context, id, ownerID string) (*domain.Content, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QRollbackContent, id, ownerID)
	c, err := scanContent(row)
	if err == nil {
		return c, nil
	}
	if err != domain.ErrNotFound {
		return nil, err
	}
	// The conditional update matched nothing: distinguish a missing or
	// foreign record from one that has no generated content.
	existing, getErr := r.GetByID(ctx, id, ownerID)
	if getErr != nil {
		return nil, getErr
	}
	if !existing.HasGenerated() {
		return nil, domain.ErrInvalidState
	}
	return nil, err
}

// Delete removes an owned content record. The associated queue job, if
// any, is left alone: deletion never cancels an in-flight job.
func (r *ContentRepositoryPG) Delete(ctx context.Context, id, ownerID string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteContent, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanContent(row interface{ Scan(dest ...any) error }) (*domain.Content, error) {
	var c domain.Content
	if err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.Topic,
		&c.ContentType,
		&c.Prompt,
		&c.GeneratedContent,
		&c.Content,
		&c.JobID,
		&c.JobStatus,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
