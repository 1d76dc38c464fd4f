package queue

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

type execCall struct {
	query string
	args  []any
}

type fakeSQL struct {
	execCalls []execCall
	execErr   error
	execTag   pgconn.CommandTag
	scan      func(dest ...any) error
}

func (f *fakeSQL) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	f.execCalls = append(f.execCalls, execCall{query: query, args: args})
	return f.execTag, f.execErr
}

func (f *fakeSQL) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	return scanRow{scan: f.scan}
}

func (f *fakeSQL) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type scanRow struct {
	scan func(dest ...any) error
}

func (r scanRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

func testLogger() infra.Logger {
	return zerolog.New(io.Discard)
}

func newTestQueue(sql infra.SQLExecutor) *Queue {
	return New(sql, testLogger(), Options{
		Delay:       time.Minute,
		MaxAttempts: 3,
		Backoff:     NewExponential(2*time.Second, 0),
	})
}

func TestSubmitDerivesDeterministicJobID(t *testing.T) {
	sql := &fakeSQL{}
	q := newTestQueue(sql)

	jobID, err := q.Submit(context.Background(), Payload{
		ContentID:   "c1",
		OwnerID:     "u1",
		ContentType: domain.ContentTypeArticle,
		Topic:       "T",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if jobID != "content-c1" {
		t.Fatalf("jobID = %q, want content-c1", jobID)
	}
	if len(sql.execCalls) != 1 {
		t.Fatalf("expected 1 exec, got %d", len(sql.execCalls))
	}
	call := sql.execCalls[0]
	if call.query != sqlinline.QSubmitJob {
		t.Fatal("Submit did not use the submit statement")
	}
	if call.args[0] != "content-c1" {
		t.Fatalf("job id arg = %v", call.args[0])
	}
	if call.args[5] != 3 {
		t.Fatalf("max attempts arg = %v, want 3", call.args[5])
	}
	if call.args[6] != int64(60000) {
		t.Fatalf("delay arg = %v, want 60000ms", call.args[6])
	}
}

func TestSubmitRejectsDuplicate(t *testing.T) {
	sql := &fakeSQL{execErr: &pgconn.PgError{Code: "23505"}}
	q := newTestQueue(sql)

	_, err := q.Submit(context.Background(), Payload{ContentID: "c1"})
	if !errors.Is(err, domain.ErrDuplicateJob) {
		t.Fatalf("expected ErrDuplicateJob, got %v", err)
	}
}

func TestClaimNoJobReady(t *testing.T) {
	q := newTestQueue(&fakeSQL{})

	_, err := q.Claim(context.Background())
	if !errors.Is(err, ErrNoJobReady) {
		t.Fatalf("expected ErrNoJobReady, got %v", err)
	}
}

func TestClaimReturnsRunningJob(t *testing.T) {
	runAt := time.Now().UTC()
	sql := &fakeSQL{scan: func(dest ...any) error {
		*(dest[0].(*string)) = "content-c1"
		*(dest[1].(*string)) = "c1"
		*(dest[2].(*string)) = "u1"
		*(dest[3].(*domain.ContentType)) = domain.ContentTypeArticle
		*(dest[4].(*string)) = "T"
		*(dest[5].(*int)) = 1
		*(dest[6].(*int)) = 3
		*(dest[7].(*time.Time)) = runAt
		return nil
	}}
	q := newTestQueue(sql)

	job, err := q.Claim(context.Background())
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if job.State != domain.QueueStateRunning {
		t.Fatalf("state = %q, want running", job.State)
	}
	if job.AttemptsMade != 1 {
		t.Fatalf("attempts = %d, want 1", job.AttemptsMade)
	}
}

func TestFailSchedulesRetryWithBackoff(t *testing.T) {
	tests := []struct {
		name         string
		attemptsMade int
		wantDelayMS  int64
	}{
		{name: "first failure retries after 2s", attemptsMade: 0, wantDelayMS: 2000},
		{name: "second failure retries after 4s", attemptsMade: 1, wantDelayMS: 4000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sql := &fakeSQL{}
			q := newTestQueue(sql)
			job := &domain.Job{ID: "content-c1", AttemptsMade: tc.attemptsMade, MaxAttempts: 3}

			retrying, err := q.Fail(context.Background(), job, errors.New("model down"))
			if err != nil {
				t.Fatalf("Fail: %v", err)
			}
			if !retrying {
				t.Fatal("expected job to be retried")
			}
			call := sql.execCalls[0]
			if call.query != sqlinline.QRetryJob {
				t.Fatal("Fail did not use the retry statement")
			}
			if call.args[1] != tc.attemptsMade+1 {
				t.Fatalf("attempts arg = %v, want %d", call.args[1], tc.attemptsMade+1)
			}
			if call.args[3] != tc.wantDelayMS {
				t.Fatalf("backoff arg = %v, want %d", call.args[3], tc.wantDelayMS)
			}
		})
	}
}

func TestFailTerminalAfterMaxAttempts(t *testing.T) {
	sql := &fakeSQL{}
	q := newTestQueue(sql)
	job := &domain.Job{ID: "content-c1", AttemptsMade: 2, MaxAttempts: 3}

	retrying, err := q.Fail(context.Background(), job, errors.New("model down"))
	if err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if retrying {
		t.Fatal("expected terminal failure, got retry")
	}
	call := sql.execCalls[0]
	if call.query != sqlinline.QFailJob {
		t.Fatal("Fail did not use the terminal statement")
	}
	if call.args[1] != 3 {
		t.Fatalf("attempts arg = %v, want 3", call.args[1])
	}
	if call.args[2] != "model down" {
		t.Fatalf("reason arg = %v", call.args[2])
	}
}

func TestStatusNotFoundForPrunedJob(t *testing.T) {
	q := newTestQueue(&fakeSQL{})

	_, err := q.Status(context.Background(), "content-gone")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPruneReportsRowCount(t *testing.T) {
	sql := &fakeSQL{execTag: pgconn.NewCommandTag("DELETE 4")}
	q := newTestQueue(sql)

	pruned, err := q.Prune(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if pruned != 4 {
		t.Fatalf("pruned = %d, want 4", pruned)
	}
	if sql.execCalls[0].args[0] != int64(24) {
		t.Fatalf("retention arg = %v, want 24", sql.execCalls[0].args[0])
	}
}
