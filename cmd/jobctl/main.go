// jobctl is a small operator tool for the job queue: inspect a job's
// transient state or prune terminal records past the retention window.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/queue"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

func main() {
	var (
		statusFlag string
		pruneFlag  int
	)

	flag.StringVar(&statusFlag, "status", "", "job ID to inspect")
	flag.IntVar(&pruneFlag, "prune", 0, "prune terminal jobs older than this many hours")
	flag.Parse()

	jobID := strings.TrimSpace(statusFlag)
	if jobID == "" && pruneFlag <= 0 {
		exitWithError(errors.New("either -status or -prune must be provided"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.Logger(zerolog.New(os.Stderr).Level(zerolog.WarnLevel))
	runner := infra.NewSQLRunner(pool, logger)
	jobs := queue.New(runner, logger, queue.Options{})

	if jobID != "" {
		view, err := jobs.Status(ctx, jobID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				exitWithError(fmt.Errorf("job %s not found (pruned or never submitted)", jobID))
			}
			exitWithError(err)
		}
		fmt.Printf("job:           %s\n", jobID)
		fmt.Printf("state:         %s\n", view.State)
		fmt.Printf("attempts_made: %d\n", view.AttemptsMade)
		fmt.Printf("run_at:        %s\n", view.RunAt.Format(time.RFC3339))
		if view.FailedReason != "" {
			fmt.Printf("failed_reason: %s\n", view.FailedReason)
		}
	}

	if pruneFlag > 0 {
		pruned, err := jobs.Prune(ctx, time.Duration(pruneFlag)*time.Hour)
		if err != nil {
			exitWithError(err)
		}
		fmt.Printf("pruned %d terminal job(s)\n", pruned)
	}
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "jobctl: %v\n", err)
	os.Exit(1)
}
