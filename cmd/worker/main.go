package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/bridge"
	"server/internal/infra"
	"server/internal/infra/credentials"
	"server/internal/providers/genai"
	"server/internal/queue"
	"server/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	redisClient, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: redis connection failed")
	}
	defer redisClient.Close()

	runner := infra.NewSQLRunner(pool, logger)

	geminiAPIKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if geminiAPIKey == "" {
		credStore := credentials.NewStore(runner)
		keyFromStore, err := credStore.GeminiAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("worker: failed to load gemini api key from store")
		} else {
			geminiAPIKey = keyFromStore
		}
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}
	generator, err := genai.NewClient(genai.Options{
		APIKey:     geminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GeminiModel,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure generation client")
	}

	if geminiAPIKey == "" {
		logger.Warn().Str("model", generator.Model()).Msg("worker: gemini api key missing, using synthetic text generation")
	}

	contents := repo.NewContentRepository(runner)
	jobs := queue.New(runner, logger, queue.Options{
		Delay:       cfg.JobDelay,
		MaxAttempts: cfg.JobMaxAttempts,
		Backoff:     queue.NewExponential(cfg.JobBackoffBase, 0),
	})
	events := bridge.NewRedis(redisClient, cfg.JobEventChannel, logger)

	workers := worker.New(jobs, contents, events, generator, logger, worker.Options{
		Concurrency:  cfg.WorkerConcurrency,
		RateLimit:    cfg.WorkerRateLimit,
		RateWindow:   cfg.WorkerRateWindow,
		PollInterval: cfg.WorkerPollInterval,
	})

	// Terminal job records are pruned on a slow cadence; pollers must
	// tolerate a pruned queue entry by falling back to the durable
	// content record.
	go pruneLoop(ctx, jobs, cfg.JobRetention, logger)

	if err := workers.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func pruneLoop(ctx context.Context, jobs *queue.Queue, retention time.Duration, logger infra.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := jobs.Prune(ctx, retention)
			if err != nil {
				logger.Error().Err(err).Msg("worker: prune failed")
				continue
			}
			if pruned > 0 {
				logger.Info().Int64("pruned", pruned).Msg("worker: pruned terminal jobs")
			}
		}
	}
}
