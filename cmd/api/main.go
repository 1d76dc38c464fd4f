package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/bridge"
	"server/internal/gateway"
	httpapi "server/internal/http"
	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/queue"
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

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to connect database")
	}
	defer dbpool.Close()

	redisClient, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to connect redis")
	}
	defer redisClient.Close()

	runner := infra.NewSQLRunner(dbpool, logger)

	app := handlers.NewApp(runner, logger, cfg.JobDelay, queue.Options{
		Delay:       cfg.JobDelay,
		MaxAttempts: cfg.JobMaxAttempts,
		Backoff:     queue.NewExponential(cfg.JobBackoffBase, 0),
	})

	// Live channel: the hub fans bridge events out to subscribed
	// websocket clients for as long as the process runs.
	hub := gateway.NewHub(logger)
	events := bridge.NewRedis(redisClient, cfg.JobEventChannel, logger)
	go func() {
		if err := hub.Run(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("api: event bridge subscription stopped")
		}
	}()

	router := httpapi.NewRouter(app, hub, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: failed to shutdown server")
	}
	logger.Info().Msg("api: stopped")
}
